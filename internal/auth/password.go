package auth

import (
	"errors"

	"github.com/mdobak/go-xerrors"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher is the one-way hashing capability used for credentials.
type PasswordHasher interface {
	Hash(plainTextPassword string) ([]byte, error)
	Matches(hash []byte, plainTextPassword string) (bool, error)
}

type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(plainTextPassword string) ([]byte, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), h.Cost)
	if err != nil {
		return nil, xerrors.New(err)
	}
	return hashedPassword, nil
}

func (h *BcryptHasher) Matches(hash []byte, plainTextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(hash, []byte(plainTextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, xerrors.New(err)
	}

	return true, nil
}

func (user *User) SetPassword(hasher PasswordHasher, plainTextPassword string) error {
	hashedPassword, err := hasher.Hash(plainTextPassword)
	if err != nil {
		return err
	}

	user.Password = hashedPassword
	return nil
}

func (user *User) IsPasswordMatch(hasher PasswordHasher, plainTextPassword string) (bool, error) {
	return hasher.Matches(user.Password, plainTextPassword)
}
