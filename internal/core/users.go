package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/conduit/internal/auth"
	"github.com/siahsang/conduit/internal/utils/databaseutils"
)

var (
	ErrDuplicateEmail     = xerrors.Message("Email already used")
	ErrDuplicateUsername  = xerrors.Message("Username already used")
	ErrRecordNotFound     = xerrors.Message("No record found")
	ErrUnknownEmail       = xerrors.Message("The email does not exist")
	ErrInvalidCredentials = xerrors.Message("Password is wrong")
)

type NewUser struct {
	Email    string
	Username string
	Password string
	Bio      string
	Image    string
}

// UserPatch carries the profile fields to change; nil fields are left untouched.
type UserPatch struct {
	Email *string
	Bio   *string
	Image *string
}

const userColumns = `id, email, username, password, bio, image`

func scanUser(rows *sql.Rows) (*auth.User, error) {
	var user = &auth.User{}

	if err := rows.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.Password,
		&user.Bio,
		&user.Image,
	); err != nil {
		return nil, xerrors.New(err)
	}
	return user, nil
}

func userWriteError(err error) error {
	if constraint, ok := violatedConstraint(err); ok {
		switch constraint {
		case "users_email_key":
			return xerrors.New(ErrDuplicateEmail)
		case "users_username_key":
			return xerrors.New(ErrDuplicateUsername)
		}
	}
	return xerrors.New(err)
}

// RegisterUser hashes the password and stores a new user. The returned user never
// carries the hash.
func (c *Core) RegisterUser(ctx context.Context, newUser NewUser) (*auth.User, error) {
	user := &auth.User{
		Email:    newUser.Email,
		Username: newUser.Username,
		Bio:      newUser.Bio,
		Image:    newUser.Image,
	}
	if err := user.SetPassword(c.hasher, newUser.Password); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO users (email, username, password, bio, image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	args := []any{user.Email, user.Username, user.Password, user.Bio, user.Image}
	id, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (int64, error) {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, xerrors.New(err)
		}
		return id, nil
	}, args...)
	if err != nil {
		return nil, userWriteError(err)
	}

	user.ID = id
	user.Password = nil
	c.log.Info("User registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// AuthenticateUser checks the credentials and returns the matching user without
// its password hash.
func (c *Core) AuthenticateUser(ctx context.Context, email, password string) (*auth.User, error) {
	user, err := c.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, xerrors.New(ErrUnknownEmail)
		}
		return nil, err
	}

	match, err := user.IsPasswordMatch(c.hasher, password)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, xerrors.New(ErrInvalidCredentials)
	}

	user.Password = nil
	return user, nil
}

func (c *Core) GetUserByID(ctx context.Context, id int64) (*auth.User, error) {
	user, err := c.getUserBy(ctx, "id", id)
	if err != nil {
		return nil, err
	}
	user.Password = nil
	return user, nil
}

func (c *Core) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return c.getUserBy(ctx, "email", email)
}

func (c *Core) GetUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	return c.getUserBy(ctx, "username", username)
}

// getUserBy looks a user up by one of the unique columns; column is never user input.
func (c *Core) getUserBy(ctx context.Context, column string, value any) (*auth.User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s = $1
	`, userColumns, column)

	user, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, scanUser, value)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, xerrors.New(ErrRecordNotFound)
		default:
			return nil, xerrors.New(err)
		}
	}

	return user, nil
}

// UpdateUser applies a partial profile update.
func (c *Core) UpdateUser(ctx context.Context, userID int64, patch UserPatch) (*auth.User, error) {
	query := fmt.Sprintf(`
		UPDATE users
		SET email = COALESCE($1, email),
		    bio = COALESCE($2, bio),
		    image = COALESCE($3, image),
		    updated_at = now()
		WHERE id = $4
		RETURNING %s
	`, userColumns)

	args := []any{nullString(patch.Email), nullString(patch.Bio), nullString(patch.Image), userID}
	user, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, scanUser, args...)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, xerrors.New(ErrRecordNotFound)
		default:
			return nil, userWriteError(err)
		}
	}

	user.Password = nil
	c.log.Info("User updated Successfully", "user_id", user.ID, "email", user.Email)
	return user, nil
}
