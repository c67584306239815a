package auth

import "github.com/golang-jwt/jwt/v5"

type User struct {
	ID       int64  `json:"-"`
	Email    string `json:"email"`
	Token    string `json:"token"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
	Password []byte `json:"-"`
}

type UserClaim struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`

	jwt.RegisteredClaims
}
