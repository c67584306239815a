package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/siahsang/conduit/internal/auth"
	"github.com/siahsang/conduit/internal/core"
	"github.com/siahsang/conduit/internal/validator"
)

func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	type registerUserPayload struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
		Bio      string `json:"bio"`
		Image    string `json:"image"`
	}

	type RegisterUserRequest struct {
		registerUserPayload `json:"user"`
	}

	var registerUserRequest RegisterUserRequest

	if err := app.readJSON(w, r, &registerUserRequest); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	newUser := core.NewUser{
		Email:    strings.TrimSpace(registerUserRequest.Email),
		Username: strings.TrimSpace(registerUserRequest.Username),
		Password: registerUserRequest.Password,
		Bio:      registerUserRequest.Bio,
		Image:    registerUserRequest.Image,
	}

	v := validator.New()
	checkEmail(v, newUser.Email)
	v.CheckNotBlank(newUser.Username, "username", "must be provided")
	checkPassword(v, newUser.Password)

	if !v.IsValid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	user, err := app.core.RegisterUser(r.Context(), newUser)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrDuplicateEmail):
			v.AddError("email", "has already been taken")
			app.failedValidationResponse(w, r, v.Errors)
		case errors.Is(err, core.ErrDuplicateUsername):
			v.AddError("username", "has already been taken")
			app.failedValidationResponse(w, r, v.Errors)
		default:
			app.internalErrorResponse(w, r, err)
		}
		return
	}

	app.writeUserWithNewToken(w, r, user)
}

func (app *application) loginUserHandler(w http.ResponseWriter, r *http.Request) {
	type loginUserPayload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	type LoginUserRequest struct {
		loginUserPayload `json:"user"`
	}

	var loginUserRequest LoginUserRequest

	if err := app.readJSON(w, r, &loginUserRequest); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	email := strings.TrimSpace(loginUserRequest.Email)

	v := validator.New()
	checkEmail(v, email)
	v.CheckNotBlank(loginUserRequest.Password, "password", "must be provided")

	if !v.IsValid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	user, err := app.core.AuthenticateUser(r.Context(), email, loginUserRequest.Password)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnknownEmail):
			v.AddError("email", "is not registered")
			app.failedValidationResponse(w, r, v.Errors)
		case errors.Is(err, core.ErrInvalidCredentials):
			app.invalidCredentialsResponse(w, r, err)
		default:
			app.internalErrorResponse(w, r, err)
		}
		return
	}

	app.writeUserWithNewToken(w, r, user)
}

func (app *application) getCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.authenticationRequiredResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, userResponse(user, user.Token), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	type updateUserPayload struct {
		Email *string `json:"email"`
		Bio   *string `json:"bio"`
		Image *string `json:"image"`
	}

	type UpdateUserRequest struct {
		updateUserPayload `json:"user"`
	}

	var updateUserRequest UpdateUserRequest

	if err := app.readJSON(w, r, &updateUserRequest); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	currentUser, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.authenticationRequiredResponse(w, r, err)
		return
	}

	v := validator.New()
	if updateUserRequest.Email != nil {
		email := strings.TrimSpace(*updateUserRequest.Email)
		updateUserRequest.Email = &email
		checkEmail(v, email)
	}

	if !v.IsValid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	user, err := app.core.UpdateUser(r.Context(), currentUser.ID, core.UserPatch{
		Email: updateUserRequest.Email,
		Bio:   updateUserRequest.Bio,
		Image: updateUserRequest.Image,
	})
	if err != nil {
		switch {
		case errors.Is(err, core.ErrDuplicateEmail):
			v.AddError("email", "has already been taken")
			app.failedValidationResponse(w, r, v.Errors)
		default:
			app.internalErrorResponse(w, r, err)
		}
		return
	}

	// the token carries the email, so it is reissued
	app.writeUserWithNewToken(w, r, user)
}

func (app *application) writeUserWithNewToken(w http.ResponseWriter, r *http.Request, user *auth.User) {
	token, err := app.auth.GenerateToken(user)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, userResponse(user, token), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func userResponse(user *auth.User, token string) envelope {
	user.Token = token
	return envelope{"user": user}
}
