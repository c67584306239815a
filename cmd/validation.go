package main

import (
	"strings"

	"github.com/siahsang/conduit/internal/utils/functional"
	"github.com/siahsang/conduit/internal/validator"
)

const minPasswordLength = 8

func checkEmail(v *validator.Validator, email string) {
	v.CheckNotBlank(email, "email", "must be provided")
	v.CheckEmail(email, "must be a valid email address")
}

func checkPassword(v *validator.Validator, password string) {
	v.CheckNotBlank(password, "password", "must be provided")
	v.Check(len(password) >= minPasswordLength, "password", "must be at least 8 characters long")
}

// checkOptionalNotBlank validates value only when the client sent it.
func checkOptionalNotBlank(v *validator.Validator, value *string, key string) {
	if value != nil {
		v.CheckNotBlank(*value, key, "must not be blank")
	}
}

// trimTags strips surrounding whitespace so checkTags sees the tags as they will be stored.
func trimTags(tags []string) []string {
	return functional.Map(tags, strings.TrimSpace)
}

func checkTags(v *validator.Validator, tags []string) {
	for _, tag := range tags {
		v.CheckNotBlank(tag, "tagList", "must not contain blank tags")
	}
	v.Check(v.IsUnique(tags), "tagList", "must not contain duplicate tags")
}
