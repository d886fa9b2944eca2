package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var basicEmailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("basicemail", func(fl validator.FieldLevel) bool {
		return basicEmailRegex.MatchString(fl.Field().String())
	})
	v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return v
}

var validate = newValidator()

type RegisterRequest struct {
	FirstName       string `json:"firstName" validate:"required"`
	LastName        string `json:"lastName" validate:"required"`
	Email           string `json:"email" validate:"required,basicemail"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type JoinClubRequest struct {
	Passcode string     `json:"passcode" validate:"required"`
	UserId   *FlexibleId `json:"userId,omitempty"`
}

type GrantAdminRequest struct {
	UserId        *FlexibleId `json:"userId" validate:"required"`
	AdminPasscode string      `json:"adminPasscode" validate:"required"`
}

type CreateMessageRequest struct {
	Title       string `json:"title" validate:"notblank"`
	TextContent string `json:"textContent" validate:"notblank"`
}

// FlexibleId accepts a user id sent as a JSON number or a numeric string.
type FlexibleId int

func (id *FlexibleId) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*id = FlexibleId(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("user id must be a number or numeric string")
	}

	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("user id must be a number or numeric string")
	}

	*id = FlexibleId(n)
	return nil
}

// registerValidationMessage maps validation failures onto a single message,
// checking missing fields first.
func registerValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}

	byTag := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		byTag[fe.Tag()] = true
	}

	switch {
	case byTag["required"]:
		return "please enter all fields"
	case byTag["eqfield"]:
		return "passwords do not match"
	case byTag["basicemail"]:
		return "invalid email format"
	case byTag["min"]:
		return "password must be at least 6 characters"
	default:
		return "invalid request body"
	}
}
