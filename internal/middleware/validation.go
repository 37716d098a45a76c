package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/capitalize-ai/educhat/internal/model"
)

// MaxMessageBytes is the largest accepted chat message.
const MaxMessageBytes = 100000

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateChatRequest checks a chat request before it reaches the tutor.
func ValidateChatRequest(req *model.ChatRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		req.Message = ""
	}

	if err := validate.Struct(req); err != nil {
		return describe(err)
	}
	if len(req.Message) > MaxMessageBytes {
		return fmt.Errorf("message exceeds maximum length of %d bytes", MaxMessageBytes)
	}
	if !utf8.ValidString(req.SessionID) {
		return errors.New("session_id must be valid UTF-8")
	}
	if !utf8.ValidString(req.Message) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID checks a session id taken from a URL.
func ValidateSessionID(id string) error {
	if err := validate.Var(id, "required,max=128"); err != nil {
		return errors.New("invalid session id")
	}
	if !utf8.ValidString(id) {
		return errors.New("session id must be valid UTF-8")
	}
	return nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "max":
		return fmt.Errorf("%s exceeds maximum length of %s", fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%s is invalid", fe.Field())
	}
}
