// Package validation turns binding errors into field -> message maps keyed by
// the JSON names clients send.
package validation

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldErrors map[string]string

var (
	lkPhone = regexp.MustCompile(`^(?:\+94|0)7\d{8}$`)
	slugRe  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Register installs the custom tags on gin's validator and makes field
// errors report JSON names. Safe to call more than once.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("validation: unexpected validator engine")
	}
	v.RegisterTagNameFunc(jsonName)
	if err := v.RegisterValidation("lkphone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || slugRe.MatchString(s)
	})
}

// ValidPhone accepts Sri Lankan mobile numbers: 07XXXXXXXX or +947XXXXXXXX,
// ignoring spaces and dashes.
func ValidPhone(s string) bool {
	s = strings.NewReplacer(" ", "", "-", "").Replace(s)
	return lkPhone.MatchString(s)
}

func jsonName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// FromBindError maps validator failures to messages. Malformed bodies are
// reported under "_".
func FromBindError(err error) FieldErrors {
	out := FieldErrors{}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fieldKey(fe)] = messageFor(fe.Tag(), fe.Param())
		}
		return out
	}

	var se *json.SyntaxError
	var te *json.UnmarshalTypeError
	switch {
	case errors.As(err, &te) && te.Field != "":
		out[te.Field] = "Has the wrong type."
	case errors.As(err, &se):
		out["_"] = "Request body is not valid JSON."
	default:
		out["_"] = "Request body is invalid."
	}
	return out
}

// fieldKey drops the top-level struct name: "registerReq.email" -> "email".
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func messageFor(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return "Must be at least " + param + "."
	case "max":
		return "Must be at most " + param + "."
	case "oneof":
		return "Must be one of: " + param + "."
	case "lkphone":
		return "Enter a Sri Lankan mobile number (07XXXXXXXX)."
	case "slug":
		return "Use lowercase letters, digits and dashes."
	case "uuid", "uuid4":
		return "Must be a valid id."
	case "gt", "gte":
		return "Must be greater than " + param + "."
	default:
		return "Invalid value."
	}
}
