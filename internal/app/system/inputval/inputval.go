// Package inputval validates decoded request bodies with go-playground/validator
// and turns failures into apperr.ValidationFailed with per-field details.
//
// Field names in details are the json tag names, so the client sees the
// same keys it sent.
package inputval

import (
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	strongPasswordTag  = "strongpw"
	strongPasswordText = "{0} must contain an uppercase letter, a lowercase letter, a number and a special character"

	objectIDTag  = "objectid"
	objectIDText = "{0} must be a valid id"

	requiredText = "{0} is required"
)

var (
	once       sync.Once
	validate   *validator.Validate
	translator ut.Translator
)

func instance() (*validator.Validate, ut.Translator) {
	once.Do(func() {
		locale := en.New()
		uni := ut.New(locale, locale)
		translator, _ = uni.GetTranslator("en")

		validate = validator.New()
		_ = en_translations.RegisterDefaultTranslations(validate, translator)

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = validate.RegisterValidation(strongPasswordTag, func(fl validator.FieldLevel) bool {
			return IsStrongPassword(fl.Field().String())
		})
		_ = validate.RegisterValidation(objectIDTag, func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})

		registerText(strongPasswordTag, strongPasswordText, false)
		registerText(objectIDTag, objectIDText, false)
		registerText("required", requiredText, true)
	})
	return validate, translator
}

func registerText(tag, text string, override bool) {
	_ = validate.RegisterTranslation(tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates v using its `validate` tags. It returns nil or an
// *apperr.Error of kind ValidationFailed listing every failing field.
func Struct(v any) error {
	val, tr := instance()
	err := val.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Validation(err.Error())
	}
	details := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apperr.FieldError{Field: fe.Field(), Message: fe.Translate(tr)})
	}
	return apperr.Validation("validation failed", details...)
}

// Required reports blank values given as name/value pairs, in order. It
// serves multipart forms, where there is no struct to tag.
func Required(pairs ...string) error {
	var details []apperr.FieldError
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			details = append(details, apperr.FieldError{Field: pairs[i], Message: pairs[i] + " is required"})
		}
	}
	if len(details) == 0 {
		return nil
	}
	return apperr.Validation("All fields required", details...)
}

// IsValidEmail reports whether s is a single bare address.
func IsValidEmail(s string) bool {
	val, _ := instance()
	return s != "" && strings.TrimSpace(s) == s && val.Var(s, "email") == nil
}

// IsValidObjectID reports whether s is a 24-char hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}

// IsStrongPassword requires at least one upper, lower, digit and special
// character. Length is checked separately with min/max tags.
func IsStrongPassword(s string) bool {
	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && lower && digit && special
}
