package respond

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
)

const notBlankTag = "notblank"

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	english := en.New()

	var found bool
	if translator, found = ut.New(english, english).GetTranslator("en"); !found {
		panic("respond: english translator not registered")
	}

	if err := entranslations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(fmt.Sprintf("respond: registering translations: %v", err))
	}

	// Report JSON field names rather than Go ones.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	if err := validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	}); err != nil {
		panic(fmt.Sprintf("respond: registering %s: %v", notBlankTag, err))
	}

	if err := validate.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string { return fe.Field() + " cannot be blank" },
	); err != nil {
		panic(fmt.Sprintf("respond: registering %s translation: %v", notBlankTag, err))
	}
}

// Decode reads a JSON body into dst and validates its struct tags.
func Decode(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return apperr.Invalid("invalid request body: %v", err)
	}

	return Validate(dst)
}

func Validate(v any) error {
	return validate.Struct(v)
}

// ParseUUID parses a path or query value, reporting which one was bad.
func ParseUUID(name, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apperr.Invalid("invalid %s", name)
	}

	return id, nil
}
