package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/ja"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	ja_translations "github.com/go-playground/validator/v10/translations/ja"

	"github.com/example/academy-timetable/internal/timeclock"
)

const (
	clockTag  = "clock"
	clockText = "{0}はHH:MM形式の時刻で指定してください。"
)

// requestValidator validates decoded request DTOs and translates failures
// into Japanese field messages keyed by JSON field name.
type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newRequestValidator() *requestValidator {
	locale := ja.New()
	uni := ut.New(locale, locale)
	translator, _ := uni.GetTranslator("ja")

	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = ja_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(clockTag, func(fl validator.FieldLevel) bool {
		_, err := timeclock.ParseClock(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterTranslation(clockTag, translator,
		func(t ut.Translator) error { return t.Add(clockTag, clockText, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(clockTag, fe.Field())
			return s
		},
	)

	return &requestValidator{validate: validate, translator: translator}
}

// requestError is returned by decode when the body is malformed (Fields is
// nil) or fails validation.
type requestError struct {
	Fields map[string]string
}

func (e *requestError) Error() string {
	if e == nil || e.Fields == nil {
		return errBadRequestBody.Error()
	}
	return "request validation failed"
}

// decode reads a JSON body into dst and validates it.
func (v *requestValidator) decode(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &requestError{}
	}
	return v.check(dst)
}

func (v *requestValidator) check(dst any) error {
	err := v.validate.Struct(dst)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &requestError{}
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fe.Translate(v.translator)
	}
	return &requestError{Fields: fields}
}
