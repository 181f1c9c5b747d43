// Package contact implements the contact form: server-side checks and delivery,
// plus the client used by front ends to submit messages.
package contact

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"

	"folio/internal/core"
)

// Field limits, counted in characters.
const (
	MaxNameLength    = 100
	MaxSubjectLength = 200
	MaxMessageLength = 2000
)

// Server-side rejection messages.
const (
	msgInvalidJSON  = "Invalid JSON in request body"
	msgInvalidForm  = "Invalid contact form data"
	msgInvalidEmail = "Invalid email address"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) == ""
	})
	mustRegister(v, "emailaddr", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// ValidationError reports the first field that failed client-side validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type fieldRule struct {
	field   string
	tag     string
	message string
	value   func(core.ContactForm) string
}

// clientRules run in order; the first failure is reported.
var clientRules = []fieldRule{
	{"name", "notblank", "Name is required", func(f core.ContactForm) string { return f.Name }},
	{"name", "max=100", "Name must be less than 100 characters", func(f core.ContactForm) string { return f.Name }},
	{"email", "emailaddr", "Valid email is required", func(f core.ContactForm) string { return f.Email }},
	{"subject", "notblank", "Subject is required", func(f core.ContactForm) string { return f.Subject }},
	{"subject", "max=200", "Subject must be less than 200 characters", func(f core.ContactForm) string { return f.Subject }},
	{"message", "notblank", "Message is required", func(f core.ContactForm) string { return f.Message }},
	{"message", "max=2000", "Message must be less than 2000 characters", func(f core.ContactForm) string { return f.Message }},
	{"honeypot", "blank", "Invalid submission", func(f core.ContactForm) string { return f.Honeypot }},
}

// Validate checks a form before it is sent and returns a *ValidationError naming
// the first offending field.
func Validate(form core.ContactForm) error {
	for _, r := range clientRules {
		if err := validate.Var(r.value(form), r.tag); err != nil {
			return &ValidationError{Field: r.field, Message: r.message}
		}
	}
	return nil
}

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// Sanitize trims every text field and strips angle brackets. Honeypot is left as is.
func Sanitize(form core.ContactForm) core.ContactForm {
	clean := func(s string) string {
		return angleBrackets.Replace(strings.TrimSpace(s))
	}
	return core.ContactForm{
		Name:     clean(form.Name),
		Email:    clean(form.Email),
		Subject:  clean(form.Subject),
		Message:  clean(form.Message),
		Honeypot: form.Honeypot,
	}
}

// ParseSubmission decodes and checks a raw request body the way the server
// accepts it. Failures are *core.AppError with status 400.
func ParseSubmission(body []byte) (core.ContactForm, error) {
	if !gjson.ValidBytes(body) {
		return core.ContactForm{}, core.NewInvalidRequestError(msgInvalidJSON, nil)
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return core.ContactForm{}, core.NewInvalidRequestError(msgInvalidForm, nil)
	}
	for _, key := range []string{"name", "email", "subject", "message"} {
		if root.Get(key).Type != gjson.String {
			return core.ContactForm{}, core.NewInvalidRequestError(msgInvalidForm, nil)
		}
	}
	if hp := root.Get("honeypot"); hp.Exists() && hp.Type != gjson.Null && hp.Type != gjson.String {
		return core.ContactForm{}, core.NewInvalidRequestError(msgInvalidForm, nil)
	}

	form := core.ContactForm{
		Name:     root.Get("name").String(),
		Email:    root.Get("email").String(),
		Subject:  root.Get("subject").String(),
		Message:  root.Get("message").String(),
		Honeypot: root.Get("honeypot").String(),
	}

	if err := validate.Struct(form); err != nil {
		return core.ContactForm{}, core.NewInvalidRequestError(msgInvalidForm, err)
	}
	if err := validate.Var(form.Email, "emailaddr"); err != nil {
		return core.ContactForm{}, core.NewInvalidRequestError(msgInvalidEmail, err)
	}
	return form, nil
}
