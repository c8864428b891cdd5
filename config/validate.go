package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// checker bundles the validator with the translator its messages use.
type checker struct {
	v     *validator.Validate
	trans ut.Translator
}

// Field names in messages follow the yaml keys of the config file.
var loadChecker = sync.OnceValues(func() (*checker, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(yamlName)

	english := en.New()
	trans, ok := ut.New(english, english).GetTranslator("en")
	if !ok {
		return nil, errors.New("english validation messages unavailable")
	}
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, fmt.Errorf("registering validation messages: %w", err)
	}

	return &checker{v: v, trans: trans}, nil
})

func yamlName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// Validate checks cfg against its declared tags. Rule violations are
// returned as [FieldErrors].
func Validate(cfg *Config) error {
	c, err := loadChecker()
	if err != nil {
		return err
	}

	err = c.v.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}

	fields := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field: fieldPath(fe.Namespace()),
			Err:   c.message(fe),
		})
	}
	return fields
}

// FieldError is one rule violation, keyed by its dotted yaml path.
type FieldError struct {
	Field string
	Err   string
}

// FieldErrors lists every violation found in one config.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	var b strings.Builder
	for i, f := range fe {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", f.Field, f.Err)
	}
	return b.String()
}

// Fields returns the errors keyed by field path.
func (fe FieldErrors) Fields() map[string]string {
	m := make(map[string]string, len(fe))
	for _, f := range fe {
		m[f.Field] = f.Err
	}
	return m
}

// fieldPath drops the root struct name: "Config.websocket.url" becomes
// "websocket.url".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func (c *checker) message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must be set"
	case "required_with":
		return "must be set together with " + strings.ToLower(fe.Param())
	default:
		return fe.Translate(c.trans)
	}
}
