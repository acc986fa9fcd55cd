package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	cepPattern = regexp.MustCompile(`^\d{5}-?\d{3}$`)
	ufCodes    = map[string]bool{}
)

func init() {
	for _, uf := range []string{
		"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO", "MA", "MT", "MS", "MG", "PA",
		"PB", "PR", "PE", "PI", "RJ", "RN", "RS", "RO", "RR", "SC", "SP", "SE", "TO",
	} {
		ufCodes[uf] = true
	}
}

// RegisterCustomValidations registers the uf and cep rules on v
func RegisterCustomValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("uf", isUF); err != nil {
		return err
	}
	if err := v.RegisterValidation("cep", isCEP); err != nil {
		return err
	}
	return nil
}

// NewValidator returns a validator that reports json field names and knows the custom rules
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := RegisterCustomValidations(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterBindingValidators adds the custom rules to gin's request binding validator
func RegisterBindingValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding validator is not go-playground/validator")
	}
	return RegisterCustomValidations(v)
}

// FieldErrors flattens validator errors into a field path → failed rule map.
// Returns nil when err is not a validation error.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		out[field] = fe.Tag()
	}
	return out
}

// IsCEP reports whether s is a postal code with 8 digits and an optional hyphen
func IsCEP(s string) bool {
	return cepPattern.MatchString(s)
}

func isUF(fl validator.FieldLevel) bool {
	return ufCodes[fl.Field().String()]
}

func isCEP(fl validator.FieldLevel) bool {
	return IsCEP(fl.Field().String())
}
