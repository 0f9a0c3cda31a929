package billing

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	phonePattern = regexp.MustCompile(`^(25|22|24|23|99|95|94|96|97)\d{6}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidatePhone accepts an empty value or an 8 digit number with one of the
// allowed two digit prefixes.
func ValidatePhone(value string) bool {
	if value == "" {
		return true
	}
	return phonePattern.MatchString(value)
}

// ValidateEmail accepts an empty value or a local@domain.tld address.
func ValidateEmail(value string) bool {
	if value == "" {
		return true
	}
	return emailPattern.MatchString(value)
}

// FieldErrors maps a field path (json names, e.g. "line_items[0].quantity")
// to a message suitable for an inline annotation.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets callers match FieldErrors against ErrValidation.
func (e FieldErrors) Is(target error) bool {
	return target == ErrValidation
}

// Validator runs struct level validation for every entry form.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the billing tags on a fresh go-playground validator.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("billing_phone", func(fl validator.FieldLevel) bool {
		return ValidatePhone(fl.Field().String())
	})
	_ = v.RegisterValidation("billing_email", func(fl validator.FieldLevel) bool {
		return ValidateEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("billing_payment", func(fl validator.FieldLevel) bool {
		return PaymentMethod(fl.Field().String()).Valid()
	})
	return &Validator{validate: v}
}

// Document validates field shapes and then the submission invariants.
func (v *Validator) Document(doc Document) error {
	if err := v.Struct(doc); err != nil {
		return err
	}
	if err := CheckSubmittable(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// Customer validates a customer form.
func (v *Validator) Customer(c Customer) error {
	return v.Struct(c)
}

// Struct validates any tagged struct and converts the result to FieldErrors.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		out[fieldPath(fe)] = fieldMessage(fe)
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "or company name is required"
	case "billing_phone":
		return "must be an 8 digit number starting with 22, 23, 24, 25, 94, 95, 96, 97 or 99"
	case "billing_email":
		return "must be a valid email address"
	case "billing_payment":
		return "must be one of cash, bank_transfer, card, cheque, other"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}
