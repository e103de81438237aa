package pricing

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-quotation/internal/money"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidLineItem matches a *ValidationError that contains a line item violation.
	ErrInvalidLineItem = errors.New("invalid line item")
)

// Violation names one offending input field.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every violated constraint, not only the first one found.
type ValidationError struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

// Is lets callers use errors.Is with ErrValidation and ErrInvalidLineItem.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return true
	case ErrInvalidLineItem:
		for _, v := range e.Violations {
			if isLineField(v.Field) {
				return true
			}
		}
	}
	return false
}

func isLineField(field string) bool {
	if strings.HasPrefix(field, "items[") {
		return true
	}
	switch field {
	case "quantity", "unitPrice", "lineDiscountPercent", "lineDiscountAmount":
		return true
	}
	return false
}

// document mirrors the engine inputs so a single validator pass reports every field.
type document struct {
	Items       []LineItem        `json:"items" validate:"min=1,dive"`
	Discount    DocumentDiscount  `json:"documentDiscount"`
	Tax         TaxConfig         `json:"tax"`
	Withholding WithholdingConfig `json:"withholding"`
}

type itemsOnly struct {
	Items []LineItem `json:"items" validate:"min=1,dive"`
}

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
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		switch val := field.Interface().(type) {
		case decimal.Decimal:
			return val.String()
		case money.Money:
			return val.Decimal().String()
		}
		return nil
	}, decimal.Decimal{}, money.Money{})
	mustRegister(v, "dgt", func(value, param decimal.Decimal) bool { return value.GreaterThan(param) })
	mustRegister(v, "dgte", func(value, param decimal.Decimal) bool { return value.GreaterThanOrEqual(param) })
	mustRegister(v, "dlte", func(value, param decimal.Decimal) bool { return value.LessThanOrEqual(param) })
	return v
}

func mustRegister(v *validator.Validate, tag string, cmp func(value, param decimal.Decimal) bool) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		value, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		param, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return cmp(value, param)
	})
	if err != nil {
		panic(fmt.Errorf("register %s validation: %w", tag, err))
	}
}

// ValidateDocument checks every engine input before any arithmetic runs.
func ValidateDocument(items []LineItem, discount DocumentDiscount, tax TaxConfig, withholding WithholdingConfig) error {
	return collect(validate.Struct(document{
		Items:       items,
		Discount:    discount,
		Tax:         tax.normalized(),
		Withholding: withholding,
	}))
}

// ValidateItems checks only the line items.
func ValidateItems(items []LineItem) error {
	return collect(validate.Struct(itemsOnly{Items: items}))
}

func validateLine(item LineItem) error {
	return collect(validate.Struct(item))
}

func collect(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{Violations: make([]Violation, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Violations = append(out.Violations, Violation{
			Field:  fieldPath(fe.Namespace()),
			Reason: reason(fe),
		})
	}
	return out
}

// fieldPath drops the root struct name: "document.items[0].quantity" -> "items[0].quantity".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "dgt":
		return "must be greater than " + fe.Param()
	case "dgte":
		return "must be at least " + fe.Param()
	case "dlte":
		return "must be at most " + fe.Param()
	case "min":
		return "at least one line item is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
