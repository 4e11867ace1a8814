// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn adds the budgetwatch validations to v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("transaction_type", validateTransactionType)
	_ = v.RegisterValidation("recurrence_interval", validateRecurrenceInterval)
	_ = v.RegisterValidation("alert_threshold", validateAlertThreshold)

	// Money fields are validated with the numeric tags (gt, gte) on their float value.
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})
}

func decimalValue(field reflect.Value) interface{} {
	switch d := field.Interface().(type) {
	case decimal.Decimal:
		f, _ := d.Float64()
		return f
	case decimal.NullDecimal:
		if !d.Valid {
			return nil
		}
		f, _ := d.Decimal.Float64()
		return f
	}
	return nil
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch strings.ToLower(fl.Field().String()) {
	case "income", "expense":
		return true
	}
	return false
}

func validateRecurrenceInterval(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "daily", "weekly", "monthly", "yearly":
		return true
	}
	return false
}

// validateAlertThreshold accepts any strictly positive percentage. Values
// above 100 are allowed; such budgets only ever report near_limit once spent
// has passed the limit, at which point exceeded wins.
func validateAlertThreshold(fl validator.FieldLevel) bool {
	return fl.Field().Float() > 0
}
