// Package validation provides input validation utilities for dispatcher
// construction and rounds. Validators are small, reusable and composable;
// all of them report failures as invalid-input DispatchErrors.
package validation

import (
	"fmt"
	"reflect"

	"github.com/paveg/dispatch/internal/errors"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// RangeValidator validates that an integer is at least min
type RangeValidator struct {
	value int
	min   int
	name  string
	op    string
}

// NewNonNegativeValidator creates a validator requiring value >= 0
func NewNonNegativeValidator(value int, op, name string) *RangeValidator {
	return &RangeValidator{value: value, min: 0, name: name, op: op}
}

// NewPositiveValidator creates a validator requiring value >= 1
func NewPositiveValidator(value int, op, name string) *RangeValidator {
	return &RangeValidator{value: value, min: 1, name: name, op: op}
}

// Validate checks the lower bound
func (v *RangeValidator) Validate() error {
	if v.value >= v.min {
		return nil
	}
	qualifier := "non-negative"
	if v.min > 0 {
		qualifier = "positive"
	}
	return errors.NewInvalidInputError(v.op, fmt.Sprintf("%s must be %s, got %d", v.name, qualifier, v.value))
}

// NotNilValidator validates that a value is present
type NotNilValidator struct {
	value any
	name  string
	op    string
}

// NewNotNilValidator creates a validator rejecting nil values, including
// typed nil pointers, funcs, maps, slices and channels
func NewNotNilValidator(value any, op, name string) *NotNilValidator {
	return &NotNilValidator{value: value, name: name, op: op}
}

// Validate checks for nil
func (v *NotNilValidator) Validate() error {
	if !isNil(v.value) {
		return nil
	}
	return errors.NewInvalidInputError(v.op, v.name+" must not be nil")
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{
		validators: validators,
	}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Convenience validation functions

// ValidateNonNegative is a convenience function for non-negative validation
func ValidateNonNegative(value int, op, name string) error {
	return NewNonNegativeValidator(value, op, name).Validate()
}

// ValidatePositive is a convenience function for positive validation
func ValidatePositive(value int, op, name string) error {
	return NewPositiveValidator(value, op, name).Validate()
}

// ValidateNotNil is a convenience function for nil validation
func ValidateNotNil(value any, op, name string) error {
	return NewNotNilValidator(value, op, name).Validate()
}
