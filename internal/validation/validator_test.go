package validation_test

import (
	"testing"

	"github.com/paveg/dispatch/internal/errors"
	"github.com/paveg/dispatch/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeValidator(t *testing.T) {
	tests := []struct {
		name    string
		v       validation.Validator
		wantErr string
	}{
		{"zero is non-negative", validation.NewNonNegativeValidator(0, "new", "count"), ""},
		{"negative count", validation.NewNonNegativeValidator(-1, "new", "count"), "new operation failed: count must be non-negative, got -1"},
		{"positive width", validation.NewPositiveValidator(3, "frame", "width"), ""},
		{"zero width", validation.NewPositiveValidator(0, "frame", "width"), "frame operation failed: width must be positive, got 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())

			var de *errors.DispatchError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, errors.NoIndex, de.Index)
		})
	}
}

func TestNotNilValidator(t *testing.T) {
	var nilFunc func()
	var nilPtr *int
	value := 1

	require.Error(t, validation.ValidateNotNil(nil, "new", "task"))
	require.Error(t, validation.ValidateNotNil(nilFunc, "new", "factory"))
	require.Error(t, validation.ValidateNotNil(nilPtr, "new", "pointer"))
	require.NoError(t, validation.ValidateNotNil(&value, "new", "pointer"))
	require.NoError(t, validation.ValidateNotNil(func() {}, "new", "factory"))
	require.NoError(t, validation.ValidateNotNil(42, "new", "value"))

	err := validation.ValidateNotNil(nil, "new", "task")
	assert.Equal(t, "new operation failed: task must not be nil", err.Error())
}

func TestCompoundValidator(t *testing.T) {
	t.Run("all pass", func(t *testing.T) {
		v := validation.NewCompoundValidator(
			validation.NewPositiveValidator(1, "op", "a"),
			validation.NewNonNegativeValidator(0, "op", "b"),
		)
		require.NoError(t, v.Validate())
	})

	t.Run("first failure wins", func(t *testing.T) {
		v := validation.NewCompoundValidator(
			validation.NewPositiveValidator(1, "op", "a"),
			validation.NewPositiveValidator(0, "op", "b"),
			validation.NewNonNegativeValidator(-5, "op", "c"),
		)
		err := v.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "b must be positive")
	})

	t.Run("empty", func(t *testing.T) {
		require.NoError(t, validation.NewCompoundValidator().Validate())
	})
}

func TestConvenienceFunctions(t *testing.T) {
	require.NoError(t, validation.ValidateNonNegative(5, "run", "count"))
	require.Error(t, validation.ValidateNonNegative(-5, "run", "count"))
	require.NoError(t, validation.ValidatePositive(5, "frame", "height"))
	require.Error(t, validation.ValidatePositive(-5, "frame", "height"))
}
