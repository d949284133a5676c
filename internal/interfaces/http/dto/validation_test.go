package dto

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValidationErrors(t *testing.T) {
	type bulk struct {
		IDs []string `validate:"required,min=1"`
	}

	t.Run("validator errors become field details", func(t *testing.T) {
		err := validator.New().Struct(bulk{})
		require.Error(t, err)

		resp, ok := FormatValidationErrors(err, "req-1")
		require.True(t, ok)
		assert.Equal(t, ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "req-1", resp.RequestID)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "IDs", resp.Error.Details[0].Field)
		assert.Equal(t, "This field is required", resp.Error.Details[0].Message)
	})

	t.Run("min on a populated slice names the rule", func(t *testing.T) {
		type capped struct {
			Capacity int `validate:"gte=1"`
		}
		err := validator.New().Struct(capped{Capacity: 0})
		require.Error(t, err)

		resp, ok := FormatValidationErrors(err, "")
		require.True(t, ok)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "Must be greater than or equal to 1", resp.Error.Details[0].Message)
	})

	t.Run("non-validator errors are not claimed", func(t *testing.T) {
		_, ok := FormatValidationErrors(errors.New("plain failure"), "req-1")
		assert.False(t, ok)
	})
}
