package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func TestValidate(t *testing.T) {
	v := NewValidator()

	errs, ok := v.Validate(credentials{Email: "a@b.io", Password: "secret1"})
	assert.True(t, ok)
	assert.Empty(t, errs)

	errs, ok = v.Validate(credentials{Email: "nope", Password: ""})
	require.False(t, ok)
	require.Len(t, errs, 2)
	assert.Equal(t, "email", errs[0].Field)
	assert.Equal(t, "EMAIL", errs[0].Code)
	assert.Equal(t, "password", errs[1].Field)
	assert.Equal(t, "password is required", errs[1].Message)
}

func TestStructReturnsError(t *testing.T) {
	v := NewValidator()

	err := v.Struct(credentials{Email: "a@b.io", Password: "123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password must be at least 6")

	var ve ValidationErrors
	assert.ErrorAs(t, err, &ve)
}
