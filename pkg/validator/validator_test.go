package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hours struct {
	Name  string `json:"name" validate:"required"`
	Start int    `json:"start_hour" validate:"min=0,max=23"`
	End   int    `json:"end_hour" validate:"min=1,max=24,gtfield=Start"`
	Email string `json:"email" validate:"omitempty,email"`
}

func TestValidate(t *testing.T) {
	v := New()

	require.NoError(t, v.Validate(hours{Name: "clinic", Start: 8, End: 17}))

	err := v.Validate(hours{Start: 9, End: 9, Email: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "end_hour must be greater than Start")
	assert.Contains(t, err.Error(), "email must be a valid email")
}

func TestValidateField(t *testing.T) {
	v := New()

	assert.NoError(t, v.ValidateField("horizon", 30, "min=0", "max=90"))

	err := v.ValidateField("horizon", 120, "min=0", "max=90")
	require.Error(t, err)
	assert.Equal(t, "horizon must not exceed 90", err.Error())
}
