package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/unisync/internal/pkg/apperrors"
)

func TestDomainTags(t *testing.T) {
	assert.NoError(t, Var("21B4821", "enrollment_record"))
	assert.Error(t, Var("21X4821", "enrollment_record"))
	assert.Error(t, Var("21B821", "enrollment_record"))

	assert.NoError(t, Var("IKBO-03-21", "group_name"))
	assert.Error(t, Var("ikbo-3-21", "group_name"))

	assert.NoError(t, Var("09.03.04", "specialty_code"))
	assert.Error(t, Var("9.3.4", "specialty_code"))
}

func TestStructFlattensFieldErrors(t *testing.T) {
	type sample struct {
		Count int    `validate:"min=1"`
		Code  string `validate:"required,specialty_code"`
	}

	err := Struct(sample{Count: 0, Code: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))
	assert.Contains(t, err.Error(), "sample.Count failed on 'min'")
	assert.Contains(t, err.Error(), "sample.Code failed on 'specialty_code'")

	assert.NoError(t, Struct(sample{Count: 2, Code: "01.02.03"}))
}
