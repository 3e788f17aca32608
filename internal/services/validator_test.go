package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncrementValidator(t *testing.T) {
	v := NewIncrementValidator(0.01)

	assert.True(t, v.ValidateIncrement(120, 120.01))
	assert.True(t, v.ValidateIncrement(120, 150))
	assert.False(t, v.ValidateIncrement(120, 120))
	assert.False(t, v.ValidateIncrement(120, 119.99))
	assert.InDelta(t, 120.01, v.GetMinimumBid(120), 1e-9)
}

func TestIncrementValidator_FloatRounding(t *testing.T) {
	v := NewIncrementValidator(0.1)

	// 0.1 + 0.2 is not exactly 0.3 in binary floating point.
	assert.True(t, v.ValidateIncrement(0.2, 0.3))
}

func TestIncrementValidator_DefaultsNonPositiveIncrement(t *testing.T) {
	v := NewIncrementValidator(0)

	assert.False(t, v.ValidateIncrement(10, 10))
	assert.True(t, v.ValidateIncrement(10, 10.01))
}
