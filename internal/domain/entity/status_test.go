package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeHealthFactor(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		debt  float64
		want  float64
	}{
		{"collateral without debt", 1000, 0, HealthFactorSentinel},
		{"empty wallet", 0, 0, 0},
		{"ratio", 3000, 2000, 1.5},
		{"underwater", 500, 1000, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ComputeHealthFactor(tt.value, tt.debt), 1e-9)
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		hf   float64
		want CustomerStatus
	}{
		{HealthFactorSentinel, StatusActive},
		{1.6, StatusActive},
		{1.5, StatusWarning},
		{1.2, StatusWarning},
		// 1.0 is the contested boundary: the inclusive critical rule wins over warning.
		{1.0, StatusCritical},
		{0.8, StatusCritical},
		{0, StatusCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyStatus(tt.hf), "healthFactor=%v", tt.hf)
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&ProviderError{WalletAddress: "0xabc", Kind: ProviderErrorTransport, Err: cause})

	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "transport")
	assert.Contains(t, err.Error(), "0xabc")

	statusErr := &ProviderError{WalletAddress: "0xabc", Kind: ProviderErrorStatus, StatusCode: 429}
	assert.Contains(t, statusErr.Error(), "status 429")
	assert.ErrorIs(t, statusErr, ErrProviderUnavailable)
}

func TestValidationError(t *testing.T) {
	err := ValidationError("invalid wallet address format: %s", "0x12")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "0x12")
}

func TestCustomerPatchIsEmpty(t *testing.T) {
	assert.True(t, CustomerPatch{}.IsEmpty())
	name := "Acme"
	assert.False(t, CustomerPatch{Name: &name}.IsEmpty())
	assert.False(t, CustomerPatch{Protocols: []string{}}.IsEmpty())
}
