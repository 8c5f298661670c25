package domainerrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	dErrors "trustledger/pkg/domain-errors"
)

func TestNewCarriesCodeAndMessage(t *testing.T) {
	err := dErrors.New(dErrors.CodeNotFound, "credential does not exist")
	require.EqualError(t, err, "credential does not exist")
	require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	require.False(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestWrapPreservesExistingCode(t *testing.T) {
	inner := dErrors.New(dErrors.CodeUnauthorized, "caller is not the registry admin")
	wrapped := dErrors.Wrap(inner, dErrors.CodeInternal, "add trusted source")

	require.True(t, dErrors.HasCode(wrapped, dErrors.CodeUnauthorized),
		"wrapping must not mask the original domain code")
	require.ErrorIs(t, wrapped, inner)
}

func TestWrapAssignsCodeToPlainErrors(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	wrapped := dErrors.Wrap(inner, dErrors.CodeInternal, "load credential")

	require.True(t, dErrors.HasCode(wrapped, dErrors.CodeInternal))
	require.ErrorIs(t, wrapped, inner)
}

func TestHasCodeOnUnrelatedError(t *testing.T) {
	require.False(t, dErrors.HasCode(errors.New("plain"), dErrors.CodeInternal))
	require.False(t, dErrors.HasCode(nil, dErrors.CodeInternal))
}
