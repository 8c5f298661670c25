package jwtauth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trustledger/internal/jwtauth"
	dErrors "trustledger/pkg/domain-errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := jwtauth.NewService("test-signing-key", "trustledger-test")

	token, err := svc.GenerateToken("alice", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Principal)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := jwtauth.NewService("test-signing-key", "trustledger-test")

	token, err := svc.GenerateToken("alice", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsWrongKey(t *testing.T) {
	minter := jwtauth.NewService("key-one", "trustledger-test")
	verifier := jwtauth.NewService("key-two", "trustledger-test")

	token, err := minter.GenerateToken("alice", time.Hour)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	minter := jwtauth.NewService("shared-key", "someone-else")
	verifier := jwtauth.NewService("shared-key", "trustledger-test")

	token, err := minter.GenerateToken("alice", time.Hour)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := jwtauth.NewService("test-signing-key", "trustledger-test")
	_, err := svc.ValidateToken("not.a.token")
	require.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}
