package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	id "trustledger/pkg/domain"
	dErrors "trustledger/pkg/domain-errors"
)

func TestParsePrincipal(t *testing.T) {
	p, err := id.ParsePrincipal("alice")
	require.NoError(t, err)
	require.Equal(t, id.Principal("alice"), p)

	_, err = id.ParsePrincipal("")
	require.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))

	_, err = id.ParsePrincipal(strings.Repeat("x", 257))
	require.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
}

func TestParseRejectsEmptyAcrossTypes(t *testing.T) {
	_, err := id.ParseSourceID("")
	require.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))

	_, err = id.ParseCredentialID("")
	require.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))

	_, err = id.ParseDataType("")
	require.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
}

func TestDocumentHashRoundTrip(t *testing.T) {
	h := id.DigestDocument([]byte("passport scan bytes"))
	require.False(t, h.IsZero())
	require.Len(t, h.String(), 64)

	parsed, err := id.ParseDocumentHash(h.String())
	require.NoError(t, err)
	require.Equal(t, h, parsed)
}

func TestDigestIsDeterministic(t *testing.T) {
	a := id.DigestDocument([]byte("same bytes"))
	b := id.DigestDocument([]byte("same bytes"))
	c := id.DigestDocument([]byte("different bytes"))
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestParseDocumentHashRejectsBadInput(t *testing.T) {
	_, err := id.ParseDocumentHash("not-hex")
	require.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))

	_, err = id.ParseDocumentHash("abcd")
	require.True(t, dErrors.Is(err, dErrors.CodeInvalidInput), "short digests are rejected")
}

func TestDocumentHashText(t *testing.T) {
	h := id.DigestDocument([]byte("doc"))

	text, err := h.MarshalText()
	require.NoError(t, err)

	var decoded id.DocumentHash
	require.NoError(t, decoded.UnmarshalText(text))
	require.Equal(t, h, decoded)
}
