// Package domain provides type-safe identifiers so registry keys cannot be
// mixed up at compile time.
package domain

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	dErrors "trustledger/pkg/domain-errors"
)

// Distinct identifier types - the compiler prevents passing a SourceID where a
// Principal is expected.
type (
	// Principal is an opaque actor identity (user, issuer, admin). The ledger
	// layer guarantees uniqueness; the registries only compare for equality.
	Principal string

	// SourceID labels a trusted verification source.
	SourceID string

	// CredentialID distinguishes credentials held by the same user.
	CredentialID string

	// DataType labels a category of shareable user data in consent grants.
	DataType string
)

// Height is the monotonically non-decreasing ledger clock. All timestamps and
// expiry arithmetic are expressed in heights, never wall time.
type Height uint64

const maxIdentifierLen = 256

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParsePrincipal(s string) (Principal, error) {
	if err := checkIdentifier(s, "principal"); err != nil {
		return "", err
	}
	return Principal(s), nil
}

func ParseSourceID(s string) (SourceID, error) {
	if err := checkIdentifier(s, "source ID"); err != nil {
		return "", err
	}
	return SourceID(s), nil
}

func ParseCredentialID(s string) (CredentialID, error) {
	if err := checkIdentifier(s, "credential ID"); err != nil {
		return "", err
	}
	return CredentialID(s), nil
}

func ParseDataType(s string) (DataType, error) {
	if err := checkIdentifier(s, "data type"); err != nil {
		return "", err
	}
	return DataType(s), nil
}

func checkIdentifier(s, label string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	if len(s) > maxIdentifierLen {
		return dErrors.New(dErrors.CodeInvalidInput, label+" exceeds maximum length")
	}
	return nil
}

// String methods - for logging and audit payloads.

func (p Principal) String() string    { return string(p) }
func (s SourceID) String() string     { return string(s) }
func (c CredentialID) String() string { return string(c) }
func (d DataType) String() string     { return string(d) }

// IsNil checks - used for service-layer validation.

func (p Principal) IsNil() bool    { return p == "" }
func (s SourceID) IsNil() bool     { return s == "" }
func (c CredentialID) IsNil() bool { return c == "" }
func (d DataType) IsNil() bool     { return d == "" }

// DocumentHash is the 32-byte digest of an identity document. Only the digest
// is ever stored; raw documents never enter the registries.
type DocumentHash [32]byte

// DigestDocument derives the canonical document hash from raw document bytes.
func DigestDocument(raw []byte) DocumentHash {
	return sha3.Sum256(raw)
}

// ParseDocumentHash decodes a hex-encoded 32-byte digest.
func ParseDocumentHash(s string) (DocumentHash, error) {
	var h DocumentHash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, dErrors.New(dErrors.CodeInvalidInput, "document hash must be hex encoded")
	}
	if len(raw) != len(h) {
		return h, dErrors.New(dErrors.CodeInvalidInput, "document hash must be 32 bytes")
	}
	copy(h[:], raw)
	return h, nil
}

func (h DocumentHash) String() string { return hex.EncodeToString(h[:]) }

func (h DocumentHash) IsZero() bool { return h == DocumentHash{} }

// MarshalText implements encoding.TextMarshaler for JSON payloads.
func (h DocumentHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *DocumentHash) UnmarshalText(text []byte) error {
	parsed, err := ParseDocumentHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
