// Package credential tracks authorized issuers and the credentials they issue
// to users, each with height-bounded validity and one-way revocation.
package credential

import (
	"trustledger/internal/registry"
	id "trustledger/pkg/domain"
)

// Credential is a verifiable credential record keyed by (user, credentialId).
// ExpiresAt is fixed at issuance and immutable; re-issuance at the same key
// overwrites the whole record, which also resets Revoked.
type Credential struct {
	User         id.Principal
	CredentialID id.CredentialID
	// Issuer is the principal that issued this credential. Only the issuer
	// may revoke it; not the admin, not another authorized issuer.
	Issuer    id.Principal
	Data      string
	IssuedAt  id.Height
	ExpiresAt id.Height
	Revoked   bool
}

// ValidAt reports whether the credential grants its effect at the given height.
func (c Credential) ValidAt(now id.Height) bool {
	return registry.ValidAt(!c.Revoked, c.ExpiresAt, now)
}

// Key identifies a credential within the registry.
type Key struct {
	User         id.Principal
	CredentialID id.CredentialID
}
