// Package consent tracks user-granted data sharing permissions keyed by
// (user, dataType, recipient). Users are sovereign over their own grants;
// every write is either by the user or, for bulk revocation, the admin.
package consent

import (
	"trustledger/internal/registry"
	id "trustledger/pkg/domain"
)

// Grant records a user's consent to share one data type with one recipient.
// Timestamp and Expiration are fixed when the grant is written; revocation
// flips Granted and preserves every other field.
type Grant struct {
	User       id.Principal
	DataType   id.DataType
	Recipient  id.Principal
	Granted    bool
	Timestamp  id.Height
	Expiration id.Height
	Purpose    string
}

// ValidAt reports whether the grant authorizes sharing at the given height.
func (g Grant) ValidAt(now id.Height) bool {
	return registry.ValidAt(g.Granted, g.Expiration, now)
}

// Key identifies a grant within the registry.
type Key struct {
	User      id.Principal
	DataType  id.DataType
	Recipient id.Principal
}
