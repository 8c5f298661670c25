package store

import (
	"context"

	"trustledger/internal/consent"
	id "trustledger/pkg/domain"
)

// Store persists the consent registry's state. Lookups return
// sentinel.ErrNotFound for absent keys.
//
// Implementations must support listing and bulk-revoking by user without
// scanning the whole grant set, so a user-to-grants index is part of the
// contract, not an optimization.
type Store interface {
	Admin(ctx context.Context) (id.Principal, error)
	SetAdmin(ctx context.Context, admin id.Principal) error

	SaveGrant(ctx context.Context, grant consent.Grant) error
	FindGrant(ctx context.Context, key consent.Key) (consent.Grant, error)

	// ListByUser returns every grant recorded for the user, active or not.
	ListByUser(ctx context.Context, user id.Principal) ([]consent.Grant, error)

	// RevokeAllByUser flips Granted to false on the user's active grants,
	// leaving every other field untouched. An empty dataTypes slice means all
	// data types. It returns the number of grants revoked.
	RevokeAllByUser(ctx context.Context, user id.Principal, dataTypes []id.DataType) (int, error)
}
