package store

import (
	"context"

	"trustledger/internal/identity"
	id "trustledger/pkg/domain"
)

// Store persists the identity registry's state: the admin principal, the
// trusted source set, user submissions, and verification statuses. Lookups
// return sentinel.ErrNotFound for absent keys; services decide whether that
// maps to a domain error or a false validity verdict.
type Store interface {
	Admin(ctx context.Context) (id.Principal, error)
	SetAdmin(ctx context.Context, admin id.Principal) error

	SaveSource(ctx context.Context, source identity.TrustedSource) error
	FindSource(ctx context.Context, sourceID id.SourceID) (identity.TrustedSource, error)

	SaveInformation(ctx context.Context, info identity.UserInformation) error
	FindInformation(ctx context.Context, user id.Principal) (identity.UserInformation, error)

	SaveVerification(ctx context.Context, status identity.VerificationStatus) error
	FindVerification(ctx context.Context, user id.Principal) (identity.VerificationStatus, error)
}
