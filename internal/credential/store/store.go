package store

import (
	"context"

	"trustledger/internal/credential"
	"trustledger/internal/registry"
	id "trustledger/pkg/domain"
)

// Store persists the credential registry's state: the admin principal, the
// authorized issuer set, and the credentials themselves. Lookups return
// sentinel.ErrNotFound for absent keys.
type Store interface {
	Admin(ctx context.Context) (id.Principal, error)
	SetAdmin(ctx context.Context, admin id.Principal) error

	SaveIssuer(ctx context.Context, record registry.AuthorityRecord) error
	FindIssuer(ctx context.Context, issuer id.Principal) (registry.AuthorityRecord, error)

	SaveCredential(ctx context.Context, cred credential.Credential) error
	FindCredential(ctx context.Context, key credential.Key) (credential.Credential, error)
}
