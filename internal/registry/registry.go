// Package registry holds the authority and validity primitives shared by the
// identity, credential, and consent registries.
package registry

import (
	"context"
	"errors"

	id "trustledger/pkg/domain"
	dErrors "trustledger/pkg/domain-errors"
	"trustledger/pkg/platform/sentinel"
)

// AuthorityRecord marks membership in a privileged set (authorized issuer,
// trusted source). Records are never deleted; revocation flips Authorized to
// false and preserves history.
type AuthorityRecord struct {
	Subject    id.Principal
	Authorized bool
	UpdatedAt  id.Height
}

// ValidAt is the shared validity predicate: a record grants its effect only
// while its flag is set and the current height has not passed its expiry.
func ValidAt(flag bool, expiresAt, now id.Height) bool {
	return flag && now <= expiresAt
}

// AdminStore is the slice of a registry store that owns the admin principal.
// Each registry keeps exactly one admin as part of its persisted state.
type AdminStore interface {
	// Admin returns the current admin. sentinel.ErrNotFound means the
	// registry was never seeded.
	Admin(ctx context.Context) (id.Principal, error)
	SetAdmin(ctx context.Context, admin id.Principal) error
}

// RequireAdmin checks the caller against the stored admin before any write.
// A rejected check must leave registry state untouched, so call this first.
func RequireAdmin(ctx context.Context, store AdminStore, caller id.Principal) error {
	admin, err := store.Admin(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeUnauthorized, "registry admin not initialized")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "load registry admin")
	}
	if caller != admin {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the registry admin")
	}
	return nil
}

// RequireSelf enforces self-sovereign operations: the caller must be the
// subject of the record being mutated.
func RequireSelf(subject, caller id.Principal) error {
	if caller != subject {
		return dErrors.New(dErrors.CodeUnauthorized, "caller may only act on their own records")
	}
	return nil
}

// TransferAdmin atomically hands the registry to a new admin. There is no
// acceptance step; a misdirected transfer is only reversible by the new admin
// transferring back.
func TransferAdmin(ctx context.Context, store AdminStore, caller, newAdmin id.Principal) error {
	if newAdmin.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "new admin cannot be empty")
	}
	if err := RequireAdmin(ctx, store, caller); err != nil {
		return err
	}
	if err := store.SetAdmin(ctx, newAdmin); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "store registry admin")
	}
	return nil
}

// SeedAdmin initializes the admin once. It is a no-op when an admin already
// exists so restarts never clobber a transferred admin.
func SeedAdmin(ctx context.Context, store AdminStore, admin id.Principal) error {
	if admin.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "bootstrap admin cannot be empty")
	}
	_, err := store.Admin(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load registry admin")
	}
	if err := store.SetAdmin(ctx, admin); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "store registry admin")
	}
	return nil
}
