package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"trustledger/internal/registry"
	id "trustledger/pkg/domain"
	dErrors "trustledger/pkg/domain-errors"
	"trustledger/pkg/platform/sentinel"
)

type adminStore struct {
	admin id.Principal
}

func (s *adminStore) Admin(_ context.Context) (id.Principal, error) {
	if s.admin.IsNil() {
		return "", sentinel.ErrNotFound
	}
	return s.admin, nil
}

func (s *adminStore) SetAdmin(_ context.Context, admin id.Principal) error {
	s.admin = admin
	return nil
}

func TestValidAt(t *testing.T) {
	tests := []struct {
		name      string
		flag      bool
		expiresAt id.Height
		now       id.Height
		want      bool
	}{
		{"active before expiry", true, 200, 150, true},
		{"active at expiry height", true, 200, 200, true},
		{"active one past expiry", true, 200, 201, false},
		{"flag cleared", false, 200, 150, false},
		{"flag cleared and expired", false, 200, 300, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, registry.ValidAt(tt.flag, tt.expiresAt, tt.now))
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	ctx := context.Background()
	store := &adminStore{}

	err := registry.RequireAdmin(ctx, store, "alice")
	require.True(t, dErrors.Is(err, dErrors.CodeUnauthorized), "uninitialized registry must reject everyone")

	require.NoError(t, store.SetAdmin(ctx, "alice"))
	require.NoError(t, registry.RequireAdmin(ctx, store, "alice"))

	err = registry.RequireAdmin(ctx, store, "bob")
	require.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestTransferAdmin(t *testing.T) {
	ctx := context.Background()
	store := &adminStore{admin: "alice"}

	err := registry.TransferAdmin(ctx, store, "bob", "bob")
	require.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	require.Equal(t, id.Principal("alice"), store.admin, "rejected transfer must not change the admin")

	err = registry.TransferAdmin(ctx, store, "alice", "")
	require.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))

	require.NoError(t, registry.TransferAdmin(ctx, store, "alice", "bob"))
	require.Equal(t, id.Principal("bob"), store.admin)

	// The old admin lost all rights with the transfer.
	err = registry.TransferAdmin(ctx, store, "alice", "carol")
	require.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	store := &adminStore{}

	require.NoError(t, registry.SeedAdmin(ctx, store, "alice"))
	require.Equal(t, id.Principal("alice"), store.admin)

	// Seeding again never clobbers an existing admin.
	require.NoError(t, registry.SeedAdmin(ctx, store, "mallory"))
	require.Equal(t, id.Principal("alice"), store.admin)

	err := registry.SeedAdmin(ctx, &adminStore{}, "")
	require.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
}

func TestRequireSelf(t *testing.T) {
	require.NoError(t, registry.RequireSelf("alice", "alice"))
	err := registry.RequireSelf("alice", "bob")
	require.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}
