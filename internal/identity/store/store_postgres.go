package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trustledger/internal/identity"
	id "trustledger/pkg/domain"
	"trustledger/pkg/platform/sentinel"
)

const registryName = "identity"

// PostgresStore persists the identity registry in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed identity store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Admin(ctx context.Context) (id.Principal, error) {
	var principal string
	err := s.db.QueryRowContext(ctx,
		`SELECT principal FROM registry_admins WHERE registry = $1`,
		registryName,
	).Scan(&principal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("load identity admin: %w", err)
	}
	return id.Principal(principal), nil
}

func (s *PostgresStore) SetAdmin(ctx context.Context, admin id.Principal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registry_admins (registry, principal) VALUES ($1, $2)
		 ON CONFLICT (registry) DO UPDATE SET principal = EXCLUDED.principal`,
		registryName, admin.String(),
	)
	if err != nil {
		return fmt.Errorf("store identity admin: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveSource(ctx context.Context, source identity.TrustedSource) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trusted_sources (source_id, active, updated_at_height)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (source_id) DO UPDATE
		 SET active = EXCLUDED.active, updated_at_height = EXCLUDED.updated_at_height`,
		source.SourceID.String(), source.Active, int64(source.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save trusted source: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindSource(ctx context.Context, sourceID id.SourceID) (identity.TrustedSource, error) {
	var (
		source identity.TrustedSource
		sid    string
		height int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT source_id, active, updated_at_height FROM trusted_sources WHERE source_id = $1`,
		sourceID.String(),
	).Scan(&sid, &source.Active, &height)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.TrustedSource{}, sentinel.ErrNotFound
		}
		return identity.TrustedSource{}, fmt.Errorf("find trusted source: %w", err)
	}
	source.SourceID = id.SourceID(sid)
	source.UpdatedAt = id.Height(height)
	return source, nil
}

func (s *PostgresStore) SaveInformation(ctx context.Context, info identity.UserInformation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_information (user_id, name, document_hash, source_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET name = EXCLUDED.name, document_hash = EXCLUDED.document_hash, source_id = EXCLUDED.source_id`,
		info.User.String(), info.Name, info.DocumentHash[:], info.Source.String(),
	)
	if err != nil {
		return fmt.Errorf("save user information: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindInformation(ctx context.Context, user id.Principal) (identity.UserInformation, error) {
	var (
		info    identity.UserInformation
		userID  string
		rawHash []byte
		source  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, document_hash, source_id FROM user_information WHERE user_id = $1`,
		user.String(),
	).Scan(&userID, &info.Name, &rawHash, &source)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.UserInformation{}, sentinel.ErrNotFound
		}
		return identity.UserInformation{}, fmt.Errorf("find user information: %w", err)
	}
	if len(rawHash) != len(info.DocumentHash) {
		return identity.UserInformation{}, fmt.Errorf("corrupt document hash for user %s", userID)
	}
	info.User = id.Principal(userID)
	info.Source = id.SourceID(source)
	copy(info.DocumentHash[:], rawHash)
	return info, nil
}

func (s *PostgresStore) SaveVerification(ctx context.Context, status identity.VerificationStatus) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verification_status (user_id, verified, height)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		 SET verified = EXCLUDED.verified, height = EXCLUDED.height`,
		status.User.String(), status.Verified, int64(status.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("save verification status: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindVerification(ctx context.Context, user id.Principal) (identity.VerificationStatus, error) {
	var (
		status identity.VerificationStatus
		userID string
		height int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, verified, height FROM verification_status WHERE user_id = $1`,
		user.String(),
	).Scan(&userID, &status.Verified, &height)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.VerificationStatus{}, sentinel.ErrNotFound
		}
		return identity.VerificationStatus{}, fmt.Errorf("find verification status: %w", err)
	}
	status.User = id.Principal(userID)
	status.Timestamp = id.Height(height)
	return status, nil
}
