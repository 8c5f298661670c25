package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trustledger/internal/credential"
	"trustledger/internal/registry"
	id "trustledger/pkg/domain"
	"trustledger/pkg/platform/sentinel"
)

const registryName = "credential"

// PostgresStore persists the credential registry in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
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
		return "", fmt.Errorf("load credential admin: %w", err)
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
		return fmt.Errorf("store credential admin: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveIssuer(ctx context.Context, record registry.AuthorityRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credential_issuers (issuer, authorized, updated_at_height)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (issuer) DO UPDATE
		 SET authorized = EXCLUDED.authorized, updated_at_height = EXCLUDED.updated_at_height`,
		record.Subject.String(), record.Authorized, int64(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save credential issuer: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindIssuer(ctx context.Context, issuer id.Principal) (registry.AuthorityRecord, error) {
	var (
		record  registry.AuthorityRecord
		subject string
		height  int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT issuer, authorized, updated_at_height FROM credential_issuers WHERE issuer = $1`,
		issuer.String(),
	).Scan(&subject, &record.Authorized, &height)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return registry.AuthorityRecord{}, sentinel.ErrNotFound
		}
		return registry.AuthorityRecord{}, fmt.Errorf("find credential issuer: %w", err)
	}
	record.Subject = id.Principal(subject)
	record.UpdatedAt = id.Height(height)
	return record, nil
}

func (s *PostgresStore) SaveCredential(ctx context.Context, cred credential.Credential) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (user_id, credential_id, issuer, data, issued_at, expires_at, revoked)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, credential_id) DO UPDATE
		 SET issuer = EXCLUDED.issuer, data = EXCLUDED.data,
		     issued_at = EXCLUDED.issued_at, expires_at = EXCLUDED.expires_at,
		     revoked = EXCLUDED.revoked`,
		cred.User.String(), cred.CredentialID.String(), cred.Issuer.String(),
		cred.Data, int64(cred.IssuedAt), int64(cred.ExpiresAt), cred.Revoked,
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindCredential(ctx context.Context, key credential.Key) (credential.Credential, error) {
	var (
		cred      credential.Credential
		userID    string
		credID    string
		issuer    string
		issuedAt  int64
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, credential_id, issuer, data, issued_at, expires_at, revoked
		 FROM credentials WHERE user_id = $1 AND credential_id = $2`,
		key.User.String(), key.CredentialID.String(),
	).Scan(&userID, &credID, &issuer, &cred.Data, &issuedAt, &expiresAt, &cred.Revoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return credential.Credential{}, sentinel.ErrNotFound
		}
		return credential.Credential{}, fmt.Errorf("find credential: %w", err)
	}
	cred.User = id.Principal(userID)
	cred.CredentialID = id.CredentialID(credID)
	cred.Issuer = id.Principal(issuer)
	cred.IssuedAt = id.Height(issuedAt)
	cred.ExpiresAt = id.Height(expiresAt)
	return cred, nil
}
