package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"trustledger/internal/consent"
	id "trustledger/pkg/domain"
	"trustledger/pkg/platform/sentinel"
)

const registryName = "consent"

// PostgresStore persists the consent registry in PostgreSQL. The primary key
// leads with user_id, so per-user listing and bulk revocation stay off a full
// table scan.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed consent store.
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
		return "", fmt.Errorf("load consent admin: %w", err)
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
		return fmt.Errorf("store consent admin: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveGrant(ctx context.Context, grant consent.Grant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO consent_grants (user_id, data_type, recipient, granted, timestamp_height, expiration_height, purpose)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, data_type, recipient) DO UPDATE
		 SET granted = EXCLUDED.granted, timestamp_height = EXCLUDED.timestamp_height,
		     expiration_height = EXCLUDED.expiration_height, purpose = EXCLUDED.purpose`,
		grant.User.String(), grant.DataType.String(), grant.Recipient.String(),
		grant.Granted, int64(grant.Timestamp), int64(grant.Expiration), grant.Purpose,
	)
	if err != nil {
		return fmt.Errorf("save consent grant: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindGrant(ctx context.Context, key consent.Key) (consent.Grant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, data_type, recipient, granted, timestamp_height, expiration_height, purpose
		 FROM consent_grants WHERE user_id = $1 AND data_type = $2 AND recipient = $3`,
		key.User.String(), key.DataType.String(), key.Recipient.String(),
	)
	grant, err := scanGrant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return consent.Grant{}, sentinel.ErrNotFound
		}
		return consent.Grant{}, fmt.Errorf("find consent grant: %w", err)
	}
	return grant, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, user id.Principal) ([]consent.Grant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, data_type, recipient, granted, timestamp_height, expiration_height, purpose
		 FROM consent_grants WHERE user_id = $1
		 ORDER BY data_type, recipient`,
		user.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list consent grants: %w", err)
	}
	defer rows.Close()

	grants := make([]consent.Grant, 0)
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent grant: %w", err)
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list consent grants: %w", err)
	}
	return grants, nil
}

func (s *PostgresStore) RevokeAllByUser(ctx context.Context, user id.Principal, dataTypes []id.DataType) (int, error) {
	types := make([]string, 0, len(dataTypes))
	for _, dt := range dataTypes {
		types = append(types, dt.String())
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE consent_grants
		 SET granted = FALSE
		 WHERE user_id = $1 AND granted = TRUE
		   AND (cardinality($2::text[]) = 0 OR data_type = ANY($2))`,
		user.String(), pq.Array(types),
	)
	if err != nil {
		return 0, fmt.Errorf("bulk revoke consent grants: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk revoke consent grants: %w", err)
	}
	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrant(row rowScanner) (consent.Grant, error) {
	var (
		grant      consent.Grant
		user       string
		dataType   string
		recipient  string
		timestamp  int64
		expiration int64
	)
	err := row.Scan(&user, &dataType, &recipient, &grant.Granted, &timestamp, &expiration, &grant.Purpose)
	if err != nil {
		return consent.Grant{}, err
	}
	grant.User = id.Principal(user)
	grant.DataType = id.DataType(dataType)
	grant.Recipient = id.Principal(recipient)
	grant.Timestamp = id.Height(timestamp)
	grant.Expiration = id.Height(expiration)
	return grant, nil
}
