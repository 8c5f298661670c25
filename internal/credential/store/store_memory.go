package store

import (
	"context"
	"sync"

	"trustledger/internal/credential"
	"trustledger/internal/registry"
	id "trustledger/pkg/domain"
	"trustledger/pkg/platform/sentinel"
)

// InMemoryStore keeps the credential registry in process memory.
type InMemoryStore struct {
	mu          sync.RWMutex
	admin       id.Principal
	issuers     map[id.Principal]registry.AuthorityRecord
	credentials map[credential.Key]credential.Credential
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		issuers:     make(map[id.Principal]registry.AuthorityRecord),
		credentials: make(map[credential.Key]credential.Credential),
	}
}

func (s *InMemoryStore) Admin(_ context.Context) (id.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.admin.IsNil() {
		return "", sentinel.ErrNotFound
	}
	return s.admin, nil
}

func (s *InMemoryStore) SetAdmin(_ context.Context, admin id.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admin = admin
	return nil
}

func (s *InMemoryStore) SaveIssuer(_ context.Context, record registry.AuthorityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issuers[record.Subject] = record
	return nil
}

func (s *InMemoryStore) FindIssuer(_ context.Context, issuer id.Principal) (registry.AuthorityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.issuers[issuer]; ok {
		return record, nil
	}
	return registry.AuthorityRecord{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) SaveCredential(_ context.Context, cred credential.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[credential.Key{User: cred.User, CredentialID: cred.CredentialID}] = cred
	return nil
}

func (s *InMemoryStore) FindCredential(_ context.Context, key credential.Key) (credential.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cred, ok := s.credentials[key]; ok {
		return cred, nil
	}
	return credential.Credential{}, sentinel.ErrNotFound
}
