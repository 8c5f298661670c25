package store

import (
	"context"
	"sync"

	"trustledger/internal/identity"
	id "trustledger/pkg/domain"
	"trustledger/pkg/platform/sentinel"
)

// InMemoryStore keeps the identity registry in process memory. It favors
// clarity over performance and backs unit tests and standalone deployments.
type InMemoryStore struct {
	mu            sync.RWMutex
	admin         id.Principal
	sources       map[id.SourceID]identity.TrustedSource
	information   map[id.Principal]identity.UserInformation
	verifications map[id.Principal]identity.VerificationStatus
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		sources:       make(map[id.SourceID]identity.TrustedSource),
		information:   make(map[id.Principal]identity.UserInformation),
		verifications: make(map[id.Principal]identity.VerificationStatus),
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

func (s *InMemoryStore) SaveSource(_ context.Context, source identity.TrustedSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[source.SourceID] = source
	return nil
}

func (s *InMemoryStore) FindSource(_ context.Context, sourceID id.SourceID) (identity.TrustedSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if source, ok := s.sources[sourceID]; ok {
		return source, nil
	}
	return identity.TrustedSource{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) SaveInformation(_ context.Context, info identity.UserInformation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.information[info.User] = info
	return nil
}

func (s *InMemoryStore) FindInformation(_ context.Context, user id.Principal) (identity.UserInformation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if info, ok := s.information[user]; ok {
		return info, nil
	}
	return identity.UserInformation{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) SaveVerification(_ context.Context, status identity.VerificationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifications[status.User] = status
	return nil
}

func (s *InMemoryStore) FindVerification(_ context.Context, user id.Principal) (identity.VerificationStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status, ok := s.verifications[user]; ok {
		return status, nil
	}
	return identity.VerificationStatus{}, sentinel.ErrNotFound
}
