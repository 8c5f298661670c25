package store

import (
	"context"
	"sort"
	"sync"

	"trustledger/internal/consent"
	id "trustledger/pkg/domain"
	"trustledger/pkg/platform/sentinel"
)

type grantKey struct {
	dataType  id.DataType
	recipient id.Principal
}

// InMemoryStore keeps the consent registry in process memory. Grants are
// bucketed per user so list and bulk-revoke operations touch only that
// user's records.
type InMemoryStore struct {
	mu     sync.RWMutex
	admin  id.Principal
	grants map[id.Principal]map[grantKey]consent.Grant
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		grants: make(map[id.Principal]map[grantKey]consent.Grant),
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

func (s *InMemoryStore) SaveGrant(_ context.Context, grant consent.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.grants[grant.User]
	if !ok {
		bucket = make(map[grantKey]consent.Grant)
		s.grants[grant.User] = bucket
	}
	bucket[grantKey{dataType: grant.DataType, recipient: grant.Recipient}] = grant
	return nil
}

func (s *InMemoryStore) FindGrant(_ context.Context, key consent.Key) (consent.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if grant, ok := s.grants[key.User][grantKey{dataType: key.DataType, recipient: key.Recipient}]; ok {
		return grant, nil
	}
	return consent.Grant{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByUser(_ context.Context, user id.Principal) ([]consent.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.grants[user]
	grants := make([]consent.Grant, 0, len(bucket))
	for _, grant := range bucket {
		grants = append(grants, grant)
	}
	sort.Slice(grants, func(i, j int) bool {
		if grants[i].DataType != grants[j].DataType {
			return grants[i].DataType < grants[j].DataType
		}
		return grants[i].Recipient < grants[j].Recipient
	})
	return grants, nil
}

func (s *InMemoryStore) RevokeAllByUser(_ context.Context, user id.Principal, dataTypes []id.DataType) (int, error) {
	scoped := make(map[id.DataType]struct{}, len(dataTypes))
	for _, dt := range dataTypes {
		scoped[dt] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	revoked := 0
	for key, grant := range s.grants[user] {
		if !grant.Granted {
			continue
		}
		if len(scoped) > 0 {
			if _, ok := scoped[grant.DataType]; !ok {
				continue
			}
		}
		grant.Granted = false
		s.grants[user][key] = grant
		revoked++
	}
	return revoked, nil
}
