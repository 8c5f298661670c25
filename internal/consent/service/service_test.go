package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"trustledger/internal/consent/service"
	"trustledger/internal/consent/store"
	"trustledger/internal/ledger"
	id "trustledger/pkg/domain"
	dErrors "trustledger/pkg/domain-errors"
	audit "trustledger/pkg/platform/audit"
	"trustledger/pkg/platform/audit/publisher"
)

const (
	admin    = id.Principal("admin")
	alice    = id.Principal("alice")
	bob      = id.Principal("bob")
	hospital = id.Principal("hospital")
	labCorp  = id.Principal("lab-corp")
)

type ConsentServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemoryStore
	heights *ledger.Manual
	events  *audit.InMemoryStore
	svc     *service.Service
}

func TestConsentServiceSuite(t *testing.T) {
	suite.Run(t, new(ConsentServiceSuite))
}

func (s *ConsentServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.heights = ledger.NewManual(100)
	s.events = audit.NewInMemoryStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = service.NewService(s.store, s.heights, publisher.New(s.events), logger)
	s.Require().NoError(s.svc.SeedAdmin(s.ctx, admin))
}

func (s *ConsentServiceSuite) TestGrantAndExpiryBoundary() {
	grant, err := s.svc.Grant(s.ctx, alice, "medical-records", hospital, 100, "treatment")
	s.Require().NoError(err)
	s.Equal(id.Height(100), grant.Timestamp)
	s.Equal(id.Height(200), grant.Expiration)

	s.heights.Set(200)
	valid, height, err := s.svc.IsConsentValid(s.ctx, alice, "medical-records", hospital)
	s.Require().NoError(err)
	s.True(valid, "valid at the expiration height itself")
	s.Equal(id.Height(200), height)

	s.heights.Set(201)
	valid, _, err = s.svc.IsConsentValid(s.ctx, alice, "medical-records", hospital)
	s.Require().NoError(err)
	s.False(valid, "invalid one block past expiration")
}

func (s *ConsentServiceSuite) TestRegrantRefreshesExpiration() {
	_, err := s.svc.Grant(s.ctx, alice, "medical-records", hospital, 100, "treatment")
	s.Require().NoError(err)

	s.heights.Set(150)
	grant, err := s.svc.Grant(s.ctx, alice, "medical-records", hospital, 100, "follow-up")
	s.Require().NoError(err)
	s.Equal(id.Height(250), grant.Expiration)
	s.Equal("follow-up", grant.Purpose)
}

func (s *ConsentServiceSuite) TestRevoke() {
	_, err := s.svc.Grant(s.ctx, alice, "medical-records", hospital, 100, "treatment")
	s.Require().NoError(err)

	s.heights.Set(150)
	s.Require().NoError(s.svc.Revoke(s.ctx, alice, "medical-records", hospital))

	valid, _, err := s.svc.IsConsentValid(s.ctx, alice, "medical-records", hospital)
	s.Require().NoError(err)
	s.False(valid)

	grant, err := s.svc.GetConsent(s.ctx, alice, "medical-records", hospital)
	s.Require().NoError(err)
	s.False(grant.Granted)
	s.Equal(id.Height(100), grant.Timestamp, "revocation keeps the grant height")
	s.Equal(id.Height(200), grant.Expiration)
	s.Equal("treatment", grant.Purpose)
}

func (s *ConsentServiceSuite) TestRevokeMissingGrant() {
	err := s.svc.Revoke(s.ctx, alice, "medical-records", hospital)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ConsentServiceSuite) TestGrantsAreScopedToCaller() {
	_, err := s.svc.Grant(s.ctx, alice, "medical-records", hospital, 100, "treatment")
	s.Require().NoError(err)

	// Bob revoking the same key touches his own (absent) grant, not Alice's.
	err = s.svc.Revoke(s.ctx, bob, "medical-records", hospital)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	valid, _, err := s.svc.IsConsentValid(s.ctx, alice, "medical-records", hospital)
	s.Require().NoError(err)
	s.True(valid)
}

func (s *ConsentServiceSuite) TestBulkRevokeSelf() {
	_, err := s.svc.Grant(s.ctx, alice, "medical-records", hospital, 100, "treatment")
	s.Require().NoError(err)
	_, err = s.svc.Grant(s.ctx, alice, "lab-results", labCorp, 100, "research")
	s.Require().NoError(err)
	_, err = s.svc.Grant(s.ctx, bob, "medical-records", hospital, 100, "treatment")
	s.Require().NoError(err)

	revoked, err := s.svc.BulkRevoke(s.ctx, alice, alice, nil)
	s.Require().NoError(err)
	s.Equal(2, revoked)

	for _, key := range []struct {
		dataType  id.DataType
		recipient id.Principal
	}{
		{"medical-records", hospital},
		{"lab-results", labCorp},
	} {
		valid, _, err := s.svc.IsConsentValid(s.ctx, alice, key.dataType, key.recipient)
		s.Require().NoError(err)
		s.False(valid)
	}

	valid, _, err := s.svc.IsConsentValid(s.ctx, bob, "medical-records", hospital)
	s.Require().NoError(err)
	s.True(valid, "other users' grants are untouched")
}

func (s *ConsentServiceSuite) TestBulkRevokeScopedByDataType() {
	_, err := s.svc.Grant(s.ctx, alice, "medical-records", hospital, 100, "treatment")
	s.Require().NoError(err)
	_, err = s.svc.Grant(s.ctx, alice, "lab-results", labCorp, 100, "research")
	s.Require().NoError(err)

	revoked, err := s.svc.BulkRevoke(s.ctx, alice, alice, []id.DataType{"lab-results"})
	s.Require().NoError(err)
	s.Equal(1, revoked)

	valid, _, err := s.svc.IsConsentValid(s.ctx, alice, "medical-records", hospital)
	s.Require().NoError(err)
	s.True(valid)

	valid, _, err = s.svc.IsConsentValid(s.ctx, alice, "lab-results", labCorp)
	s.Require().NoError(err)
	s.False(valid)
}

func (s *ConsentServiceSuite) TestBulkRevokeSkipsAlreadyRevoked() {
	_, err := s.svc.Grant(s.ctx, alice, "medical-records", hospital, 100, "treatment")
	s.Require().NoError(err)
	s.Require().NoError(s.svc.Revoke(s.ctx, alice, "medical-records", hospital))

	revoked, err := s.svc.BulkRevoke(s.ctx, alice, alice, nil)
	s.Require().NoError(err)
	s.Equal(0, revoked)
}

func (s *ConsentServiceSuite) TestBulkRevokeByAdmin() {
	_, err := s.svc.Grant(s.ctx, alice, "medical-records", hospital, 100, "treatment")
	s.Require().NoError(err)

	s.heights.Set(150)
	revoked, err := s.svc.BulkRevoke(s.ctx, admin, alice, nil)
	s.Require().NoError(err)
	s.Equal(1, revoked)

	grant, err := s.svc.GetConsent(s.ctx, alice, "medical-records", hospital)
	s.Require().NoError(err)
	s.False(grant.Granted)
	s.Equal(id.Height(100), grant.Timestamp, "bulk revocation keeps the grant height")
	s.Equal(id.Height(200), grant.Expiration)
}

func (s *ConsentServiceSuite) TestBulkRevokeByThirdParty() {
	_, err := s.svc.Grant(s.ctx, alice, "medical-records", hospital, 100, "treatment")
	s.Require().NoError(err)

	_, err = s.svc.BulkRevoke(s.ctx, bob, alice, nil)
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))

	valid, _, err := s.svc.IsConsentValid(s.ctx, alice, "medical-records", hospital)
	s.Require().NoError(err)
	s.True(valid, "rejected bulk revoke leaves grants untouched")
}

func (s *ConsentServiceSuite) TestValidityOfAbsentGrant() {
	valid, height, err := s.svc.IsConsentValid(s.ctx, alice, "medical-records", hospital)
	s.Require().NoError(err)
	s.False(valid)
	s.Equal(id.Height(100), height)
}

func (s *ConsentServiceSuite) TestGetConsentMissing() {
	_, err := s.svc.GetConsent(s.ctx, alice, "medical-records", hospital)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ConsentServiceSuite) TestListConsents() {
	_, err := s.svc.Grant(s.ctx, alice, "medical-records", hospital, 100, "treatment")
	s.Require().NoError(err)
	_, err = s.svc.Grant(s.ctx, alice, "lab-results", labCorp, 100, "research")
	s.Require().NoError(err)
	s.Require().NoError(s.svc.Revoke(s.ctx, alice, "lab-results", labCorp))

	grants, err := s.svc.ListConsents(s.ctx, alice)
	s.Require().NoError(err)
	s.Require().Len(grants, 2, "revoked grants stay listed")
	s.Equal(id.DataType("lab-results"), grants[0].DataType)
	s.False(grants[0].Granted)
	s.Equal(id.DataType("medical-records"), grants[1].DataType)
	s.True(grants[1].Granted)
}

func (s *ConsentServiceSuite) TestMutationsLeaveAuditTrail() {
	_, err := s.svc.Grant(s.ctx, alice, "medical-records", hospital, 100, "treatment")
	s.Require().NoError(err)
	_, err = s.svc.BulkRevoke(s.ctx, admin, alice, nil)
	s.Require().NoError(err)

	events := s.events.Events()
	s.Require().Len(events, 2)
	s.Equal(audit.ActionConsentGranted, events[0].Action)
	s.Equal(audit.ActionConsentsBulkRevoked, events[1].Action)
	s.Equal(admin.String(), events[1].Actor)
	s.Equal(alice.String(), events[1].Subject)
}
