package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"trustledger/internal/credential/service"
	"trustledger/internal/credential/store"
	"trustledger/internal/ledger"
	id "trustledger/pkg/domain"
	dErrors "trustledger/pkg/domain-errors"
	audit "trustledger/pkg/platform/audit"
	"trustledger/pkg/platform/audit/publisher"
)

const (
	admin  = id.Principal("admin")
	issuer = id.Principal("university")
	alice  = id.Principal("alice")
	degree = id.CredentialID("degree-2026")
)

type CredentialServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemoryStore
	heights *ledger.Manual
	events  *audit.InMemoryStore
	svc     *service.Service
}

func TestCredentialServiceSuite(t *testing.T) {
	suite.Run(t, new(CredentialServiceSuite))
}

func (s *CredentialServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.heights = ledger.NewManual(50)
	s.events = audit.NewInMemoryStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = service.NewService(s.store, s.heights, publisher.New(s.events), logger)
	s.Require().NoError(s.svc.SeedAdmin(s.ctx, admin))
}

func (s *CredentialServiceSuite) TestAuthorizeIssuerRequiresAdmin() {
	err := s.svc.AuthorizeIssuer(s.ctx, alice, issuer)
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))

	authorized, err := s.svc.IsAuthorizedIssuer(s.ctx, issuer)
	s.Require().NoError(err)
	s.False(authorized, "rejected call must leave no record behind")
}

func (s *CredentialServiceSuite) TestIssueRequiresAuthorization() {
	_, err := s.svc.IssueCredential(s.ctx, issuer, alice, degree, "BSc", 100)
	s.True(dErrors.Is(err, dErrors.CodeForbidden))

	s.Require().NoError(s.svc.AuthorizeIssuer(s.ctx, admin, issuer))
	s.Require().NoError(s.svc.RevokeIssuerAuthorization(s.ctx, admin, issuer))

	_, err = s.svc.IssueCredential(s.ctx, issuer, alice, degree, "BSc", 100)
	s.True(dErrors.Is(err, dErrors.CodeForbidden), "revoked issuers cannot issue")
}

func (s *CredentialServiceSuite) TestIssuanceAndExpiryBoundary() {
	s.Require().NoError(s.svc.AuthorizeIssuer(s.ctx, admin, issuer))
	s.heights.Advance(10)

	cred, err := s.svc.IssueCredential(s.ctx, issuer, alice, degree, "BSc", 100)
	s.Require().NoError(err)
	s.Equal(id.Height(60), cred.IssuedAt)
	s.Equal(id.Height(160), cred.ExpiresAt)

	s.heights.Set(160)
	valid, height, err := s.svc.IsCredentialValid(s.ctx, alice, degree)
	s.Require().NoError(err)
	s.True(valid, "valid at the expiry height itself")
	s.Equal(id.Height(160), height)

	s.heights.Set(161)
	valid, _, err = s.svc.IsCredentialValid(s.ctx, alice, degree)
	s.Require().NoError(err)
	s.False(valid, "invalid one block past expiry")
}

func (s *CredentialServiceSuite) TestRevokeOnlyByOriginalIssuer() {
	s.Require().NoError(s.svc.AuthorizeIssuer(s.ctx, admin, issuer))
	s.Require().NoError(s.svc.AuthorizeIssuer(s.ctx, admin, "college"))
	_, err := s.svc.IssueCredential(s.ctx, issuer, alice, degree, "BSc", 100)
	s.Require().NoError(err)

	err = s.svc.RevokeCredential(s.ctx, admin, alice, degree)
	s.True(dErrors.Is(err, dErrors.CodeForbidden), "admin cannot revoke credentials")

	err = s.svc.RevokeCredential(s.ctx, "college", alice, degree)
	s.True(dErrors.Is(err, dErrors.CodeForbidden), "other issuers cannot revoke")

	s.Require().NoError(s.svc.RevokeCredential(s.ctx, issuer, alice, degree))
	valid, _, err := s.svc.IsCredentialValid(s.ctx, alice, degree)
	s.Require().NoError(err)
	s.False(valid)
}

func (s *CredentialServiceSuite) TestRevokeMissingCredential() {
	err := s.svc.RevokeCredential(s.ctx, issuer, alice, "no-such-credential")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *CredentialServiceSuite) TestIssuerRevocationDoesNotCascade() {
	s.Require().NoError(s.svc.AuthorizeIssuer(s.ctx, admin, issuer))
	_, err := s.svc.IssueCredential(s.ctx, issuer, alice, degree, "BSc", 100)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.RevokeIssuerAuthorization(s.ctx, admin, issuer))

	valid, _, err := s.svc.IsCredentialValid(s.ctx, alice, degree)
	s.Require().NoError(err)
	s.True(valid, "already-issued credentials survive issuer revocation")

	// The revoked issuer can still revoke what it issued.
	s.NoError(s.svc.RevokeCredential(s.ctx, issuer, alice, degree))
}

func (s *CredentialServiceSuite) TestReissuanceResetsRevocation() {
	s.Require().NoError(s.svc.AuthorizeIssuer(s.ctx, admin, issuer))
	_, err := s.svc.IssueCredential(s.ctx, issuer, alice, degree, "BSc", 100)
	s.Require().NoError(err)
	s.Require().NoError(s.svc.RevokeCredential(s.ctx, issuer, alice, degree))

	s.heights.Advance(20)
	cred, err := s.svc.IssueCredential(s.ctx, issuer, alice, degree, "BSc v2", 100)
	s.Require().NoError(err)
	s.False(cred.Revoked)
	s.Equal(id.Height(70), cred.IssuedAt)
	s.Equal(id.Height(170), cred.ExpiresAt)

	valid, _, err := s.svc.IsCredentialValid(s.ctx, alice, degree)
	s.Require().NoError(err)
	s.True(valid)
}

func (s *CredentialServiceSuite) TestValidityOfAbsentCredential() {
	valid, height, err := s.svc.IsCredentialValid(s.ctx, alice, "never-issued")
	s.Require().NoError(err)
	s.False(valid)
	s.Equal(id.Height(50), height)
}

func (s *CredentialServiceSuite) TestRevokeNeverAuthorizedIssuer() {
	s.Require().NoError(s.svc.RevokeIssuerAuthorization(s.ctx, admin, "unknown-issuer"))

	authorized, err := s.svc.IsAuthorizedIssuer(s.ctx, "unknown-issuer")
	s.Require().NoError(err)
	s.False(authorized)
}

func (s *CredentialServiceSuite) TestGetCredential() {
	_, err := s.svc.GetCredential(s.ctx, alice, degree)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	s.Require().NoError(s.svc.AuthorizeIssuer(s.ctx, admin, issuer))
	_, err = s.svc.IssueCredential(s.ctx, issuer, alice, degree, "BSc", 100)
	s.Require().NoError(err)

	cred, err := s.svc.GetCredential(s.ctx, alice, degree)
	s.Require().NoError(err)
	s.Equal(issuer, cred.Issuer)
	s.Equal("BSc", cred.Data)
}

func (s *CredentialServiceSuite) TestMutationsLeaveAuditTrail() {
	s.Require().NoError(s.svc.AuthorizeIssuer(s.ctx, admin, issuer))
	_, err := s.svc.IssueCredential(s.ctx, issuer, alice, degree, "BSc", 100)
	s.Require().NoError(err)
	s.Require().NoError(s.svc.RevokeCredential(s.ctx, issuer, alice, degree))

	events := s.events.Events()
	s.Require().Len(events, 3)
	s.Equal(audit.ActionIssuerAuthorized, events[0].Action)
	s.Equal(audit.ActionCredentialIssued, events[1].Action)
	s.Equal(audit.ActionCredentialRevoked, events[2].Action)
	for _, event := range events {
		s.Equal(audit.RegistryCredential, event.Registry)
	}
}
