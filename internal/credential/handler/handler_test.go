package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	contracts "trustledger/contracts/registry"
	"trustledger/internal/credential/handler"
	"trustledger/internal/credential/metrics"
	"trustledger/internal/credential/service"
	"trustledger/internal/credential/store"
	"trustledger/internal/jwtauth"
	"trustledger/internal/ledger"
	id "trustledger/pkg/domain"
)

type CredentialHandlerSuite struct {
	suite.Suite
	router  chi.Router
	jwt     *jwtauth.Service
	svc     *service.Service
	heights *ledger.Manual
}

func TestCredentialHandlerSuite(t *testing.T) {
	suite.Run(t, new(CredentialHandlerSuite))
}

var handlerMetrics = metrics.New()

func (s *CredentialHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.heights = ledger.NewManual(50)
	s.svc = service.NewService(store.NewInMemory(), s.heights, nil, logger)
	s.Require().NoError(s.svc.SeedAdmin(context.Background(), "admin"))

	s.jwt = jwtauth.NewService("test-key", "trustledger-test")
	s.router = chi.NewRouter()
	handler.New(s.svc, logger, handlerMetrics, s.jwt).Register(s.router)
}

func (s *CredentialHandlerSuite) request(method, path string, caller id.Principal, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		token, err := s.jwt.GenerateToken(caller, time.Hour)
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *CredentialHandlerSuite) TestRequestsWithoutTokenAreRejected() {
	rec := s.request(http.MethodPost, "/credentials/issuers", "", map[string]string{"issuer": "university"})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *CredentialHandlerSuite) TestIssueAndCheckValidity() {
	rec := s.request(http.MethodPost, "/credentials/issuers", "admin", map[string]string{"issuer": "university"})
	s.Require().Equal(http.StatusNoContent, rec.Code)

	rec = s.request(http.MethodPost, "/credentials/", "university", map[string]any{
		"user":            "alice",
		"credential_id":   "degree-2026",
		"data":            "BSc",
		"validity_period": 100,
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	var cred contracts.CredentialRecord
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &cred))
	s.Equal("university", cred.Issuer)
	s.Equal(uint64(150), cred.ExpiresAt)

	rec = s.request(http.MethodGet, "/credentials/alice/degree-2026/valid", "anyone", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var result contracts.ValidityResult
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &result))
	s.True(result.Valid)
	s.Equal(uint64(50), result.Height)
}

func (s *CredentialHandlerSuite) TestIssueByUnauthorizedIssuer() {
	rec := s.request(http.MethodPost, "/credentials/", "impostor", map[string]any{
		"user":            "alice",
		"credential_id":   "degree-2026",
		"data":            "BSc",
		"validity_period": 100,
	})
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *CredentialHandlerSuite) TestRevokeByNonIssuer() {
	s.request(http.MethodPost, "/credentials/issuers", "admin", map[string]string{"issuer": "university"})
	s.request(http.MethodPost, "/credentials/", "university", map[string]any{
		"user":            "alice",
		"credential_id":   "degree-2026",
		"data":            "BSc",
		"validity_period": 100,
	})

	rec := s.request(http.MethodPost, "/credentials/revoke", "admin", map[string]string{
		"user":          "alice",
		"credential_id": "degree-2026",
	})
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.request(http.MethodPost, "/credentials/revoke", "university", map[string]string{
		"user":          "alice",
		"credential_id": "degree-2026",
	})
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *CredentialHandlerSuite) TestGetMissingCredential() {
	rec := s.request(http.MethodGet, "/credentials/alice/never-issued", "anyone", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *CredentialHandlerSuite) TestValidityOfMissingCredentialIsFalse() {
	rec := s.request(http.MethodGet, "/credentials/alice/never-issued/valid", "anyone", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var result contracts.ValidityResult
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &result))
	s.False(result.Valid)
}
