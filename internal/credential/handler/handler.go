package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	contracts "trustledger/contracts/registry"
	"trustledger/internal/credential"
	"trustledger/internal/credential/metrics"
	"trustledger/internal/platform/middleware"
	id "trustledger/pkg/domain"
	dErrors "trustledger/pkg/domain-errors"
	"trustledger/pkg/platform/httputil"
)

// Service defines the interface for credential registry operations.
type Service interface {
	TransferAdmin(ctx context.Context, caller, newAdmin id.Principal) error
	AuthorizeIssuer(ctx context.Context, caller, issuer id.Principal) error
	RevokeIssuerAuthorization(ctx context.Context, caller, issuer id.Principal) error
	IssueCredential(ctx context.Context, caller, user id.Principal, credentialID id.CredentialID, data string, validityPeriod id.Height) (credential.Credential, error)
	RevokeCredential(ctx context.Context, caller, user id.Principal, credentialID id.CredentialID) error
	IsCredentialValid(ctx context.Context, user id.Principal, credentialID id.CredentialID) (bool, id.Height, error)
	GetCredential(ctx context.Context, user id.Principal, credentialID id.CredentialID) (credential.Credential, error)
	IsAuthorizedIssuer(ctx context.Context, issuer id.Principal) (bool, error)
}

// Handler handles credential registry endpoints.
type Handler struct {
	logger       *slog.Logger
	credentials  Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new credential Handler.
func New(credentialSvc Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		credentials:  credentialSvc,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the credential routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/credentials", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/admin/transfer", h.handleTransferAdmin)
		r.Post("/issuers", h.handleAuthorizeIssuer)
		r.Post("/issuers/revoke", h.handleRevokeIssuer)
		r.Get("/issuers/{issuer}", h.handleGetIssuer)
		r.Post("/", h.handleIssue)
		r.Post("/revoke", h.handleRevoke)
		r.Get("/{user}/{credentialID}", h.handleGetCredential)
		r.Get("/{user}/{credentialID}/valid", h.handleIsValid)
	})
}

type transferAdminRequest struct {
	NewAdmin string `json:"new_admin"`
}

func (h *Handler) handleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req transferAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	newAdmin, err := id.ParsePrincipal(req.NewAdmin)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.credentials.TransferAdmin(ctx, caller, newAdmin); err != nil {
		h.logWarn(ctx, "transfer admin failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type issuerRequest struct {
	Issuer string `json:"issuer"`
}

func (h *Handler) handleAuthorizeIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req issuerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	issuer, err := id.ParsePrincipal(req.Issuer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.credentials.AuthorizeIssuer(ctx, caller, issuer); err != nil {
		h.logWarn(ctx, "authorize issuer failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.metrics.IssuersAuthorized.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRevokeIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req issuerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	issuer, err := id.ParsePrincipal(req.Issuer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.credentials.RevokeIssuerAuthorization(ctx, caller, issuer); err != nil {
		h.logWarn(ctx, "revoke issuer failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.metrics.IssuersRevoked.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	issuer, err := id.ParsePrincipal(chi.URLParam(r, "issuer"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	authorized, err := h.credentials.IsAuthorizedIssuer(ctx, issuer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"issuer":     issuer.String(),
		"authorized": authorized,
	})
}

type issueCredentialRequest struct {
	User           string `json:"user"`
	CredentialID   string `json:"credential_id"`
	Data           string `json:"data"`
	ValidityPeriod uint64 `json:"validity_period"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req issueCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	user, err := id.ParsePrincipal(req.User)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	credentialID, err := id.ParseCredentialID(req.CredentialID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cred, err := h.credentials.IssueCredential(ctx, caller, user, credentialID, req.Data, id.Height(req.ValidityPeriod))
	if err != nil {
		h.logWarn(ctx, "issue credential failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.metrics.CredentialsIssued.Inc()
	httputil.WriteJSON(w, http.StatusCreated, toRecord(cred))
}

type revokeCredentialRequest struct {
	User         string `json:"user"`
	CredentialID string `json:"credential_id"`
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req revokeCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	user, err := id.ParsePrincipal(req.User)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	credentialID, err := id.ParseCredentialID(req.CredentialID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.credentials.RevokeCredential(ctx, caller, user, credentialID); err != nil {
		h.logWarn(ctx, "revoke credential failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.metrics.CredentialsRevoked.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, credentialID, err := pathKey(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cred, err := h.credentials.GetCredential(ctx, user, credentialID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecord(cred))
}

func (h *Handler) handleIsValid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, credentialID, err := pathKey(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	valid, height, err := h.credentials.IsCredentialValid(ctx, user, credentialID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result := "invalid"
	if valid {
		result = "valid"
	}
	h.metrics.ValidityChecks.WithLabelValues(result).Inc()
	httputil.WriteJSON(w, http.StatusOK, contracts.ValidityResult{Valid: valid, Height: uint64(height)})
}

func pathKey(r *http.Request) (id.Principal, id.CredentialID, error) {
	user, err := id.ParsePrincipal(chi.URLParam(r, "user"))
	if err != nil {
		return "", "", err
	}
	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "credentialID"))
	if err != nil {
		return "", "", err
	}
	return user, credentialID, nil
}

func toRecord(cred credential.Credential) contracts.CredentialRecord {
	return contracts.CredentialRecord{
		User:         cred.User.String(),
		CredentialID: cred.CredentialID.String(),
		Issuer:       cred.Issuer.String(),
		Data:         cred.Data,
		IssuedAt:     uint64(cred.IssuedAt),
		ExpiresAt:    uint64(cred.ExpiresAt),
		Revoked:      cred.Revoked,
	}
}

func (h *Handler) logWarn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}
