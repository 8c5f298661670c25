package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	contracts "trustledger/contracts/registry"
	"trustledger/internal/consent"
	"trustledger/internal/consent/metrics"
	"trustledger/internal/platform/middleware"
	id "trustledger/pkg/domain"
	dErrors "trustledger/pkg/domain-errors"
	"trustledger/pkg/platform/httputil"
)

// Service defines the interface for consent registry operations.
type Service interface {
	TransferAdmin(ctx context.Context, caller, newAdmin id.Principal) error
	Grant(ctx context.Context, caller id.Principal, dataType id.DataType, recipient id.Principal, validityPeriod id.Height, purpose string) (consent.Grant, error)
	Revoke(ctx context.Context, caller id.Principal, dataType id.DataType, recipient id.Principal) error
	BulkRevoke(ctx context.Context, caller, user id.Principal, dataTypes []id.DataType) (int, error)
	IsConsentValid(ctx context.Context, user id.Principal, dataType id.DataType, recipient id.Principal) (bool, id.Height, error)
	GetConsent(ctx context.Context, user id.Principal, dataType id.DataType, recipient id.Principal) (consent.Grant, error)
	ListConsents(ctx context.Context, user id.Principal) ([]consent.Grant, error)
}

// Handler handles consent registry endpoints.
type Handler struct {
	logger       *slog.Logger
	consents     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new consent Handler.
func New(consentSvc Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		consents:     consentSvc,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the consent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/consents", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/admin/transfer", h.handleTransferAdmin)
		r.Post("/", h.handleGrant)
		r.Post("/revoke", h.handleRevoke)
		r.Post("/revoke-all", h.handleBulkRevoke)
		r.Get("/{user}", h.handleList)
		r.Get("/{user}/{dataType}/{recipient}", h.handleGetConsent)
		r.Get("/{user}/{dataType}/{recipient}/valid", h.handleIsValid)
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

	if err := h.consents.TransferAdmin(ctx, caller, newAdmin); err != nil {
		h.logWarn(ctx, "transfer admin failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type grantConsentRequest struct {
	DataType       string `json:"data_type"`
	Recipient      string `json:"recipient"`
	ValidityPeriod uint64 `json:"validity_period"`
	Purpose        string `json:"purpose"`
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req grantConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	dataType, err := id.ParseDataType(req.DataType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	recipient, err := id.ParsePrincipal(req.Recipient)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	grant, err := h.consents.Grant(ctx, caller, dataType, recipient, id.Height(req.ValidityPeriod), req.Purpose)
	if err != nil {
		h.logWarn(ctx, "grant consent failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.metrics.ConsentsGranted.Inc()
	httputil.WriteJSON(w, http.StatusCreated, toRecord(grant))
}

type revokeConsentRequest struct {
	DataType  string `json:"data_type"`
	Recipient string `json:"recipient"`
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req revokeConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	dataType, err := id.ParseDataType(req.DataType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	recipient, err := id.ParsePrincipal(req.Recipient)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.consents.Revoke(ctx, caller, dataType, recipient); err != nil {
		h.logWarn(ctx, "revoke consent failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.metrics.ConsentsRevoked.Inc()
	w.WriteHeader(http.StatusNoContent)
}

type bulkRevokeRequest struct {
	// User defaults to the caller when omitted. Setting it to another
	// principal requires registry admin rights.
	User      string   `json:"user,omitempty"`
	DataTypes []string `json:"data_types,omitempty"`
}

type bulkRevokeResponse struct {
	Revoked int `json:"revoked"`
}

func (h *Handler) handleBulkRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req bulkRevokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	user := caller
	if req.User != "" {
		parsed, err := id.ParsePrincipal(req.User)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		user = parsed
	}

	dataTypes := make([]id.DataType, 0, len(req.DataTypes))
	for _, raw := range req.DataTypes {
		dt, err := id.ParseDataType(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		dataTypes = append(dataTypes, dt)
	}

	revoked, err := h.consents.BulkRevoke(ctx, caller, user, dataTypes)
	if err != nil {
		h.logWarn(ctx, "bulk revoke failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.metrics.BulkRevocations.Inc()
	h.metrics.GrantsBulkRevoked.Add(float64(revoked))
	httputil.WriteJSON(w, http.StatusOK, bulkRevokeResponse{Revoked: revoked})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := id.ParsePrincipal(chi.URLParam(r, "user"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	grants, err := h.consents.ListConsents(ctx, user)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records := make([]contracts.ConsentRecord, 0, len(grants))
	for _, grant := range grants {
		records = append(records, toRecord(grant))
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleGetConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, dataType, recipient, err := pathKey(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	grant, err := h.consents.GetConsent(ctx, user, dataType, recipient)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecord(grant))
}

func (h *Handler) handleIsValid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, dataType, recipient, err := pathKey(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	valid, height, err := h.consents.IsConsentValid(ctx, user, dataType, recipient)
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

func pathKey(r *http.Request) (id.Principal, id.DataType, id.Principal, error) {
	user, err := id.ParsePrincipal(chi.URLParam(r, "user"))
	if err != nil {
		return "", "", "", err
	}
	dataType, err := id.ParseDataType(chi.URLParam(r, "dataType"))
	if err != nil {
		return "", "", "", err
	}
	recipient, err := id.ParsePrincipal(chi.URLParam(r, "recipient"))
	if err != nil {
		return "", "", "", err
	}
	return user, dataType, recipient, nil
}

func toRecord(grant consent.Grant) contracts.ConsentRecord {
	return contracts.ConsentRecord{
		User:       grant.User.String(),
		DataType:   grant.DataType.String(),
		Recipient:  grant.Recipient.String(),
		Granted:    grant.Granted,
		Timestamp:  uint64(grant.Timestamp),
		Expiration: uint64(grant.Expiration),
		Purpose:    grant.Purpose,
	}
}

func (h *Handler) logWarn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}
