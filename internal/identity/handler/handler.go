package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	contracts "trustledger/contracts/registry"
	"trustledger/internal/identity"
	"trustledger/internal/identity/metrics"
	"trustledger/internal/platform/middleware"
	id "trustledger/pkg/domain"
	dErrors "trustledger/pkg/domain-errors"
	"trustledger/pkg/platform/httputil"
)

// Service defines the interface for identity registry operations.
type Service interface {
	TransferAdmin(ctx context.Context, caller, newAdmin id.Principal) error
	AddTrustedSource(ctx context.Context, caller id.Principal, sourceID id.SourceID) error
	RemoveTrustedSource(ctx context.Context, caller id.Principal, sourceID id.SourceID) error
	SubmitInformation(ctx context.Context, caller id.Principal, name string, documentHash id.DocumentHash, sourceID id.SourceID) error
	VerifyUser(ctx context.Context, caller, user id.Principal) error
	IsVerified(ctx context.Context, user id.Principal) (bool, error)
	GetVerification(ctx context.Context, user id.Principal) (identity.VerificationStatus, error)
	GetUserInformation(ctx context.Context, user id.Principal) (identity.UserInformation, error)
	GetTrustedSource(ctx context.Context, sourceID id.SourceID) (identity.TrustedSource, error)
}

// Handler handles identity registry endpoints.
type Handler struct {
	logger       *slog.Logger
	identity     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new identity Handler.
func New(identitySvc Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		identity:     identitySvc,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the identity routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/identity", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/admin/transfer", h.handleTransferAdmin)
		r.Post("/sources", h.handleAddSource)
		r.Post("/sources/remove", h.handleRemoveSource)
		r.Get("/sources/{sourceID}", h.handleGetSource)
		r.Post("/information", h.handleSubmitInformation)
		r.Get("/information/{user}", h.handleGetInformation)
		r.Post("/verify", h.handleVerifyUser)
		r.Get("/verified/{user}", h.handleIsVerified)
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

	if err := h.identity.TransferAdmin(ctx, caller, newAdmin); err != nil {
		h.logWarn(ctx, "transfer admin failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sourceRequest struct {
	SourceID string `json:"source_id"`
}

func (h *Handler) handleAddSource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	sourceID, err := id.ParseSourceID(req.SourceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.identity.AddTrustedSource(ctx, caller, sourceID); err != nil {
		h.logWarn(ctx, "add trusted source failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.metrics.SourcesAdded.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveSource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	sourceID, err := id.ParseSourceID(req.SourceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.identity.RemoveTrustedSource(ctx, caller, sourceID); err != nil {
		h.logWarn(ctx, "remove trusted source failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.metrics.SourcesRemoved.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetSource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sourceID, err := id.ParseSourceID(chi.URLParam(r, "sourceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	source, err := h.identity.GetTrustedSource(ctx, sourceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"source_id": source.SourceID.String(),
		"active":    source.Active,
	})
}

type submitInformationRequest struct {
	Name string `json:"name"`
	// DocumentHash is the hex-encoded 32-byte digest. Clients may instead
	// send the raw document base64-encoded and let the service digest it.
	DocumentHash string `json:"document_hash,omitempty"`
	Document     string `json:"document,omitempty"`
	SourceID     string `json:"source_id"`
}

func (h *Handler) handleSubmitInformation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req submitInformationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	sourceID, err := id.ParseSourceID(req.SourceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var docHash id.DocumentHash
	switch {
	case req.DocumentHash != "":
		docHash, err = id.ParseDocumentHash(req.DocumentHash)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	case req.Document != "":
		raw, decodeErr := base64.StdEncoding.DecodeString(req.Document)
		if decodeErr != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "document must be base64 encoded"))
			return
		}
		docHash = id.DigestDocument(raw)
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "document or document_hash is required"))
		return
	}

	if err := h.identity.SubmitInformation(ctx, caller, req.Name, docHash, sourceID); err != nil {
		h.logWarn(ctx, "submit information failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.metrics.InformationSubmitted.Inc()
	httputil.WriteJSON(w, http.StatusOK, contracts.UserInformationRecord{
		User:         caller.String(),
		Name:         req.Name,
		DocumentHash: docHash.String(),
		Source:       sourceID.String(),
	})
}

func (h *Handler) handleGetInformation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := id.ParsePrincipal(chi.URLParam(r, "user"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	info, err := h.identity.GetUserInformation(ctx, user)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, contracts.UserInformationRecord{
		User:         info.User.String(),
		Name:         info.Name,
		DocumentHash: info.DocumentHash.String(),
		Source:       info.Source.String(),
	})
}

type verifyUserRequest struct {
	User string `json:"user"`
}

func (h *Handler) handleVerifyUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req verifyUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	user, err := id.ParsePrincipal(req.User)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.identity.VerifyUser(ctx, caller, user); err != nil {
		h.logWarn(ctx, "verify user failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.metrics.UsersVerified.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleIsVerified(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := id.ParsePrincipal(chi.URLParam(r, "user"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record := contracts.VerificationRecord{User: user.String()}
	status, err := h.identity.GetVerification(ctx, user)
	switch {
	case err == nil:
		record.Verified = status.Verified
		record.Timestamp = uint64(status.Timestamp)
	case dErrors.Is(err, dErrors.CodeNotFound):
		// Unknown users are reported as unverified, never as an error.
	default:
		httputil.WriteError(w, err)
		return
	}

	result := "failed"
	if record.Verified {
		result = "passed"
	}
	h.metrics.VerificationChecks.WithLabelValues(result).Inc()
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) logWarn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}
