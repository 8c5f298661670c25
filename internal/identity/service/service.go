package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"trustledger/internal/identity"
	"trustledger/internal/identity/store"
	"trustledger/internal/ledger"
	"trustledger/internal/platform/middleware"
	"trustledger/internal/registry"
	id "trustledger/pkg/domain"
	dErrors "trustledger/pkg/domain-errors"
	audit "trustledger/pkg/platform/audit"
	"trustledger/pkg/platform/audit/publisher"
	"trustledger/pkg/platform/sentinel"
)

// Service implements the identity registry: admin-gated trusted sources,
// self-submitted user information, and admin-issued verification. Every
// mutation checks authorization before touching the store so a rejected call
// leaves state untouched.
type Service struct {
	store   store.Store
	heights ledger.HeightSource
	auditor *publisher.Publisher
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewService(st store.Store, heights ledger.HeightSource, auditor *publisher.Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:   st,
		heights: heights,
		auditor: auditor,
		logger:  logger,
		tracer:  otel.Tracer("trustledger/internal/identity"),
	}
}

// SeedAdmin initializes the registry admin once; restarts never clobber a
// transferred admin.
func (s *Service) SeedAdmin(ctx context.Context, admin id.Principal) error {
	return registry.SeedAdmin(ctx, s.store, admin)
}

// TransferAdmin hands the registry to a new admin. Only the current admin may
// call it.
func (s *Service) TransferAdmin(ctx context.Context, caller, newAdmin id.Principal) error {
	ctx, span := s.tracer.Start(ctx, "identity.transfer_admin")
	defer span.End()

	if err := registry.TransferAdmin(ctx, s.store, caller, newAdmin); err != nil {
		return err
	}
	s.emit(ctx, audit.ActionAdminTransferred, caller, newAdmin.String(), "", 0)
	return nil
}

// AddTrustedSource activates a verification source. Admin only. Re-adding an
// already active source succeeds without a write.
func (s *Service) AddTrustedSource(ctx context.Context, caller id.Principal, sourceID id.SourceID) error {
	ctx, span := s.tracer.Start(ctx, "identity.add_trusted_source")
	defer span.End()

	if sourceID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "source ID cannot be empty")
	}
	if err := registry.RequireAdmin(ctx, s.store, caller); err != nil {
		return err
	}

	existing, err := s.store.FindSource(ctx, sourceID)
	if err == nil && existing.Active {
		return nil
	}
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load trusted source")
	}

	height, err := s.heights.CurrentHeight(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "read ledger height")
	}
	if err := s.store.SaveSource(ctx, identity.TrustedSource{
		SourceID:  sourceID,
		Active:    true,
		UpdatedAt: height,
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save trusted source")
	}

	s.emit(ctx, audit.ActionSourceAdded, caller, "", sourceID.String(), height)
	return nil
}

// RemoveTrustedSource deactivates a verification source. Admin only.
// Removing an unknown source still succeeds by recording an inactive entry;
// the permissive policy is applied symmetrically across registries.
func (s *Service) RemoveTrustedSource(ctx context.Context, caller id.Principal, sourceID id.SourceID) error {
	ctx, span := s.tracer.Start(ctx, "identity.remove_trusted_source")
	defer span.End()

	if sourceID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "source ID cannot be empty")
	}
	if err := registry.RequireAdmin(ctx, s.store, caller); err != nil {
		return err
	}

	existing, err := s.store.FindSource(ctx, sourceID)
	if err == nil && !existing.Active {
		return nil
	}
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load trusted source")
	}

	height, err := s.heights.CurrentHeight(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "read ledger height")
	}
	if err := s.store.SaveSource(ctx, identity.TrustedSource{
		SourceID:  sourceID,
		Active:    false,
		UpdatedAt: height,
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save trusted source")
	}

	s.emit(ctx, audit.ActionSourceRemoved, caller, "", sourceID.String(), height)
	return nil
}

// SubmitInformation stores the caller's identity submission. Self-submission
// only; the referenced source must exist and be active right now. The source
// reference is not re-validated if the source is later deactivated.
func (s *Service) SubmitInformation(ctx context.Context, caller id.Principal, name string, documentHash id.DocumentHash, sourceID id.SourceID) error {
	ctx, span := s.tracer.Start(ctx, "identity.submit_information")
	defer span.End()

	if name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name cannot be empty")
	}
	if documentHash.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "document hash cannot be empty")
	}
	if sourceID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "source ID cannot be empty")
	}

	source, err := s.store.FindSource(ctx, sourceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "unknown verification source")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "load trusted source")
	}
	if !source.Active {
		return dErrors.New(dErrors.CodeForbidden, "verification source is not active")
	}

	if err := s.store.SaveInformation(ctx, identity.UserInformation{
		User:         caller,
		Name:         name,
		DocumentHash: documentHash,
		Source:       sourceID,
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save user information")
	}

	height, err := s.heights.CurrentHeight(ctx)
	if err == nil {
		s.emit(ctx, audit.ActionInformationSubmitted, caller, caller.String(), sourceID.String(), height)
	}
	return nil
}

// VerifyUser marks a user as verified at the current height. Admin only.
// Fails with NotFound when the user never submitted information.
func (s *Service) VerifyUser(ctx context.Context, caller, user id.Principal) error {
	ctx, span := s.tracer.Start(ctx, "identity.verify_user")
	defer span.End()

	if err := registry.RequireAdmin(ctx, s.store, caller); err != nil {
		return err
	}

	if _, err := s.store.FindInformation(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user has no submitted information")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "load user information")
	}

	height, err := s.heights.CurrentHeight(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "read ledger height")
	}
	if err := s.store.SaveVerification(ctx, identity.VerificationStatus{
		User:      user,
		Verified:  true,
		Timestamp: height,
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save verification status")
	}

	s.emit(ctx, audit.ActionUserVerified, caller, user.String(), "", height)
	return nil
}

// IsVerified reports whether the user is verified. Unknown users are simply
// not verified; this read never fails on absence.
func (s *Service) IsVerified(ctx context.Context, user id.Principal) (bool, error) {
	status, err := s.store.FindVerification(ctx, user)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "load verification status")
	}
	return status.Verified, nil
}

// GetVerification returns the full verification record for a user.
func (s *Service) GetVerification(ctx context.Context, user id.Principal) (identity.VerificationStatus, error) {
	status, err := s.store.FindVerification(ctx, user)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return identity.VerificationStatus{}, dErrors.New(dErrors.CodeNotFound, "no verification status for user")
		}
		return identity.VerificationStatus{}, dErrors.Wrap(err, dErrors.CodeInternal, "load verification status")
	}
	return status, nil
}

// GetUserInformation returns the latest submission for a user.
func (s *Service) GetUserInformation(ctx context.Context, user id.Principal) (identity.UserInformation, error) {
	info, err := s.store.FindInformation(ctx, user)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return identity.UserInformation{}, dErrors.New(dErrors.CodeNotFound, "no information submitted for user")
		}
		return identity.UserInformation{}, dErrors.Wrap(err, dErrors.CodeInternal, "load user information")
	}
	return info, nil
}

// GetTrustedSource returns a trusted source record.
func (s *Service) GetTrustedSource(ctx context.Context, sourceID id.SourceID) (identity.TrustedSource, error) {
	source, err := s.store.FindSource(ctx, sourceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return identity.TrustedSource{}, dErrors.New(dErrors.CodeNotFound, "unknown verification source")
		}
		return identity.TrustedSource{}, dErrors.Wrap(err, dErrors.CodeInternal, "load trusted source")
	}
	return source, nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, actor id.Principal, subject, key string, height id.Height) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Actor:     actor.String(),
		Registry:  audit.RegistryIdentity,
		Action:    action,
		Subject:   subject,
		RecordKey: key,
		Height:    uint64(height),
		RequestID: middleware.GetRequestID(ctx),
		ClientIP:  middleware.GetClientIP(ctx),
		Device:    middleware.GetDevice(ctx),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", action,
			"error", err,
		)
	}
}
