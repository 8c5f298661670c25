package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"trustledger/internal/consent"
	"trustledger/internal/consent/store"
	"trustledger/internal/ledger"
	"trustledger/internal/platform/middleware"
	"trustledger/internal/registry"
	id "trustledger/pkg/domain"
	dErrors "trustledger/pkg/domain-errors"
	audit "trustledger/pkg/platform/audit"
	"trustledger/pkg/platform/audit/publisher"
	"trustledger/pkg/platform/sentinel"
)

// Service implements the consent registry. Grants are self-sovereign: only
// the user writes their own grants. The admin's single power here is bulk
// revocation on a user's behalf.
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
		tracer:  otel.Tracer("trustledger/internal/consent"),
	}
}

// SeedAdmin initializes the registry admin once.
func (s *Service) SeedAdmin(ctx context.Context, admin id.Principal) error {
	return registry.SeedAdmin(ctx, s.store, admin)
}

// TransferAdmin hands the registry to a new admin. Only the current admin may
// call it.
func (s *Service) TransferAdmin(ctx context.Context, caller, newAdmin id.Principal) error {
	ctx, span := s.tracer.Start(ctx, "consent.transfer_admin")
	defer span.End()

	if err := registry.TransferAdmin(ctx, s.store, caller, newAdmin); err != nil {
		return err
	}
	s.emit(ctx, audit.ActionAdminTransferred, caller, newAdmin.String(), "", 0)
	return nil
}

// Grant records the caller's consent to share dataType with recipient until
// validityPeriod heights from now. Re-granting an existing key overwrites the
// whole grant, refreshing its expiration and purpose.
func (s *Service) Grant(ctx context.Context, caller id.Principal, dataType id.DataType, recipient id.Principal, validityPeriod id.Height, purpose string) (consent.Grant, error) {
	ctx, span := s.tracer.Start(ctx, "consent.grant")
	defer span.End()

	if dataType.IsNil() {
		return consent.Grant{}, dErrors.New(dErrors.CodeInvalidInput, "data type cannot be empty")
	}
	if recipient.IsNil() {
		return consent.Grant{}, dErrors.New(dErrors.CodeInvalidInput, "recipient cannot be empty")
	}

	height, err := s.heights.CurrentHeight(ctx)
	if err != nil {
		return consent.Grant{}, dErrors.Wrap(err, dErrors.CodeInternal, "read ledger height")
	}

	grant := consent.Grant{
		User:       caller,
		DataType:   dataType,
		Recipient:  recipient,
		Granted:    true,
		Timestamp:  height,
		Expiration: height + validityPeriod,
		Purpose:    purpose,
	}
	if err := s.store.SaveGrant(ctx, grant); err != nil {
		return consent.Grant{}, dErrors.Wrap(err, dErrors.CodeInternal, "save consent grant")
	}

	s.emit(ctx, audit.ActionConsentGranted, caller, recipient.String(), dataType.String(), height)
	return grant, nil
}

// Revoke withdraws the caller's consent at (dataType, recipient), flipping
// Granted and preserving the grant's timestamp, expiration, and purpose.
// Revoking a grant that was never made is an error; revoking an
// already-revoked or expired grant is not.
func (s *Service) Revoke(ctx context.Context, caller id.Principal, dataType id.DataType, recipient id.Principal) error {
	ctx, span := s.tracer.Start(ctx, "consent.revoke")
	defer span.End()

	grant, err := s.store.FindGrant(ctx, consent.Key{User: caller, DataType: dataType, Recipient: recipient})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "consent grant does not exist")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "load consent grant")
	}

	height, err := s.heights.CurrentHeight(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "read ledger height")
	}

	grant.Granted = false
	if err := s.store.SaveGrant(ctx, grant); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save consent grant")
	}

	s.emit(ctx, audit.ActionConsentRevoked, caller, recipient.String(), dataType.String(), height)
	return nil
}

// BulkRevoke revokes every active grant the user holds, optionally scoped to
// the given data types. The user may revoke their own grants; the admin may
// revoke on any user's behalf. It returns the number of grants revoked.
func (s *Service) BulkRevoke(ctx context.Context, caller, user id.Principal, dataTypes []id.DataType) (int, error) {
	ctx, span := s.tracer.Start(ctx, "consent.bulk_revoke")
	defer span.End()

	if user.IsNil() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "user cannot be empty")
	}
	if caller != user {
		if err := registry.RequireAdmin(ctx, s.store, caller); err != nil {
			return 0, err
		}
	}

	height, err := s.heights.CurrentHeight(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "read ledger height")
	}

	revoked, err := s.store.RevokeAllByUser(ctx, user, dataTypes)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "bulk revoke consent grants")
	}

	s.emit(ctx, audit.ActionConsentsBulkRevoked, caller, user.String(), fmt.Sprintf("revoked=%d", revoked), height)
	return revoked, nil
}

// IsConsentValid reports whether an active, unexpired grant exists at
// (user, dataType, recipient). Absence is false, never an error. The height
// the check was evaluated at is returned alongside the verdict.
func (s *Service) IsConsentValid(ctx context.Context, user id.Principal, dataType id.DataType, recipient id.Principal) (bool, id.Height, error) {
	height, err := s.heights.CurrentHeight(ctx)
	if err != nil {
		return false, 0, dErrors.Wrap(err, dErrors.CodeInternal, "read ledger height")
	}

	grant, err := s.store.FindGrant(ctx, consent.Key{User: user, DataType: dataType, Recipient: recipient})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, height, nil
		}
		return false, 0, dErrors.Wrap(err, dErrors.CodeInternal, "load consent grant")
	}
	return grant.ValidAt(height), height, nil
}

// GetConsent returns the stored grant record.
func (s *Service) GetConsent(ctx context.Context, user id.Principal, dataType id.DataType, recipient id.Principal) (consent.Grant, error) {
	grant, err := s.store.FindGrant(ctx, consent.Key{User: user, DataType: dataType, Recipient: recipient})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return consent.Grant{}, dErrors.New(dErrors.CodeNotFound, "consent grant does not exist")
		}
		return consent.Grant{}, dErrors.Wrap(err, dErrors.CodeInternal, "load consent grant")
	}
	return grant, nil
}

// ListConsents returns every grant recorded for the user, active or not.
func (s *Service) ListConsents(ctx context.Context, user id.Principal) ([]consent.Grant, error) {
	grants, err := s.store.ListByUser(ctx, user)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list consent grants")
	}
	return grants, nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, actor id.Principal, subject, key string, height id.Height) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Actor:     actor.String(),
		Registry:  audit.RegistryConsent,
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
