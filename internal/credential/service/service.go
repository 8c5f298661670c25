package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"trustledger/internal/credential"
	"trustledger/internal/credential/store"
	"trustledger/internal/ledger"
	"trustledger/internal/platform/middleware"
	"trustledger/internal/registry"
	id "trustledger/pkg/domain"
	dErrors "trustledger/pkg/domain-errors"
	audit "trustledger/pkg/platform/audit"
	"trustledger/pkg/platform/audit/publisher"
	"trustledger/pkg/platform/sentinel"
)

// Service implements the credential registry: admin-gated issuer
// authorization and issuer-gated credential issuance and revocation.
// Authorization is checked before any write so rejected calls leave state
// untouched.
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
		tracer:  otel.Tracer("trustledger/internal/credential"),
	}
}

// SeedAdmin initializes the registry admin once.
func (s *Service) SeedAdmin(ctx context.Context, admin id.Principal) error {
	return registry.SeedAdmin(ctx, s.store, admin)
}

// TransferAdmin hands the registry to a new admin. Only the current admin may
// call it.
func (s *Service) TransferAdmin(ctx context.Context, caller, newAdmin id.Principal) error {
	ctx, span := s.tracer.Start(ctx, "credential.transfer_admin")
	defer span.End()

	if err := registry.TransferAdmin(ctx, s.store, caller, newAdmin); err != nil {
		return err
	}
	s.emit(ctx, audit.ActionAdminTransferred, caller, newAdmin.String(), "", 0)
	return nil
}

// AuthorizeIssuer grants a principal the right to issue credentials. Admin
// only. Re-authorizing an active issuer succeeds without a write.
func (s *Service) AuthorizeIssuer(ctx context.Context, caller, issuer id.Principal) error {
	ctx, span := s.tracer.Start(ctx, "credential.authorize_issuer")
	defer span.End()

	return s.setIssuerAuthorization(ctx, caller, issuer, true, audit.ActionIssuerAuthorized)
}

// RevokeIssuerAuthorization removes a principal's issuance right. Admin only.
// Revoking a never-authorized issuer still succeeds by recording an
// unauthorized entry; already-issued credentials are not affected.
func (s *Service) RevokeIssuerAuthorization(ctx context.Context, caller, issuer id.Principal) error {
	ctx, span := s.tracer.Start(ctx, "credential.revoke_issuer")
	defer span.End()

	return s.setIssuerAuthorization(ctx, caller, issuer, false, audit.ActionIssuerRevoked)
}

func (s *Service) setIssuerAuthorization(ctx context.Context, caller, issuer id.Principal, authorized bool, action audit.Action) error {
	if issuer.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "issuer cannot be empty")
	}
	if err := registry.RequireAdmin(ctx, s.store, caller); err != nil {
		return err
	}

	existing, err := s.store.FindIssuer(ctx, issuer)
	if err == nil && existing.Authorized == authorized {
		return nil
	}
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load issuer record")
	}

	height, err := s.heights.CurrentHeight(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "read ledger height")
	}
	if err := s.store.SaveIssuer(ctx, registry.AuthorityRecord{
		Subject:    issuer,
		Authorized: authorized,
		UpdatedAt:  height,
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save issuer record")
	}

	s.emit(ctx, action, caller, issuer.String(), "", height)
	return nil
}

// IssueCredential writes a fresh credential for (user, credentialID). The
// caller must be a currently authorized issuer. ExpiresAt is fixed now from
// the current height; an existing record at the key is overwritten entirely,
// which also resets any prior revocation.
func (s *Service) IssueCredential(ctx context.Context, caller, user id.Principal, credentialID id.CredentialID, data string, validityPeriod id.Height) (credential.Credential, error) {
	ctx, span := s.tracer.Start(ctx, "credential.issue")
	defer span.End()

	if user.IsNil() {
		return credential.Credential{}, dErrors.New(dErrors.CodeInvalidInput, "user cannot be empty")
	}
	if credentialID.IsNil() {
		return credential.Credential{}, dErrors.New(dErrors.CodeInvalidInput, "credential ID cannot be empty")
	}

	record, err := s.store.FindIssuer(ctx, caller)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return credential.Credential{}, dErrors.New(dErrors.CodeForbidden, "caller is not an authorized issuer")
		}
		return credential.Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "load issuer record")
	}
	if !record.Authorized {
		return credential.Credential{}, dErrors.New(dErrors.CodeForbidden, "caller is not an authorized issuer")
	}

	height, err := s.heights.CurrentHeight(ctx)
	if err != nil {
		return credential.Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "read ledger height")
	}

	cred := credential.Credential{
		User:         user,
		CredentialID: credentialID,
		Issuer:       caller,
		Data:         data,
		IssuedAt:     height,
		ExpiresAt:    height + validityPeriod,
		Revoked:      false,
	}
	if err := s.store.SaveCredential(ctx, cred); err != nil {
		return credential.Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "save credential")
	}

	s.emit(ctx, audit.ActionCredentialIssued, caller, user.String(), credentialID.String(), height)
	return cred, nil
}

// RevokeCredential flips the revocation flag on an existing credential. Only
// the original issuer may revoke; the admin deliberately cannot override
// this. All other fields are preserved.
func (s *Service) RevokeCredential(ctx context.Context, caller, user id.Principal, credentialID id.CredentialID) error {
	ctx, span := s.tracer.Start(ctx, "credential.revoke")
	defer span.End()

	cred, err := s.store.FindCredential(ctx, credential.Key{User: user, CredentialID: credentialID})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "credential does not exist")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "load credential")
	}
	if caller != cred.Issuer {
		return dErrors.New(dErrors.CodeForbidden, "only the original issuer may revoke a credential")
	}

	revoked := cred
	revoked.Revoked = true
	if err := s.store.SaveCredential(ctx, revoked); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save credential")
	}

	height, err := s.heights.CurrentHeight(ctx)
	if err == nil {
		s.emit(ctx, audit.ActionCredentialRevoked, caller, user.String(), credentialID.String(), height)
	}
	return nil
}

// IsCredentialValid reports whether the credential exists, is unrevoked, and
// has not expired at the current height. Absence is false, never an error.
// The height the check was evaluated at is returned alongside the verdict.
func (s *Service) IsCredentialValid(ctx context.Context, user id.Principal, credentialID id.CredentialID) (bool, id.Height, error) {
	height, err := s.heights.CurrentHeight(ctx)
	if err != nil {
		return false, 0, dErrors.Wrap(err, dErrors.CodeInternal, "read ledger height")
	}

	cred, err := s.store.FindCredential(ctx, credential.Key{User: user, CredentialID: credentialID})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, height, nil
		}
		return false, 0, dErrors.Wrap(err, dErrors.CodeInternal, "load credential")
	}
	return cred.ValidAt(height), height, nil
}

// GetCredential returns the stored credential record.
func (s *Service) GetCredential(ctx context.Context, user id.Principal, credentialID id.CredentialID) (credential.Credential, error) {
	cred, err := s.store.FindCredential(ctx, credential.Key{User: user, CredentialID: credentialID})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return credential.Credential{}, dErrors.New(dErrors.CodeNotFound, "credential does not exist")
		}
		return credential.Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "load credential")
	}
	return cred, nil
}

// IsAuthorizedIssuer reports whether the principal currently holds issuance
// rights. Absence is false, never an error.
func (s *Service) IsAuthorizedIssuer(ctx context.Context, issuer id.Principal) (bool, error) {
	record, err := s.store.FindIssuer(ctx, issuer)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "load issuer record")
	}
	return record.Authorized, nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, actor id.Principal, subject, key string, height id.Height) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Actor:     actor.String(),
		Registry:  audit.RegistryCredential,
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
