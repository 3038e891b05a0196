package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"ecollect/internal/audit"
	credmodels "ecollect/internal/credential/models"
	"ecollect/internal/flow/models"
	"ecollect/internal/issuance"
	"ecollect/internal/nullifier"
	dErrors "ecollect/pkg/domain-errors"
	"ecollect/pkg/requestcontext"
)

// Issue mints a participation credential for the verified resident and the
// chosen ballot item. The sequence is check, purge, create pending, call the
// issuer, then confirm or compensate; at most one issued record per
// (resident, ballot item) pair can result.
func (s *Service) Issue(ctx context.Context, sessionID, ballotItemID uuid.UUID) (*models.Session, error) {
	ctx, span := s.tracer.Start(ctx, "flow.Issue")
	defer span.End()
	span.SetAttributes(attribute.String("ballot_item_id", ballotItemID.String()))

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != models.StateVerified {
		return nil, dErrors.New(dErrors.CodeConflict, "identity must be verified before issuance")
	}

	ballot, err := s.ballots.FindByID(ctx, ballotItemID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "ballot item not found")
	}

	now := requestcontext.Now(ctx)
	validUntil := ballot.EndOfValidity()
	if validUntil.Before(now) {
		return nil, ErrBallotExpired
	}

	if s.issuerBreaker.IsOpen() {
		return nil, dErrors.New(dErrors.CodeUnavailable, "issuer service unavailable")
	}

	existing, err := s.credentials.FindActive(ctx, session.ResidentID, ballotItemID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing credentials")
	}
	if existing != nil {
		return nil, ErrDuplicateCredential
	}

	// Leftover pending or errored attempts for the pair are swept before a
	// fresh one is created, so retries never accumulate rows.
	if err := s.credentials.PurgeNonIssued(ctx, session.ResidentID, ballotItemID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge stale credential attempts")
	}

	nul := nullifier.Derive(session.ResidentID.String(), ballotItemID.String(), session.MunicipalityID.String())

	record := &credmodels.Record{
		ID:           uuid.New(),
		ResidentID:   session.ResidentID,
		BallotItemID: ballotItemID,
		Status:       credmodels.StatusPending,
		Nullifier:    nul,
		IssuerDID:    session.IssuerDID,
		ValidFrom:    issuance.StartOfDayUTC(now),
		ValidUntil:   validUntil,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.credentials.Create(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create credential record")
	}

	session.State = models.StateIssuing
	session.RecordID = record.ID
	session.Banner = nil
	session.UpdatedAt = now
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save flow session")
	}

	resp, err := s.issuer.Issue(ctx, issuance.IssueRequest{
		MetadataCredentialSupportedID: []string{s.cfg.CredentialTypeID},
		CredentialSubjectData: issuance.SubjectData{
			Nullifier:  nul,
			BallotRef:  ballot.Slug,
			IssuerDID:  session.IssuerDID,
			IssuedDate: now.UTC().Format("2006-01-02"),
		},
		OfferValiditySeconds: s.cfg.OfferValiditySeconds,
		CredentialValidFrom:  issuance.FormatAPITime(record.ValidFrom),
		CredentialValidUntil: issuance.FormatAPITime(record.ValidUntil),
		StatusLists:          s.statusLists(),
	})
	if err != nil {
		if opened, change := s.issuerBreaker.RecordFailure(); opened && change.Opened {
			s.logger.WarnContext(ctx, "issuer circuit opened")
		}
		s.compensateIssue(ctx, session, record.ID, err)
		return nil, err
	}
	s.issuerBreaker.RecordSuccess()

	issuedDate := now.UTC().Format("2006-01-02")
	status := credmodels.StatusIssued
	if _, err := s.credentials.Update(ctx, record.ID, credmodels.Patch{
		Status:             &status,
		IssuedDate:         &issuedDate,
		RemoteCredentialID: &resp.ID,
		ManagementID:       &resp.ManagementID,
		OfferDeeplink:      &resp.OfferDeeplink,
	}); err != nil {
		// The remote credential exists. Keep the session usable and let the
		// record stay pending for reconciliation rather than compensating.
		s.logger.ErrorContext(ctx, "failed to mark credential record issued",
			"record_id", record.ID.String(),
			"error", err,
		)
	}

	session.State = models.StateIssued
	session.RemoteCredentialID = resp.ID
	session.OfferDeeplink = resp.OfferDeeplink
	session.DisplayStatus = string(issuance.StatusOffered)
	session.Banner = models.SuccessBanner(
		"Credential issued",
		"Accept the credential offer in your wallet to complete the process.",
	)
	session.UpdatedAt = time.Now()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save flow session")
	}

	s.emit(ctx, audit.Event{
		Action:       audit.ActionCredentialIssued,
		SessionID:    session.ID.String(),
		ResidentID:   session.ResidentID.String(),
		BallotItemID: ballotItemID.String(),
		RecordID:     record.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.CredentialsIssued.Inc()
	}

	s.startStatusPoll(session.ID, session.Generation, resp.ID)
	return session, nil
}

func (s *Service) statusLists() []string {
	if s.cfg.StatusListURL == "" {
		return nil
	}
	return []string{s.cfg.StatusListURL}
}

// compensateIssue rolls the pending record into error and aborts the session
// after a failed remote issuance.
func (s *Service) compensateIssue(ctx context.Context, session *models.Session, recordID uuid.UUID, cause error) {
	status := credmodels.StatusError
	lastError := cause.Error()
	if _, err := s.credentials.Update(ctx, recordID, credmodels.Patch{
		Status:    &status,
		LastError: &lastError,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark credential record errored",
			"record_id", recordID.String(),
			"error", err,
		)
	}

	s.abortSession(ctx, session, models.AbortIssuanceFailed, models.ErrorBanner(
		"Issuance failed",
		"The credential could not be issued. Please start over and try again.",
	))

	s.emit(ctx, audit.Event{
		Action:    audit.ActionCredentialErrored,
		SessionID: session.ID.String(),
		RecordID:  recordID.String(),
		Detail:    dErrors.MessageOf(cause),
	})
	if s.metrics != nil {
		s.metrics.CredentialsErrored.Inc()
	}
}

// CredentialStatus returns the last observed issuer-side status for the
// session's credential.
func (s *Service) CredentialStatus(ctx context.Context, sessionID uuid.UUID) (string, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session.State != models.StateIssued {
		return "", dErrors.New(dErrors.CodeConflict, "no credential has been issued in this session")
	}
	return session.DisplayStatus, nil
}

func (s *Service) startStatusPoll(sessionID uuid.UUID, generation int, remoteID string) {
	// Unbounded on purpose: the session TTL ends the poll when the citizen
	// walks away.
	p := newPoller(s.cfg.StatusPollInterval, 0)
	s.startPoller(sessionID.String(), pollStatus, p,
		func() bool {
			ctx, cancel := context.WithTimeout(context.Background(), pollTickBudget)
			defer cancel()
			return s.statusTick(ctx, sessionID, generation, remoteID)
		},
		nil,
	)
}

// statusTick refreshes the display status shown alongside the issued
// credential. It never moves the flow state; issued stays issued.
func (s *Service) statusTick(ctx context.Context, sessionID uuid.UUID, generation int, remoteID string) bool {
	session, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		return true
	}
	if session.Generation != generation || session.State != models.StateIssued {
		return true
	}

	status, err := s.issuer.Status(ctx, remoteID)
	if err != nil {
		s.logger.WarnContext(ctx, "credential status poll failed",
			"session_id", sessionID.String(),
			"error", err,
		)
		return false
	}
	if string(status) == session.DisplayStatus {
		return false
	}

	session.DisplayStatus = string(status)
	session.UpdatedAt = time.Now()
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to save status update",
			"session_id", sessionID.String(),
			"error", err,
		)
	}
	return false
}
