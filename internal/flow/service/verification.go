package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"ecollect/internal/audit"
	"ecollect/internal/flow/models"
	regmodels "ecollect/internal/registry/models"
	"ecollect/internal/verification"
	dErrors "ecollect/pkg/domain-errors"
	"ecollect/pkg/platform/sentinel"
	"ecollect/pkg/requestcontext"
)

// pollTickBudget bounds a single verifier round trip so a slow upstream
// cannot pile up overlapping ticks.
const pollTickBudget = 10 * time.Second

// StartVerification opens a verification session with the wallet verifier
// and begins polling it. The citizen scans or opens the returned deep link.
func (s *Service) StartVerification(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.State != models.StateAddressConfirmed {
		return nil, dErrors.New(dErrors.CodeConflict, "address must be confirmed before verification")
	}

	if s.verifierBreaker.IsOpen() {
		return nil, dErrors.New(dErrors.CodeUnavailable, "verifier service unavailable")
	}
	remote, err := s.verifier.Create(ctx)
	if err != nil {
		if opened, change := s.verifierBreaker.RecordFailure(); opened && change.Opened {
			s.logger.WarnContext(ctx, "verifier circuit opened")
		}
		// Surfaced to the citizen as a banner; the step can be retried.
		return nil, err
	}
	s.verifierBreaker.RecordSuccess()

	now := requestcontext.Now(ctx)
	session.VerificationID = remote.ID
	session.VerificationURL = remote.VerificationURL
	session.VerificationDeeplink = s.verifier.Deeplink(remote)
	session.VerificationStartedAt = now
	session.State = models.StateVerificationPending
	session.Banner = models.InfoBanner(
		"Waiting for your wallet",
		"Open the verification request in your wallet app and confirm.",
	)
	session.UpdatedAt = now

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save flow session")
	}

	s.startVerificationPoll(session.ID, session.Generation, session.VerificationID)
	return session, nil
}

func (s *Service) startVerificationPoll(sessionID uuid.UUID, generation int, verificationID string) {
	p := newPoller(s.cfg.VerificationPollInterval, s.cfg.VerificationPollTimeout)
	s.startPoller(sessionID.String(), pollVerification, p,
		func() bool {
			ctx, cancel := context.WithTimeout(context.Background(), pollTickBudget)
			defer cancel()
			return s.verificationTick(ctx, sessionID, generation, verificationID)
		},
		func() {
			ctx, cancel := context.WithTimeout(context.Background(), pollTickBudget)
			defer cancel()
			s.verificationTimedOut(ctx, sessionID, generation)
		},
	)
}

// verificationTick performs one poll of the verifier. Returns true when
// polling should stop.
func (s *Service) verificationTick(ctx context.Context, sessionID uuid.UUID, generation int, verificationID string) bool {
	session, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		return true
	}
	// A reset or navigation away invalidates this poll; discard silently.
	if session.Generation != generation || session.State != models.StateVerificationPending {
		return true
	}

	remote, err := s.verifier.Get(ctx, verificationID)
	if err != nil {
		// Transient verifier trouble: keep the cadence, the ceiling still
		// bounds the wait.
		s.logger.WarnContext(ctx, "verification poll failed",
			"session_id", sessionID.String(),
			"error", err,
		)
		return false
	}

	switch remote.State {
	case verification.StatePending:
		return false
	case verification.StateFailed:
		s.abortSession(ctx, session, models.AbortVerificationFailed, models.ErrorBanner(
			"Verification failed",
			"Your wallet reported that the verification did not complete. Please start over.",
		))
		s.emit(ctx, audit.Event{Action: audit.ActionVerificationFailed, SessionID: sessionID.String()})
		if s.metrics != nil {
			s.metrics.VerificationsFailed.Inc()
		}
		return true
	case verification.StateSuccess:
		return s.crossCheck(ctx, session, remote)
	default:
		s.logger.WarnContext(ctx, "unknown verification state",
			"session_id", sessionID.String(),
			"state", string(remote.State),
		)
		return false
	}
}

// crossCheck matches the wallet-verified identity against the residents
// register. The disclosed attributes are consumed here and never persisted.
// Only genuine absence aborts the session; an unreachable register keeps the
// poll alive so the next tick retries. Returns true when polling should stop.
func (s *Service) crossCheck(ctx context.Context, session *models.Session, remote *verification.Session) bool {
	ctx, span := s.tracer.Start(ctx, "flow.crossCheck")
	defer span.End()

	if remote.WalletResponse == nil {
		s.abortSession(ctx, session, models.AbortVerificationFailed, models.ErrorBanner(
			"Verification failed",
			"The wallet response was incomplete. Please start over.",
		))
		return true
	}
	subject := remote.WalletResponse.CredentialSubjectData

	bfs := regmodels.NormalizeBFS(session.Place.BFS)
	municipality, err := s.municipalities.FindByBFS(ctx, bfs)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "municipality lookup failed",
				"session_id", session.ID.String(),
				"error", err,
			)
			return false
		}
		s.abortSession(ctx, session, models.AbortMunicipalityNotRegistered, models.ErrorBanner(
			"Municipality not participating",
			"Your municipality is not part of the pilot yet.",
		))
		return true
	}

	resident, err := s.residents.Match(ctx, municipality.ID, subject.GivenName, subject.FamilyName, subject.BirthDate)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "resident lookup failed",
			"session_id", session.ID.String(),
			"error", err,
		)
		return false
	}
	if resident == nil {
		s.abortSession(ctx, session, models.AbortResidentNotFound, models.ErrorBanner(
			"Not found in the register",
			"We could not find you in the residents register of your municipality.",
		))
		return true
	}

	now := time.Now()
	session.MunicipalityID = municipality.ID
	session.IssuerDID = municipality.DID
	session.ResidentID = resident.ID
	session.State = models.StateVerified
	session.Banner = models.SuccessBanner(
		"Identity verified",
		"You can now select a ballot item to support.",
	)
	session.UpdatedAt = now

	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to save verified session",
			"session_id", session.ID.String(),
			"error", err,
		)
		return false
	}

	s.emit(ctx, audit.Event{
		Action:     audit.ActionVerificationSucceeded,
		SessionID:  session.ID.String(),
		ResidentID: resident.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.VerificationsSucceeded.Inc()
	}
	return true
}

// verificationTimedOut closes a session whose wallet never answered within
// the ceiling. The stall is made explicit rather than leaving the citizen
// waiting forever.
func (s *Service) verificationTimedOut(ctx context.Context, sessionID uuid.UUID, generation int) {
	session, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		return
	}
	if session.Generation != generation || session.State != models.StateVerificationPending {
		return
	}

	session.State = models.StateVerificationTimedOut
	session.Banner = models.WarningBanner(
		"Verification timed out",
		"No response from your wallet within five minutes. Please start over.",
	)
	session.UpdatedAt = time.Now()

	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to save timed out session",
			"session_id", sessionID.String(),
			"error", err,
		)
		return
	}

	s.emit(ctx, audit.Event{Action: audit.ActionVerificationTimedOut, SessionID: sessionID.String()})
	if s.metrics != nil {
		s.metrics.VerificationsTimedOut.Inc()
	}
}

func (s *Service) abortSession(ctx context.Context, session *models.Session, reason models.AbortReason, banner *models.Banner) {
	session.Abort(reason, banner, time.Now())
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to save aborted session",
			"session_id", session.ID.String(),
			"error", err,
		)
		return
	}
	s.countAbort(reason)
}
