// Package service drives the credential flow: address capture, identity
// verification against the wallet verifier, registry cross-check, duplicate
// protection, and issuance. It owns every state transition and all failure
// handling; collaborators are pure I/O.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"ecollect/internal/address"
	"ecollect/internal/audit"
	credmodels "ecollect/internal/credential/models"
	flowmetrics "ecollect/internal/flow/metrics"
	"ecollect/internal/flow/models"
	"ecollect/internal/flow/store"
	"ecollect/internal/issuance"
	regmodels "ecollect/internal/registry/models"
	"ecollect/internal/verification"
	dErrors "ecollect/pkg/domain-errors"
	"ecollect/pkg/platform/circuit"
	"ecollect/pkg/platform/sentinel"
	"ecollect/pkg/requestcontext"
)

// Verifier creates and polls identity-verification sessions.
type Verifier interface {
	Create(ctx context.Context) (*verification.Session, error)
	Get(ctx context.Context, sessionID string) (*verification.Session, error)
	Deeplink(session *verification.Session) string
}

// Issuer mints credentials and reports their remote status.
type Issuer interface {
	Issue(ctx context.Context, req issuance.IssueRequest) (*issuance.IssueResponse, error)
	Status(ctx context.Context, remoteID string) (issuance.Status, error)
}

// MunicipalityStore is the slice of the registry the flow reads.
type MunicipalityStore interface {
	FindByBFS(ctx context.Context, bfs string) (*regmodels.Municipality, error)
}

// ResidentStore matches verified identities against the residents register.
type ResidentStore interface {
	Match(ctx context.Context, municipalityID uuid.UUID, givenName, familyName, birthDate string) (*regmodels.Resident, error)
}

// BallotStore reads ballot items.
type BallotStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*regmodels.BallotItem, error)
}

// CredentialStore is the credential record bookkeeping contract.
type CredentialStore interface {
	Create(ctx context.Context, record *credmodels.Record) error
	FindByID(ctx context.Context, id uuid.UUID) (*credmodels.Record, error)
	FindActive(ctx context.Context, residentID, ballotItemID uuid.UUID) (*credmodels.Record, error)
	PurgeNonIssued(ctx context.Context, residentID, ballotItemID uuid.UUID) error
	Update(ctx context.Context, id uuid.UUID, patch credmodels.Patch) (*credmodels.Record, error)
}

// AddressResolver maps a postal code to its municipality.
type AddressResolver interface {
	Resolve(ctx context.Context, postalCode string) (*address.Place, error)
}

// Config tunes the flow's polling discipline and issuance payload.
type Config struct {
	VerificationPollInterval time.Duration
	VerificationPollTimeout  time.Duration
	StatusPollInterval       time.Duration

	CredentialTypeID     string
	OfferValiditySeconds int
	StatusListURL        string
}

func (c Config) withDefaults() Config {
	if c.VerificationPollInterval == 0 {
		c.VerificationPollInterval = 2 * time.Second
	}
	if c.VerificationPollTimeout == 0 {
		c.VerificationPollTimeout = 5 * time.Minute
	}
	if c.StatusPollInterval == 0 {
		c.StatusPollInterval = 10 * time.Second
	}
	if c.CredentialTypeID == "" {
		c.CredentialTypeID = "ecollect-receipt-sdjwt"
	}
	if c.OfferValiditySeconds == 0 {
		c.OfferValiditySeconds = 86400
	}
	return c
}

// Deps are the flow's collaborators.
type Deps struct {
	Sessions       store.Store
	Municipalities MunicipalityStore
	Residents      ResidentStore
	Ballots        BallotStore
	Credentials    CredentialStore
	Verifier       Verifier
	Issuer         Issuer
	Resolver       AddressResolver
	Audit          *audit.Publisher
	Metrics        *flowmetrics.Metrics
	Logger         *slog.Logger
}

// Service is the credential flow orchestrator.
type Service struct {
	sessions       store.Store
	municipalities MunicipalityStore
	residents      ResidentStore
	ballots        BallotStore
	credentials    CredentialStore
	verifier       Verifier
	issuer         Issuer
	resolver       AddressResolver
	audit          *audit.Publisher
	metrics        *flowmetrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
	cfg            Config

	verifierBreaker *circuit.Breaker
	issuerBreaker   *circuit.Breaker

	mu      sync.Mutex
	pollers map[string]*poller
	closed  bool
}

// New builds the flow service.
func New(deps Deps, cfg Config) *Service {
	return &Service{
		sessions:       deps.Sessions,
		municipalities: deps.Municipalities,
		residents:      deps.Residents,
		ballots:        deps.Ballots,
		credentials:    deps.Credentials,
		verifier:       deps.Verifier,
		issuer:         deps.Issuer,
		resolver:       deps.Resolver,
		audit:          deps.Audit,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		tracer:         otel.Tracer("ecollect/flow"),
		cfg:            cfg.withDefaults(),

		verifierBreaker: circuit.New("verifier", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		issuerBreaker:   circuit.New("issuer", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),

		pollers: make(map[string]*poller),
	}
}

// StartSession opens a fresh flow at address capture.
func (s *Service) StartSession(ctx context.Context) (*models.Session, error) {
	session := models.NewSession(requestcontext.Now(ctx))
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create flow session")
	}
	s.emit(ctx, audit.Event{Action: audit.ActionFlowStarted, SessionID: session.ID.String()})
	if s.metrics != nil {
		s.metrics.SessionsStarted.Inc()
	}
	return session, nil
}

// GetSession returns the current session state.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return s.loadSession(ctx, id)
}

// SubmitAddress validates and confirms the captured address. Validation
// failures are inline and recoverable: the session stays where it is and the
// citizen may correct the form.
func (s *Service) SubmitAddress(ctx context.Context, id uuid.UUID, req models.SubmitAddressRequest) (*models.Session, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.State != models.StateAddressCapture && session.State != models.StateAddressConfirmed {
		return nil, dErrors.New(dErrors.CodeConflict, "address can no longer be changed")
	}

	place, err := s.resolver.Resolve(ctx, req.PostalCode)
	if err != nil {
		return nil, err
	}

	session.Address = &models.Address{Street: req.Street, PostalCode: req.PostalCode, City: req.City}
	session.Place = &models.Place{Town: place.Town, Canton: place.Canton, BFS: place.BFS}
	session.State = models.StateAddressConfirmed
	session.Banner = nil
	session.UpdatedAt = requestcontext.Now(ctx)

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save flow session")
	}
	return session, nil
}

// Reset returns the session to address capture from any state, cancelling
// pollers and discarding in-memory flow context. Persisted credential rows
// stay as they are.
func (s *Service) Reset(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	s.stopSessionPollers(id)
	session.Reset(requestcontext.Now(ctx))

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save flow session")
	}
	return session, nil
}

// Close stops all pollers. Called on shutdown.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for key, p := range s.pollers {
		p.Stop()
		delete(s.pollers, key)
	}
}

func (s *Service) loadSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := s.sessions.Find(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "flow session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load flow session")
	}
	return session, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit != nil {
		s.audit.Emit(ctx, event)
	}
}

func (s *Service) countAbort(reason models.AbortReason) {
	if s.metrics != nil {
		s.metrics.Aborts.WithLabelValues(string(reason)).Inc()
	}
}
