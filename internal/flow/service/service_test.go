package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecollect/internal/address"
	credmodels "ecollect/internal/credential/models"
	credstore "ecollect/internal/credential/store"
	"ecollect/internal/flow/models"
	flowstore "ecollect/internal/flow/store"
	"ecollect/internal/issuance"
	regmodels "ecollect/internal/registry/models"
	"ecollect/internal/verification"
	dErrors "ecollect/pkg/domain-errors"
	"ecollect/pkg/platform/sentinel"
	"ecollect/pkg/requestcontext"
)

type stubVerifier struct {
	created   *verification.Session
	createErr error
	sessions  map[string]*verification.Session
	getErr    error
}

func (v *stubVerifier) Create(context.Context) (*verification.Session, error) {
	if v.createErr != nil {
		return nil, v.createErr
	}
	return v.created, nil
}

func (v *stubVerifier) Get(_ context.Context, id string) (*verification.Session, error) {
	if v.getErr != nil {
		return nil, v.getErr
	}
	return v.sessions[id], nil
}

func (v *stubVerifier) Deeplink(s *verification.Session) string {
	return "openid4vp://?request_uri=" + s.VerificationURL
}

type stubIssuer struct {
	lastRequest *issuance.IssueRequest
	response    *issuance.IssueResponse
	issueErr    error
	status      issuance.Status
	statusErr   error
}

func (i *stubIssuer) Issue(_ context.Context, req issuance.IssueRequest) (*issuance.IssueResponse, error) {
	i.lastRequest = &req
	if i.issueErr != nil {
		return nil, i.issueErr
	}
	return i.response, nil
}

func (i *stubIssuer) Status(context.Context, string) (issuance.Status, error) {
	if i.statusErr != nil {
		return "", i.statusErr
	}
	return i.status, nil
}

type stubMunicipalities struct {
	byBFS map[string]*regmodels.Municipality
	err   error
}

func (s *stubMunicipalities) FindByBFS(_ context.Context, bfs string) (*regmodels.Municipality, error) {
	if s.err != nil {
		return nil, s.err
	}
	if m, ok := s.byBFS[bfs]; ok {
		return m, nil
	}
	return nil, sentinel.ErrNotFound
}

type stubResidents struct {
	resident *regmodels.Resident
	err      error
}

func (s *stubResidents) Match(_ context.Context, municipalityID uuid.UUID, givenName, familyName, birthDate string) (*regmodels.Resident, error) {
	if s.err != nil {
		return nil, s.err
	}
	r := s.resident
	if r == nil || r.MunicipalityID != municipalityID {
		return nil, nil
	}
	if r.GivenName != givenName || r.FamilyName != familyName || r.BirthDate != birthDate {
		return nil, nil
	}
	return r, nil
}

type stubBallots struct {
	items map[uuid.UUID]*regmodels.BallotItem
}

func (s *stubBallots) FindByID(_ context.Context, id uuid.UUID) (*regmodels.BallotItem, error) {
	if b, ok := s.items[id]; ok {
		return b, nil
	}
	return nil, errors.New("not found")
}

type stubResolver struct {
	places map[string]*address.Place
}

func (s *stubResolver) Resolve(_ context.Context, postalCode string) (*address.Place, error) {
	if p, ok := s.places[postalCode]; ok {
		return p, nil
	}
	return nil, dErrors.New(dErrors.CodeValidation, "unknown postal code")
}

type fixture struct {
	svc         *Service
	sessions    flowstore.Store
	verifier    *stubVerifier
	issuer      *stubIssuer
	credentials *credstore.MemoryStore
	ballots     *stubBallots
	residents   *stubResidents
	munis       *stubMunicipalities
	now         time.Time
	ctx         context.Context

	municipality *regmodels.Municipality
	resident     *regmodels.Resident
	ballot       *regmodels.BallotItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	municipalityID := uuid.New()

	f := &fixture{
		sessions: flowstore.NewMemory(),
		verifier: &stubVerifier{
			created: &verification.Session{
				ID:              "verif-1",
				VerificationURL: "https://verifier.example/verifications/verif-1",
				State:           verification.StatePending,
			},
			sessions: map[string]*verification.Session{},
		},
		issuer: &stubIssuer{
			response: &issuance.IssueResponse{
				ID:            "remote-cred-1",
				ManagementID:  "mgmt-1",
				OfferDeeplink: "openid-credential-offer://?offer=abc",
			},
			status: issuance.StatusOffered,
		},
		credentials: credstore.NewMemory(),
		now:         now,
		ctx:         requestcontext.WithTime(context.Background(), now),
	}

	f.municipality = &regmodels.Municipality{
		ID:        municipalityID,
		Name:      "Aarau",
		BFSNumber: "4001",
		Canton:    "AG",
		DID:       "did:tdw:aarau",
		CreatedAt: now,
	}
	f.resident = &regmodels.Resident{
		ID:             uuid.New(),
		MunicipalityID: municipalityID,
		GivenName:      "Mara",
		FamilyName:     "Keller",
		BirthDate:      "1988-06-02",
	}
	f.ballot = &regmodels.BallotItem{
		ID:         uuid.New(),
		Slug:       "initiative-transparency",
		Type:       regmodels.BallotItemInitiative,
		Level:      "federal",
		Title:      map[string]string{"de": "Transparenz-Initiative"},
		ValidUntil: now.AddDate(0, 1, 0),
	}

	f.munis = &stubMunicipalities{byBFS: map[string]*regmodels.Municipality{"4001": f.municipality}}
	f.residents = &stubResidents{resident: f.resident}
	f.ballots = &stubBallots{items: map[uuid.UUID]*regmodels.BallotItem{f.ballot.ID: f.ballot}}

	f.svc = New(Deps{
		Sessions:       f.sessions,
		Municipalities: f.munis,
		Residents:      f.residents,
		Ballots:        f.ballots,
		Credentials:    f.credentials,
		Verifier:       f.verifier,
		Issuer:         f.issuer,
		Resolver: &stubResolver{places: map[string]*address.Place{
			"5000": {Town: "Aarau", Canton: "AG", BFS: "4001"},
		}},
		Logger: slog.New(slog.DiscardHandler),
	}, Config{
		// Long intervals keep background pollers idle; tests drive ticks
		// directly for determinism.
		VerificationPollInterval: time.Minute,
		VerificationPollTimeout:  time.Hour,
		StatusPollInterval:       time.Minute,
	})
	t.Cleanup(f.svc.Close)
	return f
}

// startVerified walks a session to the verified state.
func (f *fixture) startVerified(t *testing.T) *models.Session {
	t.Helper()
	session := f.startPending(t)

	f.verifier.sessions["verif-1"] = &verification.Session{
		ID:    "verif-1",
		State: verification.StateSuccess,
		WalletResponse: &verification.WalletResponse{
			CredentialSubjectData: verification.SubjectData{
				GivenName:  "Mara",
				FamilyName: "Keller",
				BirthDate:  "1988-06-02",
				AgeOver18:  true,
			},
		},
	}
	stop := f.svc.verificationTick(f.ctx, session.ID, session.Generation, "verif-1")
	require.True(t, stop)

	session, err := f.svc.GetSession(f.ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, models.StateVerified, session.State)
	return session
}

// startPending walks a session to verification_pending.
func (f *fixture) startPending(t *testing.T) *models.Session {
	t.Helper()
	session, err := f.svc.StartSession(f.ctx)
	require.NoError(t, err)

	_, err = f.svc.SubmitAddress(f.ctx, session.ID, models.SubmitAddressRequest{
		Street: "Bahnhofstrasse 1", PostalCode: "5000", City: "Aarau",
	})
	require.NoError(t, err)

	session, err = f.svc.StartVerification(f.ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, models.StateVerificationPending, session.State)
	return session
}

func TestStartSession(t *testing.T) {
	f := newFixture(t)

	session, err := f.svc.StartSession(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, models.StateAddressCapture, session.State)
	assert.Equal(t, 0, session.Generation)
	assert.Equal(t, f.now, session.CreatedAt)
}

func TestSubmitAddress(t *testing.T) {
	t.Run("resolves place and confirms", func(t *testing.T) {
		f := newFixture(t)
		session, err := f.svc.StartSession(f.ctx)
		require.NoError(t, err)

		session, err = f.svc.SubmitAddress(f.ctx, session.ID, models.SubmitAddressRequest{
			Street: "Bahnhofstrasse 1", PostalCode: "5000", City: "Aarau",
		})
		require.NoError(t, err)

		assert.Equal(t, models.StateAddressConfirmed, session.State)
		require.NotNil(t, session.Place)
		assert.Equal(t, "4001", session.Place.BFS)
		assert.Equal(t, "AG", session.Place.Canton)
	})

	t.Run("unknown postal code is a validation error", func(t *testing.T) {
		f := newFixture(t)
		session, err := f.svc.StartSession(f.ctx)
		require.NoError(t, err)

		_, err = f.svc.SubmitAddress(f.ctx, session.ID, models.SubmitAddressRequest{
			Street: "Bahnhofstrasse 1", PostalCode: "9999", City: "Nowhere",
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		// Session state is untouched; the citizen corrects the form.
		session, err = f.svc.GetSession(f.ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateAddressCapture, session.State)
	})

	t.Run("allows correcting a confirmed address", func(t *testing.T) {
		f := newFixture(t)
		session, err := f.svc.StartSession(f.ctx)
		require.NoError(t, err)

		_, err = f.svc.SubmitAddress(f.ctx, session.ID, models.SubmitAddressRequest{
			Street: "Bahnhofstrasse 1", PostalCode: "5000", City: "Aarau",
		})
		require.NoError(t, err)
		_, err = f.svc.SubmitAddress(f.ctx, session.ID, models.SubmitAddressRequest{
			Street: "Bahnhofstrasse 2", PostalCode: "5000", City: "Aarau",
		})
		assert.NoError(t, err)
	})

	t.Run("rejected after verification started", func(t *testing.T) {
		f := newFixture(t)
		session := f.startPending(t)

		_, err := f.svc.SubmitAddress(f.ctx, session.ID, models.SubmitAddressRequest{
			Street: "Bahnhofstrasse 1", PostalCode: "5000", City: "Aarau",
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.SubmitAddress(f.ctx, uuid.New(), models.SubmitAddressRequest{
			Street: "Bahnhofstrasse 1", PostalCode: "5000", City: "Aarau",
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestStartVerification(t *testing.T) {
	t.Run("requires confirmed address", func(t *testing.T) {
		f := newFixture(t)
		session, err := f.svc.StartSession(f.ctx)
		require.NoError(t, err)

		_, err = f.svc.StartVerification(f.ctx, session.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("stores handoff details", func(t *testing.T) {
		f := newFixture(t)
		session := f.startPending(t)

		assert.Equal(t, "verif-1", session.VerificationID)
		assert.NotEmpty(t, session.VerificationURL)
		assert.Contains(t, session.VerificationDeeplink, "openid4vp://")
	})

	t.Run("verifier outage is retryable", func(t *testing.T) {
		f := newFixture(t)
		session, err := f.svc.StartSession(f.ctx)
		require.NoError(t, err)
		_, err = f.svc.SubmitAddress(f.ctx, session.ID, models.SubmitAddressRequest{
			Street: "Bahnhofstrasse 1", PostalCode: "5000", City: "Aarau",
		})
		require.NoError(t, err)

		f.verifier.createErr = dErrors.New(dErrors.CodeUnavailable, "verifier service unreachable")
		_, err = f.svc.StartVerification(f.ctx, session.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))

		// The session stays at address_confirmed so the step can be retried.
		session, err = f.svc.GetSession(f.ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateAddressConfirmed, session.State)

		f.verifier.createErr = nil
		_, err = f.svc.StartVerification(f.ctx, session.ID)
		assert.NoError(t, err)
	})

	t.Run("repeated outages open the circuit", func(t *testing.T) {
		f := newFixture(t)
		session, err := f.svc.StartSession(f.ctx)
		require.NoError(t, err)
		_, err = f.svc.SubmitAddress(f.ctx, session.ID, models.SubmitAddressRequest{
			Street: "Bahnhofstrasse 1", PostalCode: "5000", City: "Aarau",
		})
		require.NoError(t, err)

		f.verifier.createErr = errors.New("connection refused")
		for range 5 {
			_, err = f.svc.StartVerification(f.ctx, session.ID)
			require.Error(t, err)
		}

		// The breaker now fails fast without calling the verifier.
		f.verifier.createErr = nil
		_, err = f.svc.StartVerification(f.ctx, session.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func TestVerificationOutcomes(t *testing.T) {
	t.Run("success with register match moves to verified", func(t *testing.T) {
		f := newFixture(t)
		session := f.startVerified(t)

		assert.Equal(t, f.municipality.ID, session.MunicipalityID)
		assert.Equal(t, f.resident.ID, session.ResidentID)
		assert.Equal(t, "did:tdw:aarau", session.IssuerDID)
	})

	t.Run("name matching is exact on birth date", func(t *testing.T) {
		f := newFixture(t)
		session := f.startPending(t)

		f.verifier.sessions["verif-1"] = &verification.Session{
			ID:    "verif-1",
			State: verification.StateSuccess,
			WalletResponse: &verification.WalletResponse{
				CredentialSubjectData: verification.SubjectData{
					GivenName: "Mara", FamilyName: "Keller", BirthDate: "1988-06-03",
				},
			},
		}
		require.True(t, f.svc.verificationTick(f.ctx, session.ID, session.Generation, "verif-1"))

		session, err := f.svc.GetSession(f.ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateAborted, session.State)
		assert.Equal(t, models.AbortResidentNotFound, session.AbortReason)
	})

	t.Run("unregistered municipality aborts", func(t *testing.T) {
		f := newFixture(t)
		delete(f.munis.byBFS, "4001")
		session := f.startPending(t)

		f.verifier.sessions["verif-1"] = &verification.Session{
			ID:    "verif-1",
			State: verification.StateSuccess,
			WalletResponse: &verification.WalletResponse{
				CredentialSubjectData: verification.SubjectData{
					GivenName: "Mara", FamilyName: "Keller", BirthDate: "1988-06-02",
				},
			},
		}
		require.True(t, f.svc.verificationTick(f.ctx, session.ID, session.Generation, "verif-1"))

		session, err := f.svc.GetSession(f.ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateAborted, session.State)
		assert.Equal(t, models.AbortMunicipalityNotRegistered, session.AbortReason)
	})

	t.Run("municipality lookup outage keeps polling", func(t *testing.T) {
		f := newFixture(t)
		session := f.startPending(t)

		f.verifier.sessions["verif-1"] = &verification.Session{
			ID:    "verif-1",
			State: verification.StateSuccess,
			WalletResponse: &verification.WalletResponse{
				CredentialSubjectData: verification.SubjectData{
					GivenName: "Mara", FamilyName: "Keller", BirthDate: "1988-06-02",
				},
			},
		}

		f.munis.err = errors.New("connection refused")
		assert.False(t, f.svc.verificationTick(f.ctx, session.ID, session.Generation, "verif-1"))

		got, err := f.svc.GetSession(f.ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateVerificationPending, got.State)

		// The register comes back and the next tick completes the check.
		f.munis.err = nil
		require.True(t, f.svc.verificationTick(f.ctx, session.ID, session.Generation, "verif-1"))

		got, err = f.svc.GetSession(f.ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateVerified, got.State)
	})

	t.Run("resident lookup outage keeps polling", func(t *testing.T) {
		f := newFixture(t)
		session := f.startPending(t)

		f.verifier.sessions["verif-1"] = &verification.Session{
			ID:    "verif-1",
			State: verification.StateSuccess,
			WalletResponse: &verification.WalletResponse{
				CredentialSubjectData: verification.SubjectData{
					GivenName: "Mara", FamilyName: "Keller", BirthDate: "1988-06-02",
				},
			},
		}

		f.residents.err = errors.New("connection refused")
		assert.False(t, f.svc.verificationTick(f.ctx, session.ID, session.Generation, "verif-1"))

		got, err := f.svc.GetSession(f.ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateVerificationPending, got.State)

		f.residents.err = nil
		require.True(t, f.svc.verificationTick(f.ctx, session.ID, session.Generation, "verif-1"))

		got, err = f.svc.GetSession(f.ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateVerified, got.State)
	})

	t.Run("wallet failure aborts", func(t *testing.T) {
		f := newFixture(t)
		session := f.startPending(t)

		f.verifier.sessions["verif-1"] = &verification.Session{ID: "verif-1", State: verification.StateFailed}
		require.True(t, f.svc.verificationTick(f.ctx, session.ID, session.Generation, "verif-1"))

		session, err := f.svc.GetSession(f.ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateAborted, session.State)
		assert.Equal(t, models.AbortVerificationFailed, session.AbortReason)
		require.NotNil(t, session.Banner)
		assert.Equal(t, models.BannerError, session.Banner.Kind)
	})

	t.Run("pending keeps polling", func(t *testing.T) {
		f := newFixture(t)
		session := f.startPending(t)

		f.verifier.sessions["verif-1"] = &verification.Session{ID: "verif-1", State: verification.StatePending}
		assert.False(t, f.svc.verificationTick(f.ctx, session.ID, session.Generation, "verif-1"))
	})

	t.Run("poll error keeps polling", func(t *testing.T) {
		f := newFixture(t)
		session := f.startPending(t)

		f.verifier.getErr = errors.New("boom")
		assert.False(t, f.svc.verificationTick(f.ctx, session.ID, session.Generation, "verif-1"))
	})

	t.Run("timeout moves to timed out with warning", func(t *testing.T) {
		f := newFixture(t)
		session := f.startPending(t)

		f.svc.verificationTimedOut(f.ctx, session.ID, session.Generation)

		session, err := f.svc.GetSession(f.ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateVerificationTimedOut, session.State)
		require.NotNil(t, session.Banner)
		assert.Equal(t, models.BannerWarning, session.Banner.Kind)
	})

	t.Run("stale generation is discarded", func(t *testing.T) {
		f := newFixture(t)
		session := f.startPending(t)
		staleGen := session.Generation

		_, err := f.svc.Reset(f.ctx, session.ID)
		require.NoError(t, err)

		f.verifier.sessions["verif-1"] = &verification.Session{ID: "verif-1", State: verification.StateFailed}
		assert.True(t, f.svc.verificationTick(f.ctx, session.ID, staleGen, "verif-1"))
		f.svc.verificationTimedOut(f.ctx, session.ID, staleGen)

		session, err = f.svc.GetSession(f.ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateAddressCapture, session.State)
	})
}

func TestIssue(t *testing.T) {
	t.Run("requires verified state", func(t *testing.T) {
		f := newFixture(t)
		session, err := f.svc.StartSession(f.ctx)
		require.NoError(t, err)

		_, err = f.svc.Issue(f.ctx, session.ID, f.ballot.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("issues and records the credential", func(t *testing.T) {
		f := newFixture(t)
		session := f.startVerified(t)

		session, err := f.svc.Issue(f.ctx, session.ID, f.ballot.ID)
		require.NoError(t, err)

		assert.Equal(t, models.StateIssued, session.State)
		assert.Equal(t, "remote-cred-1", session.RemoteCredentialID)
		assert.Equal(t, "openid-credential-offer://?offer=abc", session.OfferDeeplink)

		record, err := f.credentials.FindActive(f.ctx, f.resident.ID, f.ballot.ID)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, credmodels.StatusIssued, record.Status)
		assert.Equal(t, "2026-03-10", record.IssuedDate)
		assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), record.ValidFrom)
		assert.Equal(t, f.ballot.EndOfValidity(), record.ValidUntil)
	})

	t.Run("credential payload carries no personal data", func(t *testing.T) {
		f := newFixture(t)
		session := f.startVerified(t)

		_, err := f.svc.Issue(f.ctx, session.ID, f.ballot.ID)
		require.NoError(t, err)

		require.NotNil(t, f.issuer.lastRequest)
		subject := f.issuer.lastRequest.CredentialSubjectData
		assert.NotEmpty(t, subject.Nullifier)
		assert.Equal(t, "initiative-transparency", subject.BallotRef)
		assert.Equal(t, "did:tdw:aarau", subject.IssuerDID)

		payload, err := json.Marshal(f.issuer.lastRequest)
		require.NoError(t, err)
		assert.NotContains(t, string(payload), "Mara")
		assert.NotContains(t, string(payload), "Keller")
		assert.NotContains(t, string(payload), "1988-06-02")
	})

	t.Run("same inputs derive the same nullifier", func(t *testing.T) {
		f := newFixture(t)
		session := f.startVerified(t)

		_, err := f.svc.Issue(f.ctx, session.ID, f.ballot.ID)
		require.NoError(t, err)
		first := f.issuer.lastRequest.CredentialSubjectData.Nullifier

		record, err := f.credentials.FindActive(f.ctx, f.resident.ID, f.ballot.ID)
		require.NoError(t, err)
		_, err = f.credentials.Update(f.ctx, record.ID, credmodels.StatusPatch(credmodels.StatusRevoked))
		require.NoError(t, err)

		session2 := f.startVerified(t)
		_, err = f.svc.Issue(f.ctx, session2.ID, f.ballot.ID)
		require.NoError(t, err)
		assert.Equal(t, first, f.issuer.lastRequest.CredentialSubjectData.Nullifier)
	})

	t.Run("duplicate issuance is rejected", func(t *testing.T) {
		f := newFixture(t)
		session := f.startVerified(t)

		_, err := f.svc.Issue(f.ctx, session.ID, f.ballot.ID)
		require.NoError(t, err)

		session2 := f.startVerified(t)
		_, err = f.svc.Issue(f.ctx, session2.ID, f.ballot.ID)
		assert.ErrorIs(t, err, ErrDuplicateCredential)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("revoked records free the pair", func(t *testing.T) {
		f := newFixture(t)
		session := f.startVerified(t)

		_, err := f.svc.Issue(f.ctx, session.ID, f.ballot.ID)
		require.NoError(t, err)

		record, err := f.credentials.FindActive(f.ctx, f.resident.ID, f.ballot.ID)
		require.NoError(t, err)
		_, err = f.credentials.Update(f.ctx, record.ID, credmodels.StatusPatch(credmodels.StatusRevoked))
		require.NoError(t, err)

		session2 := f.startVerified(t)
		_, err = f.svc.Issue(f.ctx, session2.ID, f.ballot.ID)
		assert.NoError(t, err)
	})

	t.Run("expired ballot is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.ballot.ValidUntil = f.now.AddDate(0, 0, -2)
		session := f.startVerified(t)

		_, err := f.svc.Issue(f.ctx, session.ID, f.ballot.ID)
		assert.ErrorIs(t, err, ErrBallotExpired)
	})

	t.Run("end of validity day is still issuable", func(t *testing.T) {
		f := newFixture(t)
		f.ballot.ValidUntil = f.now
		session := f.startVerified(t)

		// 14:00 UTC on the last valid day is before 23:59:59.999.
		_, err := f.svc.Issue(f.ctx, session.ID, f.ballot.ID)
		assert.NoError(t, err)
	})

	t.Run("issuer failure compensates and aborts", func(t *testing.T) {
		f := newFixture(t)
		f.issuer.issueErr = dErrors.New(dErrors.CodeUpstream, "issuer service error")
		session := f.startVerified(t)

		_, err := f.svc.Issue(f.ctx, session.ID, f.ballot.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUpstream))

		session, err = f.svc.GetSession(f.ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateAborted, session.State)
		assert.Equal(t, models.AbortIssuanceFailed, session.AbortReason)

		// No issued record survives the failure.
		record, err := f.credentials.FindActive(f.ctx, f.resident.ID, f.ballot.ID)
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("failed attempts do not block retries", func(t *testing.T) {
		f := newFixture(t)
		f.issuer.issueErr = dErrors.New(dErrors.CodeUpstream, "issuer service error")
		session := f.startVerified(t)

		_, err := f.svc.Issue(f.ctx, session.ID, f.ballot.ID)
		require.Error(t, err)

		f.issuer.issueErr = nil
		session2 := f.startVerified(t)
		_, err = f.svc.Issue(f.ctx, session2.ID, f.ballot.ID)
		assert.NoError(t, err)
	})

	t.Run("unknown ballot item", func(t *testing.T) {
		f := newFixture(t)
		session := f.startVerified(t)

		_, err := f.svc.Issue(f.ctx, session.ID, uuid.New())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestCredentialStatus(t *testing.T) {
	f := newFixture(t)
	session := f.startVerified(t)

	_, err := f.svc.CredentialStatus(f.ctx, session.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = f.svc.Issue(f.ctx, session.ID, f.ballot.ID)
	require.NoError(t, err)

	status, err := f.svc.CredentialStatus(f.ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, string(issuance.StatusOffered), status)

	f.issuer.status = issuance.StatusIssued
	assert.False(t, f.svc.statusTick(f.ctx, session.ID, session.Generation, "remote-cred-1"))

	status, err = f.svc.CredentialStatus(f.ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, string(issuance.StatusIssued), status)
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	session := f.startVerified(t)

	_, err := f.svc.Issue(f.ctx, session.ID, f.ballot.ID)
	require.NoError(t, err)

	reset, err := f.svc.Reset(f.ctx, session.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StateAddressCapture, reset.State)
	assert.Equal(t, session.Generation+1, reset.Generation)
	assert.Nil(t, reset.Address)
	assert.Empty(t, reset.VerificationID)
	assert.Empty(t, reset.OfferDeeplink)

	// The issued record is bookkeeping, not flow context; it stays.
	record, err := f.credentials.FindActive(f.ctx, f.resident.ID, f.ballot.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, credmodels.StatusIssued, record.Status)
}
