package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecollect/internal/flow/models"
	dErrors "ecollect/pkg/domain-errors"
	"ecollect/pkg/testutil"
)

type stubService struct {
	session *models.Session
	status  string
	err     error

	gotAddress models.SubmitAddressRequest
	gotBallot  uuid.UUID
}

func (s *stubService) StartSession(context.Context) (*models.Session, error) {
	return s.session, s.err
}

func (s *stubService) GetSession(context.Context, uuid.UUID) (*models.Session, error) {
	return s.session, s.err
}

func (s *stubService) SubmitAddress(_ context.Context, _ uuid.UUID, req models.SubmitAddressRequest) (*models.Session, error) {
	s.gotAddress = req
	return s.session, s.err
}

func (s *stubService) StartVerification(context.Context, uuid.UUID) (*models.Session, error) {
	return s.session, s.err
}

func (s *stubService) Issue(_ context.Context, _ uuid.UUID, ballotItemID uuid.UUID) (*models.Session, error) {
	s.gotBallot = ballotItemID
	return s.session, s.err
}

func (s *stubService) CredentialStatus(context.Context, uuid.UUID) (string, error) {
	return s.status, s.err
}

func (s *stubService) Reset(context.Context, uuid.UUID) (*models.Session, error) {
	return s.session, s.err
}

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	New(svc, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func pendingSession() *models.Session {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	session := models.NewSession(now)
	session.State = models.StateVerificationPending
	session.VerificationID = "verif-1"
	session.VerificationURL = "https://verifier.example/request/1"
	session.VerificationDeeplink = "openid4vp://?client_id=x&request_uri=y"
	return session
}

func TestHandleStart(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := &stubService{session: models.NewSession(now)}
	router := newRouter(svc)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/flow/sessions"))

	testutil.AssertStatus(t, rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[SessionResponse](t, rr)
	assert.Equal(t, string(models.StateAddressCapture), resp.State)
	assert.Equal(t, svc.session.ID.String(), resp.ID)
}

func TestHandleGet(t *testing.T) {
	t.Run("bad session id", func(t *testing.T) {
		router := newRouter(&stubService{})
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/flow/sessions/not-a-uuid"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})

	t.Run("not found", func(t *testing.T) {
		router := newRouter(&stubService{err: dErrors.New(dErrors.CodeNotFound, "flow session not found")})
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/flow/sessions/"+uuid.NewString()))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("desktop gets a QR presentation", func(t *testing.T) {
		router := newRouter(&stubService{session: pendingSession()})
		req := testutil.NewRequest(t, http.MethodGet, "/flow/sessions/"+uuid.NewString())
		req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Firefox/133.0")

		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[SessionResponse](t, rr)
		require.NotNil(t, resp.Verification)
		assert.Equal(t, "qr_code", resp.Verification.PresentationMode)
	})

	t.Run("phone opens the wallet directly", func(t *testing.T) {
		router := newRouter(&stubService{session: pendingSession()})
		req := testutil.NewRequest(t, http.MethodGet, "/flow/sessions/"+uuid.NewString())
		req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Version/17.0 Mobile/15E148 Safari/604.1")

		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[SessionResponse](t, rr)
		require.NotNil(t, resp.Verification)
		assert.Equal(t, "wallet_redirect", resp.Verification.PresentationMode)
	})
}

func TestHandleSubmitAddress(t *testing.T) {
	t.Run("passes the form through", func(t *testing.T) {
		now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		svc := &stubService{session: models.NewSession(now)}
		router := newRouter(svc)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/flow/sessions/"+uuid.NewString()+"/address",
			models.SubmitAddressRequest{Street: "Bahnhofstrasse 1", PostalCode: "5000", City: "Aarau"})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, "5000", svc.gotAddress.PostalCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		router := newRouter(&stubService{})
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/flow/sessions/"+uuid.NewString()+"/address", "{")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func TestHandleIssue(t *testing.T) {
	t.Run("validates ballot item id", func(t *testing.T) {
		router := newRouter(&stubService{})
		req := testutil.NewJSONRequest(t, http.MethodPost, "/flow/sessions/"+uuid.NewString()+"/issue",
			models.IssueRequest{BallotItemID: "nope"})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")
	})

	t.Run("conflict surfaces as 409", func(t *testing.T) {
		router := newRouter(&stubService{err: dErrors.New(dErrors.CodeConflict, "a credential for this ballot item was already issued")})
		req := testutil.NewJSONRequest(t, http.MethodPost, "/flow/sessions/"+uuid.NewString()+"/issue",
			models.IssueRequest{BallotItemID: uuid.NewString()})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})

	t.Run("issued session includes the offer", func(t *testing.T) {
		now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		session := models.NewSession(now)
		session.State = models.StateIssued
		session.OfferDeeplink = "openid-credential-offer://?offer=abc"
		session.DisplayStatus = "offered"

		svc := &stubService{session: session}
		router := newRouter(svc)
		ballotID := uuid.New()

		req := testutil.NewJSONRequest(t, http.MethodPost, "/flow/sessions/"+uuid.NewString()+"/issue",
			models.IssueRequest{BallotItemID: ballotID.String()})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, ballotID, svc.gotBallot)
		resp := testutil.UnmarshalResponse[SessionResponse](t, rr)
		require.NotNil(t, resp.Credential)
		assert.Equal(t, "openid-credential-offer://?offer=abc", resp.Credential.OfferDeeplink)
		assert.Equal(t, "offered", resp.Credential.DisplayStatus)
	})
}

func TestHandleCredentialStatus(t *testing.T) {
	router := newRouter(&stubService{status: "issued"})
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/flow/sessions/"+uuid.NewString()+"/credential"))

	testutil.AssertStatus(t, rr, http.StatusOK)
	body := testutil.UnmarshalErrorResponse(t, rr)
	assert.Equal(t, "issued", body["display_status"])
}

func TestHandleReset(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	session := models.NewSession(now)
	session.Generation = 1

	router := newRouter(&stubService{session: session})
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/flow/sessions/"+uuid.NewString()+"/reset"))

	testutil.AssertStatus(t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[SessionResponse](t, rr)
	assert.Equal(t, 1, resp.Generation)
}
