package verification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ecollect/pkg/domain-errors"
)

func TestClientCreate(t *testing.T) {
	t.Run("posts presentation definition", func(t *testing.T) {
		var gotBody createRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/verifications", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(Session{
				ID:              "verif-1",
				VerificationURL: "http://" + r.Host + "/request/verif-1",
				State:           StatePending,
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "ecollect-verifier")
		session, err := client.Create(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "verif-1", session.ID)
		assert.Equal(t, StatePending, session.State)

		fields := map[string]bool{}
		for _, d := range gotBody.PresentationDefinition.InputDescriptors {
			for _, f := range d.Constraints.Fields {
				for _, p := range f.Path {
					fields[p] = true
				}
			}
		}
		for _, want := range []string{"$.family_name", "$.given_name", "$.birth_date", "$.age_over_18"} {
			assert.True(t, fields[want], "missing requested field %s", want)
		}
	})

	t.Run("unreachable verifier maps to unavailable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", "ecollect-verifier")
		_, err := client.Create(context.Background())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("5xx maps to upstream", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "ecollect-verifier")
		_, err := client.Create(context.Background())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUpstream))
	})
}

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/verifications/verif-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Session{
			ID:    "verif-1",
			State: StateSuccess,
			WalletResponse: &WalletResponse{
				CredentialSubjectData: SubjectData{
					GivenName:  "Mara",
					FamilyName: "Keller",
					BirthDate:  "1988-06-02",
					AgeOver18:  true,
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "ecollect-verifier")
	session, err := client.Get(context.Background(), "verif-1")
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, session.State)
	require.NotNil(t, session.WalletResponse)
	assert.Equal(t, "Keller", session.WalletResponse.CredentialSubjectData.FamilyName)
	assert.True(t, session.WalletResponse.CredentialSubjectData.AgeOver18)
}

func TestDeeplink(t *testing.T) {
	client := NewClient("http://verifier.local", "ecollect verifier")
	link := client.Deeplink(&Session{VerificationURL: "http://verifier.local/request/1?x=y"})

	assert.Contains(t, link, "openid4vp://?client_id=ecollect+verifier")
	assert.Contains(t, link, "request_uri=http%3A%2F%2Fverifier.local%2Frequest%2F1%3Fx%3Dy")
}
