// Package verification talks to the external wallet-verifier service. It
// creates identity-verification sessions and reads their state; retry cadence
// is the flow service's responsibility, never the client's.
package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	dErrors "ecollect/pkg/domain-errors"
)

// Client is the HTTP client for the verifier service.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
}

// NewClient builds a verifier client. clientID identifies this verifier in
// wallet deep links.
func NewClient(baseURL, clientID string) *Client {
	return &Client{
		baseURL:  baseURL,
		clientID: clientID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Create opens a verification session by posting the presentation definition.
// Transport failures surface as unavailable, non-2xx responses as upstream;
// neither is retried here.
func (c *Client) Create(ctx context.Context) (*Session, error) {
	body, err := json.Marshal(createRequest{PresentationDefinition: defaultPresentationDefinition()})
	if err != nil {
		return nil, fmt.Errorf("marshal verification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verifications", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "verifier service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError(resp)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "malformed verifier response")
	}
	return &session, nil
}

// Get performs a single poll of the session. The caller decides cadence and
// when to stop.
func (c *Client) Get(ctx context.Context, sessionID string) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/verifications/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("build verification poll request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "verifier service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError(resp)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "malformed verifier response")
	}
	return &session, nil
}

// Deeplink renders the wallet hand-off URI for a session. Mobile clients open
// it directly; desktop clients render it as a scannable code.
func (c *Client) Deeplink(session *Session) string {
	return fmt.Sprintf("openid4vp://?client_id=%s&request_uri=%s",
		url.QueryEscape(c.clientID),
		url.QueryEscape(session.VerificationURL),
	)
}

func upstreamError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return dErrors.Wrap(
		fmt.Errorf("verifier returned %d: %s", resp.StatusCode, snippet),
		dErrors.CodeUpstream,
		"verifier service error",
	)
}
