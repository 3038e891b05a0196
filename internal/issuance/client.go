// Package issuance talks to the external issuer service that mints
// wallet-deliverable credentials.
package issuance

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

// Client is the HTTP client for the issuer service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an issuer client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Issue mints a credential. A non-2xx response is an upstream error the
// caller treats as fatal for the current attempt; no retry happens here.
func (c *Client) Issue(ctx context.Context, req IssueRequest) (*IssueResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal issue request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/credentials", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build issue request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "issuer service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError(resp)
	}

	var issued IssueResponse
	if err := json.NewDecoder(resp.Body).Decode(&issued); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "malformed issuer response")
	}
	return &issued, nil
}

// Status reads the issuer-side credential status. Used for display polling
// only; it never feeds back into the committed local status.
func (c *Client) Status(ctx context.Context, remoteID string) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/credentials/"+url.PathEscape(remoteID)+"/status", nil)
	if err != nil {
		return "", fmt.Errorf("build status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "issuer service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", upstreamError(resp)
	}

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUpstream, "malformed issuer response")
	}
	return status.Status, nil
}

func upstreamError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return dErrors.Wrap(
		fmt.Errorf("issuer returned %d: %s", resp.StatusCode, snippet),
		dErrors.CodeUpstream,
		"issuer service error",
	)
}
