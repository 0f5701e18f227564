// Package participantclient is the coordinator's HTTP client to a
// participant's /2pc/* endpoints, grounded on the retrieved
// transaction-service's accountclient.Client: a bare net/http.Client
// wrapped with a base URL, a bearer token, JSON marshal/unmarshal, and a
// context.WithTimeout applied per call by the caller (twophase.Coordinator).
package participantclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/congo-pay/twopc/internal/errtax"
	"github.com/congo-pay/twopc/internal/wire"
)

// ErrTransport wraps any failure to complete the round trip: connection
// refused, timeout, or a non-JSON body. The coordinator folds this into an
// abort vote during prepare and into the critical path during commit.
var ErrTransport = errors.New("participantclient: transport failure")

// Client calls one participant deployment's /2pc/* surface.
type Client struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
}

// New builds a Client. adminToken is the coordinator-minted service token
// attached to every outbound call (spec §6.1).
func New(baseURL, adminToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		adminToken: adminToken,
		httpClient: httpClient,
	}
}

func (c *Client) do(ctx context.Context, path string, reqBody, respBody any) (int, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("%w: marshal request: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}
	return resp.StatusCode, nil
}

// Prepare calls POST /2pc/prepare. A non-transport abort (insufficient
// funds, conflict, not found) is reported through the response's Vote and
// Error fields, not through the returned error — only a transport failure
// returns a non-nil error, per spec §4.1 step 3's "transport failure counts
// as an abort vote" rule, which the caller applies uniformly.
func (c *Client) Prepare(ctx context.Context, req wire.PrepareRequest) (wire.PrepareResponse, error) {
	var resp wire.PrepareResponse
	if _, err := c.do(ctx, "/2pc/prepare", req, &resp); err != nil {
		return wire.PrepareResponse{Vote: wire.VoteAbort, Error: &wire.ErrorBody{Code: string(errtax.CodeTransport), Message: err.Error()}}, err
	}
	return resp, nil
}

// Commit calls POST /2pc/commit.
func (c *Client) Commit(ctx context.Context, req wire.CommitRequest) (wire.CommitResponse, error) {
	var resp wire.CommitResponse
	if _, err := c.do(ctx, "/2pc/commit", req, &resp); err != nil {
		return wire.CommitResponse{Error: &wire.ErrorBody{Code: string(errtax.CodeTransport), Message: err.Error()}}, err
	}
	return resp, nil
}

// Abort calls POST /2pc/abort. Failures are logged by the caller but never
// change the transfer's outcome (spec §4.1 step 5).
func (c *Client) Abort(ctx context.Context, req wire.AbortRequest) (wire.AbortResponse, error) {
	var resp wire.AbortResponse
	if _, err := c.do(ctx, "/2pc/abort", req, &resp); err != nil {
		return wire.AbortResponse{Error: &wire.ErrorBody{Code: string(errtax.CodeTransport), Message: err.Error()}}, err
	}
	return resp, nil
}

// Status calls POST /2pc/status, used by the reconciliation sweeper.
func (c *Client) Status(ctx context.Context, req wire.StatusRequest) (wire.StatusResponse, error) {
	var resp wire.StatusResponse
	if _, err := c.do(ctx, "/2pc/status", req, &resp); err != nil {
		return wire.StatusResponse{Error: &wire.ErrorBody{Code: string(errtax.CodeTransport), Message: err.Error()}}, err
	}
	return resp, nil
}
