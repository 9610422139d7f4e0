package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ballotproof/ballotproof-go/pkg/commitment"
	"github.com/ballotproof/ballotproof-go/pkg/poll"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides default retry settings
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     5,
	InitialBackoff:  100 * time.Millisecond,
	MaxBackoff:      5 * time.Second,
	BackoffMultiple: 2.0,
}

// Client talks to a poll server over HTTP. Transport failures are
// retried with exponential backoff; application-level rejections
// (conflict, not found, mismatch) are returned immediately.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig RetryConfig
}

// NewClient creates a new poll client for the given base URL, e.g.
// "http://localhost:8000".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		retryConfig: DefaultRetryConfig,
	}
}

// Register registers a voter identity and returns the nullifier.
func (c *Client) Register(secretIdentity string) (string, error) {
	var resp poll.RegisterResponse
	err := c.postJSON("/register", poll.RegisterRequest{SecretIdentity: secretIdentity}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Nullifier, nil
}

// Vote casts or updates a commitment and returns the published tree
// state. An empty salt lets the server generate one; the salt in use
// comes back in the result and must be kept for reveal.
func (c *Client) Vote(secretIdentity, choice, salt string) (*poll.CastResult, error) {
	var result poll.CastResult
	err := c.postJSON("/vote", poll.VoteRequest{
		SecretIdentity: secretIdentity,
		Choice:         choice,
		Salt:           salt,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Reveal finalizes a choice by opening its commitment.
func (c *Client) Reveal(secretIdentity, choice, salt string) (*poll.RevealResponse, error) {
	var resp poll.RevealResponse
	err := c.postJSON("/reveal", poll.VoteRequest{
		SecretIdentity: secretIdentity,
		Choice:         choice,
		Salt:           salt,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Root fetches the current tree root and leaf count.
func (c *Client) Root() (*poll.RootResponse, error) {
	var resp poll.RootResponse
	if err := c.getJSON("/root", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Proof fetches the inclusion proof for a live commitment.
func (c *Client) Proof(commitmentValue string) (*commitment.Proof, error) {
	var proof commitment.Proof
	if err := c.getJSON("/proof?commitment="+commitmentValue, &proof); err != nil {
		return nil, err
	}
	return &proof, nil
}

// Verify submits a proof for a stateless server-side check.
func (c *Client) Verify(proof *commitment.Proof) (bool, error) {
	var resp poll.VerifyResponse
	if err := c.postJSON("/verify", proof, &resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

// Tally fetches the finalized choice counts.
func (c *Client) Tally() (map[string]int, error) {
	var resp poll.TallyResponse
	if err := c.getJSON("/tally", &resp); err != nil {
		return nil, err
	}
	return resp.Counts, nil
}

// postJSON sends a JSON body with retries and decodes the response.
func (c *Client) postJSON(path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}

	return c.doWithRetry(func() (*http.Response, error) {
		return c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(data))
	}, path, out)
}

// getJSON fetches a path with retries and decodes the response.
func (c *Client) getJSON(path string, out interface{}) error {
	return c.doWithRetry(func() (*http.Response, error) {
		return c.httpClient.Get(c.baseURL + path)
	}, path, out)
}

// doWithRetry retries transport-level failures with exponential
// backoff. HTTP error statuses are returned without retrying since
// the server's answer will not change.
func (c *Client) doWithRetry(do func() (*http.Response, error), path string, out interface{}) error {
	backoff := c.retryConfig.InitialBackoff

	var lastErr error
	for attempt := 0; attempt < c.retryConfig.MaxAttempts; attempt++ {
		resp, err := do()
		if err == nil {
			return decodeResponse(resp, path, out)
		}
		lastErr = err

		if attempt < c.retryConfig.MaxAttempts-1 {
			time.Sleep(backoff)
			backoff = time.Duration(float64(backoff) * c.retryConfig.BackoffMultiple)
			if backoff > c.retryConfig.MaxBackoff {
				backoff = c.retryConfig.MaxBackoff
			}
		}
	}

	return errors.Wrapf(lastErr, "request to %s failed after %d attempts", path, c.retryConfig.MaxAttempts)
}

// decodeResponse maps HTTP error statuses to errors and decodes
// successful JSON bodies.
func decodeResponse(resp *http.Response, path string, out interface{}) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode response from %s", path)
	}
	return nil
}
