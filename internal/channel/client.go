package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// API is the call surface the sync engine and push consumer depend on.
// Tests substitute fakes; production code uses *Client.
type API interface {
	Call(ctx context.Context, op string, params map[string]any) (json.RawMessage, RateLimitInfo, error)
}

// TokenProvider supplies a valid bearer token for one connection.  Token
// refresh and credential storage are collaborator concerns; the client
// only asks.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider over a fixed credential, used for
// channels with long-lived API keys.
type StaticToken string

// Token returns the fixed credential.
func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Client talks to one channel's HTTP API.  Operations are opaque endpoint
// names resolved against the base URL; the client never interprets payload
// contents.
type Client struct {
	baseURL string
	headers HeaderNames
	tokens  TokenProvider
	http    *http.Client
}

// NewClient builds a client for one channel connection.  A nil httpClient
// gets a default with a 30s transport-level timeout; per-call deadlines
// come from the caller's context.
func NewClient(baseURL string, headers HeaderNames, tokens TokenProvider, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, headers: headers, tokens: tokens, http: httpClient}
}

// Call POSTs params as JSON to baseURL/op and returns the raw response
// body plus whatever rate-limit telemetry the response carried.  Failures
// are classified: connection/timeout -> TransientError, 401/403 ->
// AuthError, 429 -> RateLimitedError, other non-2xx -> RemoteError.
// Telemetry is extracted even from failed responses so callers can back
// off on the freshest numbers.
func (c *Client) Call(ctx context.Context, op string, params map[string]any) (json.RawMessage, RateLimitInfo, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, RateLimitInfo{}, fmt.Errorf("marshal params for %s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(body))
	if err != nil {
		return nil, RateLimitInfo{}, fmt.Errorf("build request for %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, RateLimitInfo{}, &AuthError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, RateLimitInfo{}, &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	info := extractTelemetry(resp.Header, c.headers)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, info, &AuthError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		resetsIn := info.ResetsIn
		if resetsIn == 0 {
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				resetsIn = time.Duration(secs) * time.Second
			}
		}
		return nil, info, &RateLimitedError{Op: op, Remaining: info.Remaining, ResetsIn: resetsIn}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, info, &RemoteError{Op: op, Status: resp.StatusCode, Message: string(msg)}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, info, &TransientError{Op: op, Err: err}
	}
	return payload, info, nil
}
