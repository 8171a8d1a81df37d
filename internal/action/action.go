// Package action invokes external business actions over HTTP. Each action
// type maps to one POST endpoint under the configured base URL. Calls are
// bounded by a fixed timeout and are never retried, since actions are not
// assumed idempotent.
package action

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// invokeTimeout bounds a single action invocation.
const invokeTimeout = 30 * time.Second

// maxResponseBytes caps the response body read from the executor.
const maxResponseBytes = 1 << 20

// ErrUnavailable means no action executor is configured.
var ErrUnavailable = errors.New("action: executor not configured")

// StatusError reports a non-2xx response from the executor.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("action: executor returned status %d", e.Code)
}

// TimeoutError reports an invocation that exceeded the timeout budget.
type TimeoutError struct {
	ActionType string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("action: %s timed out after %s", e.ActionType, invokeTimeout)
}

// Response is a successful action invocation result.
type Response struct {
	// ActionType is the invoked action.
	ActionType string `json:"action_type"`

	// Body is the executor's decoded JSON response, or the raw body under
	// "raw" when it is not JSON.
	Body map[string]any `json:"body"`

	// InvokedAt is when the invocation completed.
	InvokedAt time.Time `json:"invoked_at"`
}

// Executor posts actions to an HTTP endpoint, authenticated by an optional
// function key header.
type Executor struct {
	baseURL string
	key     string
	client  *http.Client
}

// NewExecutor creates an executor for the given base URL. An empty base URL
// yields an executor whose every call returns ErrUnavailable, so callers can
// hold one unconditionally.
func NewExecutor(baseURL, key string) *Executor {
	return &Executor{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		client:  &http.Client{Timeout: invokeTimeout},
	}
}

// Configured reports whether a base URL was provided.
func (e *Executor) Configured() bool { return e.baseURL != "" }

// Invoke posts parameters to {base}/api/{action_type} and returns the
// decoded response. Non-2xx responses surface as *StatusError, deadline
// overruns as *TimeoutError.
func (e *Executor) Invoke(ctx context.Context, actionType string, parameters map[string]any) (*Response, error) {
	if !e.Configured() {
		return nil, ErrUnavailable
	}
	if actionType == "" {
		return nil, fmt.Errorf("action: empty action type")
	}

	payload, err := json.Marshal(parameters)
	if err != nil {
		return nil, fmt.Errorf("action: failed to encode parameters: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, invokeTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/%s", e.baseURL, actionType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("action: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.key != "" {
		req.Header.Set("x-functions-key", e.key)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return nil, &TimeoutError{ActionType: actionType}
		}
		return nil, fmt.Errorf("action: %s: %w", actionType, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("action: failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	decoded := make(map[string]any)
	if err := json.Unmarshal(body, &decoded); err != nil {
		decoded = map[string]any{"raw": string(body)}
	}

	return &Response{
		ActionType: actionType,
		Body:       decoded,
		InvokedAt:  time.Now().UTC(),
	}, nil
}

// Ping checks that the executor endpoint is reachable. Any HTTP response,
// including an error status, counts as reachable.
func (e *Executor) Ping(ctx context.Context) error {
	if !e.Configured() {
		return ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL, nil)
	if err != nil {
		return fmt.Errorf("action: failed to build probe: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("action: executor unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

func isClientTimeout(err error) bool {
	var ue interface{ Timeout() bool }
	return errors.As(err, &ue) && ue.Timeout()
}
