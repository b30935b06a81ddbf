// Package client consumes the transform server: it streams a rewrite when
// the event-stream endpoint is usable and falls back to the single-shot
// endpoint when it is not.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samsaffron/tale-llm/internal/llm"
	"github.com/samsaffron/tale-llm/internal/story"
)

const (
	transformPath       = "/api/transform-story"
	transformStreamPath = "/api/transform-story-stream"
)

var (
	// ErrEmptyResult means the server finished without producing any text.
	ErrEmptyResult = errors.New("the server returned an empty result")

	// ErrAttemptInFlight is returned by Start while a previous Start on the
	// same Attempt has not returned.
	ErrAttemptInFlight = errors.New("a transform is already in progress")
)

// TransportError reports a connection that could not be opened or broke
// while reading.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server returned %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError is a non-2xx answer that is neither a validation nor a
// generation failure (401, 413, ...).
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to one transform server.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	token   string
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends the token as a bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTimeout bounds a whole attempt, including reading the stream. A
// client passed to WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, path string, req story.Request) (*http.Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	return httpReq, nil
}

// RunOnce performs the single-shot exchange and returns the complete text.
func (c *Client) RunOnce(ctx context.Context, req story.Request) (string, error) {
	httpReq, err := c.newRequest(ctx, transformPath, req)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TransportError{Op: "single-shot request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", responseError(resp)
	}

	var out struct {
		TransformedText string `json:"transformedText"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TransportError{Op: "single-shot response", Err: err}
	}
	if out.TransformedText == "" {
		return "", ErrEmptyResult
	}
	return out.TransformedText, nil
}

// responseError maps a non-2xx response to the error taxonomy: 400 is a
// validation error, 5xx a generation error, anything else a ServerError.
func responseError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest && body.Error != "":
		return &story.ValidationError{Message: body.Error}
	case resp.StatusCode >= 500 && body.Error != "":
		return &llm.GenerationError{Err: errors.New(body.Error)}
	default:
		return &ServerError{Status: resp.StatusCode, Message: body.Error}
	}
}
