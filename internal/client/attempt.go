package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/samsaffron/tale-llm/internal/llm"
	"github.com/samsaffron/tale-llm/internal/story"
	"github.com/samsaffron/tale-llm/internal/wire"
)

// State is the attempt lifecycle:
// NotStarted -> Connecting -> Streaming -> Committed | FallenBack | Errored.
type State int

const (
	StateNotStarted State = iota
	StateConnecting
	StateStreaming
	StateCommitted
	StateFallenBack
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateCommitted:
		return "committed"
	case StateFallenBack:
		return "fallen_back"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ProgressFunc receives the running total after every fragment.
type ProgressFunc func(partial string)

// Result is a committed transform.
type Result struct {
	Text string
	// Streamed is false when the text came from the single-shot fallback
	// and was never shown incrementally.
	Streamed bool
}

// Attempt runs transforms one at a time and tracks the state of the latest.
type Attempt struct {
	client     *Client
	onProgress ProgressFunc

	mu      sync.Mutex
	state   State
	running bool
}

// NewAttempt returns an Attempt reporting progress to onProgress, which may
// be nil.
func (c *Client) NewAttempt(onProgress ProgressFunc) *Attempt {
	return &Attempt{client: c, onProgress: onProgress}
}

// Transform runs a single attempt.
func (c *Client) Transform(ctx context.Context, req story.Request, onProgress ProgressFunc) (Result, error) {
	return c.NewAttempt(onProgress).Start(ctx, req)
}

func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Attempt) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Start streams req from the server. If the stream cannot be opened, or
// fails before any record arrives, the single-shot endpoint is used
// instead and the caller only sees its result. Every Start begins with an
// empty accumulator.
func (a *Attempt) Start(ctx context.Context, req story.Request) (Result, error) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return Result{}, ErrAttemptInFlight
	}
	a.running = true
	a.state = StateConnecting
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	res, err := a.stream(ctx, req)
	var fb *fallback
	if errors.As(err, &fb) {
		return a.fallback(ctx, req, fb.reason)
	}
	if err != nil {
		a.setState(StateErrored)
		return Result{}, err
	}
	a.setState(StateCommitted)
	return res, nil
}

// fallback marks a stream failure that the single-shot path may absorb.
type fallback struct {
	reason error
}

func (f *fallback) Error() string {
	return "stream unavailable: " + f.reason.Error()
}

func (a *Attempt) fallback(ctx context.Context, req story.Request, reason error) (Result, error) {
	a.setState(StateFallenBack)
	a.client.logger.Debug("falling back to single-shot transform", "reason", reason)

	text, err := a.client.RunOnce(ctx, req)
	if err != nil {
		a.setState(StateErrored)
		return Result{}, err
	}
	return Result{Text: text}, nil
}

func (a *Attempt) stream(ctx context.Context, req story.Request) (Result, error) {
	httpReq, err := a.client.newRequest(ctx, transformStreamPath, req)
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Accept", wire.ContentType)

	resp, err := a.client.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, &fallback{reason: &TransportError{Op: "open stream", Err: err}}
	}
	defer resp.Body.Close()

	if err := checkStreamResponse(resp); err != nil {
		return Result{}, err
	}

	a.setState(StateStreaming)
	return a.consume(ctx, resp.Body)
}

// checkStreamResponse decides whether a response is an event stream, a
// reason to fall back, or an error to surface.
func checkStreamResponse(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		if mediaType != wire.ContentType {
			return &fallback{reason: &TransportError{
				Op:  "open stream",
				Err: fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type")),
			}}
		}
		return nil
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusMethodNotAllowed,
		resp.StatusCode >= 500:
		return &fallback{reason: &TransportError{
			Op:     "open stream",
			Status: resp.StatusCode,
			Err:    errors.New(http.StatusText(resp.StatusCode)),
		}}
	default:
		return responseError(resp)
	}
}

func (a *Attempt) consume(ctx context.Context, body io.Reader) (Result, error) {
	var acc strings.Builder
	records := 0
	dec := wire.NewDecoder(body)

	for {
		ev, err := dec.Next()
		if err == io.EOF {
			if acc.Len() == 0 {
				return Result{}, ErrEmptyResult
			}
			a.client.logger.Warn("stream closed without a terminal event; keeping received text", "bytes", acc.Len())
			return Result{Text: acc.String(), Streamed: true}, nil
		}
		if err != nil {
			var fe *wire.FramingError
			switch {
			case errors.As(err, &fe):
				return Result{}, err
			case ctx.Err() != nil:
				return Result{}, ctx.Err()
			case records == 0:
				return Result{}, &fallback{reason: &TransportError{Op: "read stream", Err: err}}
			default:
				return Result{}, &TransportError{Op: "read stream", Err: err}
			}
		}
		records++

		switch ev.Kind {
		case wire.KindFragment:
			acc.WriteString(ev.Text)
			if a.onProgress != nil {
				a.onProgress(acc.String())
			}
		case wire.KindDone:
			return Result{Text: acc.String(), Streamed: true}, nil
		case wire.KindFailure:
			return Result{}, &llm.GenerationError{Err: errors.New(ev.Text)}
		}
	}
}
