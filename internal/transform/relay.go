// Package transform drives a generation provider on behalf of a story
// transform request, either incrementally (Relay) or in one call (RunOnce).
package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/samsaffron/tale-llm/internal/llm"
	"github.com/samsaffron/tale-llm/internal/prompt"
	"github.com/samsaffron/tale-llm/internal/story"
	"github.com/samsaffron/tale-llm/internal/wire"
)

// State is the relay lifecycle: Idle -> Generating -> Completed | Failed.
type State int

const (
	StateIdle State = iota
	StateGenerating
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FailurePrefix starts every failure message a relay emits.
const FailurePrefix = "text generation failed: "

// Sink receives framed events. A Send error means the outbound transport
// is gone.
type Sink interface {
	Send(wire.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(wire.Event) error

func (f SinkFunc) Send(e wire.Event) error { return f(e) }

// Summary describes how a relay run ended.
type Summary struct {
	State     State
	Fragments int
	Bytes     int
	Err       error
}

// Relay streams one request through a provider. A Relay is single-use.
type Relay struct {
	provider llm.Provider

	mu    sync.Mutex
	state State
}

func NewRelay(provider llm.Provider) *Relay {
	return &Relay{provider: provider}
}

// State returns the current lifecycle state.
func (r *Relay) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Relay) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run validates req and, if valid, forwards every generated fragment to
// sink as it arrives, followed by exactly one Done or Failure event. A
// validation failure is returned without sending anything. Generation
// failures are reported to sink as a Failure and also returned in the
// Summary; Run's error is reserved for validation, reuse, and a dead sink.
func (r *Relay) Run(ctx context.Context, req story.Request, sink Sink) (Summary, error) {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return Summary{State: r.state}, errors.New("relay already used")
	}
	if err := req.Validate(); err != nil {
		r.mu.Unlock()
		return Summary{State: StateIdle}, err
	}
	r.state = StateGenerating
	r.mu.Unlock()

	summary, err := r.generate(ctx, prompt.ForRequest(req), sink)
	r.setState(summary.State)
	return summary, err
}

func (r *Relay) generate(ctx context.Context, p string, sink Sink) (Summary, error) {
	var summary Summary

	fail := func(cause error) (Summary, error) {
		summary.State = StateFailed
		summary.Err = cause
		return summary, sink.Send(wire.Failure(FailurePrefix + cause.Error()))
	}

	stream, err := r.provider.Stream(ctx, p)
	if err != nil {
		return fail(err)
	}
	defer stream.Close()

	for {
		event, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(err)
		}
		switch event.Type {
		case llm.EventTextDelta:
			if event.Text == "" {
				continue
			}
			if err := sink.Send(wire.Fragment(event.Text)); err != nil {
				summary.State = StateFailed
				summary.Err = err
				return summary, fmt.Errorf("send fragment: %w", err)
			}
			summary.Fragments++
			summary.Bytes += len(event.Text)
		case llm.EventError:
			return fail(event.Err)
		case llm.EventDone:
			summary.State = StateCompleted
			return summary, sink.Send(wire.Done())
		}
	}
	summary.State = StateCompleted
	return summary, sink.Send(wire.Done())
}

// RunOnce validates req, builds its prompt and returns the provider's
// single-shot result.
func RunOnce(ctx context.Context, provider llm.Provider, req story.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	return provider.Generate(ctx, prompt.ForRequest(req))
}
