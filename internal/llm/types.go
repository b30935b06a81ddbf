package llm

import (
	"context"
	"errors"
	"fmt"
)

// EventType identifies what a stream Event carries.
type EventType string

const (
	EventTextDelta EventType = "text_delta"
	EventDone      EventType = "done"
	EventError     EventType = "error"
)

// Event is a single item produced by a Stream.
type Event struct {
	Type EventType
	Text string
	Err  error
}

// Stream is a finite, non-restartable sequence of events. Recv returns
// io.EOF once the sequence is exhausted.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

// Provider is a model-generation backend. Generate returns one complete
// text; Stream yields non-empty text deltas and may fail at any point,
// including before the first delta.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string) (Stream, error)
}

// GenerationError is an upstream failure from a provider: auth, quota,
// content-safety block, network.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Provider == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// generationError wraps err as a GenerationError unless it already is one.
func generationError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return err
	}
	return &GenerationError{Provider: provider, Err: err}
}

// IsGenerationError reports whether err is, or wraps, a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// ErrEmptyResponse is returned by Generate when the model produced no text.
var ErrEmptyResponse = errors.New("model returned no text")
