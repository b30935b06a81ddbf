package exitcode

import (
	"context"
	"errors"

	"github.com/samsaffron/tale-llm/internal/client"
	"github.com/samsaffron/tale-llm/internal/llm"
	"github.com/samsaffron/tale-llm/internal/story"
	"github.com/samsaffron/tale-llm/internal/wire"
)

// Exit codes for tale-llm commands
const (
	Success    = 0
	Error      = 1
	Invalid    = 2   // request failed validation
	Generation = 3   // the model or server failed to generate
	Stream     = 4   // framing, transport or empty result
	Cancelled  = 130 // 128 + SIGINT
)

// ExitError is an error that carries a specific exit code
type ExitError struct {
	Code    int
	Message string
}

func (e ExitError) Error() string {
	return e.Message
}

func Cancel() ExitError { return ExitError{Code: Cancelled, Message: "cancelled"} }

// FromError maps err onto an exit code.
func FromError(err error) int {
	var exitErr ExitError
	var fe *wire.FramingError
	var te *client.TransportError
	switch {
	case err == nil:
		return Success
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, context.Canceled):
		return Cancelled
	case story.IsValidationError(err):
		return Invalid
	case llm.IsGenerationError(err):
		return Generation
	case errors.As(err, &fe), errors.As(err, &te), errors.Is(err, client.ErrEmptyResult):
		return Stream
	default:
		return Error
	}
}
