package exitcode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/samsaffron/tale-llm/internal/client"
	"github.com/samsaffron/tale-llm/internal/llm"
	"github.com/samsaffron/tale-llm/internal/story"
	"github.com/samsaffron/tale-llm/internal/wire"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, Success},
		{"explicit", ExitError{Code: 7, Message: "x"}, 7},
		{"cancelled", fmt.Errorf("transform: %w", context.Canceled), Cancelled},
		{"validation", &story.ValidationError{Message: "text is required"}, Invalid},
		{"generation", &llm.GenerationError{Err: errors.New("quota")}, Generation},
		{"framing", &wire.FramingError{Reason: "truncated"}, Stream},
		{"transport", &client.TransportError{Op: "open stream", Err: errors.New("refused")}, Stream},
		{"empty", client.ErrEmptyResult, Stream},
		{"other", errors.New("boom"), Error},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FromError(tc.err); got != tc.want {
				t.Fatalf("FromError(%v)=%d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
