package llm

import (
	"context"
	"io"
	"strings"
)

type channelStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	events <-chan Event
}

func newEventStream(ctx context.Context, run func(context.Context, chan<- Event) error) Stream {
	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		if err := run(streamCtx, ch); err != nil {
			select {
			case ch <- Event{Type: EventError, Err: err}:
			case <-streamCtx.Done():
			}
		}
	}()
	return &channelStream{ctx: streamCtx, cancel: cancel, events: ch}
}

func (s *channelStream) Recv() (Event, error) {
	// Non-blocking drain: consume any buffered event before checking ctx.Done().
	// This prevents dropping EventDone when ctx and events are both ready.
	select {
	case event, ok := <-s.events:
		if !ok {
			return Event{}, s.closedErr()
		}
		return event, nil
	default:
	}

	select {
	case <-s.ctx.Done():
		return Event{}, s.ctx.Err()
	case event, ok := <-s.events:
		if !ok {
			return Event{}, s.closedErr()
		}
		return event, nil
	}
}

// closedErr distinguishes a producer that finished from one that gave up
// because the stream context was cancelled.
func (s *channelStream) closedErr() error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	return io.EOF
}

func (s *channelStream) Close() error {
	s.cancel()
	return nil
}

// emit sends ev unless ctx is cancelled first.
func emit(ctx context.Context, ch chan<- Event, ev Event) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ch <- ev:
		return nil
	}
}

// Collect drains a stream and returns the concatenated text deltas. The
// first EventError, or Recv error other than io.EOF, is returned.
func Collect(s Stream) (string, error) {
	defer s.Close()
	var sb strings.Builder
	for {
		event, err := s.Recv()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		switch event.Type {
		case EventTextDelta:
			sb.WriteString(event.Text)
		case EventError:
			return sb.String(), event.Err
		case EventDone:
			return sb.String(), nil
		}
	}
}
