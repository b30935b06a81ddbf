// Package wire implements the text framing used between the stream relay
// and its consumers. Each record is one or more "data:" lines followed by a
// blank line. Payloads are {"chunk": "..."} for a fragment,
// {"error": "..."} for a failure and the literal [DONE] for completion.
package wire

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

// DoneMarker is the terminal payload. It is not JSON.
const DoneMarker = "[DONE]"

// ContentType is the media type of an encoded stream.
const ContentType = "text/event-stream"

// maxRecordBytes bounds a single line; fragments are small deltas.
const maxRecordBytes = 1 << 20

type Kind int

const (
	KindFragment Kind = iota + 1
	KindDone
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindFragment:
		return "fragment"
	case KindDone:
		return "done"
	case KindFailure:
		return "failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one unit exchanged over the wire. Text carries the fragment
// delta or the failure message.
type Event struct {
	Kind Kind
	Text string
}

func Fragment(text string) Event   { return Event{Kind: KindFragment, Text: text} }
func Done() Event                  { return Event{Kind: KindDone} }
func Failure(message string) Event { return Event{Kind: KindFailure, Text: message} }

// Terminal reports whether no further events may follow e.
func (e Event) Terminal() bool {
	return e.Kind == KindDone || e.Kind == KindFailure
}

// FramingError reports a record that does not follow the framing rules.
type FramingError struct {
	Record string
	Reason string
}

func (e *FramingError) Error() string {
	if e.Record == "" {
		return "malformed stream record: " + e.Reason
	}
	return fmt.Sprintf("malformed stream record: %s: %q", e.Reason, truncate(e.Record, 80))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

type chunkPayload struct {
	Chunk string `json:"chunk"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// Payload returns the record payload for e.
func Payload(e Event) (string, error) {
	var v any
	switch e.Kind {
	case KindDone:
		return DoneMarker, nil
	case KindFragment:
		v = chunkPayload{Chunk: e.Text}
	case KindFailure:
		v = errorPayload{Error: e.Text}
	default:
		return "", fmt.Errorf("cannot encode %s event", e.Kind)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Encode writes e as a single record. JSON escaping keeps every payload on
// one line.
func Encode(w io.Writer, e Event) error {
	payload, err := Payload(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

// ParseRecord decodes a record payload into an Event.
func ParseRecord(payload string) (Event, error) {
	if payload == DoneMarker {
		return Done(), nil
	}
	if !gjson.Valid(payload) {
		return Event{}, &FramingError{Record: payload, Reason: "payload is not valid JSON"}
	}
	obj := gjson.Parse(payload)
	if !obj.IsObject() {
		return Event{}, &FramingError{Record: payload, Reason: "payload is not an object"}
	}
	if msg := obj.Get("error"); msg.Exists() {
		if msg.Type != gjson.String {
			return Event{}, &FramingError{Record: payload, Reason: "error field is not a string"}
		}
		return Failure(msg.String()), nil
	}
	if chunk := obj.Get("chunk"); chunk.Exists() {
		if chunk.Type != gjson.String {
			return Event{}, &FramingError{Record: payload, Reason: "chunk field is not a string"}
		}
		return Fragment(chunk.String()), nil
	}
	return Event{}, &FramingError{Record: payload, Reason: "payload has neither chunk nor error"}
}

// Decoder reads records from a byte stream.
type Decoder struct {
	scanner *bufio.Scanner
}

func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
	return &Decoder{scanner: sc}
}

// Next returns the next event. It returns io.EOF after a clean end of
// input, a *FramingError for a malformed or truncated record, and the
// underlying read error otherwise.
func (d *Decoder) Next() (Event, error) {
	var data []string
	pending := false

	for d.scanner.Scan() {
		line := d.scanner.Text()

		switch {
		case line == "":
			if !pending {
				continue
			}
			return ParseRecord(strings.Join(data, "\n"))
		case strings.HasPrefix(line, ":"):
			// comment
		case line == "data" || strings.HasPrefix(line, "data:"):
			value := strings.TrimPrefix(strings.TrimPrefix(line, "data"), ":")
			data = append(data, strings.TrimPrefix(value, " "))
			pending = true
		default:
			return Event{}, &FramingError{Record: line, Reason: "unexpected field"}
		}
	}

	if err := d.scanner.Err(); err != nil {
		if err == bufio.ErrTooLong {
			return Event{}, &FramingError{Reason: "record exceeds maximum size"}
		}
		return Event{}, err
	}
	if pending {
		return Event{}, &FramingError{Record: strings.Join(data, "\n"), Reason: "truncated record at end of stream"}
	}
	return Event{}, io.EOF
}
