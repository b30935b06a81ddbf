package ui

import (
	"io"
	"strings"
	"sync"
)

// StreamPrinter echoes a growing text to w, writing only the part of each
// running total that has not been written yet.
type StreamPrinter struct {
	w io.Writer

	mu      sync.Mutex
	written string
}

func NewStreamPrinter(w io.Writer) *StreamPrinter {
	return &StreamPrinter{w: w}
}

// Update prints the new suffix of partial. If partial does not extend what
// was already printed, it is printed in full on a fresh line.
func (p *StreamPrinter) Update(partial string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.update(partial)
}

func (p *StreamPrinter) update(partial string) {
	if strings.HasPrefix(partial, p.written) {
		io.WriteString(p.w, partial[len(p.written):])
	} else {
		io.WriteString(p.w, "\n"+partial)
	}
	p.written = partial
}

// Finish prints whatever of final is still missing and ends the line.
func (p *StreamPrinter) Finish(final string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if final != p.written {
		p.update(final)
	}
	if !strings.HasSuffix(p.written, "\n") {
		io.WriteString(p.w, "\n")
	}
}

// Started reports whether anything has been printed.
func (p *StreamPrinter) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written != ""
}
