// Package story holds the request model for a character-replacement rewrite:
// the replacement pairs a user edits, the request sent for generation, and
// its validation rules.
package story

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ReplacementPair maps one character name in the source text to its
// replacement. Pairs are identified by ID only; Original may repeat.
type ReplacementPair struct {
	ID          string `json:"id"`
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
}

// Complete reports whether both sides of the pair are filled in.
func (p ReplacementPair) Complete() bool {
	return strings.TrimSpace(p.Original) != "" && strings.TrimSpace(p.Replacement) != ""
}

// Request is what a client submits for rewriting.
type Request struct {
	Text              string            `json:"text"`
	Replacements      []ReplacementPair `json:"replacements"`
	AdditionalContext string            `json:"additionalContext,omitempty"`
}

// CompletePairs returns the pairs with both sides filled, in order.
func (r Request) CompletePairs() []ReplacementPair {
	pairs := make([]ReplacementPair, 0, len(r.Replacements))
	for _, p := range r.Replacements {
		if p.Complete() {
			pairs = append(pairs, p)
		}
	}
	return pairs
}

// HasContext reports whether the additional context is non-blank.
func (r Request) HasContext() bool {
	return strings.TrimSpace(r.AdditionalContext) != ""
}

// ValidationError reports a request that must be corrected before any
// generation is attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks that the request is submittable: the text is non-empty and
// there is at least one complete pair or non-blank additional context.
func (r Request) Validate() error {
	if r.Text == "" {
		return &ValidationError{Field: "text", Message: "text is required"}
	}
	if len(r.CompletePairs()) == 0 && !r.HasContext() {
		return &ValidationError{
			Field:   "replacements",
			Message: "at least one character replacement or additional context is required",
		}
	}
	return nil
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrUnknownPair is returned when a Table operation names an id it does not hold.
var ErrUnknownPair = errors.New("unknown replacement pair")

// Table is the editable, ordered set of replacement pairs.
type Table struct {
	mu    sync.Mutex
	pairs []ReplacementPair
}

// NewTable returns a table seeded with the given pairs. Pairs without an id
// are assigned one.
func NewTable(pairs ...ReplacementPair) *Table {
	t := &Table{}
	for _, p := range pairs {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		t.pairs = append(t.pairs, p)
	}
	return t
}

// Add appends an empty pair and returns its id.
func (t *Table) Add() string {
	id := uuid.NewString()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pairs = append(t.pairs, ReplacementPair{ID: id})
	return id
}

// Update sets both sides of the pair with the given id in place.
func (t *Table) Update(id, original, replacement string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.pairs {
		if t.pairs[i].ID == id {
			t.pairs[i].Original = original
			t.pairs[i].Replacement = replacement
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownPair, id)
}

// Remove deletes the pair with the given id, keeping the order of the rest.
func (t *Table) Remove(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.pairs {
		if t.pairs[i].ID == id {
			t.pairs = append(t.pairs[:i], t.pairs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownPair, id)
}

// Reset discards every pair.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pairs = nil
}

// Pairs returns a copy of the pairs in insertion order.
func (t *Table) Pairs() []ReplacementPair {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ReplacementPair, len(t.pairs))
	copy(out, t.pairs)
	return out
}

// Len returns the number of pairs.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pairs)
}

// Ready reports whether the table has at least one pair and every pair is
// complete. An incomplete row blocks submission.
func (t *Table) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pairs) == 0 {
		return false
	}
	for _, p := range t.pairs {
		if !p.Complete() {
			return false
		}
	}
	return true
}
