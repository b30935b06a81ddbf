package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// MockTurn represents a single scripted response from the mock provider.
type MockTurn struct {
	Text   string        // Text to emit (chunked for realistic streaming when Chunks is empty)
	Chunks []string      // Exact fragments to emit, in order
	Delay  time.Duration // Optional delay before responding (for timeout tests)
	Error  error         // Returned after any Chunks have been emitted
}

func (t MockTurn) fragments() []string {
	if len(t.Chunks) > 0 {
		return t.Chunks
	}
	return chunkText(t.Text, 10)
}

// MockProvider is a configurable provider for testing.
// It returns scripted responses and records every prompt for verification.
type MockProvider struct {
	name      string
	turns     []MockTurn
	turnIndex int
	Prompts   []string // Recorded prompts for verification
	mu        sync.Mutex
}

// NewMockProvider creates a new mock provider with the given name.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

// Name returns the provider name.
func (m *MockProvider) Name() string {
	return m.name
}

// AddTurn adds a response turn and returns the provider for chaining.
func (m *MockProvider) AddTurn(t MockTurn) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, t)
	return m
}

// AddTextResponse is a convenience method to add a simple text response.
func (m *MockProvider) AddTextResponse(text string) *MockProvider {
	return m.AddTurn(MockTurn{Text: text})
}

// AddChunks adds a turn emitting exactly the given fragments.
func (m *MockProvider) AddChunks(chunks ...string) *MockProvider {
	return m.AddTurn(MockTurn{Chunks: chunks})
}

// AddError adds a turn that fails before producing anything.
func (m *MockProvider) AddError(err error) *MockProvider {
	return m.AddTurn(MockTurn{Error: err})
}

// Reset clears recorded prompts and resets the turn index.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turnIndex = 0
	m.Prompts = nil
}

// Calls returns how many times Generate or Stream was invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

func (m *MockProvider) nextTurn(prompt string) (MockTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)

	if m.turnIndex >= len(m.turns) {
		return MockTurn{}, fmt.Errorf("mock provider: no more turns configured (expected turn %d, have %d)", m.turnIndex, len(m.turns))
	}
	turn := m.turns[m.turnIndex]
	m.turnIndex++
	return turn, nil
}

// Generate implements the Provider interface.
func (m *MockProvider) Generate(ctx context.Context, prompt string) (string, error) {
	turn, err := m.nextTurn(prompt)
	if err != nil {
		return "", err
	}
	if turn.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(turn.Delay):
		}
	}
	if turn.Error != nil {
		return "", generationError(m.name, turn.Error)
	}
	return strings.Join(turn.fragments(), ""), nil
}

// Stream implements the Provider interface.
func (m *MockProvider) Stream(ctx context.Context, prompt string) (Stream, error) {
	turn, err := m.nextTurn(prompt)
	if err != nil {
		return nil, err
	}

	return newEventStream(ctx, func(ctx context.Context, ch chan<- Event) error {
		if turn.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(turn.Delay):
			}
		}

		for _, chunk := range turn.fragments() {
			if err := emit(ctx, ch, Event{Type: EventTextDelta, Text: chunk}); err != nil {
				return err
			}
		}

		if turn.Error != nil {
			return generationError(m.name, turn.Error)
		}
		return emit(ctx, ch, Event{Type: EventDone})
	}), nil
}

// chunkText splits text into chunks of approximately chunkSize runes.
// It tries to break at word boundaries when possible and never splits a rune.
func chunkText(text string, chunkSize int) []string {
	if len(text) == 0 {
		return nil
	}
	if chunkSize <= 0 || utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		runes := []rune(text)
		if len(runes) <= chunkSize {
			chunks = append(chunks, text)
			break
		}

		// Find a good break point (space) near the chunk size
		breakPoint := chunkSize
		for i := chunkSize; i > chunkSize/2; i-- {
			if runes[i] == ' ' {
				breakPoint = i + 1 // include the space in current chunk
				break
			}
		}

		chunk := string(runes[:breakPoint])
		chunks = append(chunks, chunk)
		text = text[len(chunk):]
	}
	return chunks
}
