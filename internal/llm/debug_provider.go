package llm

import (
	"context"
	"time"

	"github.com/samsaffron/tale-llm/internal/prompt"
)

// debugPreset defines streaming rate configuration.
type debugPreset struct {
	ChunkSize int // runes per fragment
	Delay     time.Duration
}

// presets maps variant names to their streaming configurations.
var presets = map[string]debugPreset{
	"fast":     {ChunkSize: 50, Delay: 5 * time.Millisecond},
	"normal":   {ChunkSize: 20, Delay: 20 * time.Millisecond},
	"slow":     {ChunkSize: 10, Delay: 50 * time.Millisecond},
	"realtime": {ChunkSize: 5, Delay: 30 * time.Millisecond},
	"burst":    {ChunkSize: 200, Delay: 100 * time.Millisecond},
}

// DebugProvider echoes the source text of each prompt back without calling
// any model. It needs no credentials, so the whole pipeline can be run
// offline.
type DebugProvider struct {
	variant string
	preset  debugPreset
}

// NewDebugProvider creates a debug provider with the specified variant.
// Valid variants: fast, normal, slow, realtime, burst
// Empty string defaults to "normal".
func NewDebugProvider(variant string) *DebugProvider {
	if variant == "" {
		variant = "normal"
	}
	preset, ok := presets[variant]
	if !ok {
		preset = presets["normal"]
	}
	return &DebugProvider{
		variant: variant,
		preset:  preset,
	}
}

// Name returns the provider name with variant.
func (d *DebugProvider) Name() string {
	if d.variant == "" || d.variant == "normal" {
		return "debug"
	}
	return "debug:" + d.variant
}

func (d *DebugProvider) echo(p string) string {
	if text, ok := prompt.SourceText(p); ok {
		return text
	}
	return p
}

// Generate returns the echoed text at once.
func (d *DebugProvider) Generate(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text := d.echo(p)
	if text == "" {
		return "", generationError(d.Name(), ErrEmptyResponse)
	}
	return text, nil
}

// Stream emits the echoed text in preset-sized fragments.
func (d *DebugProvider) Stream(ctx context.Context, p string) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, ch chan<- Event) error {
		chunks := chunkText(d.echo(p), d.preset.ChunkSize)
		for i, chunk := range chunks {
			if err := emit(ctx, ch, Event{Type: EventTextDelta, Text: chunk}); err != nil {
				return err
			}
			if d.preset.Delay > 0 && i < len(chunks)-1 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(d.preset.Delay):
				}
			}
		}
		return emit(ctx, ch, Event{Type: EventDone})
	}), nil
}

// GetDebugPresets returns a copy of available presets for testing.
func GetDebugPresets() map[string]debugPreset {
	result := make(map[string]debugPreset)
	for k, v := range presets {
		result[k] = v
	}
	return result
}
