package llm

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"google.golang.org/genai"
)

// safetyCategories maps config keys to Gemini harm categories.
var safetyCategories = map[string]genai.HarmCategory{
	"harassment":        genai.HarmCategoryHarassment,
	"hate_speech":       genai.HarmCategoryHateSpeech,
	"sexually_explicit": genai.HarmCategorySexuallyExplicit,
	"dangerous_content": genai.HarmCategoryDangerousContent,
	"civic_integrity":   genai.HarmCategoryCivicIntegrity,
}

var safetyThresholds = []genai.HarmBlockThreshold{
	genai.HarmBlockThresholdBlockNone,
	genai.HarmBlockThresholdBlockOnlyHigh,
	genai.HarmBlockThresholdBlockMediumAndAbove,
	genai.HarmBlockThresholdBlockLowAndAbove,
	genai.HarmBlockThresholdOff,
}

// GeminiSafetySettings converts a category -> threshold map into Gemini
// safety settings. Categories may be short keys ("harassment") or full
// API names ("HARM_CATEGORY_HARASSMENT"); thresholds are API names and
// are case-insensitive. Output is ordered by category for stable requests.
func GeminiSafetySettings(cfg map[string]string) ([]*genai.SafetySetting, error) {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	settings := make([]*genai.SafetySetting, 0, len(keys))
	for _, key := range keys {
		category, ok := safetyCategories[strings.ToLower(key)]
		if !ok {
			upper := strings.ToUpper(key)
			if !strings.HasPrefix(upper, "HARM_CATEGORY_") {
				return nil, fmt.Errorf("unknown safety category %q", key)
			}
			category = genai.HarmCategory(upper)
		}
		threshold := genai.HarmBlockThreshold(strings.ToUpper(strings.TrimSpace(cfg[key])))
		if !slices.Contains(safetyThresholds, threshold) {
			return nil, fmt.Errorf("unknown safety threshold %q for %s", cfg[key], key)
		}
		settings = append(settings, &genai.SafetySetting{Category: category, Threshold: threshold})
	}
	return settings, nil
}

// GeminiProvider implements Provider using the Google Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
	safety []*genai.SafetySetting
}

// NewGeminiProvider creates a Gemini client. Safety settings are applied to
// every request.
func NewGeminiProvider(ctx context.Context, apiKey, model string, safety map[string]string) (*GeminiProvider, error) {
	settings, err := GeminiSafetySettings(safety)
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &GeminiProvider{
		client: client,
		model:  model,
		safety: settings,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return fmt.Sprintf("Gemini (%s)", p.model)
}

func (p *GeminiProvider) config() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{SafetySettings: p.safety}
}

// Generate performs a single generateContent call.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), p.config())
	if err != nil {
		return "", generationError(p.Name(), fmt.Errorf("gemini API error: %w", err))
	}
	text, err := geminiText(resp)
	if err != nil {
		return "", generationError(p.Name(), err)
	}
	if text == "" {
		return "", generationError(p.Name(), ErrEmptyResponse)
	}
	return text, nil
}

// Stream emits one text delta per streamed response chunk.
func (p *GeminiProvider) Stream(ctx context.Context, prompt string) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		for resp, err := range p.client.Models.GenerateContentStream(ctx, p.model, genai.Text(prompt), p.config()) {
			if err != nil {
				return generationError(p.Name(), fmt.Errorf("gemini streaming error: %w", err))
			}
			text, err := geminiText(resp)
			if text != "" {
				if err := emit(ctx, events, Event{Type: EventTextDelta, Text: text}); err != nil {
					return err
				}
			}
			if err != nil {
				return generationError(p.Name(), err)
			}
		}
		return emit(ctx, events, Event{Type: EventDone})
	}), nil
}

// geminiText returns the visible text of the first candidate. Thought parts
// are skipped. A blocked prompt or a safety stop is reported as an error
// alongside any text produced before it.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", nil
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", fb.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", nil
	}

	cand := resp.Candidates[0]
	var sb strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			sb.WriteString(part.Text)
		}
	}

	if cand.FinishReason == genai.FinishReasonSafety {
		var cats []string
		for _, sr := range cand.SafetyRatings {
			if sr.Blocked {
				cats = append(cats, string(sr.Category))
			}
		}
		if len(cats) == 0 {
			return sb.String(), fmt.Errorf("response blocked by safety filters")
		}
		return sb.String(), fmt.Errorf("response blocked by %s", strings.Join(cats, ", "))
	}
	return sb.String(), nil
}
