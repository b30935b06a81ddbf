package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// OpenAIProvider implements Provider using the standard OpenAI API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	effort string // reasoning effort: "low", "medium", "high", "xhigh", or ""
}

// parseModelEffort extracts effort suffix from model name.
// "gpt-5.2-high" -> ("gpt-5.2", "high")
// "gpt-5.2-xhigh" -> ("gpt-5.2", "xhigh")
// "gpt-5.2" -> ("gpt-5.2", "")
func parseModelEffort(model string) (string, string) {
	// Check suffixes in order from longest to shortest to avoid "-high" matching "-xhigh"
	suffixes := []string{"xhigh", "medium", "high", "low"}
	for _, effort := range suffixes {
		suffix := "-" + effort
		if strings.HasSuffix(model, suffix) {
			return strings.TrimSuffix(model, suffix), effort
		}
	}
	return model, ""
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	actualModel, effort := parseModelEffort(model)
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{
		client: &client,
		model:  actualModel,
		effort: effort,
	}
}

func (p *OpenAIProvider) Name() string {
	if p.effort != "" {
		return fmt.Sprintf("OpenAI (%s, effort=%s)", p.model, p.effort)
	}
	return fmt.Sprintf("OpenAI (%s)", p.model)
}

func (p *OpenAIProvider) params(prompt string) responses.ResponseNewParams {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(p.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
	}
	if p.effort != "" {
		params.Reasoning = shared.ReasoningParam{
			Effort: shared.ReasoningEffort(p.effort),
		}
	}
	return params
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Responses.New(ctx, p.params(prompt))
	if err != nil {
		return "", generationError(p.Name(), fmt.Errorf("openai API error: %w", err))
	}
	text := openAIOutputText(resp)
	if text == "" {
		return "", generationError(p.Name(), ErrEmptyResponse)
	}
	return text, nil
}

func (p *OpenAIProvider) Stream(ctx context.Context, prompt string) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		stream := p.client.Responses.NewStreaming(ctx, p.params(prompt))
		defer stream.Close()
		for stream.Next() {
			delta, ok := stream.Current().AsAny().(responses.ResponseTextDeltaEvent)
			if !ok || delta.Delta == "" {
				continue
			}
			if err := emit(ctx, events, Event{Type: EventTextDelta, Text: delta.Delta}); err != nil {
				return err
			}
		}
		if err := stream.Err(); err != nil {
			return generationError(p.Name(), fmt.Errorf("openai streaming error: %w", err))
		}
		return emit(ctx, events, Event{Type: EventDone})
	}), nil
}

// openAIOutputText concatenates the output_text (and refusal) content of
// every message item in a response.
func openAIOutputText(resp *responses.Response) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, content := range item.Content {
			switch content.Type {
			case "output_text":
				sb.WriteString(content.Text)
			case "refusal":
				sb.WriteString(content.Refusal)
			}
		}
	}
	return sb.String()
}
