package llm

import (
	"strings"
	"testing"

	"google.golang.org/genai"
)

func TestGeminiSafetySettings(t *testing.T) {
	settings, err := GeminiSafetySettings(map[string]string{
		"harassment":                "block_none",
		"HARM_CATEGORY_HATE_SPEECH": "BLOCK_ONLY_HIGH",
		"sexually_explicit":         "OFF",
		"dangerous_content":         " BLOCK_LOW_AND_ABOVE ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(settings) != 4 {
		t.Fatalf("len=%d, want 4", len(settings))
	}

	got := map[genai.HarmCategory]genai.HarmBlockThreshold{}
	for _, s := range settings {
		got[s.Category] = s.Threshold
	}
	want := map[genai.HarmCategory]genai.HarmBlockThreshold{
		genai.HarmCategoryHarassment:       genai.HarmBlockThresholdBlockNone,
		genai.HarmCategoryHateSpeech:       genai.HarmBlockThresholdBlockOnlyHigh,
		genai.HarmCategorySexuallyExplicit: genai.HarmBlockThresholdOff,
		genai.HarmCategoryDangerousContent: genai.HarmBlockThresholdBlockLowAndAbove,
	}
	for cat, threshold := range want {
		if got[cat] != threshold {
			t.Errorf("%s=%q, want %q", cat, got[cat], threshold)
		}
	}
}

func TestGeminiSafetySettingsRejectsUnknown(t *testing.T) {
	if _, err := GeminiSafetySettings(map[string]string{"violence": "BLOCK_NONE"}); err == nil {
		t.Fatal("expected error for unknown category")
	}
	if _, err := GeminiSafetySettings(map[string]string{"harassment": "sometimes"}); err == nil {
		t.Fatal("expected error for unknown threshold")
	}
}

func TestGeminiText(t *testing.T) {
	t.Run("skips thoughts", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "Раз волк "},
				{Text: "и заяц жили."},
			}},
		}}}
		got, err := geminiText(resp)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "Раз волк и заяц жили." {
			t.Fatalf("text=%q", got)
		}
	})

	t.Run("blocked prompt", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
			BlockReason: genai.BlockedReasonSafety,
		}}
		if _, err := geminiText(resp); err == nil || !strings.Contains(err.Error(), "prompt blocked") {
			t.Fatalf("err=%v, want prompt blocked", err)
		}
	})

	t.Run("safety stop keeps partial text", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content:       &genai.Content{Parts: []*genai.Part{{Text: "partial"}}},
			FinishReason:  genai.FinishReasonSafety,
			SafetyRatings: []*genai.SafetyRating{{Category: genai.HarmCategoryHarassment, Blocked: true}},
		}}}
		got, err := geminiText(resp)
		if got != "partial" {
			t.Fatalf("text=%q, want partial", got)
		}
		if err == nil || !strings.Contains(err.Error(), string(genai.HarmCategoryHarassment)) {
			t.Fatalf("err=%v, want blocked by harassment", err)
		}
	})

	t.Run("no candidates", func(t *testing.T) {
		got, err := geminiText(&genai.GenerateContentResponse{})
		if err != nil || got != "" {
			t.Fatalf("got %q, %v", got, err)
		}
	})
}
