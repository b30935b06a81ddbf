package prompt

import (
	"strings"
	"testing"

	"github.com/samsaffron/tale-llm/internal/story"
	"github.com/samsaffron/tale-llm/internal/testutil"
)

func TestBuild(t *testing.T) {
	t.Run("single replacement", func(t *testing.T) {
		text := "Раз лиса и заяц жили."
		result := Build(text, []story.ReplacementPair{{ID: "1", Original: "лиса", Replacement: "волк"}}, "")

		testutil.AssertContains(t, result, `"лиса" → "волк"`)
		testutil.AssertContains(t, result, text)
		testutil.AssertNotContains(t, result, DelegationPhrase)
		testutil.AssertNotContains(t, result, "Дополнительный контекст")
		testutil.AssertContains(t, result, "Верни ТОЛЬКО переписанный текст")
	})

	t.Run("multiple replacements keep order", func(t *testing.T) {
		pairs := []story.ReplacementPair{
			{ID: "1", Original: "лиса", Replacement: "волк"},
			{ID: "2", Original: "заяц", Replacement: "ёж"},
			{ID: "3", Original: "лиса", Replacement: "кот"},
		}
		result := Build("text", pairs, "")
		want := `"лиса" → "волк", "заяц" → "ёж", "лиса" → "кот"`
		testutil.AssertContains(t, result, want)
	})

	t.Run("no replacements delegates to context", func(t *testing.T) {
		result := Build("Жили-были дед да баба.", nil, "make everyone a pirate")
		testutil.AssertContains(t, result, DelegationPhrase)
		testutil.AssertContains(t, result, "Дополнительный контекст для замены:\n"+Delimiter+"\nmake everyone a pirate\n"+Delimiter)
	})

	t.Run("names are not escaped", func(t *testing.T) {
		pair := story.ReplacementPair{Original: "Д'Артаньян \"Гасконец\"", Replacement: `C:\волк`}
		result := Build("text", []story.ReplacementPair{pair}, "")
		testutil.AssertContains(t, result, pair.Original)
		testutil.AssertContains(t, result, pair.Replacement)
		testutil.AssertContains(t, result, `"Д'Артаньян "Гасконец"" → "C:\волк"`)
	})

	t.Run("blank context is omitted", func(t *testing.T) {
		result := Build("text", []story.ReplacementPair{{Original: "a", Replacement: "b"}}, "  \t\n")
		testutil.AssertNotContains(t, result, "Дополнительный контекст")
	})

	t.Run("source text is verbatim inside delimiters", func(t *testing.T) {
		text := "Line one.\n\n  Indented \"quoted\" line.\n"
		result := Build(text, []story.ReplacementPair{{Original: "a", Replacement: "b"}}, "")
		testutil.AssertContains(t, result, Delimiter+"\n"+text+"\n"+Delimiter)
	})
}

func TestForRequestDropsIncompletePairs(t *testing.T) {
	req := story.Request{
		Text: "Раз лиса и заяц жили.",
		Replacements: []story.ReplacementPair{
			{ID: "1", Original: "лиса", Replacement: "волк"},
			{ID: "2", Original: "заяц"},
		},
	}
	result := ForRequest(req)
	testutil.AssertContains(t, result, `"лиса" → "волк"`)
	if strings.Contains(result, `"заяц" →`) {
		t.Fatalf("incomplete pair rendered:\n%s", result)
	}
}

func TestSourceText(t *testing.T) {
	text := "Раз лиса и заяц жили.\nИ была у них избушка."
	got, ok := SourceText(Build(text, nil, "ctx"))
	if !ok {
		t.Fatal("SourceText returned !ok")
	}
	if got != text {
		t.Fatalf("SourceText=%q, want %q", got, text)
	}

	if _, ok := SourceText("no delimiters here"); ok {
		t.Fatal("expected !ok for prompt without delimiters")
	}
}
