package prompt

import (
	"fmt"
	"strings"

	"github.com/samsaffron/tale-llm/internal/story"
)

// Delimiter fences literal text so the model does not read it as instructions.
// Text containing the delimiter itself is passed through unchanged.
const Delimiter = `"""`

// DelegationPhrase stands in for the replacement list when none is given and
// the model should pick characters from the additional context.
const DelegationPhrase = "персонажей по своему усмотрению в соответствии с дополнительным контекстом"

const rules = `
Важные правила:
1. Сохрани общую структуру и сюжет оригинальной сказки.
2. Замени ТОЛЬКО указанных персонажей, но адаптируй окружающий текст для логичности и связности.
3. Адаптируй грамматику и падежи для новых персонажей, где это необходимо.
4. Если нужно сделать гендерные изменения (он/она), сделай их соответственно.
5. Сохрани стиль оригинального текста.
6. Если переписываешь стихотворные строки - убедись, что везде есть рифма.

Твоя главная задача - тщательно продумать изменившийся контекст сказки и сохранить структуру и последовательность оригинала,
допустимы небольшие отклонения от сюжета для придания персонажам объёма.

Верни ТОЛЬКО переписанный текст без дополнительных комментариев.
`

// FormatPair renders a single replacement as `"original" → "replacement"`.
// Names are quoted but not escaped.
func FormatPair(p story.ReplacementPair) string {
	return fmt.Sprintf("\"%s\" → \"%s\"", p.Original, p.Replacement)
}

// Replacements renders the comma-joined replacement list, or the delegation
// phrase when pairs is empty.
func Replacements(pairs []story.ReplacementPair) string {
	if len(pairs) == 0 {
		return DelegationPhrase
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, FormatPair(p))
	}
	return strings.Join(parts, ", ")
}

// Build returns the instruction string for rewriting text with the given
// replacements and optional additional context.
func Build(text string, pairs []story.ReplacementPair, additionalContext string) string {
	var b strings.Builder
	b.WriteString("\nТекст сказки:\n")
	b.WriteString(Delimiter + "\n")
	b.WriteString(text)
	b.WriteString("\n" + Delimiter + "\n")
	fmt.Fprintf(&b, "Пожалуйста, перепиши эту сказку, заменяя следующих персонажей: %s.\n", Replacements(pairs))

	if strings.TrimSpace(additionalContext) != "" {
		b.WriteString("\nДополнительный контекст для замены:\n")
		b.WriteString(Delimiter + "\n")
		b.WriteString(additionalContext)
		b.WriteString("\n" + Delimiter + "\n")
	}

	b.WriteString(rules)
	return b.String()
}

// ForRequest builds the prompt for a request, using only its complete pairs.
func ForRequest(req story.Request) string {
	return Build(req.Text, req.CompletePairs(), req.AdditionalContext)
}

// SourceText extracts the first delimited block of a prompt built by Build.
// It returns false when the prompt has no such block.
func SourceText(p string) (string, bool) {
	open := Delimiter + "\n"
	start := strings.Index(p, open)
	if start < 0 {
		return "", false
	}
	rest := p[start+len(open):]
	end := strings.Index(rest, "\n"+Delimiter)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
