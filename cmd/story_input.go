package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samsaffron/tale-llm/internal/extract"
	"github.com/samsaffron/tale-llm/internal/story"
	"github.com/samsaffron/tale-llm/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Story input flags shared by transform and prompt.
var (
	storyFiles        []string
	storyReplacements []string
	storyContext      string
)

func addStoryFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&storyFiles, "file", "f", nil, "Read the story from a .txt or .md file (repeatable)")
	cmd.Flags().StringArrayVarP(&storyReplacements, "replace", "r", nil, "Character replacement as original=replacement (repeatable)")
	cmd.Flags().StringVarP(&storyContext, "context", "c", "", "Additional context for choosing or adapting characters")
}

// parseReplacements turns original=replacement flags into ordered pairs.
func parseReplacements(values []string) ([]story.ReplacementPair, error) {
	table := story.NewTable()
	for _, v := range values {
		original, replacement, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("invalid replacement %q: expected original=replacement", v)
		}
		original, replacement = strings.TrimSpace(original), strings.TrimSpace(replacement)
		if original == "" || replacement == "" {
			return nil, fmt.Errorf("invalid replacement %q: both names are required", v)
		}
		if err := table.Update(table.Add(), original, replacement); err != nil {
			return nil, err
		}
	}
	return table.Pairs(), nil
}

// readStoryText reads --file documents, warning about and skipping the
// ones that cannot be read, or stdin when no files are given.
func readStoryText(cmd *cobra.Command) (string, error) {
	if len(storyFiles) > 0 {
		texts, errs := extract.Files(extract.PlainText{}, storyFiles)
		styles := ui.NewStyles(cmd.ErrOrStderr())
		for _, err := range errs {
			fmt.Fprintln(cmd.ErrOrStderr(), styles.FormatWarning("skipping "+err.Error()))
		}
		if len(texts) == 0 {
			return "", errors.New("no readable story text in the given files")
		}
		return extract.Join(texts), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errors.New("no story text: pass --file or pipe text on stdin")
	}
	return readStdin(in)
}

func readStdin(in io.Reader) (string, error) {
	text, err := extract.PlainText{}.Extract("", in)
	if err != nil {
		return "", fmt.Errorf("stdin: %w", err)
	}
	return text, nil
}

// buildStoryRequest assembles the request from the story flags.
func buildStoryRequest(cmd *cobra.Command) (story.Request, error) {
	pairs, err := parseReplacements(storyReplacements)
	if err != nil {
		return story.Request{}, err
	}
	text, err := readStoryText(cmd)
	if err != nil {
		return story.Request{}, err
	}
	return story.Request{
		Text:              text,
		Replacements:      pairs,
		AdditionalContext: storyContext,
	}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
