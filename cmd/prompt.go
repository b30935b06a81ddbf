package cmd

import (
	"fmt"

	"github.com/samsaffron/tale-llm/internal/prompt"
	"github.com/samsaffron/tale-llm/internal/ui"
	"github.com/spf13/cobra"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompt a transform would send",
	Long: `Build the generation prompt for a story without calling any model.

Examples:
  tale-llm prompt -f kolobok.txt -r лиса=волк
  echo "Раз лиса и заяц жили." | tale-llm prompt --context "сделай всех котами"`,
	Args: cobra.NoArgs,
	RunE: runPrompt,
}

func init() {
	addStoryFlags(promptCmd)
	rootCmd.AddCommand(promptCmd)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	req, err := buildStoryRequest(cmd)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		styles := ui.NewStyles(cmd.ErrOrStderr())
		fmt.Fprintln(cmd.ErrOrStderr(), styles.FormatWarning("a server would reject this request: "+err.Error()))
	}
	fmt.Fprint(cmd.OutOrStdout(), prompt.ForRequest(req))
	return nil
}
