package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"github.com/samsaffron/tale-llm/internal/client"
	"github.com/samsaffron/tale-llm/internal/exitcode"
	"github.com/samsaffron/tale-llm/internal/ui"
	"github.com/spf13/cobra"
)

var (
	transformServer   string
	transformToken    string
	transformNoStream bool
	transformOutput   string
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Rewrite a story through a tale-llm server",
	Long: `Send a story to a tale-llm server and print the rewritten text.

The rewrite is streamed and printed as it arrives when the output is a
terminal. If the server cannot stream, the complete text is fetched in one
request instead.

Examples:
  tale-llm transform -f kolobok.txt -r лиса=волк -r заяц=медведь
  cat story.md | tale-llm transform --context "make everyone a pirate"
  tale-llm transform -f story.txt -r fox=wolf --server http://story.local:8080
  tale-llm transform -f kolobok.txt -r лиса=волк -o transformed-story.txt`,
	Args: cobra.NoArgs,
	RunE: runTransform,
}

func init() {
	addStoryFlags(transformCmd)
	transformCmd.Flags().StringVar(&transformServer, "server", "", "Server URL (default client.server_url)")
	transformCmd.Flags().StringVar(&transformToken, "token", "", "Bearer token (default client.token)")
	transformCmd.Flags().BoolVar(&transformNoStream, "no-stream", false, "Use the single-shot endpoint only")
	transformCmd.Flags().StringVarP(&transformOutput, "output", "o", "", "Also save the rewritten story to this file")
	rootCmd.AddCommand(transformCmd)
}

func runTransform(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	req, err := buildStoryRequest(cmd)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	serverURL := cfg.Client.ServerURL
	if transformServer != "" {
		serverURL = transformServer
	}
	token := cfg.Client.Token
	if transformToken != "" {
		token = transformToken
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(serverURL,
		client.WithToken(token),
		client.WithTimeout(cfg.Client.Timeout),
		client.WithLogger(slog.Default()),
	)

	out := cmd.OutOrStdout()
	printer := ui.NewStreamPrinter(out)

	var res client.Result
	if transformNoStream {
		var text string
		text, err = c.RunOnce(ctx, req)
		res = client.Result{Text: text}
	} else {
		var progress client.ProgressFunc
		if isTerminal(out) {
			progress = printer.Update
		}
		res, err = c.Transform(ctx, req, progress)
	}
	if err != nil {
		if printer.Started() {
			fmt.Fprintln(out)
		}
		if ctx.Err() == context.Canceled {
			return exitcode.Cancel()
		}
		return err
	}

	printer.Finish(res.Text)
	if transformOutput != "" {
		if err := os.WriteFile(transformOutput, []byte(res.Text), 0o644); err != nil {
			return fmt.Errorf("save output: %w", err)
		}
		styles := ui.NewStyles(cmd.ErrOrStderr())
		fmt.Fprintln(cmd.ErrOrStderr(), styles.FormatResult(true, "saved to "+transformOutput))
	}
	if isTerminal(cmd.ErrOrStderr()) {
		mode := "streamed"
		if !res.Streamed {
			mode = "single-shot"
		}
		styles := ui.NewStyles(cmd.ErrOrStderr())
		fmt.Fprintln(cmd.ErrOrStderr(), styles.Muted.Render(fmt.Sprintf("%d characters, %s", utf8.RuneCountInString(res.Text), mode)))
	}
	return nil
}
