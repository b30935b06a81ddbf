package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samsaffron/tale-llm/internal/config"
	"github.com/samsaffron/tale-llm/internal/llm"
	"github.com/samsaffron/tale-llm/internal/serve"
	"github.com/spf13/cobra"
)

var (
	serveAddr     string
	serveToken    string
	serveProvider string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the story transform server",
	Long: `Serve story transforms over HTTP.

Endpoints:
  POST /api/transform-story         single-shot JSON response
  POST /api/transform-story-stream  incremental text/event-stream response
  GET  /healthz                     liveness and provider name

Examples:
  tale-llm serve
  tale-llm serve --addr 127.0.0.1:9090 --provider openai:gpt-4o
  tale-llm serve --provider debug:fast     # no API key needed`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default serve.addr)")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "Require this bearer token on /api/* (default serve.token)")
	serveCmd.Flags().StringVarP(&serveProvider, "provider", "p", "", "Override provider, optionally with model (e.g. gemini:gemini-2.5-pro)")
	rootCmd.AddCommand(serveCmd)
}

// loadProvider loads config, applies a --provider override, checks the
// credential and builds the provider.
func loadProvider(cmd *cobra.Command, override string) (*config.Config, llm.Provider, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if override != "" {
		name, model, err := llm.ParseProviderModel(override)
		if err != nil {
			return nil, nil, err
		}
		cfg.ApplyOverrides(name, model)
	}
	if err := cfg.RequireCredential(); err != nil {
		return nil, nil, err
	}
	provider, err := llm.NewProvider(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, provider, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, provider, err := loadProvider(cmd, serveProvider)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Serve.Addr = serveAddr
	}
	if serveToken != "" {
		cfg.Serve.Token = serveToken
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve.New(provider, cfg.Serve, slog.Default()).Run(ctx)
}
