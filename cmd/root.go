package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/samsaffron/tale-llm/internal/config"
	"github.com/samsaffron/tale-llm/internal/exitcode"
	"github.com/samsaffron/tale-llm/internal/ui"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/tale-llm/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().StringVar(&cpuProfile, "cpuprofile", "", "Write CPU profile to file")
	rootCmd.PersistentFlags().StringVar(&memProfile, "memprofile", "", "Write memory profile to file")
}

var rootCmd = &cobra.Command{
	Use:   "tale-llm",
	Short: "Rewrite stories with new characters using an LLM",
	Long: `tale-llm rewrites a story, replacing the characters you name, and streams
the result as it is generated.

Examples:
  tale-llm serve                                   # start the transform server
  tale-llm transform -f kolobok.txt -r лиса=волк   # rewrite via the server
  echo "Раз лиса и заяц жили." | tale-llm transform -r лиса=волк
  tale-llm prompt -f kolobok.txt -r лиса=волк      # show the prompt only

  tale-llm config init                             # write a starter config`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return startProfiling()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return stopProfiling()
	},
}

var configPath string
var debugLogging bool
var cpuProfile string
var memProfile string
var cpuProfileFile *os.File

func startProfiling() error {
	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			return err
		}
		cpuProfileFile = f
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return err
		}
	}
	return nil
}

func stopProfiling() error {
	if cpuProfileFile != nil {
		pprof.StopCPUProfile()
		cpuProfileFile.Close()
		cpuProfileFile = nil
	}
	if memProfile != "" {
		f, err := os.Create(memProfile)
		if err != nil {
			return err
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return err
		}
	}
	return nil
}

func setupLogging() {
	level := slog.LevelInfo
	if debugLogging {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig reads the config named by --config, or the default file.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		code := exitcode.FromError(err)
		if code != exitcode.Cancelled {
			fmt.Fprintln(os.Stderr, ui.DefaultStyles().FormatResult(false, err.Error()))
		}
		os.Exit(code)
	}
}
