// Package cli provides the command-line interface for profilechat.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/profilechat/internal/config"
	"github.com/raphaelgruber/profilechat/internal/conversation"
	"github.com/raphaelgruber/profilechat/internal/llm"
	"github.com/raphaelgruber/profilechat/internal/metrics"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configPath string

	// Global config and logger
	cfg      config.Config
	logger   *slog.Logger
	closeLog = func() error { return nil }
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "profilechat",
	Short: "Chat with an LLM that gets to know you",
	Long: `profilechat is a terminal chat front-end for hosted language models.

The assistant runs with a profiling system prompt (prompt.txt, or a built-in
default) and tries to learn who you are over the course of the conversation.
Conversations can be saved to timestamped text files.

Without a subcommand, starts an interactive chat.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		// The TUI owns the terminal, so logs go to the file only.
		stderr := verbose && !interactive()
		logger, closeLog = config.SetupLogger(cfg.LogFile, level, stderr)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
		}
	},
	RunE: runChat,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "profilechat %s\n", Version)
	},
}

// interactive reports whether both stdin and stdout are terminals.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// openSession builds a local conversation session from the loaded config.
func openSession(ctx context.Context) (*conversation.Session, *metrics.Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	model, err := llm.NewModel(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init model: %w", err)
	}

	systemPrompt, err := config.LoadSystemPrompt(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("load system prompt: %w", err)
	}

	collector := metrics.NewCollector()
	engine := conversation.NewEngine(model, conversation.Options{
		ModelID:  cfg.LLMModel,
		Provider: cfg.ProviderName(),
		Verbose:  cfg.VerboseErrors,
		Logger:   logger,
		Recorder: collector,
	})
	exporter := conversation.NewExporter(cfg.ExportDir, cfg.ProviderName())

	session := conversation.NewSession(engine, exporter, systemPrompt)
	collector.SessionStarted()
	logger.Info("session started",
		"session", session.ID,
		"provider", cfg.LLMProvider,
		"model", cfg.LLMModel,
		"verbose_errors", cfg.VerboseErrors,
	)
	return session, collector, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging (to stderr outside the TUI)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	// Add subcommands
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(versionCmd)
}
