package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "magpie",
		Short: "Agent-driven login service that recovers session cookies",
		Long: `Magpie logs in to web services by letting a language model drive a real
browser, then recovers the resulting session cookies from the network
traces the browser records.

The serve command runs the HTTP service. Login requests are accepted
immediately and the outcome, cookies or an error, is delivered to the
caller's webhook when the attempt finishes.`,
		Version:      version,
		SilenceUsage: true,
	}

	debug := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if *debug {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newExtractCommand())
	cmd.AddCommand(newSinkCommand())

	return cmd
}

// newLogger builds the process logger. Dev mode switches to human-readable
// console output.
func newLogger(devMode bool) zerolog.Logger {
	if devMode {
		out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func execute() error {
	// Missing .env is fine; settings may come from the real environment.
	_ = godotenv.Load()
	return newRootCommand().Execute()
}
