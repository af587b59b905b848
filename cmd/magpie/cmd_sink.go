package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/martinemde/magpie/webhook"
)

func newSinkCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "sink",
		Short: "Run a webhook sink that logs delivered results",
		Long: `Run a local webhook receiver for testing. It accepts result payloads on
POST /webhook, logs them with cookie values redacted, and answers
{"status":"received"}. Point a request's callback_url at it to watch
deliveries during development.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return webhook.NewSink(newLogger(true)).Run(ctx, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", webhook.DefaultSinkPort, "Port to listen on")

	return cmd
}
