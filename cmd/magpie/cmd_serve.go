package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/martinemde/magpie/config"
	"github.com/martinemde/magpie/llm"
	"github.com/martinemde/magpie/service"
	"github.com/martinemde/magpie/toolserver"
	"github.com/martinemde/magpie/webhook"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cookie retrieval service",
		Long: `Run the HTTP service.

POST /get-cookies accepts a login request and returns 202 immediately; the
result is delivered to the request's callback URL. GET /health reports
liveness and GET /metrics exposes Prometheus metrics.

Configuration comes from the environment (or a .env file); see config.Config
for the recognized variables. ANTHROPIC_API_KEY is required.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg.DevMode)

			model := llm.NewClient(llm.NewAnthropicProvider(cfg.AnthropicAPIKey), llm.WithLogger(logger))
			connector := service.PlaywrightConnector{
				Server: toolserver.PlaywrightServer{
					Browser:    cfg.Browser,
					UserAgent:  cfg.UserAgent,
					ProfileDir: cfg.ProfileDir,
				},
				Logger: logger,
			}
			deliverer := webhook.NewSender(
				webhook.WithTimeout(cfg.WebhookTimeout),
				webhook.WithRetries(cfg.WebhookRetries),
				webhook.WithLogger(logger),
			)
			runner := service.NewRunner(cfg, model, connector, deliverer, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return service.NewServer(cfg, runner, logger).Run(ctx)
		},
	}
}
