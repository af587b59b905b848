package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/martinemde/magpie/agentloop"
	"github.com/martinemde/magpie/config"
	"github.com/martinemde/magpie/netlog"
	"github.com/martinemde/magpie/task"
	"github.com/martinemde/magpie/toolserver"
	"github.com/martinemde/magpie/webhook"
)

// Connector opens the browser tool session for one task.
type Connector interface {
	Connect(ctx context.Context) (toolserver.Session, error)
}

// Deliverer posts the outcome payload to the caller's webhook.
type Deliverer interface {
	Send(ctx context.Context, callbackURL string, payload webhook.Payload) error
}

// PlaywrightConnector launches a Playwright MCP server per task. It
// prepares the persistent profile before every launch so the stealth init
// script is in place and the browser reuses cookies from earlier runs.
type PlaywrightConnector struct {
	Server toolserver.PlaywrightServer
	Logger zerolog.Logger
}

func (p PlaywrightConnector) Connect(ctx context.Context) (toolserver.Session, error) {
	scriptPath, err := toolserver.SetupProfile(p.Server.ProfileDir)
	if err != nil {
		return nil, fmt.Errorf("prepare browser profile: %w", err)
	}
	server := p.Server
	server.InitScript = scriptPath
	session, err := server.Connect(ctx, toolserver.WithLogger(p.Logger))
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Runner executes accepted cookie requests on a bounded worker pool and
// always reports the outcome to the request's callback URL, whether the
// task succeeded, the model declared failure, or infrastructure broke.
type Runner struct {
	config    config.Config
	model     agentloop.ModelClient
	connector Connector
	deliverer Deliverer
	pool      *pool.Pool
	wg        sync.WaitGroup
	logger    zerolog.Logger
}

// NewRunner creates a Runner sized from the configuration.
func NewRunner(cfg config.Config, model agentloop.ModelClient, connector Connector, deliverer Deliverer, logger zerolog.Logger) *Runner {
	workers := cfg.MaxConcurrentTasks
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		config:    cfg,
		model:     model,
		connector: connector,
		deliverer: deliverer,
		pool:      pool.New().WithMaxGoroutines(workers),
		logger:    logger,
	}
}

// Submit queues one request and returns immediately. The result is
// delivered to the request's callback URL when the task finishes.
func (r *Runner) Submit(req CookieRequest, requestID string) {
	tasksAccepted.Inc()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.pool.Go(func() {
			// Tasks outlive the HTTP request that submitted them.
			r.process(context.Background(), req, requestID)
		})
	}()
}

// Wait blocks until every submitted task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
	r.pool.Wait()
}

func (r *Runner) process(ctx context.Context, req CookieRequest, requestID string) {
	start := time.Now()
	logger := r.logger.With().Str("request_id", requestID).Logger()
	logger.Info().Str("login_url", req.LoginURL).Msg("processing cookie request")

	payload, outcome := r.run(ctx, req, requestID, logger)
	payload.RequestID = requestID

	if err := r.deliverer.Send(ctx, req.CallbackURL, payload); err != nil {
		webhookFailures.Inc()
		logger.Error().Err(err).Msg("result delivery failed")
	}

	tasksCompleted.WithLabelValues(outcome).Inc()
	taskDuration.Observe(time.Since(start).Seconds())
	logger.Info().
		Str("outcome", outcome).
		Dur("elapsed", time.Since(start)).
		Msg("cookie request finished")
}

// run drives one task end to end and reports the payload to deliver plus
// the outcome label for metrics.
func (r *Runner) run(ctx context.Context, req CookieRequest, requestID string, logger zerolog.Logger) (webhook.Payload, string) {
	// Stale traces for this login URL would defeat newest-first trace
	// correlation during extraction.
	netlog.RemoveLoginTraces(r.config.ProfileDir, req.LoginURL, logger)

	session, err := r.connector.Connect(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("tool server connect failed")
		return webhook.Payload{Error: fmt.Sprintf("browser session failed: %v", err)}, "error"
	}
	defer session.Close()

	text := task.Build(task.Login{
		URL:           req.LoginURL,
		Username:      req.SvcUsername,
		Password:      req.SvcPassword,
		Email:         req.SvcEmail,
		EmailPassword: req.EmailPassword,
	})

	loopConfig := agentloop.DefaultConfig()
	loopConfig.Model = r.config.Model
	loopConfig.MaxTokens = r.config.MaxTokens
	loopConfig.MaxIterations = r.config.MaxIterations

	loop := agentloop.New(r.model, session, loopConfig,
		agentloop.WithTaskID(requestID),
		agentloop.WithLogger(logger),
	)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for event := range loop.Events() {
			if event.Kind == agentloop.EventActionEnd {
				loopActions.Inc()
			}
		}
	}()

	outcome, runErr := loop.Run(ctx, agentloop.Task{Instructions: text})
	loop.Close()
	<-drained

	// Trace files are flushed when the browser exits, so the session must
	// be closed before extraction.
	if err := session.Close(); err != nil {
		logger.Warn().Err(err).Msg("session close failed")
	}

	if runErr != nil {
		logger.Error().Err(runErr).Msg("task aborted on transport failure")
		return webhook.Payload{Error: runErr.Error()}, "error"
	}
	if !outcome.Success {
		logger.Error().
			Str("reason", outcome.Reason).
			Int("iterations", outcome.Iterations).
			Msg("login task failed")
		return webhook.Payload{Error: outcome.Reason, Iterations: outcome.Iterations}, "failed"
	}

	cookies, err := netlog.Extract(r.config.ProfileDir, req.LoginURL, logger)
	if err != nil {
		logger.Error().Err(err).Int("iterations", outcome.Iterations).Msg("cookie extraction failed")
		return webhook.Payload{Error: err.Error(), Iterations: outcome.Iterations}, "error"
	}

	logger.Info().Int("iterations", outcome.Iterations).Msg("cookies extracted")
	return webhook.Payload{Success: true, Cookies: cookies, Iterations: outcome.Iterations}, "success"
}
