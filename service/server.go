package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/martinemde/magpie/config"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP front end over a Runner.
type Server struct {
	config config.Config
	runner *Runner
	logger zerolog.Logger
	router *gin.Engine
}

// NewServer wires the routes over the given runner.
func NewServer(cfg config.Config, runner *Runner, logger zerolog.Logger) *Server {
	s := &Server{
		config: cfg,
		runner: runner,
		logger: logger,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the configured routes for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/get-cookies", APIKeyAuth(s.config.APIKey), s.getCookies)
	return router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) getCookies(c *gin.Context) {
	var req CookieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requestID := uuid.New().String()
	s.logger.Info().
		Str("request_id", requestID).
		Str("login_url", req.LoginURL).
		Msg("cookie request accepted")

	s.runner.Submit(req, requestID)

	c.JSON(http.StatusAccepted, TaskStatus{
		Status:    StatusProcessing,
		Message:   AcceptedMessage,
		RequestID: requestID,
	})
}

// Run serves until the context is cancelled, then shuts the listener down
// and drains in-flight tasks.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Int("port", s.config.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.runner.Wait()
	s.logger.Info().Msg("server stopped")
	return nil
}
