package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// DefaultSinkPort is where the test sink listens.
const DefaultSinkPort = 9000

// Sink is a standalone webhook receiver for exercising deliveries end to
// end. It logs cookie names but never their values.
type Sink struct {
	logger zerolog.Logger
}

// NewSink creates a Sink that logs received payloads to the given logger.
func NewSink(logger zerolog.Logger) *Sink {
	return &Sink{logger: logger}
}

// Router returns the sink's HTTP routes.
func (s *Sink) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.POST("/webhook", s.receive)
	return router
}

// Run serves the sink on the given port until the context is cancelled.
func (s *Sink) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Int("port", port).Msg("webhook sink listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info().Msg("webhook sink stopped")
	return nil
}

func (s *Sink) receive(c *gin.Context) {
	var payload Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.logger.Warn().Err(err).Msg("rejected malformed webhook payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	event := s.logger.Info().
		Str("request_id", payload.RequestID).
		Bool("success", payload.Success).
		Int("iterations", payload.Iterations)
	if payload.Success {
		names := CookieNames(payload.Cookies)
		event = event.Int("cookie_count", len(names)).Strs("cookie_names", names)
	} else {
		event = event.Str("error", payload.Error)
	}
	event.Msg("webhook received")

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// CookieNames extracts the cookie names from a serialized Cookie header
// value, preserving their order.
func CookieNames(cookies string) []string {
	var names []string
	for _, pair := range strings.Split(cookies, "; ") {
		if name, _, ok := strings.Cut(pair, "="); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}
