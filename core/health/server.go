// Package health serves the liveness probe and Prometheus metrics over HTTP.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/pdfbot/core/logger"
)

// AliveText is the body returned by GET /.
const AliveText = "Bot is alive!"

const shutdownTimeout = 5 * time.Second

// Router builds the gin engine with the liveness and metrics routes.
func Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, AliveText)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// NewServer returns an http.Server serving Router on listen.
func NewServer(listen string) *http.Server {
	return &http.Server{
		Addr:              listen,
		Handler:           Router(),
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       3 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       15 * time.Second,
	}
}

// Run serves srv until ctx is done, then shuts it down gracefully.
func Run(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http", "http.listen",
			slog.String("status", "ok"),
			slog.String("listen", srv.Addr),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "http", "http.shutdown",
			slog.String("status", "error"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info(ctx, "http", "http.shutdown", slog.String("status", "ok"))
	return nil
}
