package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/plantify/internal/analysis"
	"github.com/Brownie44l1/plantify/internal/handlers"
)

const shutdownTimeout = 15 * time.Second

func (a *app) serve(ctx context.Context) error {
	bundle := a.loadResources()
	defer bundle.Close()

	for _, msg := range bundle.Errors() {
		a.logger.Warn("serving with unavailable resources", zap.String("detail", msg))
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(a.logger))

	svc := analysis.NewService(bundle, a.logger, a.cfg.AnalysisDelay)
	if err := handlers.RegisterRoutes(router, handlers.NewHandler(svc, a.logger)); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("plantify listening",
		zap.String("addr", server.Addr),
		zap.Bool("ready", bundle.Ready()),
		zap.String("model", a.cfg.ModelPath))
	return serveHTTPServer(ctx, server, shutdownTimeout, a.logger, nil)
}

// serveHTTPServer runs server until it fails or ctx is done, then shuts it
// down, letting in-flight requests finish within shutdownTimeout.
func serveHTTPServer(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(context.Cause(ctx)))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
