package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"programhub/internal/adapters/httpapi"
	"programhub/internal/auth"
	"programhub/internal/config"
	"programhub/internal/core"
	"programhub/internal/infra/events/amqp"
	"programhub/internal/infra/events/redisfeed"
	"programhub/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve starts the HTTP API on http.addr and blocks until SIGINT or SIGTERM,
then drains in-flight requests for up to http.shutdown_timeout.

Activity is published to RabbitMQ when events.amqp_url is set and kept in a
Redis list, readable at /api/activity, when events.redis_addr is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, c config.Config) error {
	if c.Auth.Secret == "" {
		return errors.New("auth.secret is required to serve the API")
	}
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	verifier, err := auth.NewVerifier(c.Auth.Secret, auth.WithIssuer(c.Auth.Issuer), auth.WithLeeway(c.Auth.Leeway))
	if err != nil {
		_ = logger.Sync()
		return err
	}

	metrics := observability.NewMetrics()
	opts := []core.Option{
		core.WithMetricsRecorder(metrics),
		core.WithTracer(observability.LogTracer{Logger: logger.Named("trace")}),
	}
	var closers []func(context.Context) error
	release := func() {
		for _, fn := range closers {
			_ = fn(context.Background())
		}
	}

	var feed httpapi.ActivityFeed
	if c.Events.RedisAddr != "" {
		client, err := redisfeed.Dial(ctx, c.Events.RedisAddr, c.Events.RedisPassword, c.Events.RedisDB)
		if err != nil {
			release()
			return err
		}
		closers = append(closers, func(context.Context) error { return client.Close() })
		f := redisfeed.New(client, redisfeed.Options{Key: c.Events.RedisKey, Limit: c.Events.RedisLimit, Logger: logger})
		opts = append(opts, core.WithAuditRecorder(f))
		feed = f
	}
	if c.Events.AMQPURL != "" {
		pub, err := amqp.Dial(c.Events.AMQPURL, c.Events.AMQPExchange, logger)
		if err != nil {
			release()
			return err
		}
		closers = append(closers, pub.Close)
		opts = append(opts, core.WithAuditRecorder(pub))
	}

	a, err := openApp(ctx, c, logger, opts...)
	if err != nil {
		release()
		return err
	}
	for _, fn := range closers {
		a.onClose(fn)
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr: c.HTTP.Addr,
		Handler: httpapi.New(a.svc, httpapi.Options{
			Verifier:       verifier,
			Files:          a.files,
			Feed:           feed,
			Metrics:        metrics,
			Logger:         logger.Named("http"),
			MaxUploadBytes: c.Upload.MaxBytes,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       c.HTTP.ReadTimeout,
		WriteTimeout:      c.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", c.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
