package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"programhub/internal/blob"
	"programhub/internal/config"
	"programhub/internal/core"
	"programhub/internal/observability"
	"programhub/pkg/domain"
)

// operator is the principal used by the offline commands. It is never stored.
var operator = core.Principal{ID: "programhub-cli", Role: domain.RoleAdmin}

// app holds what a command needs to talk to the service.
type app struct {
	svc    *core.Service
	files  *blob.FileStore
	logger *zap.Logger
	closed []func(context.Context) error
}

// newLogger builds the process logger from the log section.
func newLogger(c config.Config) (*zap.Logger, error) {
	return observability.NewLogger(c.Log.Level, c.Log.Development)
}

// openApp wires the store and the file store from c. Extra service options
// are appended after the defaults. Close syncs logger.
func openApp(ctx context.Context, c config.Config, logger *zap.Logger, opts ...core.Option) (*app, error) {
	a := &app{logger: logger}
	store, closer, err := core.OpenPersistentStore(ctx, c.StorageSettings(), core.NewDefaultRulesEngine())
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.closed = append(a.closed, closer.Close)

	backend, err := blob.Open(ctx, c.BlobSettings())
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	a.files = blob.NewFileStore(backend, blob.WithMaxSize(c.Upload.MaxBytes), blob.WithBaseURL(c.Blob.BaseURL))

	base := []core.Option{
		core.WithLogger(observability.ServiceLogger(logger)),
		core.WithFileStore(a.files),
	}
	a.svc = core.NewService(store, append(base, opts...)...)
	logger.Debug("service ready",
		zap.String("storage", c.Storage.Driver),
		zap.String("blob", string(backend.Driver())))
	return a, nil
}

// onClose registers a release function run by Close in reverse order.
func (a *app) onClose(fn func(context.Context) error) {
	a.closed = append(a.closed, fn)
}

func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closed) - 1; i >= 0; i-- {
		if err := a.closed[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, fn func(*app) error) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	runErr := fn(a)
	if err := a.Close(cmd.Context()); err != nil && runErr == nil {
		return err
	}
	return runErr
}
