package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/science-periodicals/librarian-sub000/pkg/cmd"
	"github.com/science-periodicals/librarian-sub000/pkg/eventbus"
	"github.com/science-periodicals/librarian-sub000/pkg/log"
	"github.com/science-periodicals/librarian-sub000/pkg/models"
	"github.com/science-periodicals/librarian-sub000/pkg/otelhelper"
	"github.com/science-periodicals/librarian-sub000/pkg/persistence"
	"github.com/science-periodicals/librarian-sub000/pkg/services"
	cli "github.com/urfave/cli/v3"
)

const serviceName = "librarian"

// app holds the backends a command runs against.
type app struct {
	logger   *slog.Logger
	store    persistence.Store
	eventBus eventbus.EventBus
	stages   *services.Stages
	closers  []func(ctx context.Context) error
}

func newApp(ctx context.Context, command *cli.Command) (*app, error) {
	logger := log.Setup(command.String("log-level"), command.String("log-format")).With("module", serviceName)

	a := &app{logger: logger}

	var opts []services.StagesOption

	if command.Bool("otel") {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		a.closers = append(a.closers, shutdown)
		opts = append(opts, services.WithStagesTracer(tracer))
	}

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return nil, errors.Join(err, a.close(ctx))
	}

	a.store = store
	a.closers = append(a.closers, store.Close)

	locker, err := cmd.NewLocker(ctx, command.String("lock-url"))
	if err != nil {
		return nil, errors.Join(err, a.close(ctx))
	}

	if c, ok := locker.(interface{ Close() error }); ok {
		a.closers = append(a.closers, func(context.Context) error { return c.Close() })
	}

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.StringSlice("kafka-brokers"), logger)
	if err != nil {
		return nil, errors.Join(err, a.close(ctx))
	}

	a.eventBus = eventBus
	a.closers = append(a.closers, func(context.Context) error { return eventBus.Close() })

	opts = append(opts, services.WithLockTTL(command.Duration("lock-ttl")))
	a.stages = services.NewStages(store, locker, eventBus, logger, opts...)

	return a, nil
}

// close releases the backends in reverse order of creation.
func (a *app) close(ctx context.Context) error {
	var errs []error

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	a.closers = nil

	return errors.Join(errs...)
}

// run builds the app, calls fn and closes the app, logging close failures.
func run(ctx context.Context, command *cli.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(ctx, command)
	if err != nil {
		return err
	}

	defer func() {
		if err := a.close(ctx); err != nil {
			a.logger.ErrorContext(ctx, "Failed to close backends", "error", err)
		}
	}()

	return fn(ctx, a)
}

func readSpecification(path string) (*models.WorkflowSpecification, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow specification: %w", err)
	}

	var spec models.WorkflowSpecification
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, services.NewValidationError("readSpecification", "invalid_json", err.Error(), services.ErrInvalidRequest)
	}

	return &spec, nil
}

func writeJSON(command *cli.Command, v any) error {
	encoder := json.NewEncoder(command.Root().Writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func parseTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, services.NewValidationError("parseTime", "invalid_time", err.Error(), services.ErrInvalidRequest)
	}

	return &t, nil
}

func role(name string) *models.Role {
	if name == "" {
		return nil
	}

	return &models.Role{RoleName: name}
}
