package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/bookverse/borrowledger/config"
	"github.com/bookverse/borrowledger/eventrelay"
	"github.com/bookverse/borrowledger/identity"
	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/ledger"
	"github.com/bookverse/borrowledger/oteladapters"
	"github.com/bookverse/borrowledger/restapi"
)

const (
	serviceName     = "borrowledger"
	shutdownTimeout = 5 * time.Second
)

// app holds everything a subcommand may need. close releases it in reverse order.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	engine  config.Engine
	ledger  *ledger.Ledger
	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg config.Config, stderr io.Writer, needsAPI bool) (*app, error) {
	a := &app{cfg: cfg}

	logger, err := cfg.Logger(stderr)
	if err != nil {
		return nil, err
	}

	a.logger = logger

	observability, shutdown, err := oteladapters.Setup(ctx, serviceName, cfg.Tracing(), logger.Handler())
	if err != nil {
		return nil, err
	}

	a.closers = append(a.closers, shutdown)

	options := []journal.Option{journal.WithLogger(logger)}
	if observability.ContextualLogger != nil {
		options = append(options, journal.WithContextualLogger(observability.ContextualLogger))
	}

	if observability.Metrics != nil {
		options = append(options, journal.WithMetrics(observability.Metrics))
	}

	if observability.Tracing != nil {
		options = append(options, journal.WithTracing(observability.Tracing))
	}

	engine, closeJournal, err := cfg.OpenJournal(ctx, options...)
	if err != nil {
		a.close()

		return nil, err
	}

	a.engine = engine
	a.closers = append(a.closers, func(context.Context) error { return closeJournal() })

	if !needsAPI {
		return a, nil
	}

	verifier, err := cfg.Verifier()
	if err != nil {
		a.close()

		return nil, err
	}

	var source identity.Source = identity.Anonymous{}
	if cfg.Token != "" {
		source = identity.StaticSource{Token: cfg.Token, Verifier: verifier}
	}

	client, err := restapi.NewClient(cfg.APIBaseURL, source,
		restapi.WithTimeout(cfg.APITimeout),
		restapi.WithBookCache(cfg.BookCacheSize, cfg.BookCacheTTL),
	)
	if err != nil {
		a.close()

		return nil, err
	}

	var publisher ledger.Publisher = eventrelay.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, dialErr := eventrelay.Dial(cfg.AMQPURL, cfg.AMQPExchange)
		if dialErr != nil {
			// the relay is optional, borrowing works without it
			logger.WarnContext(ctx, "event relay disabled", "error", dialErr.Error())
		} else {
			publisher = amqpPublisher
			a.closers = append(a.closers, func(context.Context) error { return amqpPublisher.Close() })
		}
	}

	observability.Logger = logger

	a.ledger = ledger.New(engine, client, source,
		ledger.WithLogger(logger),
		ledger.WithPublisher(publisher),
		ledger.WithUrgentWindowDays(cfg.UrgentWindowDays),
		ledger.WithObservability(observability),
	)

	if err := a.ledger.Load(ctx); err != nil {
		a.close()

		return nil, err
	}

	return a, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, a.closers[i](ctx))
	}

	a.closers = nil

	if err != nil && a.logger != nil {
		a.logger.Warn("shutdown incomplete", "error", err.Error())
	}
}
