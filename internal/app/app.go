package app

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc"

	"github.com/camuig/quant-relay/internal/bot"
	"github.com/camuig/quant-relay/internal/config"
	"github.com/camuig/quant-relay/internal/logger"
	"github.com/camuig/quant-relay/internal/oanda"
	"github.com/camuig/quant-relay/internal/quantconnect"
	"github.com/camuig/quant-relay/internal/report"
	"github.com/camuig/quant-relay/internal/telegram"
)

type App struct {
	store      *config.Store
	aggregator *report.Aggregator
	logger     *logger.Logger
}

type options struct {
	quantconnect []quantconnect.Option
	oanda        []oanda.Option
}

type Option func(*options)

// WithQuantConnect passes options to the QuantConnect client.
func WithQuantConnect(opts ...quantconnect.Option) Option {
	return func(o *options) { o.quantconnect = append(o.quantconnect, opts...) }
}

// WithOanda passes options to the OANDA client.
func WithOanda(opts ...oanda.Option) Option {
	return func(o *options) { o.oanda = append(o.oanda, opts...) }
}

// New builds the data clients from the current snapshot and checks their
// credentials. Credentials are fixed for the lifetime of the process; account
// and deployment ids are read from each snapshot.
func New(ctx context.Context, store *config.Store, log *logger.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	cfg := store.Current()

	qc := quantconnect.NewClient(cfg.QuantConnectJobUserID, cfg.QuantConnectAccessToken, log, o.quantconnect...)
	if err := withTimeout(ctx, cfg, qc.Authenticate); err != nil {
		return nil, fmt.Errorf("authenticate quantconnect: %w", err)
	}

	var brokerage report.Brokerage
	if cfg.BrokerageEnabled() {
		oc := oanda.NewClient(cfg.OandaToken, cfg.OandaMode, log, o.oanda...)
		verify := func(ctx context.Context) error {
			return oc.Verify(ctx, cfg.OandaAccountID)
		}
		if err := withTimeout(ctx, cfg, verify); err != nil {
			return nil, err
		}
		brokerage = oc
	} else {
		log.Warn("oanda token is empty, brokerage integration disabled")
	}

	return &App{
		store:      store,
		aggregator: report.NewAggregator(brokerage, qc, log),
		logger:     log,
	}, nil
}

// withTimeout gives each startup check its own request timeout.
func withTimeout(ctx context.Context, cfg *config.Config, check func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()
	return check(ctx)
}

// Reports returns the aggregator that renders account data.
func (a *App) Reports() *report.Aggregator {
	return a.aggregator
}

// Serve connects to Telegram and answers messages until ctx is cancelled.
func (a *App) Serve(ctx context.Context, watch bool) error {
	cfg := a.store.Current()

	api, err := telegram.Connect(cfg.TelegramBotToken, a.logger)
	if err != nil {
		return err
	}

	if err := telegram.RegisterCommands(api, bot.Commands); err != nil {
		a.logger.Warn("could not register command menu", "error", err)
	}

	dispatcher := bot.NewDispatcher(a.store, a.aggregator, a.logger)
	listener := telegram.NewListener(api, api, dispatcher, cfg.MaxConcurrentMessages, a.logger)

	var wg conc.WaitGroup
	if watch {
		wg.Go(func() {
			if err := a.store.Watch(ctx, a.logger); err != nil {
				a.logger.Error("config watcher stopped", "error", err)
			}
		})
	}
	wg.Go(func() {
		listener.Run(ctx)
	})
	wg.Wait()

	return nil
}
