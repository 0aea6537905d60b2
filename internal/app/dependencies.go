package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/artifact"
	"github.com/vladislavdragonenkov/checkout/internal/checkout"
	"github.com/vladislavdragonenkov/checkout/internal/clipboard"
	"github.com/vladislavdragonenkov/checkout/internal/clock"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/httpapi"
	"github.com/vladislavdragonenkov/checkout/internal/lookup"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
	"github.com/vladislavdragonenkov/checkout/internal/pricing"
	"github.com/vladislavdragonenkov/checkout/internal/service/payment"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
	"github.com/vladislavdragonenkov/checkout/internal/storage/postgres"
)

// Dependencies содержит все зависимости сервиса оформления.
type Dependencies struct {
	Catalog   *domain.Catalog
	Pricing   *pricing.Engine
	Store     domain.SnapshotStore
	Sweeper   domain.StaleSweeper
	Outbox    domain.OutboxRepository
	Timeline  domain.TimelineRepository
	Artifacts *artifact.Generator
	Clipboard *clipboard.Buffer
	Lookup    domain.AddressLookup
	Metrics   *metrics.CheckoutMetrics
	Postgres  *postgres.Store
	Logger    *log.Entry

	sessionDeps httpapi.SessionDeps
}

// NewDependencies собирает зависимости: in-memory по умолчанию, PostgreSQL при заданном DSN.
// NOTE: авторизатор карт симулированный; реального платёжного шлюза у витрины нет.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	catalog := domain.DefaultCatalog()
	engine := pricing.NewEngine(catalog)
	clk := clock.System()
	buf := clipboard.NewBuffer()
	checkoutMetrics := metrics.NewCheckoutMetrics()

	var lookupOpts []lookup.ViaCEPOption
	if cfg.ViaCEPBaseURL != "" {
		lookupOpts = append(lookupOpts, lookup.WithBaseURL(cfg.ViaCEPBaseURL))
	}

	var (
		store    domain.SnapshotStore
		sweeper  domain.StaleSweeper
		outbox   domain.OutboxRepository
		timeline domain.TimelineRepository
		pgStore  *postgres.Store
	)

	if cfg.PostgresDSN != "" {
		pg, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		pgStore = pg
		snapshots := postgres.NewSnapshotStore(pg)
		store = snapshots
		sweeper = snapshots
		outbox = postgres.NewOutboxRepository(pg)
		timeline = postgres.NewTimelineRepository(pg)
		logger.Info("postgres storage initialized")
	} else {
		snapshots := memory.NewSnapshotStore()
		store = snapshots
		sweeper = snapshots
		outbox = memory.NewOutboxRepository()
		timeline = memory.NewTimelineRepository()
		logger.Info("in-memory storage initialized")
	}

	deps := &Dependencies{
		Catalog:   catalog,
		Pricing:   engine,
		Store:     store,
		Sweeper:   sweeper,
		Outbox:    outbox,
		Timeline:  timeline,
		Artifacts: artifact.NewGenerator(clk, buf, logger.WithField("component", "artifact-generator")),
		Clipboard: buf,
		Lookup:    lookup.NewViaCEPClient(lookupOpts...),
		Metrics:   checkoutMetrics,
		Postgres:  pgStore,
		Logger:    logger,
	}

	deps.sessionDeps = httpapi.SessionDeps{
		Catalog:    catalog,
		Pricing:    engine,
		Store:      store,
		Artifacts:  deps.Artifacts,
		Authorizer: payment.NewSimulatedAuthorizer(),
		OrderNums:  checkout.NewRandomOrderNumbers(time.Now().UnixNano()),
		Clock:      clk,
		Outbox:     outbox,
		Timeline:   timeline,
		Lookup:     deps.Lookup,
		Metrics:    checkoutMetrics,
		Logger:     logger,
	}

	return deps, nil
}

// SessionDeps возвращает зависимости, передаваемые менеджеру сессий.
func (d *Dependencies) SessionDeps() httpapi.SessionDeps {
	return d.sessionDeps
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() {
	if d.Postgres != nil {
		if err := d.Postgres.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
