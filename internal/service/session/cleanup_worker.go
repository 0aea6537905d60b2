// Пакет session вычищает снимки давно не активных сессий оформления.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const (
	defaultCleanupInterval  = 10 * time.Minute
	defaultCleanupBatchSize = 500
	defaultMaxIdle          = 24 * time.Hour
)

var (
	sessionCleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_session_cleanup_runs_total",
		Help: "Total number of stale session cleanup runs grouped by result.",
	}, []string{"result"})
	sessionCleanupDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_session_cleanup_deleted_total",
		Help: "Total number of deleted stale session snapshots.",
	})
	sessionCleanupLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "checkout_session_cleanup_last_deleted",
		Help: "Number of deleted snapshots during the last cleanup run.",
	})
)

// SweepGroup прогоняет DeleteStale по нескольким хранилищам за один проход
// и суммирует удалённое. Обход прерывается на первой ошибке.
type SweepGroup []domain.StaleSweeper

func (g SweepGroup) DeleteStale(before time.Time, limit int) (int, error) {
	total := 0
	for _, sweeper := range g {
		if sweeper == nil {
			continue
		}
		deleted, err := sweeper.DeleteStale(before, limit)
		total += deleted
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

var _ domain.StaleSweeper = (SweepGroup)(nil)

// CleanupOptions задаёт параметры воркера очистки снимков сессий.
type CleanupOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	BatchSize int
	MaxIdle   time.Duration
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*CleanupOptions)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Logger = logger
	}
}

// WithInterval задаёт интервал между cleanup-циклами.
func WithInterval(interval time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Interval = interval
	}
}

// WithBatchSize задаёт размер batch для одного удаления.
func WithBatchSize(batchSize int) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.BatchSize = batchSize
	}
}

// WithMaxIdle задаёт время простоя, после которого снимки сессии считаются устаревшими.
func WithMaxIdle(maxIdle time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.MaxIdle = maxIdle
	}
}

// CleanupWorker периодически удаляет снимки давно не обновлявшихся сессий.
type CleanupWorker struct {
	sweeper   domain.StaleSweeper
	logger    *log.Entry
	interval  time.Duration
	batchSize int
	maxIdle   time.Duration
}

// NewCleanupWorker создаёт воркер очистки снимков сессий.
func NewCleanupWorker(sweeper domain.StaleSweeper, options ...CleanupOption) *CleanupWorker {
	opts := CleanupOptions{
		Interval:  defaultCleanupInterval,
		BatchSize: defaultCleanupBatchSize,
		MaxIdle:   defaultMaxIdle,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "session-cleanup-worker")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultCleanupInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultCleanupBatchSize
	}
	if opts.MaxIdle <= 0 {
		opts.MaxIdle = defaultMaxIdle
	}

	return &CleanupWorker{
		sweeper:   sweeper,
		logger:    logger,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		maxIdle:   opts.MaxIdle,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.sweeper == nil {
		w.logger.Warn("session cleanup worker is disabled: sweeper is nil")
		return
	}

	w.cleanup(ctx, time.Now().UTC().Add(-w.maxIdle))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx, time.Now().UTC().Add(-w.maxIdle))
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context, before time.Time) {
	deleted, err := w.DeleteStale(ctx, before)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		sessionCleanupRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("session cleanup run failed")
		return
	}

	sessionCleanupRunsTotal.WithLabelValues("ok").Inc()
	sessionCleanupLastDeleted.Set(float64(deleted))
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("session cleanup completed")
	}
}

// DeleteStale удаляет все снимки со временем записи <= before порциями batchSize.
func (w *CleanupWorker) DeleteStale(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	totalDeleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalDeleted, err
		}

		deleted, err := w.sweeper.DeleteStale(before, w.batchSize)
		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted > 0 {
			sessionCleanupDeletedTotal.Add(float64(deleted))
		}

		if deleted < w.batchSize {
			break
		}
	}

	return totalDeleted, nil
}
