package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики мастера оформления и платёжных артефактов.
type CheckoutMetrics struct {
	// Счётчики жизненного цикла оформления
	checkoutsStarted   prometheus.Counter
	checkoutsConfirmed *prometheus.CounterVec
	checkoutsAbandoned prometheus.Counter

	// Отказы валидации по шагам
	stepRejections *prometheus.CounterVec

	// Артефакты
	artifactsIssued  *prometheus.CounterVec
	artifactsExpired *prometheus.CounterVec
	pixRegenerated   prometheus.Counter

	// Гистограмма длительности оформления
	checkoutDuration prometheus.Histogram

	// Gauge активных сессий
	activeSessions prometheus.Gauge
}

// NewCheckoutMetrics создаёт метрики в default-регистраторе.
func NewCheckoutMetrics() *CheckoutMetrics {
	return newCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		checkoutsStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_started_total",
			Help: "Total number of checkout sessions entering the wizard",
		}),
		checkoutsConfirmed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "checkout_confirmed_total",
			Help: "Total number of confirmed checkouts grouped by payment method",
		}, []string{"method"}),
		checkoutsAbandoned: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_abandoned_total",
			Help: "Total number of checkouts abandoned after boleto expiry",
		}),
		stepRejections: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "checkout_step_rejections_total",
			Help: "Total number of refused step transitions grouped by step",
		}, []string{"step"}),
		artifactsIssued: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "checkout_artifacts_issued_total",
			Help: "Total number of payment artifacts issued grouped by method",
		}, []string{"method"}),
		artifactsExpired: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "checkout_artifacts_expired_total",
			Help: "Total number of payment artifacts reaching expiry grouped by method",
		}, []string{"method"}),
		pixRegenerated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_pix_regenerated_total",
			Help: "Total number of pix code regenerations",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "checkout_duration_seconds",
			Help:    "Wall time from entering the wizard to a terminal state",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 86400},
		}),
		activeSessions: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "checkout_active_sessions",
			Help: "Number of live checkout sessions",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCheckoutStarted увеличивает счётчик начатых оформлений.
func (m *CheckoutMetrics) RecordCheckoutStarted() {
	m.checkoutsStarted.Inc()
}

// RecordCheckoutConfirmed увеличивает счётчик подтверждённых оформлений.
func (m *CheckoutMetrics) RecordCheckoutConfirmed(method string) {
	m.checkoutsConfirmed.WithLabelValues(method).Inc()
}

// RecordCheckoutAbandoned увеличивает счётчик брошенных оформлений.
func (m *CheckoutMetrics) RecordCheckoutAbandoned() {
	m.checkoutsAbandoned.Inc()
}

// RecordStepRejected увеличивает счётчик отказов валидации шага.
func (m *CheckoutMetrics) RecordStepRejected(step string) {
	m.stepRejections.WithLabelValues(step).Inc()
}

// RecordArtifactIssued увеличивает счётчик выпущенных артефактов.
func (m *CheckoutMetrics) RecordArtifactIssued(method string) {
	m.artifactsIssued.WithLabelValues(method).Inc()
}

// RecordArtifactExpired увеличивает счётчик просроченных артефактов.
func (m *CheckoutMetrics) RecordArtifactExpired(method string) {
	m.artifactsExpired.WithLabelValues(method).Inc()
}

// RecordPixRegenerated увеличивает счётчик перегенераций кода Pix.
func (m *CheckoutMetrics) RecordPixRegenerated() {
	m.pixRegenerated.Inc()
}

// RecordCheckoutDuration записывает длительность пути до терминального состояния.
func (m *CheckoutMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordSessionStarted увеличивает количество активных сессий.
func (m *CheckoutMetrics) RecordSessionStarted() {
	m.activeSessions.Inc()
}

// RecordSessionFinished уменьшает количество активных сессий.
func (m *CheckoutMetrics) RecordSessionFinished() {
	m.activeSessions.Dec()
}
