package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	ReaperErrorTypeDeadlineExceeded = "deadline_exceeded"
	ReaperErrorTypeDB               = "db"
	ReaperErrorTypeLock             = "lock"
	ReaperErrorTypeUnknown          = "unknown"
)

// ReaperMetrics captures expiry-sweep health signals.
type ReaperMetrics struct {
	sweepRuns      prometheus.Counter
	sweepDuration  prometheus.Observer
	sweepErrors    *prometheus.CounterVec
	sweepSkipped   prometheus.Counter
	expiredTotal   prometheus.Counter
	runLoopLag     prometheus.Observer
	batchRemaining prometheus.Gauge
}

var (
	reaperMetricsOnce sync.Once
	reaperMetrics     *ReaperMetrics
)

// Reaper returns the singleton reaper metrics registry.
func Reaper() *ReaperMetrics {
	reaperMetricsOnce.Do(func() {
		reaperMetrics = newReaperMetrics(prometheus.DefaultRegisterer)
	})
	return reaperMetrics
}

// ResetReaperMetricsForTest resets the reaper metrics singleton for tests.
func ResetReaperMetricsForTest() {
	reaperMetricsOnce = sync.Once{}
	reaperMetrics = nil
}

func newReaperMetrics(registerer prometheus.Registerer) *ReaperMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	sweepRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campushire_reaper_sweeps_total",
		Help: "Expiry sweeps started.",
	})
	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "campushire_reaper_sweep_duration_seconds",
		Help:    "Expiry sweep latency.",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
	sweepErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campushire_reaper_sweep_errors_total",
		Help: "Expiry sweep errors by low-cardinality type.",
	}, []string{"error_type"})
	sweepSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campushire_reaper_sweeps_skipped_total",
		Help: "Sweeps skipped because another instance holds the lock.",
	})
	expiredTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campushire_reaper_invitations_expired_total",
		Help: "Invitations transitioned to expired by the reaper.",
	})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "campushire_reaper_runloop_lag_seconds",
		Help:    "Run loop lag beyond the configured sweep interval.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
	batchRemaining := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campushire_reaper_batch_remaining",
		Help: "Invitations still due for expiry after the last sweep.",
	})

	registerer.MustRegister(
		sweepRuns,
		sweepDuration,
		sweepErrors,
		sweepSkipped,
		expiredTotal,
		runLoopLag,
		batchRemaining,
	)

	return &ReaperMetrics{
		sweepRuns:      sweepRuns,
		sweepDuration:  sweepDuration,
		sweepErrors:    sweepErrors,
		sweepSkipped:   sweepSkipped,
		expiredTotal:   expiredTotal,
		runLoopLag:     runLoopLag,
		batchRemaining: batchRemaining,
	}
}

func (m *ReaperMetrics) IncSweep() {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
}

func (m *ReaperMetrics) ObserveSweepDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}

func (m *ReaperMetrics) IncSweepError(errorType string) {
	if m == nil {
		return
	}
	if errorType == "" {
		errorType = ReaperErrorTypeUnknown
	}
	m.sweepErrors.WithLabelValues(errorType).Inc()
}

func (m *ReaperMetrics) IncSweepSkipped() {
	if m == nil {
		return
	}
	m.sweepSkipped.Inc()
}

func (m *ReaperMetrics) AddExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expiredTotal.Add(float64(n))
}

func (m *ReaperMetrics) ObserveRunLoopLag(d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.runLoopLag.Observe(d.Seconds())
}

func (m *ReaperMetrics) SetBatchRemaining(n int) {
	if m == nil {
		return
	}
	m.batchRemaining.Set(float64(n))
}

// ClassifyReaperError buckets sweep failures for the error counter.
func ClassifyReaperError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return ReaperErrorTypeDeadlineExceeded
	case isDBError(err):
		return ReaperErrorTypeDB
	default:
		return ReaperErrorTypeUnknown
	}
}

func isDBError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true
	}
	switch {
	case errors.Is(err, gorm.ErrInvalidTransaction),
		errors.Is(err, gorm.ErrInvalidDB),
		errors.Is(err, gorm.ErrInvalidData):
		return true
	default:
		return false
	}
}
