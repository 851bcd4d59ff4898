// Package metrics exposes the bot's Prometheus instruments. A nil *Metrics
// is valid and records nothing, so components can be built without one.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/voxbot/internal/common"
)

const namespace = "voxbot"

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"

	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonSerializationFailure = "serialization_failure"
	ReasonLockTimeout          = "lock_timeout"
	ReasonNotFound             = "not_found"
	ReasonInvalidInput         = "invalid_input"
	ReasonInsufficientCredits  = "insufficient_credits"
	ReasonUnknown              = "unknown"
)

type Metrics struct {
	registry *prometheus.Registry

	sweeps             *prometheus.CounterVec
	sweepDuration      prometheus.Histogram
	expiredAccounts    prometheus.Counter
	accountFailures    prometheus.Counter
	blobDeleteFailures prometheus.Counter
	notifications      *prometheus.CounterVec

	syntheses         *prometheus.CounterVec
	synthesisDuration prometheus.Histogram

	broadcastMessages *prometheus.CounterVec

	ledgerOps *prometheus.CounterVec
}

// New registers all instruments, plus Go runtime and process collectors, on
// a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reaper", Name: "sweeps_total",
			Help: "Expiry sweeps by outcome.",
		}, []string{"outcome"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "reaper", Name: "sweep_duration_seconds",
			Help:    "Wall time of one expiry sweep.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		expiredAccounts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reaper", Name: "expired_accounts_total",
			Help: "Accounts reset after their validity lapsed.",
		}),
		accountFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reaper", Name: "account_failures_total",
			Help: "Expired accounts whose cascade failed and will be retried next sweep.",
		}),
		blobDeleteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reaper", Name: "blob_delete_failures_total",
			Help: "Voice files that could not be deleted.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reaper", Name: "notifications_total",
			Help: "Expiry notices by outcome.",
		}, []string{"outcome"}),
		syntheses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tts", Name: "requests_total",
			Help: "Voice generation requests by outcome.",
		}, []string{"outcome"}),
		synthesisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "tts", Name: "synthesis_duration_seconds",
			Help:    "Latency of the synthesis backend.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}),
		broadcastMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "broadcast", Name: "messages_total",
			Help: "Broadcast deliveries by outcome.",
		}, []string{"outcome"}),
		ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "operations_total",
			Help: "Ledger mutations by operation and outcome reason.",
		}, []string{"op", "reason"}),
	}

	reg.MustRegister(
		m.sweeps, m.sweepDuration, m.expiredAccounts, m.accountFailures,
		m.blobDeleteFailures, m.notifications, m.syntheses, m.synthesisDuration,
		m.broadcastMessages, m.ledgerOps,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func outcome(ok bool) string {
	if ok {
		return OutcomeOK
	}
	return OutcomeFailed
}

func (m *Metrics) ObserveSweep(ok bool, seconds float64) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(outcome(ok)).Inc()
	m.sweepDuration.Observe(seconds)
}

func (m *Metrics) IncExpired() {
	if m != nil {
		m.expiredAccounts.Inc()
	}
}

func (m *Metrics) IncAccountFailure() {
	if m != nil {
		m.accountFailures.Inc()
	}
}

func (m *Metrics) IncBlobDeleteFailure() {
	if m != nil {
		m.blobDeleteFailures.Inc()
	}
}

func (m *Metrics) IncNotification(ok bool) {
	if m != nil {
		m.notifications.WithLabelValues(outcome(ok)).Inc()
	}
}

func (m *Metrics) ObserveSynthesis(ok bool, seconds float64) {
	if m == nil {
		return
	}
	m.syntheses.WithLabelValues(outcome(ok)).Inc()
	if ok {
		m.synthesisDuration.Observe(seconds)
	}
}

func (m *Metrics) IncBroadcast(ok bool) {
	if m != nil {
		m.broadcastMessages.WithLabelValues(outcome(ok)).Inc()
	}
}

// ObserveLedger counts one ledger operation, labelled by the reason err maps
// to, or "ok" when err is nil.
func (m *Metrics) ObserveLedger(op string, err error) {
	if m != nil {
		m.ledgerOps.WithLabelValues(op, ClassifyReason(err)).Inc()
	}
}

// ClassifyReason maps an error to a low-cardinality label.
func ClassifyReason(err error) string {
	if err == nil {
		return OutcomeOK
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonDeadlineExceeded
	case errors.Is(err, common.ErrorNotFound):
		return ReasonNotFound
	case errors.Is(err, common.ErrInvalidAmount):
		return ReasonInvalidInput
	case errors.Is(err, common.ErrInsufficientCredits):
		return ReasonInsufficientCredits
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return ReasonSerializationFailure
		case "55P03":
			return ReasonLockTimeout
		}
	}
	return ReasonUnknown
}
