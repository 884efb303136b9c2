// Package metrics exposes Prometheus counters for the assignments bot.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics is nil-safe: methods on a nil *Metrics do nothing.
type Metrics struct {
	registry      *prometheus.Registry
	handler       http.Handler
	commands      *prometheus.CounterVec
	callbacks     *prometheus.CounterVec
	replies       *prometheus.CounterVec
	reminders     *prometheus.CounterVec
	expired       prometheus.Counter
	sweepDuration prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignments_commands_total",
		Help: "Commands received, by command and result",
	}, []string{"command", "result"})

	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignments_callbacks_total",
		Help: "Button presses received, by action and result",
	}, []string{"action", "result"})

	replies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignments_replies_total",
		Help: "Replies to prompts, by outcome",
	}, []string{"outcome"})

	reminders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignments_reminders_total",
		Help: "Reminder messages, by delivery status",
	}, []string{"status"})

	expired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assignments_expired_total",
		Help: "Assignments removed after their deadline passed",
	})

	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "assignments_sweep_duration_seconds",
		Help:    "Duration of reminder sweeps",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(commands, callbacks, replies, reminders, expired, sweepDuration)

	return &Metrics{
		registry:      registry,
		handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		commands:      commands,
		callbacks:     callbacks,
		replies:       replies,
		reminders:     reminders,
		expired:       expired,
		sweepDuration: sweepDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *Metrics) Command(cmd, result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(cmd, result).Inc()
}

func (m *Metrics) Callback(action, result string) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(action, result).Inc()
}

func (m *Metrics) Reply(outcome string) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(outcome).Inc()
}

// Sweep records the result of one reminder sweep.
func (m *Metrics) Sweep(sent, failed, expired int, d time.Duration) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues("sent").Add(float64(sent))
	m.reminders.WithLabelValues("failed").Add(float64(failed))
	m.expired.Add(float64(expired))
	m.sweepDuration.Observe(d.Seconds())
}

// Serve listens on addr until ctx is done. Only /metrics is routed, so a
// plain mux stands in for a router; Handler can be mounted on one as is.
func (m *Metrics) Serve(ctx context.Context, addr string, l *zap.SugaredLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Errorw("failed stopping metrics listener", "err", err)
		}
	}()

	l.Infow("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "metrics listener failed")
	}
	return nil
}
