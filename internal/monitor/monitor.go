// Package monitor exposes run progress over HTTP for the control-room
// machine: a health endpoint, a JSON progress snapshot, and Prometheus
// metrics. It observes the engine purely through lifecycle hooks.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seqlab/cadence/internal/logging"
	"github.com/seqlab/cadence/pkg/domain"
)

// Monitor tracks run progress and serves it over HTTP.
type Monitor struct {
	logger   *slog.Logger
	registry *prometheus.Registry

	trialsTotal   *prometheus.CounterVec
	triggersTotal *prometheus.CounterVec
	responseTimes *prometheus.HistogramVec
	phaseEntries  *prometheus.CounterVec

	mu       sync.RWMutex
	progress Progress

	server *http.Server
}

// Progress is the JSON snapshot served at /progress.
type Progress struct {
	RunID        string    `json:"run_id"`
	Subject      string    `json:"subject_id"`
	StartedAt    time.Time `json:"started_at"`
	BlockIndex   int       `json:"block_index"`
	BlockTotal   int       `json:"block_total"`
	Design       string    `json:"design"`
	BlockNum     int       `json:"block_num"`
	Trial        int       `json:"trial"`
	Phase        string    `json:"phase"`
	TrialsDone   int       `json:"trials_done"`
	TrialsPassed int       `json:"trials_passed"`
}

// New creates a monitor with its own metrics registry.
func New(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}

	m := &Monitor{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		trialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadence_trials_total",
				Help: "Completed trials by design and overall correctness.",
			},
			[]string{"design", "both_correct"},
		),
		triggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadence_triggers_total",
				Help: "Trigger pulses by event and outcome.",
			},
			[]string{"event", "status"},
		),
		responseTimes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cadence_response_seconds",
				Help:    "Report reaction times by judgement scope.",
				Buckets: prometheus.ExponentialBuckets(0.1, 1.6, 10),
			},
			[]string{"scope"},
		),
		phaseEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadence_phase_entries_total",
				Help: "Trial phase entries.",
			},
			[]string{"phase"},
		),
	}
	m.registry.MustRegister(m.trialsTotal, m.triggersTotal, m.responseTimes, m.phaseEntries)
	return m
}

// SetRun records run identity shown in the progress snapshot.
func (m *Monitor) SetRun(runID, subject string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress.RunID = runID
	m.progress.Subject = subject
	m.progress.StartedAt = time.Now()
}

// Hooks returns lifecycle hooks that feed the monitor.
func (m *Monitor) Hooks() *domain.LifecycleHooks {
	return &domain.LifecycleHooks{
		OnBlockStart: func(_ context.Context, ev *domain.BlockEvent) {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.progress.BlockIndex = ev.Index
			m.progress.BlockTotal = ev.Total
			m.progress.Design = ev.Block.Design
			m.progress.BlockNum = ev.Block.Number
		},
		OnTrialStart: func(_ context.Context, ev *domain.TrialEvent) {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.progress.Trial = ev.Trial
		},
		OnTrialEnd: func(_ context.Context, ev *domain.TrialEvent) {
			if ev.Result == nil {
				return
			}
			res := ev.Result
			m.trialsTotal.WithLabelValues(res.Design, boolLabel(res.BothCorrect)).Inc()
			if res.GlobalRT != nil {
				m.responseTimes.WithLabelValues("global").Observe(*res.GlobalRT)
			}
			if res.LocalRT != nil {
				m.responseTimes.WithLabelValues("local").Observe(*res.LocalRT)
			}

			m.mu.Lock()
			defer m.mu.Unlock()
			m.progress.TrialsDone++
			if res.BothCorrect {
				m.progress.TrialsPassed++
			}
		},
		OnPhase: func(_ context.Context, ev *domain.PhaseEvent) {
			m.phaseEntries.WithLabelValues(string(ev.Phase)).Inc()
			m.mu.Lock()
			defer m.mu.Unlock()
			m.progress.Phase = string(ev.Phase)
		},
		OnTrigger: func(_ context.Context, ev *domain.MarkerEvent) {
			status := "ok"
			if ev.Err != nil {
				status = "error"
			}
			m.triggersTotal.WithLabelValues(string(ev.Event), status).Inc()
		},
	}
}

// Handler builds the HTTP routes.
func (m *Monitor) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Get("/progress", func(w http.ResponseWriter, _ *http.Request) {
		m.mu.RLock()
		snapshot := m.progress
		m.mu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshot); err != nil {
			m.logger.Error("failed to encode progress", "err", err)
		}
	})
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	return r
}

// Serve starts the HTTP listener in the background. Failures to serve are
// logged, not fatal: a broken monitor must never take down a running
// session.
func (m *Monitor) Serve(addr string) {
	m.server = &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		m.logger.Info("monitor listening", "addr", addr)
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor server stopped", "err", err)
		}
	}()
}

// Shutdown stops the listener gracefully.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
