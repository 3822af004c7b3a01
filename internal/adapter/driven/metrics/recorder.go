// Package metrics implements the RunMetrics port with Prometheus collectors.
// Values are written as a node_exporter textfile and optionally pushed to a
// Pushgateway, since a batch run exits before any scrape could happen.
package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunMetrics = (*Recorder)(nil)

const namespace = "panelkeeper"

// Recorder counts one run's work in a private registry. The run id is
// only written to the textfile; pushes are grouped by profile so each run
// replaces the previous one.
type Recorder struct {
	registry *prometheus.Registry
	info     *prometheus.Registry
	started  time.Time

	textfile    string
	pushgateway string
	profile     string

	accounts  *prometheus.CounterVec
	resources *prometheus.CounterVec
	actions   *prometheus.CounterVec
	rotations *prometheus.CounterVec
	duration  prometheus.Gauge
	lastRun   prometheus.Gauge
}

// NewRecorder creates a Recorder. An empty textfile or pushgateway disables
// that output.
func NewRecorder(runID, profile, textfile, pushgateway string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	info := prometheus.NewRegistry()
	promauto.With(info).NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "run_info",
		Help:        "Identifies the run that wrote this file.",
		ConstLabels: prometheus.Labels{"run_id": runID},
	}).Set(1)

	return &Recorder{
		registry:    reg,
		info:        info,
		started:     time.Now(),
		textfile:    textfile,
		pushgateway: pushgateway,
		profile:     profile,
		accounts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_total",
			Help:      "Accounts processed, by outcome.",
		}, []string{"outcome"}),
		resources: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_total",
			Help:      "Resources processed, by outcome.",
		}, []string{"outcome"}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Corrective actions attempted, by action and result.",
		}, []string{"action", "result"}),
		rotations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rotations_total",
			Help:      "Credential rotations, by result.",
		}, []string{"result"}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
}

func (r *Recorder) AccountProcessed(outcome string)  { r.accounts.WithLabelValues(outcome).Inc() }
func (r *Recorder) ResourceProcessed(outcome string) { r.resources.WithLabelValues(outcome).Inc() }

func (r *Recorder) ActionPerformed(action string, ok bool) {
	r.actions.WithLabelValues(action, result(ok)).Inc()
}

func (r *Recorder) RotationPerformed(ok bool) {
	r.rotations.WithLabelValues(result(ok)).Inc()
}

// Flush stamps the run duration and writes the configured outputs.
func (r *Recorder) Flush(ctx context.Context) error {
	now := time.Now()
	r.duration.Set(now.Sub(r.started).Seconds())
	r.lastRun.Set(float64(now.Unix()))

	if r.textfile != "" {
		if err := os.MkdirAll(filepath.Dir(r.textfile), 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
		if err := prometheus.WriteToTextfile(r.textfile, prometheus.Gatherers{r.registry, r.info}); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
	}

	if r.pushgateway != "" {
		pusher := push.New(r.pushgateway, namespace).Gatherer(r.registry)
		if r.profile != "" {
			pusher = pusher.Grouping("profile", r.profile)
		}
		if err := pusher.PushContext(ctx); err != nil {
			return fmt.Errorf("push metrics: %w", err)
		}
	}

	return nil
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
