// Package metrics records pipeline outcomes as Prometheus series. A nil *Recorder is valid
// and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "unisync"

// Outcomes of a store item.
const (
	OutcomeCommitted = "committed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Recorder holds the pipeline's collectors.
type Recorder struct {
	items    *prometheus.CounterVec
	retries  *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_items_total",
			Help:      "Items written to each store by outcome.",
		}, []string{"store", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_call_retries_total",
			Help:      "Store calls repeated after a transient failure.",
		}, []string{"store"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by final state.",
		}, []string{"state"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_call_duration_seconds",
			Help:      "Duration of single store calls.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"store"}),
	}

	for _, c := range []prometheus.Collector{r.items, r.retries, r.runs, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Items adds n items of outcome for store.
func (r *Recorder) Items(store, outcome string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.items.WithLabelValues(store, outcome).Add(float64(n))
}

func (r *Recorder) Retry(store string) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(store).Inc()
}

func (r *Recorder) Run(state string) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(state).Inc()
}

func (r *Recorder) ObserveCall(store string, d time.Duration) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(store).Observe(d.Seconds())
}
