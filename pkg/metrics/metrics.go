package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "framerecorder"

// Recorder collects counters for the frame buffer and snapshot triggers.
// It satisfies framebuffer.Observer.
type Recorder struct {
	registry         *prometheus.Registry
	framesIngested   prometheus.Counter
	framesEvicted    prometheus.Counter
	framesBuffered   prometheus.Gauge
	framesPersisted  prometheus.Counter
	snapshotsSaved   prometheus.Counter
	snapshotFailures *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		framesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_ingested_total",
			Help: "Frames appended to the sliding window.",
		}),
		framesEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_evicted_total",
			Help: "Frames discarded because the window was full.",
		}),
		framesBuffered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "frames_buffered",
			Help: "Frames currently held in the window.",
		}),
		framesPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_persisted_total",
			Help: "Frames written to disk by snapshots.",
		}),
		snapshotsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "snapshots_saved_total",
			Help: "Snapshot triggers that completed successfully.",
		}),
		snapshotFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "snapshot_failures_total",
			Help: "Snapshot triggers that failed, by error kind.",
		}, []string{"kind"}),
	}
	r.registry.MustRegister(
		r.framesIngested, r.framesEvicted, r.framesBuffered,
		r.framesPersisted, r.snapshotsSaved, r.snapshotFailures,
		prometheus.NewGoCollector(),
	)
	return r
}

func (r *Recorder) Appended() {
	r.framesIngested.Inc()
	r.framesBuffered.Inc()
}

func (r *Recorder) Evicted() {
	r.framesEvicted.Inc()
	r.framesBuffered.Dec()
}

func (r *Recorder) Drained(count int) {
	r.framesBuffered.Sub(float64(count))
}

func (r *Recorder) SnapshotSaved(frames int) {
	r.snapshotsSaved.Inc()
	r.framesPersisted.Add(float64(frames))
}

func (r *Recorder) SnapshotFailed(kind string) {
	r.snapshotFailures.WithLabelValues(kind).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
