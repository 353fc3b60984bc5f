package metrics

import "github.com/prometheus/client_golang/prometheus"

func (r *Recorder) FramesIngested() prometheus.Counter { return r.framesIngested }
func (r *Recorder) FramesEvicted() prometheus.Counter  { return r.framesEvicted }
func (r *Recorder) FramesBuffered() prometheus.Gauge   { return r.framesBuffered }
