// SPDX-License-Identifier: MIT
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for a session. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Capture metrics
	BlocksCaptured  prometheus.Counter
	SamplesCaptured prometheus.Counter
	Overruns        prometheus.Counter
	Recordings      prometheus.Counter
	RecordingLength prometheus.Histogram
	Capturing       prometheus.Gauge

	// Analysis metrics
	AnalysisRequests *prometheus.CounterVec
	AnalysisFailures *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram

	// Render metrics
	Redraws      prometheus.Counter
	DrawDuration prometheus.Histogram
	Viewers      prometheus.Gauge
	FramesSent   prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BlocksCaptured: f.NewCounter(prometheus.CounterOpts{
			Name: "prosody_capture_blocks_total",
			Help: "Total number of sample blocks received from the audio thread",
		}),
		SamplesCaptured: f.NewCounter(prometheus.CounterOpts{
			Name: "prosody_capture_samples_total",
			Help: "Total number of samples accumulated",
		}),
		Overruns: f.NewCounter(prometheus.CounterOpts{
			Name: "prosody_capture_overruns_total",
			Help: "Total number of quanta dropped because the block queue was full",
		}),
		Recordings: f.NewCounter(prometheus.CounterOpts{
			Name: "prosody_recordings_total",
			Help: "Total number of completed recordings",
		}),
		RecordingLength: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "prosody_recording_duration_seconds",
			Help:    "Length of completed recordings",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~1 minute
		}),
		Capturing: f.NewGauge(prometheus.GaugeOpts{
			Name: "prosody_capturing",
			Help: "1 while a recording is in progress",
		}),

		AnalysisRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "prosody_analysis_requests_total",
			Help: "Total number of analysis requests sent",
		}, []string{"kind"}),
		AnalysisFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "prosody_analysis_failures_total",
			Help: "Total number of failed analysis requests",
		}, []string{"kind"}),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "prosody_analysis_duration_seconds",
			Help:    "Duration of analysis requests",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),

		Redraws: f.NewCounter(prometheus.CounterOpts{
			Name: "prosody_redraws_total",
			Help: "Total number of chart redraws",
		}),
		DrawDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "prosody_draw_duration_seconds",
			Help:    "Time spent drawing one set of charts",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10), // 0.5ms to ~250ms
		}),
		Viewers: f.NewGauge(prometheus.GaugeOpts{
			Name: "prosody_viewers",
			Help: "Current number of connected chart viewers",
		}),
		FramesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "prosody_frames_sent_total",
			Help: "Total number of chart frames sent to viewers",
		}),
	}
}

// RecordBlock records one accumulated block of n samples.
func (m *Metrics) RecordBlock(n int) {
	if m == nil {
		return
	}
	m.BlocksCaptured.Inc()
	m.SamplesCaptured.Add(float64(n))
}

// SetCapturing reflects the capture state.
func (m *Metrics) SetCapturing(on bool) {
	if m == nil {
		return
	}
	if on {
		m.Capturing.Set(1)
	} else {
		m.Capturing.Set(0)
	}
}

// RecordRecording records a completed recording.
func (m *Metrics) RecordRecording(d time.Duration, overruns uint64) {
	if m == nil {
		return
	}
	m.Recordings.Inc()
	m.RecordingLength.Observe(d.Seconds())
	m.Overruns.Add(float64(overruns))
}

// RecordAnalysis records an analysis request of the given kind
// ("reference" or "recording").
func (m *Metrics) RecordAnalysis(kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.AnalysisRequests.WithLabelValues(kind).Inc()
	m.AnalysisDuration.Observe(d.Seconds())
	if err != nil {
		m.AnalysisFailures.WithLabelValues(kind).Inc()
	}
}

// RecordRedraw records one redraw of all charts.
func (m *Metrics) RecordRedraw(d time.Duration) {
	if m == nil {
		return
	}
	m.Redraws.Inc()
	m.DrawDuration.Observe(d.Seconds())
}

// SetViewers sets the current number of connected viewers.
func (m *Metrics) SetViewers(n int) {
	if m == nil {
		return
	}
	m.Viewers.Set(float64(n))
}

// RecordFrameSent increments the frames sent counter.
func (m *Metrics) RecordFrameSent() {
	if m == nil {
		return
	}
	m.FramesSent.Inc()
}
