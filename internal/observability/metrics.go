package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReactionToggles counts toggle attempts by reaction kind and result.
	ReactionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "utvibe_reaction_toggles_total",
		Help: "Total reaction toggles by kind and result",
	}, []string{"kind", "result"})

	// ReactionToggleDuration records toggle latency including the row lock wait.
	ReactionToggleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "utvibe_reaction_toggle_duration_seconds",
		Help:    "Reaction toggle latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// OTPEvents counts one-time code sends and verifications by outcome.
	OTPEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "utvibe_otp_events_total",
		Help: "One-time code events by type and outcome",
	}, []string{"event", "outcome"})

	// ImageUploads counts image uploads by store and outcome.
	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "utvibe_image_uploads_total",
		Help: "Image uploads by store and outcome",
	}, []string{"store", "outcome"})

	// WebSocketBackpressureDrops counts event frames dropped for slow or closed clients.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "utvibe_websocket_backpressure_drops_total",
		Help: "Websocket frames dropped by hub and reason",
	}, []string{"hub", "reason"})
)

// ObserveToggle records one toggle attempt. result is e.g. "on", "off" or an error code.
func ObserveToggle(kind, result string, start time.Time) {
	ReactionToggles.WithLabelValues(kind, result).Inc()
	ReactionToggleDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
