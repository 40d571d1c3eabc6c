package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons used as the "reason" label of vtn_notifier_dropped_total.
const (
	dropOverflow  = "overflow"
	dropEvicted   = "evicted"
	dropSerialize = "serialize"
	dropCancelled = "cancelled" // broadcast context ended before the handle was offered
	dropDiscarded = "discarded" // still buffered when the forwarding loop exited
)

// Metrics groups the notifier's prometheus collectors.
type Metrics struct {
	ActiveChannels  prometheus.Gauge
	Admissions      *prometheus.CounterVec
	Published       *prometheus.CounterVec
	Dropped         *prometheus.CounterVec
	FramesWritten   prometheus.Counter
	SessionDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what tests usually want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ActiveChannels: f.NewGauge(prometheus.GaugeOpts{
			Name: "vtn_notifier_active_channels",
			Help: "Notifier channels currently bound to a client",
		}),
		Admissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vtn_notifier_admissions_total",
			Help: "Channel admission attempts by outcome",
		}, []string{"outcome"}),
		Published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vtn_notifier_published_total",
			Help: "Published notifications by outcome",
		}, []string{"outcome"}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vtn_notifier_dropped_total",
			Help: "Notifications dropped before reaching the socket, by reason",
		}, []string{"reason"}),
		FramesWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "vtn_notifier_frames_written_total",
			Help: "Notification frames written to sockets",
		}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vtn_notifier_session_duration_seconds",
			Help:    "Lifetime of notifier channels",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
		}),
	}
}
