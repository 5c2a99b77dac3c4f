package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the bot.
type Metrics struct {
	MessagesProcessed    prometheus.Counter
	ErrorsTotal          prometheus.Counter
	UpdateProcessingTime prometheus.Histogram
	ReservationsCreated  *prometheus.CounterVec
	BackendErrors        *prometheus.CounterVec
	AvailabilityQuality  *prometheus.CounterVec
	ScansTotal           *prometheus.CounterVec
}

// NewMetrics registers the bot metrics on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "libseat_bot_messages_processed_total",
			Help: "Total number of processed Telegram messages",
		}),

		ErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "libseat_bot_errors_total",
			Help: "Total number of handler errors and panics",
		}),

		UpdateProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "libseat_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),

		ReservationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "libseat_bot_reservations_created_total",
			Help: "Total number of reservations created",
		}, []string{"room_id"}),

		BackendErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "libseat_bot_backend_errors_total",
			Help: "Backend errors by category",
		}, []string{"category"}),

		AvailabilityQuality: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "libseat_bot_availability_quality_total",
			Help: "Availability analyses by data quality",
		}, []string{"quality"}),

		ScansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "libseat_bot_scans_total",
			Help: "Turnstile scans sent by type",
		}, []string{"scan_type"}),
	}
}
