package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	waitlistLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "waitlist_length_total",
			Help: "Current waitlist length per event",
		},
		[]string{"event_id"},
	)

	rsvpOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rsvp_operations_total",
			Help: "Total RSVP operations",
		},
		[]string{"operation", "event_id", "status"},
	)

	approvalDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_decisions_total",
			Help: "Total account approval decisions",
		},
		[]string{"decision"},
	)

	paymentOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_operations_total",
			Help: "Total payment operations",
		},
		[]string{"operation", "status"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total realtime notifications published",
		},
		[]string{"channel_kind", "status"},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_goroutines_total",
			Help: "Current number of background worker goroutines",
		},
	)

	waitlistWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waitlist_wait_seconds",
			Help:    "Time spent on the waitlist before promotion",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
		[]string{"event_id"},
	)
)

type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	// Start metrics collection
	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.collectWaitlistMetrics(context.Background())
	}
}

// collectWaitlistMetrics refreshes the per-event waitlist gauges from the
// cached position keys so the dashboard survives a database stall.
func (m *Monitor) collectWaitlistMetrics(ctx context.Context) {
	events, err := m.redis.SMembers(ctx, "waitlist:events").Result()
	if err != nil {
		return
	}
	for _, eventID := range events {
		keys, err := m.redis.Keys(ctx, "waitlist:position:"+eventID+":*").Result()
		if err != nil {
			continue
		}
		waitlistLength.WithLabelValues(eventID).Set(float64(len(keys)))
	}
}

// Track RSVP operations
func (m *Monitor) TrackRSVP(operation, eventID, status string) {
	rsvpOperations.WithLabelValues(operation, eventID, status).Inc()
}

// Track waitlist promotions, observing how long the attendee waited
func (m *Monitor) TrackPromotion(eventID string, waited time.Duration) {
	waitlistWait.WithLabelValues(eventID).Observe(waited.Seconds())
}

func (m *Monitor) TrackApproval(decision string) {
	approvalDecisions.WithLabelValues(decision).Inc()
}

func (m *Monitor) TrackPayment(operation, status string) {
	paymentOperations.WithLabelValues(operation, status).Inc()
}

func (m *Monitor) TrackNotification(channelKind, status string) {
	notificationsSent.WithLabelValues(channelKind, status).Inc()
}

func (m *Monitor) SetWaitlistLength(eventID string, n int) {
	waitlistLength.WithLabelValues(eventID).Set(float64(n))
}

func (m *Monitor) AddGoroutine()    { goroutineCount.Inc() }
func (m *Monitor) RemoveGoroutine() { goroutineCount.Dec() }
