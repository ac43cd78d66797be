package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// VotesTotal counts ballots by direction and what they did to the ledger.
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusdesk_votes_total",
		Help: "Votes cast by direction and outcome (created, unchanged, flipped)",
	}, []string{"direction", "outcome"})

	// VoteRetries counts vote transactions retried after a write conflict.
	VoteRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusdesk_vote_retries_total",
		Help: "Vote transactions retried after a conflicting write",
	})

	// LeaveTransitions counts leave lifecycle transitions.
	LeaveTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusdesk_leave_transitions_total",
		Help: "Leave application status transitions",
	}, []string{"from", "to"})

	// GatePassEvents counts gate exits and entries.
	GatePassEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusdesk_gate_pass_events_total",
		Help: "Gate pass exits and entries",
	}, []string{"event"})

	// TriageQueueDropped counts score recomputes skipped because the queue was full.
	TriageQueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusdesk_triage_queue_dropped_total",
		Help: "Triage score updates dropped because the queue was full",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campusdesk_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Middleware records request latency labelled by the matched route pattern.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
