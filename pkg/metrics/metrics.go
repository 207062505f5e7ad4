package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "identity_sync"

var (
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "webhook_events_total", Help: "Webhook deliveries by event type and outcome."},
		[]string{"type", "outcome"},
	)
	UserProvisioned = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "user_provisioned_total", Help: "Local user records created or refreshed, by source."},
		[]string{"source"},
	)
	RPCCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rpc_calls_total", Help: "RPC procedure invocations by procedure and result code."},
		[]string{"procedure", "code"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency by route and status.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route", "status"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(WebhookEvents)
	reg.MustRegister(UserProvisioned)
	reg.MustRegister(RPCCalls)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(RequestDuration)
}
