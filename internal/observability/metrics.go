package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentsTotal counts payment submissions by kind and outcome.
	PaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcanum_payments_total",
		Help: "Payment submissions by kind (tip/unlock) and outcome (confirmed/failed/unconfirmed)",
	}, []string{"kind", "outcome"})

	// VotesTotal counts vote mutations by direction and operation.
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcanum_votes_total",
		Help: "Vote mutations by direction and operation (added/removed/switched)",
	}, []string{"direction", "operation"})

	// AccessDecisionsTotal counts visibility evaluations by reason.
	AccessDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcanum_access_decisions_total",
		Help: "Access decisions by reason",
	}, []string{"reason"})

	// DecodeFailuresTotal counts per-record decode failures.
	DecodeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arcanum_decode_failures_total",
		Help: "Encoded payloads that failed authentication or decoding",
	})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcanum_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// WebSocketRoomConnections is the gauge of connections per content room.
	WebSocketRoomConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arcanum_websocket_room_connections",
		Help: "Number of WebSocket connections per content room",
	}, []string{"content_id"})

	// WebSocketBackpressureDrops counts events dropped due to slow clients.
	WebSocketBackpressureDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arcanum_websocket_backpressure_drops_total",
		Help: "Engagement events dropped because a client buffer was full",
	})
)
