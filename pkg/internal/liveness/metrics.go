package liveness

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HeartbeatsTotal counts heartbeat deliveries.
	// Labels: result (delivered/failed)
	HeartbeatsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_heartbeats_total",
			Help: "Total number of heartbeat deliveries by result",
		},
		[]string{"result"},
	)

	// TransitionsTotal counts session state transitions by target state.
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_session_transitions_total",
			Help: "Total number of liveness session transitions by target state",
		},
		[]string{"state"},
	)

	ConnectionQualityTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_connection_quality_total",
			Help: "Connection quality classifications reported in heartbeats",
		},
		[]string{"quality"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "attendance_active_sessions",
			Help: "Number of liveness sessions currently running",
		},
	)
)
