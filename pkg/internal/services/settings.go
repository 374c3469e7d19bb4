package services

import (
	"time"

	"git.solsynth.dev/hypernet/attendance/pkg/internal/attendance"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/liveness"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/scheduler"
	"github.com/spf13/viper"
)

func seconds(key string) time.Duration {
	return time.Duration(viper.GetFloat64(key) * float64(time.Second))
}

// LivenessConfig reads the session timing policy. Missing keys fall back to
// the liveness defaults.
func LivenessConfig() liveness.Config {
	return liveness.Config{
		HeartbeatInterval:   seconds("attendance.heartbeat_interval"),
		MaxIdleTime:         seconds("attendance.max_idle_time"),
		MaxMissedHeartbeats: viper.GetInt("attendance.max_missed_heartbeats"),
		DeliveryTimeout:     seconds("attendance.delivery_timeout"),
	}
}

func AttendanceThreshold() float64 {
	if !viper.IsSet("attendance.threshold") {
		return attendance.DefaultThreshold
	}
	return viper.GetFloat64("attendance.threshold")
}

// NewProber probes the configured endpoint. Without an endpoint sessions
// report a steady good connection.
func NewProber(sched scheduler.Scheduler) liveness.Prober {
	endpoint := viper.GetString("attendance.probe_endpoint")
	if endpoint == "" {
		return nil
	}
	return liveness.NewRoundTripProber(
		liveness.HTTPRoundTrip(endpoint),
		seconds("attendance.probe_timeout"),
		sched,
	)
}
