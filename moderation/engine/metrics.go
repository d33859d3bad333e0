package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("ratebot/engine")

var messageProcessDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "ratebot_message_duration_sec",
	Help: "Total duration of message event processing",
})

var messageProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ratebot_messages_processed",
	Help: "Number of message events processed, by outcome",
}, []string{"outcome"})

var messageErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ratebot_message_errors",
	Help: "Number of message events which failed processing",
})

var rateBreachCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ratebot_rate_breaches",
	Help: "Number of rate-window breaches detected",
})

var slowmodeChangeCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ratebot_slowmode_changes",
	Help: "Number of slowmode levels applied to live channels",
}, []string{"direction"})

var actionErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ratebot_action_errors",
	Help: "Number of live-channel actions which failed, by action and failure kind",
}, []string{"action", "kind"})

var scamGateCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ratebot_scamgate_enforcements",
	Help: "Number of protected-channel violations enforced, by outcome",
}, []string{"outcome"})

var scamGateUnbanCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ratebot_scamgate_unbans",
	Help: "Number of delayed unbans completed, by outcome",
}, []string{"outcome"})

var notifyErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ratebot_notify_errors",
	Help: "Number of notifications which could not be delivered",
}, []string{"kind"})

var sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "ratebot_sweep_duration_sec",
	Help: "Duration of slowmode decay sweeps",
})

var trackedChannels = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ratebot_tracked_channels",
	Help: "Number of channels with escalated slowmode awaiting decay",
})
