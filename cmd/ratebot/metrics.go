package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("ratebot")

var gatewayConnected = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ratebot_gateway_connected",
	Help: "1 while the discord gateway session is open",
})

var commandsRegistered = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ratebot_commands_registered",
	Help: "Number of slash commands registered at startup",
})
