package discord

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var gatewayMessages = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ratebot_discord_messages_received",
	Help: "Number of guild message events received from the gateway",
})

var gatewayMessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ratebot_discord_messages_dropped",
	Help: "Number of message events not forwarded to the engine, by reason",
}, []string{"reason"})

var commandInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ratebot_discord_commands",
	Help: "Number of slash command invocations, by command name",
}, []string{"name"})

var notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ratebot_discord_notifications",
	Help: "Number of notification embeds posted, by kind and status",
}, []string{"kind", "status"})
