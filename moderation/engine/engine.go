package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wggdev/ratebot/moderation/actions"
	"github.com/wggdev/ratebot/moderation/clock"
	"github.com/wggdev/ratebot/moderation/configstore"
	"github.com/wggdev/ratebot/moderation/event"
	"github.com/wggdev/ratebot/moderation/notify"
	"github.com/wggdev/ratebot/moderation/ratewindow"
	"github.com/wggdev/ratebot/moderation/scamgate"
	"github.com/wggdev/ratebot/moderation/slowmode"
)

const (
	DefaultSweepInterval = 5 * time.Second

	EscalateReason = "Rate limit exceeded by users"
	DecayReason    = "Slowmode decay after inactivity"
)

// runtime for rate monitoring, slowmode escalation and decay, and the protected-channel gate.
//
// Rate windows and escalation state are owned by a single goroutine (see Run) and are not locked. Use NewEngine; several fields must not be nil.
type Engine struct {
	Logger   *slog.Logger
	Config   configstore.Reader
	Channels actions.Channels
	Notifier notify.Sink
	Clock    clock.Clock

	Rates    *ratewindow.Monitor
	Slowmode *slowmode.Controller
	Gate     *scamgate.Gate

	SweepInterval time.Duration
	// Deadline for each notification Send
	SendTimeout   time.Duration
}

func NewEngine(logger *slog.Logger, config configstore.Reader, channels actions.Channels, notifier notify.Sink, clk clock.Clock) *Engine {
	if notifier == nil {
		notifier = notify.NullSink{}
	}
	gate := scamgate.NewGate(logger, channels, notifier, clk)
	gate.OnUnban = func(res scamgate.UnbanResult) {
		if res.Err != nil {
			scamGateUnbanCount.WithLabelValues("error").Inc()
			actionErrorCount.WithLabelValues("unban", actions.FailureKind(res.Err)).Inc()
			return
		}
		scamGateUnbanCount.WithLabelValues("ok").Inc()
	}
	return &Engine{
		Logger:        logger,
		Config:        config,
		Channels:      channels,
		Notifier:      notifier,
		Clock:         clk,
		Rates:         ratewindow.NewMonitor(),
		Slowmode:      slowmode.NewController(),
		Gate:          gate,
		SweepInterval: DefaultSweepInterval,
		SendTimeout:   notify.DefaultSendTimeout,
	}
}

// Handles a single inbound message. Must only be called from the goroutine which owns the engine.
//
// Only configuration lookup failures are returned as errors; failed live-channel actions are logged and counted, and leave state ready for the next breach or sweep to retry.
func (eng *Engine) ProcessMessage(ctx context.Context, msg *event.Message) error {
	// similar to an HTTP server, we want to recover any panics from processing a single event
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("ratebot message processing exception", "err", r, "guild", msg.Key.GuildID, "channel", msg.Key.ChannelID)
			messageErrorCount.Inc()
		}
	}()

	ctx, span := tracer.Start(ctx, "ProcessMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("guild", msg.Key.GuildID),
		attribute.String("channel", msg.Key.ChannelID),
	)

	start := eng.Clock.Now()
	defer func() {
		messageProcessDuration.Observe(eng.Clock.Now().Sub(start).Seconds())
	}()

	outcome, err := eng.processMessage(ctx, msg, start)
	if err != nil {
		messageErrorCount.Inc()
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	messageProcessCount.WithLabelValues(outcome).Inc()
	return nil
}

func (eng *Engine) processMessage(ctx context.Context, msg *event.Message, now time.Time) (string, error) {
	if msg.ChannelKind != event.ChannelKindText {
		return "ignored", nil
	}
	logger := eng.Logger.With("guild", msg.Key.GuildID, "channel", msg.Key.ChannelID)

	cs, err := eng.Config.ChannelSettings(ctx, msg.Key)
	if err != nil {
		return "", fmt.Errorf("loading channel settings: %w", err)
	}

	switch scamgate.Authorize(msg, cs.IsProtected()) {
	case scamgate.Violation:
		eng.enforceGate(ctx, logger, msg)
		return "gated", nil
	case scamgate.Allowed:
		logger.Debug("administrator message in protected channel", "user", msg.AuthorID)
	}

	if msg.AuthorBot || !cs.IsSupervised() {
		return "ignored", nil
	}
	threshold, ok := cs.RateThreshold()
	if !ok {
		return "ignored", nil
	}
	if eng.Rates.OnMessage(msg.Key, threshold, now) != ratewindow.Breach {
		return "counted", nil
	}
	rateBreachCount.Inc()
	eng.escalate(ctx, logger, msg, cs, threshold, now)
	return "breach", nil
}

func (eng *Engine) enforceGate(ctx context.Context, logger *slog.Logger, msg *event.Message) {
	logChannel := eng.logChannel(ctx, logger, msg.Key.GuildID)
	inc := eng.Gate.Enforce(ctx, msg, logChannel)
	if inc.BanErr != nil {
		scamGateCount.WithLabelValues("ban_failed").Inc()
		actionErrorCount.WithLabelValues("ban", actions.FailureKind(inc.BanErr)).Inc()
		return
	}
	scamGateCount.WithLabelValues("banned").Inc()
}

func (eng *Engine) escalate(ctx context.Context, logger *slog.Logger, msg *event.Message, cs configstore.ChannelSettings, threshold int, now time.Time) {
	current, err := eng.Channels.CurrentThrottle(ctx, msg.Key)
	if err != nil {
		logger.Error("failed to read channel slowmode", "err", err)
		actionErrorCount.WithLabelValues("read_throttle", actions.FailureKind(err)).Inc()
		return
	}

	out, err := eng.Slowmode.OnBreach(msg.Key, now, current, cs.ThrottleCeiling(), func(level int) error {
		return eng.Channels.SetThrottle(ctx, msg.Key, level, EscalateReason)
	})
	if err != nil {
		logger.Error("failed to escalate slowmode", "err", err, "current", current, "reason", actions.FailureReason(err))
		actionErrorCount.WithLabelValues("set_throttle", actions.FailureKind(err)).Inc()
		return
	}
	if out.Changed {
		slowmodeChangeCount.WithLabelValues("escalate").Inc()
	}
	logger.Info("channel exceeded message rate", "threshold", threshold, "previous", out.Previous, "level", out.Level, "user", msg.AuthorID)

	n := notify.Notification{
		Kind:        notify.KindRateWarning,
		Key:         msg.Key,
		Destination: msg.Key.ChannelID,
		UserID:      msg.AuthorID,
		UserTag:     msg.AuthorTag,
		Level:       out.Level,
		Threshold:   threshold,
		At:          now,
	}
	eng.send(ctx, logger, n)

	if lc := eng.logChannel(ctx, logger, msg.Key.GuildID); lc != "" {
		n.Kind = notify.KindRateLog
		n.Destination = lc
		eng.send(ctx, logger, n)
	}
}

// Returns the guild log channel, or empty string if none is configured or it could not be loaded.
func (eng *Engine) logChannel(ctx context.Context, logger *slog.Logger, guildID string) string {
	gs, err := eng.Config.GuildSettings(ctx, guildID)
	if err != nil {
		logger.Warn("failed to load guild settings", "err", err)
		return ""
	}
	lc, _ := gs.LogChannel()
	return lc
}

func (eng *Engine) send(ctx context.Context, logger *slog.Logger, n notify.Notification) {
	timeout := eng.SendTimeout
	if timeout <= 0 {
		timeout = notify.DefaultSendTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := eng.Notifier.Send(ctx, n); err != nil {
		logger.Debug("failed to send notification", "err", err, "kind", n.Kind, "destination", n.Destination)
		notifyErrorCount.WithLabelValues(string(n.Kind)).Inc()
	}
}
