package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wggdev/ratebot/moderation/actions"
	"github.com/wggdev/ratebot/moderation/event"
	"github.com/wggdev/ratebot/moderation/notify"
)

// Walks every channel with escalated slowmode and takes one decay step for each whose quiet interval has elapsed.
//
// The live slowmode is re-read for every due channel, so manual edits made between sweeps are respected. Channels whose settings or live slowmode cannot be read are skipped and keep their state.
func (eng *Engine) Sweep(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("ratebot sweep exception", "err", r)
		}
	}()

	ctx, span := tracer.Start(ctx, "Sweep")
	defer span.End()

	start := eng.Clock.Now()
	keys := eng.Slowmode.Tracked()
	span.SetAttributes(attribute.Int("tracked", len(keys)))
	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}
		eng.decay(ctx, key, now)
	}
	trackedChannels.Set(float64(eng.Slowmode.Len()))
	sweepDuration.Observe(eng.Clock.Now().Sub(start).Seconds())
}

func (eng *Engine) decay(ctx context.Context, key event.ChannelKey, now time.Time) {
	logger := eng.Logger.With("guild", key.GuildID, "channel", key.ChannelID)

	cs, err := eng.Config.ChannelSettings(ctx, key)
	if err != nil {
		logger.Warn("failed to load channel settings for decay", "err", err)
		return
	}
	interval := cs.DecayInterval()
	if !eng.Slowmode.Due(key, now, interval) {
		return
	}

	current, err := eng.Channels.CurrentThrottle(ctx, key)
	if err != nil {
		logger.Warn("failed to read channel slowmode for decay", "err", err)
		actionErrorCount.WithLabelValues("read_throttle", actions.FailureKind(err)).Inc()
		return
	}

	out, err := eng.Slowmode.DecayTick(key, now, current, interval, func(level int) error {
		return eng.Channels.SetThrottle(ctx, key, level, DecayReason)
	})
	if err != nil {
		logger.Error("failed to decay slowmode", "err", err, "current", current, "reason", actions.FailureReason(err))
		actionErrorCount.WithLabelValues("set_throttle", actions.FailureKind(err)).Inc()
		return
	}
	if out.Stopped {
		logger.Debug("slowmode back at baseline", "level", out.Level)
	}
	if !out.Changed {
		return
	}
	slowmodeChangeCount.WithLabelValues("decay").Inc()
	logger.Info("slowmode decayed", "previous", out.Previous, "level", out.Level, "interval", interval)

	if lc := eng.logChannel(ctx, logger, key.GuildID); lc != "" {
		eng.send(ctx, logger, notify.Notification{
			Kind:        notify.KindDecayLog,
			Key:         key,
			Destination: lc,
			Level:       out.Level,
			Interval:    interval,
			At:          now,
		})
	}
}

// Processes messages and periodic sweeps until the context is cancelled or the message channel is closed.
//
// This is the only goroutine which touches engine state: messages and sweep ticks are handled strictly one at a time, in arrival order.
func (eng *Engine) Run(ctx context.Context, msgs <-chan *event.Message) error {
	interval := eng.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := eng.Clock.NewTicker(interval)
	defer ticker.Stop()

	eng.Logger.Info("engine running", "sweepInterval", interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				eng.Logger.Info("message stream closed, engine stopping")
				return nil
			}
			if err := eng.ProcessMessage(ctx, msg); err != nil {
				eng.Logger.Error("failed to process message", "err", err, "guild", msg.Key.GuildID, "channel", msg.Key.ChannelID)
			}
		case <-ticker.C():
			eng.Sweep(ctx, eng.Clock.Now())
		}
	}
}
