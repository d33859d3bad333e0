// Authorization gate for protected ("scam buster") channels.
//
// Only administrators may post in a protected channel. Anybody else is banned, with their recent messages deleted, and then unbanned a few seconds later.
package scamgate

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wggdev/ratebot/moderation/actions"
	"github.com/wggdev/ratebot/moderation/clock"
	"github.com/wggdev/ratebot/moderation/event"
	"github.com/wggdev/ratebot/moderation/notify"
)

const (
	DefaultUnbanDelay   = 5 * time.Second
	DefaultDeleteWindow = 24 * time.Hour

	BanReason   = "Scam Buster: unauthorized message in protected channel"
	UnbanReason = "Scam Buster: temporary ban ended"
)

type Decision int

const (
	// Channel is not protected, or the author is automated
	NotApplicable Decision = iota
	Allowed
	Violation
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Violation:
		return "violation"
	default:
		return "not-applicable"
	}
}

// Classifies a message posted in a channel with the given protection status.
func Authorize(msg *event.Message, protected bool) Decision {
	if !protected || msg.AuthorBot {
		return NotApplicable
	}
	if msg.AuthorAdmin {
		return Allowed
	}
	return Violation
}

// Result of a delayed unban, delivered to Gate.OnUnban.
type UnbanResult struct {
	IncidentID string
	GuildID    string
	UserID     string
	Err        error
}

type Gate struct {
	Logger    *slog.Logger
	Moderator actions.Moderator
	Notifier  notify.Sink
	Scheduler clock.Clock

	UnbanDelay   time.Duration
	DeleteWindow time.Duration
	SendTimeout  time.Duration

	// Completion callback for the delayed unban. Runs on the scheduler's goroutine, so it must not touch engine state.
	OnUnban func(UnbanResult)
}

func NewGate(logger *slog.Logger, mod actions.Moderator, notifier notify.Sink, sched clock.Clock) *Gate {
	return &Gate{
		Logger:       logger,
		Moderator:    mod,
		Notifier:     notifier,
		Scheduler:    sched,
		UnbanDelay:   DefaultUnbanDelay,
		DeleteWindow: DefaultDeleteWindow,
		SendTimeout:  notify.DefaultSendTimeout,
	}
}

// Outcome of enforcing a single violation
type Enforcement struct {
	IncidentID string
	Banned     bool
	BanErr     error
	// Set when the unban was scheduled
	Unban clock.Timer
}

// Bans the author of a violating message and schedules the unban.
//
// `logChannel` is the guild's log channel; when empty, notifications are skipped. Failures are reported through notifications and the returned Enforcement.
func (g *Gate) Enforce(ctx context.Context, msg *event.Message, logChannel string) Enforcement {
	inc := Enforcement{IncidentID: uuid.NewString()}
	logger := g.Logger.With("incident", inc.IncidentID, "guild", msg.Key.GuildID, "channel", msg.Key.ChannelID, "user", msg.AuthorID)

	n := notify.Notification{
		Key:         msg.Key,
		Destination: logChannel,
		UserID:      msg.AuthorID,
		UserTag:     msg.AuthorTag,
		Excerpt:     notify.Excerpt(msg.Content, notify.MaxExcerpt),
		IncidentID:  inc.IncidentID,
		At:          g.Scheduler.Now(),
	}

	if err := g.Moderator.Ban(ctx, msg.Key.GuildID, msg.AuthorID, BanReason, g.DeleteWindow); err != nil {
		inc.BanErr = err
		logger.Warn("scam gate ban failed", "err", err, "kind", actions.FailureKind(err))
		n.Kind = notify.KindScamBanFailed
		n.Reason = actions.FailureReason(err)
		g.send(ctx, logger, n)
		return inc
	}
	inc.Banned = true
	logger.Info("scam gate banned member", "unbanDelay", g.UnbanDelay)

	guildID, userID, incidentID := msg.Key.GuildID, msg.AuthorID, inc.IncidentID
	inc.Unban = g.Scheduler.AfterFunc(g.UnbanDelay, func() {
		// the triggering event's context may be long gone by now
		err := g.Moderator.Unban(context.Background(), guildID, userID, UnbanReason)
		if err != nil {
			logger.Error("scam gate unban failed", "err", err, "kind", actions.FailureKind(err))
		} else {
			logger.Info("scam gate unbanned member")
		}
		if g.OnUnban != nil {
			g.OnUnban(UnbanResult{IncidentID: incidentID, GuildID: guildID, UserID: userID, Err: err})
		}
	})

	n.Kind = notify.KindScamBan
	g.send(ctx, logger, n)
	return inc
}

func (g *Gate) send(ctx context.Context, logger *slog.Logger, n notify.Notification) {
	if n.Destination == "" || g.Notifier == nil {
		return
	}
	timeout := g.SendTimeout
	if timeout <= 0 {
		timeout = notify.DefaultSendTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := g.Notifier.Send(ctx, n); err != nil {
		logger.Debug("failed to send scam gate notification", "err", err, "kind", n.Kind)
	}
}
