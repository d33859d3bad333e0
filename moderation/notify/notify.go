// Structured moderation notifications and the sinks which deliver them.
//
// The engine only builds Notification values; rendering (Discord embeds, Slack text) is the job of each Sink. Delivery is best-effort: callers log and discard Send errors.
package notify

import (
	"context"
	"time"

	"github.com/rivo/uniseg"

	"github.com/wggdev/ratebot/moderation/event"
)

type Kind string

const (
	// Posted into the flooded channel itself.
	KindRateWarning Kind = "rate-warning"
	// Posted to the guild log channel when slowmode is escalated.
	KindRateLog          Kind = "rate-log"
	KindDecayLog         Kind = "decay-log"
	KindScamBan          Kind = "scam-ban"
	KindScamBanFailed    Kind = "scam-ban-failed"
	KindScamGateEnabled  Kind = "scam-gate-enabled"
	KindScamGateDisabled Kind = "scam-gate-disabled"
)

// True for kinds addressed to the guild log channel rather than the monitored channel.
func (k Kind) IsLog() bool {
	return k != KindRateWarning
}

// Interface for a type that can deliver notifications.
type Sink interface {
	Send(ctx context.Context, n Notification) error
}

type Notification struct {
	Kind Kind
	// Channel the event concerns
	Key event.ChannelKey
	// Channel the notification should be posted to. For log kinds this is the guild's log channel.
	Destination string

	UserID  string
	UserTag string
	// Moderator who triggered an administrative change, if any
	ActorID string

	// Truncated message content which triggered the action
	Excerpt string
	// Slowmode level in effect after the action
	Level     int
	Threshold int
	// Quiet period which preceded a decay step
	Interval time.Duration
	// Normalized failure reason, for failure kinds
	Reason string
	// Correlates the log lines and notifications of a single scam-gate enforcement
	IncidentID string

	At time.Time
}

// Maximum number of grapheme clusters kept by Excerpt.
const MaxExcerpt = 3900

// Upper bound on a single Send made from the moderation loop. Sinks may not block the engine for longer than this.
const DefaultSendTimeout = 5 * time.Second

const emptyExcerpt = "(no text content)"

// Truncates message content for inclusion in a notification, without splitting grapheme clusters (multi-rune emoji and the like).
func Excerpt(content string, limit int) string {
	if content == "" {
		return emptyExcerpt
	}
	if len(content) <= limit {
		return content
	}
	gr := uniseg.NewGraphemes(content)
	n := 0
	end := 0
	for gr.Next() {
		if n == limit {
			return content[:end]
		}
		_, end = gr.Positions()
		n++
	}
	return content
}

// Sink which discards everything.
type NullSink struct{}

func (NullSink) Send(ctx context.Context, n Notification) error {
	return nil
}
