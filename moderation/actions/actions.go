// Operations on the live chat platform which the moderation engine depends on.
//
// Implementations live with the platform adapter (eg, the `discord` package); the engine and its tests only see these interfaces.
package actions

import (
	"context"
	"errors"
	"time"

	"github.com/wggdev/ratebot/moderation/event"
)

// Returned (wrapped) by implementations when the platform refused an action because the bot lacks a permission, or the target outranks the bot in the role hierarchy.
var ErrMissingPermission = errors.New("missing permission or insufficient role hierarchy")

// Reads and writes the slowmode setting of live channels.
type Throttler interface {
	CurrentThrottle(ctx context.Context, key event.ChannelKey) (int, error)
	SetThrottle(ctx context.Context, key event.ChannelKey, seconds int, reason string) error
}

// Bans and unbans guild members.
type Moderator interface {
	// deleteWindow is the span of the member's prior messages which the platform should remove along with the ban.
	Ban(ctx context.Context, guildID, userID, reason string, deleteWindow time.Duration) error
	Unban(ctx context.Context, guildID, userID, reason string) error
}

type Channels interface {
	Throttler
	Moderator
}

const permissionNote = "Bot lacks **Ban Members** permission, or cannot ban this user (e.g. above bot in role hierarchy / server owner)."

// Human-readable explanation of an action failure, distinguishing permission problems from everything else.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrMissingPermission) {
		return permissionNote
	}
	return err.Error()
}

// Short machine-friendly failure category, for metrics labels and structured logs.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrMissingPermission):
		return "permission"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
