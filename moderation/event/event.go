package event

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Identifies a single channel within a guild. Used as the lookup key for all per-channel moderation state.
type ChannelKey struct {
	GuildID   string
	ChannelID string
}

// Renders as "guild:channel", the same form used as a map key in persisted settings.
func (k ChannelKey) String() string {
	return k.GuildID + ":" + k.ChannelID
}

// Parses the "guild:channel" string form. Both halves must be valid snowflake identifiers.
func ParseChannelKey(raw string) (ChannelKey, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return ChannelKey{}, fmt.Errorf("channel key must be guild:channel: %q", raw)
	}
	if err := ValidateID(parts[0]); err != nil {
		return ChannelKey{}, fmt.Errorf("channel key guild: %w", err)
	}
	if err := ValidateID(parts[1]); err != nil {
		return ChannelKey{}, fmt.Errorf("channel key channel: %w", err)
	}
	return ChannelKey{GuildID: parts[0], ChannelID: parts[1]}, nil
}

// Checks that a platform identifier (guild, channel, or user) is a snowflake.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("empty identifier")
	}
	sf, err := snowflake.ParseString(id)
	if err != nil {
		return fmt.Errorf("invalid snowflake %q: %w", id, err)
	}
	if sf.Int64() <= 0 {
		return fmt.Errorf("invalid snowflake %q", id)
	}
	return nil
}

type ChannelKind int

const (
	ChannelKindOther ChannelKind = iota
	ChannelKindText
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelKindText:
		return "text"
	default:
		return "other"
	}
}

// A single message-received event, as delivered by the platform adapter.
//
// Authorization facts (bot flag, administrator permission) are resolved by the adapter before the event reaches the engine, so processing never needs to call back into the platform just to read them.
type Message struct {
	Key         ChannelKey
	ChannelKind ChannelKind

	AuthorID  string
	AuthorTag string
	// True for automated accounts (bots, webhooks). These are never gated or counted.
	AuthorBot bool
	// True if the author holds administrative authority in the guild.
	AuthorAdmin bool

	Content string
}
