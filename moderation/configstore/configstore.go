package configstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wggdev/ratebot/moderation/event"
)

const (
	DefaultThrottleCeiling = 30
	MinThrottleCeiling     = 0
	MaxThrottleCeiling     = 21600

	DefaultDecaySeconds = 20
	MinDecaySeconds     = 5
	MaxDecaySeconds     = 3600
)

var ErrOutOfRange = errors.New("value out of range")

// Read side of the configuration store, as used by the moderation engine while processing events.
type Reader interface {
	ChannelSettings(ctx context.Context, key event.ChannelKey) (ChannelSettings, error)
	GuildSettings(ctx context.Context, guildID string) (GuildSettings, error)
}

// Full configuration store, including the mutations performed by administrative commands.
//
// Set* methods validate their inputs and durably persist before returning (for backends which persist at all). The boolean returned by SetSupervised and SetProtected reports whether membership actually changed.
type Store interface {
	Reader
	SetSupervised(ctx context.Context, key event.ChannelKey, supervised bool) (bool, error)
	SetProtected(ctx context.Context, key event.ChannelKey, protected bool) (bool, error)
	SetRateThreshold(ctx context.Context, key event.ChannelKey, rate int) error
	SetThrottleCeiling(ctx context.Context, key event.ChannelKey, seconds int) error
	SetDecayInterval(ctx context.Context, key event.ChannelKey, seconds int) error
	SetLogChannel(ctx context.Context, guildID, channelID string) error
}

// Stores which can dump and load their entire contents.
type Exporter interface {
	Export(ctx context.Context) (*Document, error)
	Import(ctx context.Context, doc *Document) error
}

// Settings for one channel. Zero values mean "not configured".
type ChannelSettings struct {
	Supervised bool
	Protected  bool
	// Messages per window; zero if unset
	Rate int
	// Seconds; nil if unset
	MaxSlowmode *int
	// Seconds; nil if unset
	DecaySeconds *int
}

func (s ChannelSettings) IsSupervised() bool {
	return s.Supervised
}

func (s ChannelSettings) IsProtected() bool {
	return s.Protected
}

// Configured message rate threshold, if any.
func (s ChannelSettings) RateThreshold() (int, bool) {
	if s.Rate <= 0 {
		return 0, false
	}
	return s.Rate, true
}

// Maximum slowmode level automatic escalation may reach, in seconds. A stored 0 means the default.
func (s ChannelSettings) ThrottleCeiling() int {
	if s.MaxSlowmode == nil || *s.MaxSlowmode <= 0 {
		return DefaultThrottleCeiling
	}
	return *s.MaxSlowmode
}

// Quiet period required before each slowmode decay step.
func (s ChannelSettings) DecayInterval() time.Duration {
	secs := DefaultDecaySeconds
	if s.DecaySeconds != nil && *s.DecaySeconds > 0 {
		secs = *s.DecaySeconds
	}
	return time.Duration(secs) * time.Second
}

type GuildSettings struct {
	LogChannelID string
	// Supervised channel IDs, sorted
	Supervised []string
	// Protected (scam-gate) channel IDs, sorted
	Protected []string
}

func (g GuildSettings) LogChannel() (string, bool) {
	return g.LogChannelID, g.LogChannelID != ""
}

func ValidateRate(rate int) error {
	if rate < 1 {
		return fmt.Errorf("%w: rate must be at least 1 message per interval", ErrOutOfRange)
	}
	return nil
}

func ValidateThrottleCeiling(seconds int) error {
	if seconds < MinThrottleCeiling || seconds > MaxThrottleCeiling {
		return fmt.Errorf("%w: slowmode must be between %d and %d seconds", ErrOutOfRange, MinThrottleCeiling, MaxThrottleCeiling)
	}
	return nil
}

func ValidateDecaySeconds(seconds int) error {
	if seconds < MinDecaySeconds || seconds > MaxDecaySeconds {
		return fmt.Errorf("%w: decay interval must be between %d and %d seconds", ErrOutOfRange, MinDecaySeconds, MaxDecaySeconds)
	}
	return nil
}

func intPtr(v int) *int {
	return &v
}
