package actions

import (
	"context"
	"sync"
	"time"

	"github.com/wggdev/ratebot/moderation/event"
)

type ThrottleCall struct {
	Key     event.ChannelKey
	Seconds int
	Reason  string
}

type BanCall struct {
	GuildID      string
	UserID       string
	Reason       string
	DeleteWindow time.Duration
}

// In-memory Channels implementation which records every call. Intended for tests.
type FakeChannels struct {
	mu sync.Mutex

	Throttles map[event.ChannelKey]int

	ThrottleCalls []ThrottleCall
	Bans          []BanCall
	Unbans        []BanCall

	// Injected failures
	ReadErr  error
	SetErr   error
	BanErr   error
	UnbanErr error
}

var _ Channels = (*FakeChannels)(nil)

func NewFakeChannels() *FakeChannels {
	return &FakeChannels{
		Throttles: make(map[event.ChannelKey]int),
	}
}

func (f *FakeChannels) CurrentThrottle(ctx context.Context, key event.ChannelKey) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadErr != nil {
		return 0, f.ReadErr
	}
	return f.Throttles[key], nil
}

func (f *FakeChannels) SetThrottle(ctx context.Context, key event.ChannelKey, seconds int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetErr != nil {
		return f.SetErr
	}
	f.Throttles[key] = seconds
	f.ThrottleCalls = append(f.ThrottleCalls, ThrottleCall{Key: key, Seconds: seconds, Reason: reason})
	return nil
}

func (f *FakeChannels) Ban(ctx context.Context, guildID, userID, reason string, deleteWindow time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BanErr != nil {
		return f.BanErr
	}
	f.Bans = append(f.Bans, BanCall{GuildID: guildID, UserID: userID, Reason: reason, DeleteWindow: deleteWindow})
	return nil
}

func (f *FakeChannels) Unban(ctx context.Context, guildID, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UnbanErr != nil {
		return f.UnbanErr
	}
	f.Unbans = append(f.Unbans, BanCall{GuildID: guildID, UserID: userID, Reason: reason})
	return nil
}

// Sets the live throttle without recording a call, as if a moderator edited the channel by hand.
func (f *FakeChannels) SetLive(key event.ChannelKey, seconds int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Throttles[key] = seconds
}

func (f *FakeChannels) Throttle(key event.ChannelKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Throttles[key]
}

func (f *FakeChannels) Calls() (throttles []ThrottleCall, bans []BanCall, unbans []BanCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ThrottleCall(nil), f.ThrottleCalls...), append([]BanCall(nil), f.Bans...), append([]BanCall(nil), f.Unbans...)
}
