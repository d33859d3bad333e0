package configstore

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/wggdev/ratebot/moderation/event"
)

// Read-through cache in front of another Store. Every message event reads channel settings, so this keeps a remote backend off the hot path.
//
// Writes go through to the backing store and then purge the affected entries. A read that overlapped a purge is returned but not cached. Writes made by other processes directly against the backend are picked up once the TTL expires.
type CachedStore struct {
	Inner    Store
	channels *expirable.LRU[event.ChannelKey, ChannelSettings]
	guilds   *expirable.LRU[string, GuildSettings]

	// bumped by every purge; protects the check-then-add in the read path
	lk  sync.Mutex
	gen uint64
}

var _ Store = (*CachedStore)(nil)

func NewCachedStore(inner Store, capacity int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Inner:    inner,
		channels: expirable.NewLRU[event.ChannelKey, ChannelSettings](capacity, nil, ttl),
		guilds:   expirable.NewLRU[string, GuildSettings](capacity, nil, ttl),
	}
}

func (s *CachedStore) ChannelSettings(ctx context.Context, key event.ChannelKey) (ChannelSettings, error) {
	if cs, ok := s.channels.Get(key); ok {
		return cs, nil
	}
	gen := s.generation()
	cs, err := s.Inner.ChannelSettings(ctx, key)
	if err != nil {
		return ChannelSettings{}, err
	}
	s.lk.Lock()
	if s.gen == gen {
		s.channels.Add(key, cs)
	}
	s.lk.Unlock()
	return cs, nil
}

func (s *CachedStore) GuildSettings(ctx context.Context, guildID string) (GuildSettings, error) {
	if gs, ok := s.guilds.Get(guildID); ok {
		return gs, nil
	}
	gen := s.generation()
	gs, err := s.Inner.GuildSettings(ctx, guildID)
	if err != nil {
		return GuildSettings{}, err
	}
	s.lk.Lock()
	if s.gen == gen {
		s.guilds.Add(guildID, gs)
	}
	s.lk.Unlock()
	return gs, nil
}

// purge caches of any existing settings for a channel (and its guild, whose channel lists may change)
func (s *CachedStore) purge(key event.ChannelKey) {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.gen++
	s.channels.Remove(key)
	s.guilds.Remove(key.GuildID)
}

func (s *CachedStore) purgeGuild(guildID string) {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.gen++
	s.guilds.Remove(guildID)
}

func (s *CachedStore) generation() uint64 {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.gen
}

func (s *CachedStore) SetSupervised(ctx context.Context, key event.ChannelKey, supervised bool) (bool, error) {
	defer s.purge(key)
	return s.Inner.SetSupervised(ctx, key, supervised)
}

func (s *CachedStore) SetProtected(ctx context.Context, key event.ChannelKey, protected bool) (bool, error) {
	defer s.purge(key)
	return s.Inner.SetProtected(ctx, key, protected)
}

func (s *CachedStore) SetRateThreshold(ctx context.Context, key event.ChannelKey, rate int) error {
	defer s.purge(key)
	return s.Inner.SetRateThreshold(ctx, key, rate)
}

func (s *CachedStore) SetThrottleCeiling(ctx context.Context, key event.ChannelKey, seconds int) error {
	defer s.purge(key)
	return s.Inner.SetThrottleCeiling(ctx, key, seconds)
}

func (s *CachedStore) SetDecayInterval(ctx context.Context, key event.ChannelKey, seconds int) error {
	defer s.purge(key)
	return s.Inner.SetDecayInterval(ctx, key, seconds)
}

func (s *CachedStore) SetLogChannel(ctx context.Context, guildID, channelID string) error {
	defer s.purgeGuild(guildID)
	return s.Inner.SetLogChannel(ctx, guildID, channelID)
}
