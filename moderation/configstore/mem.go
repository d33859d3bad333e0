package configstore

import (
	"context"
	"sync"

	"github.com/wggdev/ratebot/moderation/event"
)

// In-process store. Safe for concurrent use: command handlers write while the engine reads.
type MemStore struct {
	mu  sync.RWMutex
	doc *Document

	// called with the lock held after every successful mutation
	onChange func(doc *Document) error
}

var _ Store = (*MemStore)(nil)
var _ Exporter = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{doc: NewDocument()}
}

func (s *MemStore) ChannelSettings(ctx context.Context, key event.ChannelKey) (ChannelSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.channelSettings(key), nil
}

func (s *MemStore) GuildSettings(ctx context.Context, guildID string) (GuildSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.guildSettings(guildID), nil
}

func (s *MemStore) SetSupervised(ctx context.Context, key event.ChannelKey, supervised bool) (bool, error) {
	var changed bool
	err := s.mutate(func(d *Document) error {
		changed = setMember(d.SupervisedChannels, key, supervised)
		return nil
	})
	return changed, err
}

func (s *MemStore) SetProtected(ctx context.Context, key event.ChannelKey, protected bool) (bool, error) {
	var changed bool
	err := s.mutate(func(d *Document) error {
		changed = setMember(d.ScamBusterChannels, key, protected)
		return nil
	})
	return changed, err
}

func (s *MemStore) SetRateThreshold(ctx context.Context, key event.ChannelKey, rate int) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}
	return s.mutate(func(d *Document) error {
		d.ChannelRates[key.String()] = rate
		return nil
	})
}

func (s *MemStore) SetThrottleCeiling(ctx context.Context, key event.ChannelKey, seconds int) error {
	if err := ValidateThrottleCeiling(seconds); err != nil {
		return err
	}
	return s.mutate(func(d *Document) error {
		d.MaxSlowmodes[key.String()] = seconds
		return nil
	})
}

func (s *MemStore) SetDecayInterval(ctx context.Context, key event.ChannelKey, seconds int) error {
	if err := ValidateDecaySeconds(seconds); err != nil {
		return err
	}
	return s.mutate(func(d *Document) error {
		d.SlowmodeDecay[key.String()] = seconds
		return nil
	})
}

func (s *MemStore) SetLogChannel(ctx context.Context, guildID, channelID string) error {
	return s.mutate(func(d *Document) error {
		d.LogChannels[guildID] = channelID
		return nil
	})
}

func (s *MemStore) Export(ctx context.Context) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone(), nil
}

// Replaces the entire contents of the store.
func (s *MemStore) Import(ctx context.Context, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	return s.mutate(func(d *Document) error {
		*d = *doc.Clone()
		return nil
	})
}

// Applies f to a copy of the document, and only swaps it in if f and the change hook both succeed.
func (s *MemStore) mutate(f func(d *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.doc.Clone()
	if err := f(next); err != nil {
		return err
	}
	if s.onChange != nil {
		if err := s.onChange(next); err != nil {
			return err
		}
	}
	s.doc = next
	return nil
}
