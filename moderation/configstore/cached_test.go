package configstore

import (
	"context"
	"testing"
	"time"

	"github.com/wggdev/ratebot/moderation/event"

	"github.com/stretchr/testify/assert"
)

type countingStore struct {
	*MemStore
	channelReads int
	guildReads   int

	// runs once, after the backing read and before the result is returned
	afterRead func()
}

func (s *countingStore) ChannelSettings(ctx context.Context, key event.ChannelKey) (ChannelSettings, error) {
	s.channelReads++
	cs, err := s.MemStore.ChannelSettings(ctx, key)
	s.runAfterRead()
	return cs, err
}

func (s *countingStore) GuildSettings(ctx context.Context, guildID string) (GuildSettings, error) {
	s.guildReads++
	gs, err := s.MemStore.GuildSettings(ctx, guildID)
	s.runAfterRead()
	return gs, err
}

func (s *countingStore) runAfterRead() {
	if f := s.afterRead; f != nil {
		s.afterRead = nil
		f()
	}
}

func TestCachedStoreBasics(t *testing.T) {
	testStoreBasics(t, NewCachedStore(NewMemStore(), 100, time.Hour))
}

func TestCachedStoreReadThrough(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	inner := &countingStore{MemStore: NewMemStore()}
	s := NewCachedStore(inner, 100, time.Hour)

	for i := 0; i < 5; i++ {
		_, err := s.ChannelSettings(ctx, key1)
		assert.NoError(err)
		_, err = s.GuildSettings(ctx, guild1)
		assert.NoError(err)
	}
	assert.Equal(1, inner.channelReads)
	assert.Equal(1, inner.guildReads)

	// a write purges the channel and its guild
	assert.NoError(s.SetRateThreshold(ctx, key1, 4))
	cs, err := s.ChannelSettings(ctx, key1)
	assert.NoError(err)
	assert.Equal(4, cs.Rate)
	assert.Equal(2, inner.channelReads)

	_, err = s.SetSupervised(ctx, key1, true)
	assert.NoError(err)
	gs, err := s.GuildSettings(ctx, guild1)
	assert.NoError(err)
	assert.Equal([]string{key1.ChannelID}, gs.Supervised)
	assert.Equal(2, inner.guildReads)

	// other channels are unaffected
	_, err = s.ChannelSettings(ctx, key2)
	assert.NoError(err)
	_, err = s.ChannelSettings(ctx, key2)
	assert.NoError(err)
	assert.Equal(3, inner.channelReads)
}

func TestCachedStoreExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	inner := &countingStore{MemStore: NewMemStore()}
	s := NewCachedStore(inner, 100, 10*time.Millisecond)

	_, err := s.ChannelSettings(ctx, key1)
	assert.NoError(err)
	time.Sleep(50 * time.Millisecond)
	_, err = s.ChannelSettings(ctx, key1)
	assert.NoError(err)
	assert.Equal(2, inner.channelReads)
}

func TestCachedStoreWriteDuringRead(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	inner := &countingStore{MemStore: NewMemStore()}
	s := NewCachedStore(inner, 100, time.Hour)
	assert.NoError(s.SetRateThreshold(ctx, key1, 3))

	// a command lands between the backing read and the cache fill
	inner.afterRead = func() {
		assert.NoError(s.SetRateThreshold(ctx, key1, 9))
	}
	cs, err := s.ChannelSettings(ctx, key1)
	assert.NoError(err)
	assert.Equal(3, cs.Rate)

	cs, err = s.ChannelSettings(ctx, key1)
	assert.NoError(err)
	assert.Equal(9, cs.Rate)
	assert.Equal(2, inner.channelReads)

	// once settled, reads are cached again
	_, err = s.ChannelSettings(ctx, key1)
	assert.NoError(err)
	assert.Equal(2, inner.channelReads)

	inner.afterRead = func() {
		assert.NoError(s.SetLogChannel(ctx, guild1, key2.ChannelID))
	}
	gs, err := s.GuildSettings(ctx, guild1)
	assert.NoError(err)
	assert.Empty(gs.LogChannelID)

	gs, err = s.GuildSettings(ctx, guild1)
	assert.NoError(err)
	assert.Equal(key2.ChannelID, gs.LogChannelID)
	assert.Equal(2, inner.guildReads)
}
