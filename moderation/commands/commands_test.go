package commands

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/wggdev/ratebot/moderation/configstore"
	"github.com/wggdev/ratebot/moderation/event"
	"github.com/wggdev/ratebot/moderation/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	guildID  = "857689267744800800"
	actorID  = "1100000000000000042"
	textChan = "1326315584417435648"
	logChan  = "766791173129502751"
)

func testHandler() (*Handler, *configstore.MemStore, *notify.MemSink) {
	store := configstore.NewMemStore()
	sink := &notify.MemSink{}
	return NewHandler(slog.Default(), store, sink), store, sink
}

func inv(name string) *Invocation {
	return &Invocation{Name: name, GuildID: guildID, ActorID: actorID, CanManageChannels: true}
}

func (i *Invocation) withChannel(id string, kind event.ChannelKind) *Invocation {
	i.Channel = &ChannelRef{ID: id, Kind: kind}
	return i
}

func (i *Invocation) withInt(v int) *Invocation {
	i.Integer = &v
	return i
}

func (i *Invocation) withBool(v bool) *Invocation {
	i.Boolean = &v
	return i
}

func TestDefinitions(t *testing.T) {
	assert := assert.New(t)

	assert.Len(Definitions, 10)
	seen := map[string]bool{}
	for _, d := range Definitions {
		assert.False(seen[d.Name], d.Name)
		seen[d.Name] = true
		assert.NotEmpty(d.Description)
		assert.NotEmpty(d.Help)
	}
	d, ok := Lookup("set-slowmode-decay")
	assert.True(ok)
	assert.Equal("/set-slowmode-decay channel seconds", d.Usage())
	_, ok = Lookup("nope")
	assert.False(ok)
}

func TestPermissionAndChannelChecks(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	h, store, _ := testHandler()

	for _, d := range Definitions {
		if !d.Mutating {
			continue
		}
		i := inv(d.Name).withChannel(textChan, event.ChannelKindText).withInt(10).withBool(true)
		i.CanManageChannels = false
		r := h.Handle(ctx, i)
		assert.Equal("Permission Denied", r.Title, d.Name)
		assert.True(r.Ephemeral)

		i = inv(d.Name).withChannel(textChan, event.ChannelKindOther).withInt(10).withBool(true)
		r = h.Handle(ctx, i)
		assert.Equal("Invalid Channel", r.Title, d.Name)
		assert.Equal(StyleError, r.Style)
	}

	// nothing was written
	doc, err := store.Export(ctx)
	assert.NoError(err)
	assert.Equal(configstore.NewDocument(), doc)
}

func TestMissingOptionAndUnknown(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	h, _, _ := testHandler()

	r := h.Handle(ctx, inv("set-rate").withChannel(textChan, event.ChannelKindText))
	assert.Equal("Missing Option", r.Title)
	assert.Contains(r.Description, "msg_rate")

	r = h.Handle(ctx, inv("frobnicate"))
	assert.Equal("Unknown Command", r.Title)

	for _, id := range []string{"", "general", "-12", "0"} {
		r = h.Handle(ctx, inv("add-channel").withChannel(id, event.ChannelKindText))
		assert.Equal("Invalid Channel", r.Title, id)
	}
}

func TestSupervisionCommands(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	h, store, _ := testHandler()
	key := event.ChannelKey{GuildID: guildID, ChannelID: textChan}

	r := h.Handle(ctx, inv("channels"))
	assert.Equal("No Channels", r.Title)
	assert.True(r.Ephemeral)

	r = h.Handle(ctx, inv("remove-channel").withChannel(textChan, event.ChannelKindText))
	assert.Equal("Not Supervised", r.Title)

	r = h.Handle(ctx, inv("add-channel").withChannel(textChan, event.ChannelKindText))
	assert.Equal("Channel Added", r.Title)
	assert.Equal(StyleSuccess, r.Style)
	assert.False(r.Ephemeral)
	cs, _ := store.ChannelSettings(ctx, key)
	assert.True(cs.IsSupervised())

	// listing is allowed without Manage Channels
	i := inv("channels")
	i.CanManageChannels = false
	r = h.Handle(ctx, i)
	assert.Equal("Supervised Channels", r.Title)
	assert.Equal("<#"+textChan+">", r.Description)

	r = h.Handle(ctx, inv("remove-channel").withChannel(textChan, event.ChannelKindText))
	assert.Equal("Channel Removed", r.Title)
	cs, _ = store.ChannelSettings(ctx, key)
	assert.False(cs.IsSupervised())
}

func TestSettingCommands(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	h, store, _ := testHandler()
	key := event.ChannelKey{GuildID: guildID, ChannelID: textChan}

	r := h.Handle(ctx, inv("set-rate").withChannel(textChan, event.ChannelKindText).withInt(0))
	assert.Equal("Invalid Value", r.Title)
	r = h.Handle(ctx, inv("set-rate").withChannel(textChan, event.ChannelKindText).withInt(4))
	assert.Equal("Rate Set", r.Title)
	assert.Contains(r.Description, "**4**")

	for _, v := range []int{-1, 21601} {
		r = h.Handle(ctx, inv("set-max-slowmode").withChannel(textChan, event.ChannelKindText).withInt(v))
		assert.Equal("Invalid Value", r.Title, v)
	}
	r = h.Handle(ctx, inv("set-max-slowmode").withChannel(textChan, event.ChannelKindText).withInt(0))
	assert.Equal("Max Slowmode Set", r.Title)

	for _, v := range []int{4, 3601} {
		r = h.Handle(ctx, inv("set-slowmode-decay").withChannel(textChan, event.ChannelKindText).withInt(v))
		assert.Equal("Invalid Value", r.Title, v)
	}
	r = h.Handle(ctx, inv("set-slowmode-decay").withChannel(textChan, event.ChannelKindText).withInt(3600))
	assert.Equal("Slowmode Decay Set", r.Title)

	r = h.Handle(ctx, inv("set-log-channel").withChannel(logChan, event.ChannelKindText))
	assert.Equal("Log Channel Set", r.Title)

	cs, err := store.ChannelSettings(ctx, key)
	assert.NoError(err)
	assert.Equal(4, cs.Rate)
	assert.Equal(0, *cs.MaxSlowmode)
	assert.Equal(configstore.DefaultThrottleCeiling, cs.ThrottleCeiling())
	assert.Equal(3600, *cs.DecaySeconds)
	gs, err := store.GuildSettings(ctx, guildID)
	assert.NoError(err)
	assert.Equal(logChan, gs.LogChannelID)
}

func TestScamBusterCommand(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	h, store, sink := testHandler()
	key := event.ChannelKey{GuildID: guildID, ChannelID: textChan}

	r := h.Handle(ctx, inv("scam-buster").withChannel(textChan, event.ChannelKindText).withBool(false))
	assert.Equal("Not monitored", r.Title)
	assert.True(r.Ephemeral)

	// no log channel yet: enabled, but nothing to notify
	r = h.Handle(ctx, inv("scam-buster").withChannel(textChan, event.ChannelKindText).withBool(true))
	assert.Equal("Scam Buster enabled", r.Title)
	assert.Empty(sink.All())
	cs, _ := store.ChannelSettings(ctx, key)
	assert.True(cs.IsProtected())

	assert.NoError(store.SetLogChannel(ctx, guildID, logChan))
	r = h.Handle(ctx, inv("scam-buster").withChannel(textChan, event.ChannelKindText).withBool(false))
	assert.Equal("Scam Buster disabled", r.Title)
	got := sink.OfKind(notify.KindScamGateDisabled)
	require.Len(got, 1)
	assert.Equal(actorID, got[0].ActorID)
	assert.Equal(logChan, got[0].Destination)
	assert.Equal(key, got[0].Key)

	h.Handle(ctx, inv("scam-buster").withChannel(textChan, event.ChannelKindText).withBool(true))
	assert.Len(sink.OfKind(notify.KindScamGateEnabled), 1)
}

func TestStaticReplies(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	h, _, _ := testHandler()

	i := inv("help")
	i.CanManageChannels = false
	r := h.Handle(ctx, i)
	assert.Equal("Bot Commands", r.Title)
	assert.True(r.Ephemeral)
	assert.Len(r.Fields, len(Definitions))
	assert.Equal("/scam-buster channel enabled", r.Fields[7].Name)
	assert.Contains(r.Fields[5].Value, "0 restores the default")

	r = h.Handle(ctx, inv("get-started"))
	assert.Equal("Getting Started", r.Title)
	assert.Contains(r.Description, "/add-channel")
}

type failingStore struct {
	*configstore.MemStore
}

func (failingStore) SetSupervised(ctx context.Context, key event.ChannelKey, supervised bool) (bool, error) {
	return false, fmt.Errorf("disk full")
}

func TestStoreFailure(t *testing.T) {
	assert := assert.New(t)
	h := NewHandler(slog.Default(), failingStore{configstore.NewMemStore()}, nil)

	r := h.Handle(context.Background(), inv("add-channel").withChannel(textChan, event.ChannelKindText))
	assert.Equal(StyleError, r.Style)
	assert.True(r.Ephemeral)
	assert.Contains(r.Description, "error")
}
