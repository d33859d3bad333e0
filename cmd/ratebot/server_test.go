package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/wggdev/ratebot/moderation/configstore"
	"github.com/wggdev/ratebot/moderation/event"
	"github.com/wggdev/ratebot/moderation/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIDs(t *testing.T) {
	assert := assert.New(t)
	assert.Nil(splitIDs(""))
	assert.Equal([]string{"1", "2"}, splitIDs(" 1, ,2 "))
}

func TestOpenStoreFile(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "save.json")
	key := event.ChannelKey{GuildID: "857689267744800800", ChannelID: "1326315584417435648"}

	store, err := openStore(StoreConfig{ConfigFile: p})
	require.NoError(t, err)
	_, err = store.SetSupervised(ctx, key, true)
	require.NoError(t, err)
	require.NoError(t, store.SetRateThreshold(ctx, key, 4))

	// a second open (eg, `config dump`) sees the persisted settings
	ex, err := openExporter(StoreConfig{ConfigFile: p})
	require.NoError(t, err)
	doc, err := ex.Export(ctx)
	require.NoError(t, err)
	assert.Equal([]string{key.ChannelID}, doc.SupervisedChannels[key.GuildID])
	assert.Equal(4, doc.ChannelRates[key.String()])

	doc2, err := configstore.LoadFileJSON(p)
	require.NoError(t, err)
	assert.Equal(doc, doc2)
}

func TestBuildNotifier(t *testing.T) {
	assert := assert.New(t)
	primary := &notify.MemSink{}

	assert.Same(primary, buildNotifier(primary, ""))

	multi, ok := buildNotifier(primary, "https://hooks.slack.invalid/x").(notify.MultiSink)
	require.True(t, ok)
	require.Len(t, multi, 2)
	limited, ok := multi[1].(*notify.LimitedSink)
	require.True(t, ok)
	assert.False(limited.Filter(notify.Notification{Kind: notify.KindRateWarning}))
	assert.True(limited.Filter(notify.Notification{Kind: notify.KindScamBan}))
}
