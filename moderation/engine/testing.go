package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/wggdev/ratebot/moderation/actions"
	"github.com/wggdev/ratebot/moderation/clock"
	"github.com/wggdev/ratebot/moderation/configstore"
	"github.com/wggdev/ratebot/moderation/event"
	"github.com/wggdev/ratebot/moderation/notify"
)

var (
	TestGuildID    = "857689267744800800"
	TestLogChannel = "766791173129502751"
	// supervised, rate 5, default ceiling and decay
	TestSupervised = event.ChannelKey{GuildID: TestGuildID, ChannelID: "1326315584417435648"}
	// protected and also supervised
	TestProtected = event.ChannelKey{GuildID: TestGuildID, ChannelID: "1392172773111107594"}
)

type TestFixture struct {
	Engine   *Engine
	Config   *configstore.MemStore
	Channels *actions.FakeChannels
	Sink     *notify.MemSink
	Clock    *clock.Manual
}

func EngineTestFixture() TestFixture {
	ctx := context.Background()
	doc := configstore.NewDocument()
	doc.SupervisedChannels[TestGuildID] = []string{TestSupervised.ChannelID, TestProtected.ChannelID}
	doc.ChannelRates[TestSupervised.String()] = 5
	doc.ChannelRates[TestProtected.String()] = 5
	doc.ScamBusterChannels[TestGuildID] = []string{TestProtected.ChannelID}
	doc.LogChannels[TestGuildID] = TestLogChannel

	config := configstore.NewMemStore()
	if err := config.Import(ctx, doc); err != nil {
		panic(err)
	}

	chans := actions.NewFakeChannels()
	sink := &notify.MemSink{}
	clk := clock.NewManual(time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))
	return TestFixture{
		Engine:   NewEngine(slog.Default(), config, chans, sink, clk),
		Config:   config,
		Channels: chans,
		Sink:     sink,
		Clock:    clk,
	}
}

// Builds a text-channel message from an ordinary member.
func NewTestMessage(key event.ChannelKey, userID, content string) *event.Message {
	return &event.Message{
		Key:         key,
		ChannelKind: event.ChannelKindText,
		AuthorID:    userID,
		AuthorTag:   "member-" + userID,
		Content:     content,
	}
}
