package scamgate

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/wggdev/ratebot/moderation/actions"
	"github.com/wggdev/ratebot/moderation/clock"
	"github.com/wggdev/ratebot/moderation/event"
	"github.com/wggdev/ratebot/moderation/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var key = event.ChannelKey{GuildID: "857689267744800800", ChannelID: "1392172773111107594"}

func testMessage(content string) *event.Message {
	return &event.Message{
		Key:         key,
		ChannelKind: event.ChannelKindText,
		AuthorID:    "1100000000000000001",
		AuthorTag:   "spammer#0001",
		Content:     content,
	}
}

func TestAuthorize(t *testing.T) {
	assert := assert.New(t)

	msg := testMessage("hi")
	assert.Equal(NotApplicable, Authorize(msg, false))
	assert.Equal(Violation, Authorize(msg, true))

	msg.AuthorAdmin = true
	assert.Equal(Allowed, Authorize(msg, true))
	assert.Equal(NotApplicable, Authorize(msg, false))

	msg.AuthorAdmin = false
	msg.AuthorBot = true
	assert.Equal(NotApplicable, Authorize(msg, true))
}

func testGate(t *testing.T) (*Gate, *actions.FakeChannels, *notify.MemSink, *clock.Manual) {
	chans := actions.NewFakeChannels()
	sink := &notify.MemSink{}
	clk := clock.NewManual(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	return NewGate(slog.Default(), chans, sink, clk), chans, sink, clk
}

func TestEnforceBanThenUnban(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	g, chans, sink, clk := testGate(t)
	var results []UnbanResult
	g.OnUnban = func(r UnbanResult) { results = append(results, r) }

	inc := g.Enforce(ctx, testMessage("free nitro at example.com"), "766791173129502751")
	assert.True(inc.Banned)
	assert.NoError(inc.BanErr)
	assert.NotEmpty(inc.IncidentID)
	assert.NotNil(inc.Unban)

	_, bans, unbans := chans.Calls()
	require.Len(bans, 1)
	assert.Equal(BanReason, bans[0].Reason)
	assert.Equal(24*time.Hour, bans[0].DeleteWindow)
	assert.Equal(key.GuildID, bans[0].GuildID)
	assert.Empty(unbans)

	// ban notification goes out right away, before the unban
	got := sink.OfKind(notify.KindScamBan)
	require.Len(got, 1)
	assert.Equal("766791173129502751", got[0].Destination)
	assert.Equal("free nitro at example.com", got[0].Excerpt)
	assert.Equal(inc.IncidentID, got[0].IncidentID)

	clk.Advance(4 * time.Second)
	_, _, unbans = chans.Calls()
	assert.Empty(unbans)
	assert.Equal(1, clk.PendingTimers())

	clk.Advance(time.Second)
	_, _, unbans = chans.Calls()
	require.Len(unbans, 1)
	assert.Equal(UnbanReason, unbans[0].Reason)
	assert.Equal(0, clk.PendingTimers())
	require.Len(results, 1)
	assert.NoError(results[0].Err)
	assert.Equal(inc.IncidentID, results[0].IncidentID)
}

func TestEnforceBanFailure(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	g, chans, sink, clk := testGate(t)
	chans.BanErr = fmt.Errorf("ban: %w", actions.ErrMissingPermission)

	inc := g.Enforce(ctx, testMessage(""), "766791173129502751")
	assert.False(inc.Banned)
	assert.ErrorIs(inc.BanErr, actions.ErrMissingPermission)
	assert.Nil(inc.Unban)
	assert.Equal(0, clk.PendingTimers())

	assert.Empty(sink.OfKind(notify.KindScamBan))
	got := sink.OfKind(notify.KindScamBanFailed)
	require.Len(got, 1)
	assert.Contains(got[0].Reason, "Ban Members")
	assert.Equal("(no text content)", got[0].Excerpt)

	clk.Advance(time.Minute)
	_, _, unbans := chans.Calls()
	assert.Empty(unbans)
}

func TestEnforceUnbanFailure(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	g, chans, _, clk := testGate(t)
	chans.UnbanErr = fmt.Errorf("gateway unavailable")
	var results []UnbanResult
	g.OnUnban = func(r UnbanResult) { results = append(results, r) }

	g.Enforce(context.Background(), testMessage("hi"), "")
	clk.Advance(DefaultUnbanDelay)
	require.Len(results, 1)
	assert.ErrorContains(results[0].Err, "gateway unavailable")

	// nothing is retried
	clk.Advance(time.Minute)
	assert.Len(results, 1)
}

func TestEnforceNoLogChannel(t *testing.T) {
	assert := assert.New(t)

	g, chans, sink, _ := testGate(t)
	inc := g.Enforce(context.Background(), testMessage("hi"), "")
	assert.True(inc.Banned)
	assert.Empty(sink.All())
	_, bans, _ := chans.Calls()
	assert.Len(bans, 1)
}
