// Discord adapter: gateway event ingestion, live channel actions, notification rendering, and slash-command plumbing.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/wggdev/ratebot/moderation/actions"
	"github.com/wggdev/ratebot/moderation/event"
)

// Discord only accepts whole days of message history to delete with a ban, up to a week.
const maxBanDeleteDays = 7

// Wraps a gateway session, and implements the live channel actions the moderation engine needs.
type Client struct {
	Session *discordgo.Session
	Logger  *slog.Logger
}

var _ actions.Channels = (*Client)(nil)

func NewClient(token string, logger *slog.Logger) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("discord bot token is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	// handlers run on the gateway reader goroutine, which preserves message arrival order
	s.SyncEvents = true
	s.StateEnabled = true
	return &Client{
		Session: s,
		Logger:  logger.With("system", "discord"),
	}, nil
}

func (c *Client) Open() error {
	if err := c.Session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	c.Logger.Info("discord gateway connected")
	return nil
}

func (c *Client) Close() error {
	return c.Session.Close()
}

// Looks up a channel in the gateway state cache, falling back to the REST API.
func (c *Client) channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if c.Session.State != nil {
		if ch, err := c.Session.State.Channel(channelID); err == nil {
			return ch, nil
		}
	}
	ch, err := c.Session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, normalizeErr(err)
	}
	return ch, nil
}

func (c *Client) CurrentThrottle(ctx context.Context, key event.ChannelKey) (int, error) {
	ch, err := c.channel(ctx, key.ChannelID)
	if err != nil {
		return 0, fmt.Errorf("reading channel %s: %w", key.ChannelID, err)
	}
	return ch.RateLimitPerUser, nil
}

func (c *Client) SetThrottle(ctx context.Context, key event.ChannelKey, seconds int, reason string) error {
	ch, err := c.Session.ChannelEdit(key.ChannelID, &discordgo.ChannelEdit{
		RateLimitPerUser: &seconds,
	}, discordgo.WithAuditLogReason(reason), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("setting slowmode on %s: %w", key.ChannelID, normalizeErr(err))
	}
	// the CHANNEL_UPDATE event may lag behind; don't let the next read see the old value
	if c.Session.State != nil && ch != nil {
		if err := c.Session.State.ChannelAdd(ch); err != nil {
			c.Logger.Debug("failed to update channel state", "channel", key.ChannelID, "err", err)
		}
	}
	return nil
}

func (c *Client) Ban(ctx context.Context, guildID, userID, reason string, deleteWindow time.Duration) error {
	err := c.Session.GuildBanCreateWithReason(guildID, userID, reason, banDeleteDays(deleteWindow), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("banning %s: %w", userID, normalizeErr(err))
	}
	return nil
}

func (c *Client) Unban(ctx context.Context, guildID, userID, reason string) error {
	err := c.Session.GuildBanDelete(guildID, userID, discordgo.WithAuditLogReason(reason), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("unbanning %s: %w", userID, normalizeErr(err))
	}
	return nil
}

func banDeleteDays(window time.Duration) int {
	days := int(window / (24 * time.Hour))
	return max(0, min(days, maxBanDeleteDays))
}

// Maps permission-style REST failures onto actions.ErrMissingPermission.
func normalizeErr(err error) error {
	var rerr *discordgo.RESTError
	if !errors.As(err, &rerr) {
		return err
	}
	if rerr.Message != nil {
		switch rerr.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return fmt.Errorf("%w: %s", actions.ErrMissingPermission, rerr.Message.Message)
		}
	}
	if rerr.Response != nil && rerr.Response.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s", actions.ErrMissingPermission, rerr.Error())
	}
	return err
}
