package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/wggdev/ratebot/moderation/event"
)

func channelKind(t discordgo.ChannelType) event.ChannelKind {
	if t == discordgo.ChannelTypeGuildText {
		return event.ChannelKindText
	}
	return event.ChannelKindOther
}

// Converts a gateway message into an engine event. Returns nil (and no error) for messages the engine never looks at, like direct messages.
//
// Administrator status is resolved here, so a permission lookup failure drops the message rather than risking a ban of an administrator.
func (c *Client) messageFromEvent(ctx context.Context, m *discordgo.MessageCreate) (*event.Message, error) {
	if m.GuildID == "" || m.Author == nil {
		return nil, nil
	}
	msg := &event.Message{
		Key:       event.ChannelKey{GuildID: m.GuildID, ChannelID: m.ChannelID},
		AuthorID:  m.Author.ID,
		AuthorTag: m.Author.String(),
		AuthorBot: m.Author.Bot || m.WebhookID != "",
		Content:   m.Content,
	}

	ch, err := c.channel(ctx, m.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("resolving channel: %w", err)
	}
	msg.ChannelKind = channelKind(ch.Type)
	if msg.AuthorBot || msg.ChannelKind != event.ChannelKindText {
		return msg, nil
	}

	perms, err := c.messagePermissions(m.Message)
	if err != nil {
		return nil, fmt.Errorf("resolving author permissions: %w", err)
	}
	msg.AuthorAdmin = perms&discordgo.PermissionAdministrator != 0
	return msg, nil
}

func (c *Client) messagePermissions(m *discordgo.Message) (int64, error) {
	if c.Session.State != nil {
		if perms, err := c.Session.State.MessagePermissions(m); err == nil {
			return perms, nil
		}
	}
	return c.Session.UserChannelPermissions(m.Author.ID, m.ChannelID)
}

// Registers a gateway handler which forwards guild messages to `out`. Blocks the gateway reader while `out` is full, which is the only backpressure there is.
//
// Returns a function which removes the handler.
func (c *Client) ForwardMessages(ctx context.Context, out chan<- *event.Message) func() {
	return c.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		gatewayMessages.Inc()
		msg, err := c.messageFromEvent(ctx, m)
		if err != nil {
			c.Logger.Warn("dropping message event", "err", err, "guild", m.GuildID, "channel", m.ChannelID)
			gatewayMessagesDropped.WithLabelValues("lookup").Inc()
			return
		}
		if msg == nil {
			gatewayMessagesDropped.WithLabelValues("direct").Inc()
			return
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			gatewayMessagesDropped.WithLabelValues("shutdown").Inc()
		}
	})
}
