package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/wggdev/ratebot/moderation/commands"
)

func optionType(k commands.OptionKind) discordgo.ApplicationCommandOptionType {
	switch k {
	case commands.OptionChannel:
		return discordgo.ApplicationCommandOptionChannel
	case commands.OptionInteger:
		return discordgo.ApplicationCommandOptionInteger
	case commands.OptionBoolean:
		return discordgo.ApplicationCommandOptionBoolean
	}
	return discordgo.ApplicationCommandOptionString
}

// Slash command definitions in the form the Discord API registers.
func ApplicationCommands() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(commands.Definitions))
	for _, d := range commands.Definitions {
		ac := &discordgo.ApplicationCommand{
			Name:        d.Name,
			Description: d.Description,
		}
		for _, o := range d.Options {
			ac.Options = append(ac.Options, &discordgo.ApplicationCommandOption{
				Type:        optionType(o.Kind),
				Name:        o.Name,
				Description: o.Description,
				Required:    true,
			})
		}
		out = append(out, ac)
	}
	return out
}

// Overwrites the bot's slash commands in each listed guild (instant updates), or globally if no guilds are given. Failures for one guild don't stop the others.
func (c *Client) RegisterCommands(appID string, guildIDs []string) error {
	cmds := ApplicationCommands()
	if len(guildIDs) == 0 {
		guildIDs = []string{""}
	}
	var failed int
	for _, gid := range guildIDs {
		if _, err := c.Session.ApplicationCommandBulkOverwrite(appID, gid, cmds); err != nil {
			c.Logger.Error("failed to register commands", "guild", gid, "err", err)
			failed++
			continue
		}
		c.Logger.Info("registered application commands", "guild", gid, "count", len(cmds))
	}
	if failed == len(guildIDs) {
		return fmt.Errorf("command registration failed for all %d targets", failed)
	}
	return nil
}

// Builds a command invocation from interaction data. `member` is nil for interactions outside a guild.
func invocationFromData(guildID string, member *discordgo.Member, data discordgo.ApplicationCommandInteractionData) *commands.Invocation {
	inv := &commands.Invocation{
		Name:    data.Name,
		GuildID: guildID,
	}
	if member != nil {
		if member.User != nil {
			inv.ActorID = member.User.ID
		}
		inv.CanManageChannels = member.Permissions&(discordgo.PermissionManageChannels|discordgo.PermissionAdministrator) != 0
	}
	for _, opt := range data.Options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionChannel:
			id := fmt.Sprint(opt.Value)
			ref := &commands.ChannelRef{ID: id}
			if data.Resolved != nil {
				if ch, ok := data.Resolved.Channels[id]; ok && ch != nil {
					ref.Kind = channelKind(ch.Type)
				}
			}
			inv.Channel = ref
		case discordgo.ApplicationCommandOptionInteger:
			v := int(opt.IntValue())
			inv.Integer = &v
		case discordgo.ApplicationCommandOptionBoolean:
			v := opt.BoolValue()
			inv.Boolean = &v
		}
	}
	return inv
}

var replyGuildOnly = commands.Reply{
	Style:       commands.StyleError,
	Emoji:       "⚠️",
	Title:       "Server Only",
	Description: "This command can only be used in a server.",
	Ephemeral:   true,
}

// Registers a gateway handler which runs slash commands through `h`. Each interaction is handled on its own goroutine so that slow store writes don't hold up message ingestion.
func (c *Client) HandleInteractions(ctx context.Context, h *commands.Handler) func() {
	return c.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		go c.respond(ctx, s, h, i)
	})
}

func (c *Client) respond(ctx context.Context, s *discordgo.Session, h *commands.Handler, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	commandInvocations.WithLabelValues(data.Name).Inc()

	var reply commands.Reply
	if i.GuildID == "" || i.Member == nil {
		reply = replyGuildOnly
	} else {
		reply = h.Handle(ctx, invocationFromData(i.GuildID, i.Member, data))
	}

	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{RenderReply(reply, time.Now())},
		},
	}
	if reply.Ephemeral {
		resp.Data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, resp, discordgo.WithContext(ctx)); err != nil {
		c.Logger.Error("failed to respond to interaction", "command", data.Name, "guild", i.GuildID, "err", err)
	}
}
