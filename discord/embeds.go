package discord

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/wggdev/ratebot/moderation/commands"
	"github.com/wggdev/ratebot/moderation/notify"
)

const (
	colorRed     = 0xed4245
	colorGreen   = 0x57f287
	colorBlurple = 0x5865f2
	colorYellow  = 0xfee75c

	footerRateLimiter = "Rate Limiter"
	footerScamBuster  = "Scam Buster"

	// Discord rejects embeds whose description is longer than this many characters
	maxEmbedDescription = 4096
)

// cuts s to at most n runes, marking the cut with an ellipsis
func clampRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 0 {
		return ""
	}
	i, count := 0, 0
	for i = range s {
		if count == n-1 {
			break
		}
		count++
	}
	return s[:i] + "…"
}

// appends the triggering message as a code block, shrinking it so the whole description fits
func withExcerpt(head, excerpt string) string {
	const fenceOpen, fenceClose = "```\n", "\n```"
	budget := maxEmbedDescription - utf8.RuneCountInString(head) - utf8.RuneCountInString(fenceOpen+fenceClose)
	return head + fenceOpen + clampRunes(excerpt, budget) + fenceClose
}

func makeEmbed(emoji, title, desc string, color int, footer string, at time.Time) *discordgo.MessageEmbed {
	if emoji != "" {
		title = emoji + " " + title
	}
	if footer == "" {
		footer = footerRateLimiter
	}
	e := &discordgo.MessageEmbed{
		Title:       title,
		Description: clampRunes(desc, maxEmbedDescription),
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
	}
	if !at.IsZero() {
		e.Timestamp = at.UTC().Format(time.RFC3339)
	}
	return e
}

func inlineField(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
}

func channelMention(id string) string {
	return "<#" + id + ">"
}

func userMention(id string) string {
	return "<@" + id + ">"
}

// Renders a moderation notification as an embed.
func RenderNotification(n notify.Notification) *discordgo.MessageEmbed {
	ch := n.Key.ChannelID
	switch n.Kind {
	case notify.KindRateWarning:
		return makeEmbed("🚨", "Rate Limit Exceeded",
			fmt.Sprintf("🚨 This channel has exceeded the configured rate of **%d messages/second**! Slowmode is now **%d** seconds. Please slow down.", n.Threshold, n.Level),
			colorRed, footerRateLimiter, n.At)
	case notify.KindRateLog:
		e := makeEmbed("🚨", "Rate Limit Triggered",
			fmt.Sprintf("Channel %s exceeded **%d messages/second** at <t:%d:T>. Slowmode set to **%d** seconds.", channelMention(ch), n.Threshold, n.At.Unix(), n.Level),
			colorRed, footerRateLimiter, n.At)
		e.Fields = []*discordgo.MessageEmbedField{
			inlineField("Guild", n.Key.GuildID),
			inlineField("Channel", channelMention(ch)),
			inlineField("Triggered By", userMention(n.UserID)),
		}
		return e
	case notify.KindDecayLog:
		return makeEmbed("🐢", "Slowmode Decayed",
			fmt.Sprintf("Slowmode for %s decreased to **%d** seconds after %ds of no infractions.", channelMention(ch), n.Level, int(n.Interval.Seconds())),
			colorGreen, footerRateLimiter, n.At)
	case notify.KindScamBan:
		e := makeEmbed("🔨", "Scam Buster Ban",
			withExcerpt(fmt.Sprintf("User %s was temporarily banned (5s). Their messages from the last 1 day were deleted.\n\n**Message that triggered the action:**\n", userMention(n.UserID)), n.Excerpt),
			colorRed, footerScamBuster, n.At)
		e.Fields = scamFields(n)
		return e
	case notify.KindScamBanFailed:
		e := makeEmbed("⚠️", "Scam Buster: Ban failed",
			withExcerpt(fmt.Sprintf("Could not ban %s for posting in a Scam Buster protected channel.\n\n**Reason:** %s\n\n**Message that triggered the action:**\n", userMention(n.UserID), n.Reason), n.Excerpt),
			colorRed, footerScamBuster, n.At)
		e.Fields = scamFields(n)
		return e
	case notify.KindScamGateEnabled:
		e := makeEmbed("🛡️", "Scam Buster enabled",
			fmt.Sprintf("Scam Buster is now monitoring %s. Only users with **Administrator** may post; others will be banned.", channelMention(ch)),
			colorGreen, footerRateLimiter, n.At)
		e.Fields = []*discordgo.MessageEmbedField{
			inlineField("Channel", channelMention(ch)),
			inlineField("Enabled by", userMention(n.ActorID)),
		}
		return e
	case notify.KindScamGateDisabled:
		e := makeEmbed("🛡️", "Scam Buster disabled",
			fmt.Sprintf("Scam Buster has been disabled for %s.", channelMention(ch)),
			colorYellow, footerRateLimiter, n.At)
		e.Fields = []*discordgo.MessageEmbedField{
			inlineField("Channel", channelMention(ch)),
			inlineField("Disabled by", userMention(n.ActorID)),
		}
		return e
	}
	return makeEmbed("", string(n.Kind), "", colorBlurple, "", n.At)
}

func scamFields(n notify.Notification) []*discordgo.MessageEmbedField {
	fields := []*discordgo.MessageEmbedField{
		inlineField("User", fmt.Sprintf("%s (%s)", n.UserTag, n.UserID)),
		inlineField("Channel", channelMention(n.Key.ChannelID)),
	}
	if n.IncidentID != "" {
		fields = append(fields, inlineField("Incident", n.IncidentID))
	}
	return fields
}

func replyColor(s commands.Style) int {
	switch s {
	case commands.StyleError:
		return colorRed
	case commands.StyleSuccess:
		return colorGreen
	case commands.StyleWarning:
		return colorYellow
	default:
		return colorBlurple
	}
}

// Renders a command reply as an embed.
func RenderReply(r commands.Reply, at time.Time) *discordgo.MessageEmbed {
	e := makeEmbed(r.Emoji, r.Title, r.Description, replyColor(r.Style), r.Footer, at)
	for _, f := range r.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return e
}

type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Posts notifications as embeds into their destination channel.
type Sink struct {
	Sender embedSender
}

var _ notify.Sink = (*Sink)(nil)

func NewSink(c *Client) *Sink {
	return &Sink{Sender: c.Session}
}

func (s *Sink) Send(ctx context.Context, n notify.Notification) error {
	if n.Destination == "" {
		return nil
	}
	_, err := s.Sender.ChannelMessageSendEmbed(n.Destination, RenderNotification(n), discordgo.WithContext(ctx))
	if err != nil {
		notificationsSent.WithLabelValues(string(n.Kind), "error").Inc()
		return fmt.Errorf("posting %s notification: %w", n.Kind, normalizeErr(err))
	}
	notificationsSent.WithLabelValues(string(n.Kind), "ok").Inc()
	return nil
}
