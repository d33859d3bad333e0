// Administrative slash commands, independent of the chat platform.
//
// The platform adapter turns an interaction into an Invocation (resolving the actor's permissions and the kind of any channel argument), calls Handler.Handle, and renders the returned Reply.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wggdev/ratebot/moderation/configstore"
	"github.com/wggdev/ratebot/moderation/event"
	"github.com/wggdev/ratebot/moderation/notify"
)

type ChannelRef struct {
	ID   string
	Kind event.ChannelKind
}

type Invocation struct {
	Name    string
	GuildID string
	ActorID string
	// Actor holds the Manage Channels permission
	CanManageChannels bool

	// Option values, nil when not supplied. No command takes more than one of each kind.
	Channel *ChannelRef
	Integer *int
	Boolean *bool
}

type Style int

const (
	StyleInfo Style = iota
	StyleSuccess
	StyleError
	StyleWarning
)

type Field struct {
	Name   string
	Value  string
	Inline bool
}

type Reply struct {
	Style       Style
	Emoji       string
	Title       string
	Description string
	Fields      []Field
	// Empty means the adapter's default
	Footer string
	// Only visible to the invoking user
	Ephemeral bool
}

const mention = "<#%s>"

func errorReply(emoji, title, desc string) Reply {
	return Reply{Style: StyleError, Emoji: emoji, Title: title, Description: desc, Ephemeral: true}
}

var (
	replyPermissionDenied = errorReply("⛔", "Permission Denied", "You need the **Manage Channels** permission to use this command.")
	replyInternalError    = errorReply("⚠️", "Error", "There was an error while executing this command!")
)

type Handler struct {
	Logger   *slog.Logger
	Store    configstore.Store
	Notifier notify.Sink
}

func NewHandler(logger *slog.Logger, store configstore.Store, notifier notify.Sink) *Handler {
	if notifier == nil {
		notifier = notify.NullSink{}
	}
	return &Handler{
		Logger:   logger,
		Store:    store,
		Notifier: notifier,
	}
}

// Executes one command invocation. Every outcome, including failures, is expressed as a Reply.
func (h *Handler) Handle(ctx context.Context, inv *Invocation) Reply {
	def, ok := Lookup(inv.Name)
	if !ok {
		return errorReply("⚠️", "Unknown Command", fmt.Sprintf("There is no `/%s` command.", inv.Name))
	}
	logger := h.Logger.With("command", inv.Name, "guild", inv.GuildID, "actor", inv.ActorID)

	if def.Mutating && !inv.CanManageChannels {
		logger.Info("command permission denied")
		return replyPermissionDenied
	}
	for _, o := range def.Options {
		if missing(inv, o.Kind) {
			return errorReply("⚠️", "Missing Option", fmt.Sprintf("The `%s` option is required. Usage: `%s`", o.Name, def.Usage()))
		}
	}

	if inv.Channel != nil {
		if err := event.ValidateID(inv.Channel.ID); err != nil {
			logger.Info("command with malformed channel id", "err", err)
			return invalidChannel("That is not a valid channel.")
		}
	}

	var reply Reply
	var err error
	switch inv.Name {
	case "add-channel":
		reply, err = h.addChannel(ctx, inv)
	case "remove-channel":
		reply, err = h.removeChannel(ctx, inv)
	case "channels":
		reply, err = h.listChannels(ctx, inv)
	case "set-rate":
		reply, err = h.setRate(ctx, inv)
	case "set-log-channel":
		reply, err = h.setLogChannel(ctx, inv)
	case "set-max-slowmode":
		reply, err = h.setMaxSlowmode(ctx, inv)
	case "set-slowmode-decay":
		reply, err = h.setSlowmodeDecay(ctx, inv)
	case "scam-buster":
		reply, err = h.scamBuster(ctx, logger, inv)
	case "get-started":
		reply = getStartedReply()
	case "help":
		reply = helpReply()
	}
	if err != nil {
		logger.Error("command failed", "err", err)
		return replyInternalError
	}
	logger.Debug("command handled", "title", reply.Title)
	return reply
}

func missing(inv *Invocation, kind OptionKind) bool {
	switch kind {
	case OptionChannel:
		return inv.Channel == nil
	case OptionInteger:
		return inv.Integer == nil
	case OptionBoolean:
		return inv.Boolean == nil
	}
	return false
}

func (inv *Invocation) key() event.ChannelKey {
	return event.ChannelKey{GuildID: inv.GuildID, ChannelID: inv.Channel.ID}
}

func invalidChannel(desc string) Reply {
	return errorReply("⚠️", "Invalid Channel", desc)
}

func invalidValue(desc string) Reply {
	return errorReply("⚠️", "Invalid Value", desc)
}

func success(emoji, title, desc string) Reply {
	return Reply{Style: StyleSuccess, Emoji: emoji, Title: title, Description: desc}
}

func (h *Handler) addChannel(ctx context.Context, inv *Invocation) (Reply, error) {
	if inv.Channel.Kind != event.ChannelKindText {
		return invalidChannel("Only text channels can be supervised."), nil
	}
	if _, err := h.Store.SetSupervised(ctx, inv.key(), true); err != nil {
		return Reply{}, err
	}
	return success("✅", "Channel Added", fmt.Sprintf("Channel "+mention+" is now supervised.", inv.Channel.ID)), nil
}

func (h *Handler) removeChannel(ctx context.Context, inv *Invocation) (Reply, error) {
	if inv.Channel.Kind != event.ChannelKindText {
		return invalidChannel("Only text channels can be supervised."), nil
	}
	changed, err := h.Store.SetSupervised(ctx, inv.key(), false)
	if err != nil {
		return Reply{}, err
	}
	if !changed {
		return errorReply("⚠️", "Not Supervised", fmt.Sprintf("Channel "+mention+" is not supervised.", inv.Channel.ID)), nil
	}
	return success("✅", "Channel Removed", fmt.Sprintf("Channel "+mention+" is no longer supervised.", inv.Channel.ID)), nil
}

func (h *Handler) listChannels(ctx context.Context, inv *Invocation) (Reply, error) {
	gs, err := h.Store.GuildSettings(ctx, inv.GuildID)
	if err != nil {
		return Reply{}, err
	}
	if len(gs.Supervised) == 0 {
		return errorReply("ℹ️", "No Channels", "No channels are currently supervised."), nil
	}
	mentions := make([]string, len(gs.Supervised))
	for i, id := range gs.Supervised {
		mentions[i] = fmt.Sprintf(mention, id)
	}
	return Reply{
		Style:       StyleInfo,
		Emoji:       "👀",
		Title:       "Supervised Channels",
		Description: strings.Join(mentions, ", "),
	}, nil
}

func (h *Handler) setRate(ctx context.Context, inv *Invocation) (Reply, error) {
	if inv.Channel.Kind != event.ChannelKindText {
		return invalidChannel("Only text channels can have a rate set."), nil
	}
	rate := *inv.Integer
	err := h.Store.SetRateThreshold(ctx, inv.key(), rate)
	if errors.Is(err, configstore.ErrOutOfRange) {
		return invalidValue("Rate must be at least 1 message per interval."), nil
	}
	if err != nil {
		return Reply{}, err
	}
	return success("⏱️", "Rate Set", fmt.Sprintf("Set message rate for "+mention+" to **%d** messages per interval.", inv.Channel.ID, rate)), nil
}

func (h *Handler) setLogChannel(ctx context.Context, inv *Invocation) (Reply, error) {
	if inv.Channel.Kind != event.ChannelKindText {
		return invalidChannel("Log channel must be a text channel."), nil
	}
	if err := h.Store.SetLogChannel(ctx, inv.GuildID, inv.Channel.ID); err != nil {
		return Reply{}, err
	}
	return success("📝", "Log Channel Set", fmt.Sprintf("Set "+mention+" as the log channel.", inv.Channel.ID)), nil
}

func (h *Handler) setMaxSlowmode(ctx context.Context, inv *Invocation) (Reply, error) {
	if inv.Channel.Kind != event.ChannelKindText {
		return invalidChannel("Only text channels can have slowmode set."), nil
	}
	seconds := *inv.Integer
	err := h.Store.SetThrottleCeiling(ctx, inv.key(), seconds)
	if errors.Is(err, configstore.ErrOutOfRange) {
		return invalidValue(fmt.Sprintf("Slowmode must be between %d and %d seconds (6 hours).", configstore.MinThrottleCeiling, configstore.MaxThrottleCeiling)), nil
	}
	if err != nil {
		return Reply{}, err
	}
	return success("🐢", "Max Slowmode Set", fmt.Sprintf("Set max slowmode for "+mention+" to **%d** seconds.", inv.Channel.ID, seconds)), nil
}

func (h *Handler) setSlowmodeDecay(ctx context.Context, inv *Invocation) (Reply, error) {
	if inv.Channel.Kind != event.ChannelKindText {
		return invalidChannel("Only text channels can have slowmode decay set."), nil
	}
	seconds := *inv.Integer
	err := h.Store.SetDecayInterval(ctx, inv.key(), seconds)
	if errors.Is(err, configstore.ErrOutOfRange) {
		return invalidValue(fmt.Sprintf("Decay interval must be between %d and %d seconds (1 hour).", configstore.MinDecaySeconds, configstore.MaxDecaySeconds)), nil
	}
	if err != nil {
		return Reply{}, err
	}
	return success("⏳", "Slowmode Decay Set", fmt.Sprintf("Set slowmode decay for "+mention+" to **%d** seconds.", inv.Channel.ID, seconds)), nil
}

func (h *Handler) scamBuster(ctx context.Context, logger *slog.Logger, inv *Invocation) (Reply, error) {
	if inv.Channel.Kind != event.ChannelKindText {
		return invalidChannel("Only text channels can be monitored by Scam Buster."), nil
	}
	key := inv.key()
	enabled := *inv.Boolean

	if !enabled {
		cs, err := h.Store.ChannelSettings(ctx, key)
		if err != nil {
			return Reply{}, err
		}
		if !cs.IsProtected() {
			return errorReply("⚠️", "Not monitored", fmt.Sprintf("Channel "+mention+" is not currently monitored by Scam Buster.", inv.Channel.ID)), nil
		}
	}
	if _, err := h.Store.SetProtected(ctx, key, enabled); err != nil {
		return Reply{}, err
	}

	kind := notify.KindScamGateDisabled
	if enabled {
		kind = notify.KindScamGateEnabled
	}
	logger.Info("scam gate toggled", "channel", key.ChannelID, "enabled", enabled)
	h.notifyLog(ctx, logger, notify.Notification{
		Kind:    kind,
		Key:     key,
		ActorID: inv.ActorID,
	})

	if enabled {
		return success("🛡️", "Scam Buster enabled", fmt.Sprintf("Channel "+mention+" is now protected. Only users with Administrator can post; others will be banned.", inv.Channel.ID)), nil
	}
	return success("🛡️", "Scam Buster disabled", fmt.Sprintf("Channel "+mention+" is no longer monitored by Scam Buster.", inv.Channel.ID)), nil
}

// sends to the guild log channel, if one is configured
func (h *Handler) notifyLog(ctx context.Context, logger *slog.Logger, n notify.Notification) {
	gs, err := h.Store.GuildSettings(ctx, n.Key.GuildID)
	if err != nil {
		logger.Warn("failed to load guild settings", "err", err)
		return
	}
	lc, ok := gs.LogChannel()
	if !ok {
		return
	}
	n.Destination = lc
	ctx, cancel := context.WithTimeout(ctx, notify.DefaultSendTimeout)
	defer cancel()
	if err := h.Notifier.Send(ctx, n); err != nil {
		logger.Debug("failed to send command notification", "err", err, "kind", n.Kind)
	}
}

func getStartedReply() Reply {
	desc := "**WGG Rate Limiter Bot** helps you control message flow in busy channels by automatically adjusting slowmode based on activity.\n\n" +
		"**How it works:**\n" +
		"- Monitors selected channels for message bursts.\n" +
		"- If messages exceed your set rate, slowmode increases automatically.\n" +
		"- Slowmode decays back down after inactivity.\n\n" +
		"**Quick Setup for One Channel:**\n" +
		"1. Use \"/add-channel\" to select a channel to supervise.\n" +
		"2. Use \"/set-rate\" to set the max messages per second for that channel.\n" +
		"3. (Optional) Use \"/set-log-channel\" to pick a channel for logs.\n" +
		"4. (Optional) Use \"/set-max-slowmode\" and \"/set-slowmode-decay\" to fine-tune slowmode behavior.\n\n" +
		"For a full list of commands and details, use \"/help\"!"
	return Reply{
		Style:       StyleInfo,
		Emoji:       "🚦",
		Title:       "Getting Started",
		Description: desc,
		Ephemeral:   true,
	}
}

func helpReply() Reply {
	fields := make([]Field, len(Definitions))
	for i, d := range Definitions {
		fields[i] = Field{Name: d.Usage(), Value: d.Help}
	}
	return Reply{
		Style:       StyleInfo,
		Emoji:       "📖",
		Title:       "Bot Commands",
		Description: "Here are all available commands:",
		Fields:      fields,
		Footer:      "Use the commands above to configure and monitor your channels!",
		Ephemeral:   true,
	}
}
