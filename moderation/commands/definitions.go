package commands

type OptionKind int

const (
	OptionChannel OptionKind = iota + 1
	OptionInteger
	OptionBoolean
)

// A single (always required) command option.
type OptionDef struct {
	Name        string
	Description string
	Kind        OptionKind
}

// Platform-neutral description of a slash command. The platform adapter registers these.
type Definition struct {
	Name        string
	Description string
	Options     []OptionDef
	// Longer explanation shown by the help command
	Help string
	// Requires the Manage Channels permission
	Mutating bool
}

// Usage line, eg "/set-rate channel msg_rate".
func (d Definition) Usage() string {
	s := "/" + d.Name
	for _, o := range d.Options {
		s += " " + o.Name
	}
	return s
}

func channelOpt(desc string) OptionDef {
	return OptionDef{Name: "channel", Description: desc, Kind: OptionChannel}
}

var Definitions = []Definition{
	{
		Name:        "add-channel",
		Description: "Add a channel to be supervised by the rate limiter.",
		Options:     []OptionDef{channelOpt("Channel to supervise")},
		Help:        "Add a text channel to be supervised by the rate limiter.",
		Mutating:    true,
	},
	{
		Name:        "remove-channel",
		Description: "Remove a channel from supervision.",
		Options:     []OptionDef{channelOpt("Channel to remove")},
		Help:        "Remove a channel from supervision.",
		Mutating:    true,
	},
	{
		Name:        "channels",
		Description: "List all supervised channels.",
		Help:        "List all currently supervised channels.",
	},
	{
		Name:        "set-rate",
		Description: "Set the message rate threshold for a channel.",
		Options: []OptionDef{
			channelOpt("Channel to set rate for"),
			{Name: "msg_rate", Description: "Messages per interval", Kind: OptionInteger},
		},
		Help:     "Set the allowed messages per second for a channel.",
		Mutating: true,
	},
	{
		Name:        "set-log-channel",
		Description: "Set the log channel for rate limiter events.",
		Options:     []OptionDef{channelOpt("Channel to log to")},
		Help:        "Set the channel where logs will be sent.",
		Mutating:    true,
	},
	{
		Name:        "set-max-slowmode",
		Description: "Set the maximum slowmode (in seconds) for a channel.",
		Options: []OptionDef{
			channelOpt("Channel to set max slowmode for"),
			{Name: "max_seconds", Description: "Maximum slowmode in seconds", Kind: OptionInteger},
		},
		Help:     "Set the maximum slowmode (in seconds) for a channel (default: 30s; 0 restores the default).",
		Mutating: true,
	},
	{
		Name:        "set-slowmode-decay",
		Description: "Set the slowmode decay interval (in seconds) for a channel.",
		Options: []OptionDef{
			channelOpt("Channel to set decay for"),
			{Name: "seconds", Description: "Decay interval in seconds", Kind: OptionInteger},
		},
		Help:     "Set how many seconds of inactivity before slowmode drops by 5s (default: 20s).",
		Mutating: true,
	},
	{
		Name:        "scam-buster",
		Description: "Enable or disable Scam Buster for a channel (only admins can post when enabled).",
		Options: []OptionDef{
			channelOpt("Channel to monitor"),
			{Name: "enabled", Description: "True to enable, False to disable", Kind: OptionBoolean},
		},
		Help:     "Enable or disable Scam Buster for a channel. When enabled, only users with Administrator can post; others are banned and logged.",
		Mutating: true,
	},
	{
		Name:        "get-started",
		Description: "Learn what the bot does and how to set it up.",
		Help:        "Get a quick explanation and setup guide for the bot.",
	},
	{
		Name:        "help",
		Description: "List all commands and their usage.",
		Help:        "Show this help message.",
	},
}

// Looks up a command definition by name.
func Lookup(name string) (Definition, bool) {
	for _, d := range Definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
