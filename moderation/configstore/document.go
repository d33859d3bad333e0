package configstore

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/wggdev/ratebot/moderation/event"
)

// Serialized form of the complete configuration.
//
// Field names and shapes match the `save.json` file written by earlier releases of the bot, so old files load unchanged. Per-channel maps are keyed by the "guild:channel" form of `event.ChannelKey`.
type Document struct {
	SupervisedChannels map[string][]string `json:"supervisedChannels"`
	ChannelRates       map[string]int      `json:"channelRates"`
	LogChannels        map[string]string   `json:"logChannels"`
	MaxSlowmodes       map[string]int      `json:"maxSlowmodes"`
	SlowmodeDecay      map[string]int      `json:"slowmodeDecay"`
	ScamBusterChannels map[string][]string `json:"scamBusterChannels"`
}

func NewDocument() *Document {
	d := &Document{}
	d.init()
	return d
}

// fills in any nil maps, eg after decoding a partial file
func (d *Document) init() {
	if d.SupervisedChannels == nil {
		d.SupervisedChannels = make(map[string][]string)
	}
	if d.ChannelRates == nil {
		d.ChannelRates = make(map[string]int)
	}
	if d.LogChannels == nil {
		d.LogChannels = make(map[string]string)
	}
	if d.MaxSlowmodes == nil {
		d.MaxSlowmodes = make(map[string]int)
	}
	if d.SlowmodeDecay == nil {
		d.SlowmodeDecay = make(map[string]int)
	}
	if d.ScamBusterChannels == nil {
		d.ScamBusterChannels = make(map[string][]string)
	}
}

// Deep copy.
func (d *Document) Clone() *Document {
	out := NewDocument()
	for g, l := range d.SupervisedChannels {
		out.SupervisedChannels[g] = slices.Clone(l)
	}
	for g, l := range d.ScamBusterChannels {
		out.ScamBusterChannels[g] = slices.Clone(l)
	}
	for k, v := range d.ChannelRates {
		out.ChannelRates[k] = v
	}
	for k, v := range d.LogChannels {
		out.LogChannels[k] = v
	}
	for k, v := range d.MaxSlowmodes {
		out.MaxSlowmodes[k] = v
	}
	for k, v := range d.SlowmodeDecay {
		out.SlowmodeDecay[k] = v
	}
	return out
}

func (d *Document) channelSettings(key event.ChannelKey) ChannelSettings {
	ks := key.String()
	cs := ChannelSettings{
		Supervised: slices.Contains(d.SupervisedChannels[key.GuildID], key.ChannelID),
		Protected:  slices.Contains(d.ScamBusterChannels[key.GuildID], key.ChannelID),
		Rate:       d.ChannelRates[ks],
	}
	if v, ok := d.MaxSlowmodes[ks]; ok {
		cs.MaxSlowmode = intPtr(v)
	}
	if v, ok := d.SlowmodeDecay[ks]; ok {
		cs.DecaySeconds = intPtr(v)
	}
	return cs
}

func (d *Document) guildSettings(guildID string) GuildSettings {
	gs := GuildSettings{
		LogChannelID: d.LogChannels[guildID],
		Supervised:   sortedCopy(d.SupervisedChannels[guildID]),
		Protected:    sortedCopy(d.ScamBusterChannels[guildID]),
	}
	return gs
}

// adds or removes a channel from a per-guild set, reporting whether membership changed
func setMember(sets map[string][]string, key event.ChannelKey, member bool) bool {
	l := sets[key.GuildID]
	idx := slices.Index(l, key.ChannelID)
	switch {
	case member && idx < 0:
		sets[key.GuildID] = append(l, key.ChannelID)
		return true
	case !member && idx >= 0:
		l = slices.Delete(l, idx, idx+1)
		if len(l) == 0 {
			delete(sets, key.GuildID)
		} else {
			sets[key.GuildID] = l
		}
		return true
	}
	return false
}

func sortedCopy(l []string) []string {
	if len(l) == 0 {
		return nil
	}
	out := slices.Clone(l)
	sort.Strings(out)
	return out
}

// Checks every identifier and value in the document, as loaded from a file or given to Import. All problems are reported, joined.
func (d *Document) Validate() error {
	var errs []error
	for name, sets := range map[string]map[string][]string{
		"supervisedChannels": d.SupervisedChannels,
		"scamBusterChannels": d.ScamBusterChannels,
	} {
		for g, l := range sets {
			if err := event.ValidateID(g); err != nil {
				errs = append(errs, fmt.Errorf("%s: guild: %w", name, err))
			}
			for _, c := range l {
				if err := event.ValidateID(c); err != nil {
					errs = append(errs, fmt.Errorf("%s[%s]: %w", name, g, err))
				}
			}
		}
	}

	perChannel := []struct {
		name  string
		vals  map[string]int
		check func(int) error
	}{
		{"channelRates", d.ChannelRates, ValidateRate},
		{"maxSlowmodes", d.MaxSlowmodes, ValidateThrottleCeiling},
		{"slowmodeDecay", d.SlowmodeDecay, ValidateDecaySeconds},
	}
	for _, pc := range perChannel {
		for k, v := range pc.vals {
			if _, err := event.ParseChannelKey(k); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", pc.name, err))
				continue
			}
			if err := pc.check(v); err != nil {
				errs = append(errs, fmt.Errorf("%s[%s]: %w", pc.name, k, err))
			}
		}
	}

	for g, c := range d.LogChannels {
		if err := event.ValidateID(g); err != nil {
			errs = append(errs, fmt.Errorf("logChannels: guild: %w", err))
		}
		if err := event.ValidateID(c); err != nil {
			errs = append(errs, fmt.Errorf("logChannels[%s]: %w", g, err))
		}
	}
	return errors.Join(errs...)
}
