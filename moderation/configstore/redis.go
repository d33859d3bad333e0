package configstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/wggdev/ratebot/moderation/event"
)

var (
	redisSupervisedPrefix = "ratebot/supervised/"
	redisProtectedPrefix  = "ratebot/protected/"
	redisRateKey          = "ratebot/rate"
	redisMaxSlowmodeKey   = "ratebot/maxslowmode"
	redisDecayKey         = "ratebot/decay"
	redisLogChannelKey    = "ratebot/logchannel"
)

// Store backed by redis sets and hashes, for deployments which want settings to live outside the bot host.
type RedisStore struct {
	Client *redis.Client
}

var _ Store = (*RedisStore)(nil)
var _ Exporter = (*RedisStore)(nil)

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisStore{Client: rdb}, nil
}

func (s *RedisStore) ChannelSettings(ctx context.Context, key event.ChannelKey) (ChannelSettings, error) {
	ks := key.String()

	// all lookups in a single redis round-trip
	multi := s.Client.Pipeline()
	supervised := multi.SIsMember(ctx, redisSupervisedPrefix+key.GuildID, key.ChannelID)
	protected := multi.SIsMember(ctx, redisProtectedPrefix+key.GuildID, key.ChannelID)
	rate := multi.HGet(ctx, redisRateKey, ks)
	maxSlowmode := multi.HGet(ctx, redisMaxSlowmodeKey, ks)
	decay := multi.HGet(ctx, redisDecayKey, ks)
	if _, err := multi.Exec(ctx); err != nil && err != redis.Nil {
		return ChannelSettings{}, err
	}

	cs := ChannelSettings{
		Supervised: supervised.Val(),
		Protected:  protected.Val(),
	}
	var err error
	if cs.Rate, _, err = optionalInt(rate); err != nil {
		return ChannelSettings{}, fmt.Errorf("reading rate for %s: %w", ks, err)
	}
	if v, ok, err := optionalInt(maxSlowmode); err != nil {
		return ChannelSettings{}, fmt.Errorf("reading max slowmode for %s: %w", ks, err)
	} else if ok {
		cs.MaxSlowmode = intPtr(v)
	}
	if v, ok, err := optionalInt(decay); err != nil {
		return ChannelSettings{}, fmt.Errorf("reading decay for %s: %w", ks, err)
	} else if ok {
		cs.DecaySeconds = intPtr(v)
	}
	return cs, nil
}

func optionalInt(cmd *redis.StringCmd) (int, bool, error) {
	v, err := cmd.Int()
	if err == redis.Nil {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (s *RedisStore) GuildSettings(ctx context.Context, guildID string) (GuildSettings, error) {
	multi := s.Client.Pipeline()
	supervised := multi.SMembers(ctx, redisSupervisedPrefix+guildID)
	protected := multi.SMembers(ctx, redisProtectedPrefix+guildID)
	logChannel := multi.HGet(ctx, redisLogChannelKey, guildID)
	if _, err := multi.Exec(ctx); err != nil && err != redis.Nil {
		return GuildSettings{}, err
	}

	gs := GuildSettings{
		Supervised: sortedCopy(supervised.Val()),
		Protected:  sortedCopy(protected.Val()),
	}
	lc, err := logChannel.Result()
	if err != nil && err != redis.Nil {
		return GuildSettings{}, err
	}
	gs.LogChannelID = lc
	return gs, nil
}

func (s *RedisStore) setMember(ctx context.Context, prefix string, key event.ChannelKey, member bool) (bool, error) {
	var n int64
	var err error
	if member {
		n, err = s.Client.SAdd(ctx, prefix+key.GuildID, key.ChannelID).Result()
	} else {
		n, err = s.Client.SRem(ctx, prefix+key.GuildID, key.ChannelID).Result()
	}
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) SetSupervised(ctx context.Context, key event.ChannelKey, supervised bool) (bool, error) {
	return s.setMember(ctx, redisSupervisedPrefix, key, supervised)
}

func (s *RedisStore) SetProtected(ctx context.Context, key event.ChannelKey, protected bool) (bool, error) {
	return s.setMember(ctx, redisProtectedPrefix, key, protected)
}

func (s *RedisStore) SetRateThreshold(ctx context.Context, key event.ChannelKey, rate int) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}
	return s.Client.HSet(ctx, redisRateKey, key.String(), rate).Err()
}

func (s *RedisStore) SetThrottleCeiling(ctx context.Context, key event.ChannelKey, seconds int) error {
	if err := ValidateThrottleCeiling(seconds); err != nil {
		return err
	}
	return s.Client.HSet(ctx, redisMaxSlowmodeKey, key.String(), seconds).Err()
}

func (s *RedisStore) SetDecayInterval(ctx context.Context, key event.ChannelKey, seconds int) error {
	if err := ValidateDecaySeconds(seconds); err != nil {
		return err
	}
	return s.Client.HSet(ctx, redisDecayKey, key.String(), seconds).Err()
}

func (s *RedisStore) SetLogChannel(ctx context.Context, guildID, channelID string) error {
	return s.Client.HSet(ctx, redisLogChannelKey, guildID, channelID).Err()
}

func (s *RedisStore) Export(ctx context.Context) (*Document, error) {
	doc := NewDocument()
	for prefix, sets := range map[string]map[string][]string{
		redisSupervisedPrefix: doc.SupervisedChannels,
		redisProtectedPrefix:  doc.ScamBusterChannels,
	} {
		iter := s.Client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			k := iter.Val()
			members, err := s.Client.SMembers(ctx, k).Result()
			if err != nil {
				return nil, err
			}
			if len(members) == 0 {
				continue
			}
			sort.Strings(members)
			sets[strings.TrimPrefix(k, prefix)] = members
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
	}
	for hkey, m := range map[string]map[string]int{
		redisRateKey:        doc.ChannelRates,
		redisMaxSlowmodeKey: doc.MaxSlowmodes,
		redisDecayKey:       doc.SlowmodeDecay,
	} {
		vals, err := s.Client.HGetAll(ctx, hkey).Result()
		if err != nil {
			return nil, err
		}
		for field, raw := range vals {
			var v int
			if _, err := fmt.Sscan(raw, &v); err != nil {
				return nil, fmt.Errorf("bad value in %s[%s]: %w", hkey, field, err)
			}
			m[field] = v
		}
	}
	logs, err := s.Client.HGetAll(ctx, redisLogChannelKey).Result()
	if err != nil {
		return nil, err
	}
	for g, c := range logs {
		doc.LogChannels[g] = c
	}
	return doc, nil
}

// Replaces the entire contents of the store with the document, the same as the mem and file stores.
func (s *RedisStore) Import(ctx context.Context, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	stale := []string{redisRateKey, redisMaxSlowmodeKey, redisDecayKey, redisLogChannelKey}
	for _, prefix := range []string{redisSupervisedPrefix, redisProtectedPrefix} {
		iter := s.Client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			stale = append(stale, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}

	multi := s.Client.TxPipeline()
	multi.Del(ctx, stale...)
	for g, l := range doc.SupervisedChannels {
		for _, c := range l {
			multi.SAdd(ctx, redisSupervisedPrefix+g, c)
		}
	}
	for g, l := range doc.ScamBusterChannels {
		for _, c := range l {
			multi.SAdd(ctx, redisProtectedPrefix+g, c)
		}
	}
	for k, v := range doc.ChannelRates {
		multi.HSet(ctx, redisRateKey, k, v)
	}
	for k, v := range doc.MaxSlowmodes {
		multi.HSet(ctx, redisMaxSlowmodeKey, k, v)
	}
	for k, v := range doc.SlowmodeDecay {
		multi.HSet(ctx, redisDecayKey, k, v)
	}
	for g, c := range doc.LogChannels {
		multi.HSet(ctx, redisLogChannelKey, g, c)
	}
	_, err := multi.Exec(ctx)
	return err
}
