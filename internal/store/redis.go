package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	redis "github.com/redis/go-redis/v9"

	redisclient "github.com/moorebrett0/digicord/internal/redis"
)

const (
	// Key patterns: {prefix}user:{id}, {prefix}guild:{id}, {prefix}settings
	defaultKeyPrefix = "digicord:"
	userPrefix       = "user:"
	guildPrefix      = "guild:"
	guildsKey        = "guilds"
	settingsKey      = "settings"

	defaultMaxRetries = 10
)

// RedisConfig holds the configuration for the Redis store.
type RedisConfig struct {
	Client     redisclient.Client
	KeyPrefix  string
	MaxRetries int // optimistic transaction attempts per update
}

// Validate ensures all required dependencies are provided.
func (c *RedisConfig) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	if c.Client == nil {
		return errors.New("client cannot be nil")
	}
	return nil
}

// Redis stores each record as a JSON string and updates it inside a
// WATCH/MULTI transaction, retrying when another writer got there first.
type Redis struct {
	client     redisclient.Client
	prefix     string
	maxRetries int
}

var _ Store = (*Redis)(nil)

// NewRedis creates a Redis backed store.
func NewRedis(cfg *RedisConfig) (*Redis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	return &Redis{client: cfg.Client, prefix: prefix, maxRetries: retries}, nil
}

func (r *Redis) User(ctx context.Context, userID string) (UserRecord, error) {
	rec := NewUserRecord()
	found, err := r.get(ctx, r.userKey(userID), &rec)
	if err != nil {
		return UserRecord{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	if !found {
		return NewUserRecord(), nil
	}
	rec.normalize()
	return rec, nil
}

func (r *Redis) UpdateUser(ctx context.Context, userID string, fn func(*UserRecord) error) error {
	key := r.userKey(userID)
	err := r.update(ctx, key, func(tx *redis.Tx) (any, error) {
		rec := NewUserRecord()
		if _, err := r.getTx(ctx, tx, key, &rec); err != nil {
			return nil, err
		}
		rec.normalize()
		if err := fn(&rec); err != nil {
			return nil, err
		}
		rec.normalize()
		return rec, nil
	}, nil)
	if err != nil {
		return fmt.Errorf("update user %s: %w", userID, err)
	}
	return nil
}

func (r *Redis) Guild(ctx context.Context, guildID string) (GuildRecord, error) {
	var rec GuildRecord
	if _, err := r.get(ctx, r.guildKey(guildID), &rec); err != nil {
		return GuildRecord{}, fmt.Errorf("get guild %s: %w", guildID, err)
	}
	return rec, nil
}

func (r *Redis) UpdateGuild(ctx context.Context, guildID string, fn func(*GuildRecord) error) error {
	key := r.guildKey(guildID)
	err := r.update(ctx, key, func(tx *redis.Tx) (any, error) {
		var rec GuildRecord
		if _, err := r.getTx(ctx, tx, key, &rec); err != nil {
			return nil, err
		}
		if err := fn(&rec); err != nil {
			return nil, err
		}
		return rec, nil
	}, func(pipe redis.Pipeliner) {
		pipe.SAdd(ctx, r.prefix+guildsKey, guildID)
	})
	if err != nil {
		return fmt.Errorf("update guild %s: %w", guildID, err)
	}
	return nil
}

func (r *Redis) GuildIDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.prefix+guildsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list guilds: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *Redis) Settings(ctx context.Context) (Settings, error) {
	s := DefaultSettings()
	if _, err := r.get(ctx, r.prefix+settingsKey, &s); err != nil {
		return Settings{}, fmt.Errorf("get settings: %w", err)
	}
	s.normalize()
	return s, nil
}

func (r *Redis) UpdateSettings(ctx context.Context, fn func(*Settings) error) error {
	key := r.prefix + settingsKey
	err := r.update(ctx, key, func(tx *redis.Tx) (any, error) {
		s := DefaultSettings()
		if _, err := r.getTx(ctx, tx, key, &s); err != nil {
			return nil, err
		}
		s.normalize()
		if err := fn(&s); err != nil {
			return nil, err
		}
		s.normalize()
		return s, nil
	}, nil)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// update runs an optimistic transaction on key. mutate reads the current
// value through tx and returns the value to write; extra queues additional
// commands in the same MULTI block.
func (r *Redis) update(ctx context.Context, key string, mutate func(*redis.Tx) (any, error), extra func(redis.Pipeliner)) error {
	txf := func(tx *redis.Tx) error {
		next, err := mutate(tx)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if extra != nil {
				extra(pipe)
			}
			return nil
		})
		return err
	}

	for range r.maxRetries {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

func (r *Redis) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	return decode(data, err, dst)
}

func (r *Redis) getTx(ctx context.Context, tx *redis.Tx, key string, dst any) (bool, error) {
	data, err := tx.Get(ctx, key).Bytes()
	return decode(data, err, dst)
}

func decode(data []byte, err error, dst any) (bool, error) {
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal: %w", err)
	}
	return true, nil
}

func (r *Redis) userKey(userID string) string {
	return r.prefix + userPrefix + userID
}

func (r *Redis) guildKey(guildID string) string {
	return r.prefix + guildPrefix + guildID
}
