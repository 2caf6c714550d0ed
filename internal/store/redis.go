package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "pkwy:session:"
	sessionIndexKey  = "pkwy:sessions"
)

// Redis caches session snapshots with a TTL so live games survive a
// restart even on the memory store.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisFromClient(client, ttl), nil
}

func NewRedisFromClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) SaveSession(ctx context.Context, rec SessionRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKeyPrefix+rec.ID, body, r.ttl)
		p.SAdd(ctx, sessionIndexKey, rec.ID)
		return nil
	})
	return err
}

func (r *Redis) DeleteSession(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKeyPrefix+id)
		p.SRem(ctx, sessionIndexKey, id)
		return nil
	})
	return err
}

// LoadSessions returns every cached snapshot that has not expired and
// prunes index entries whose snapshot has.
func (r *Redis) LoadSessions(ctx context.Context) ([]SessionRecord, error) {
	ids, err := r.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, err
	}
	var out []SessionRecord
	for _, id := range ids {
		body, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
		if errors.Is(err, redis.Nil) {
			r.client.SRem(ctx, sessionIndexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		var rec SessionRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("decode cached session %s: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Redis) Close() error { return r.client.Close() }

// Mirror writes sessions to a primary store and a cache. Loading merges
// both, preferring whichever copy was updated last. A cache that cannot
// be read is skipped.
type Mirror struct {
	Primary Sessions
	Cache   Sessions
}

func (m Mirror) SaveSession(ctx context.Context, rec SessionRecord) error {
	return errors.Join(m.Primary.SaveSession(ctx, rec), m.Cache.SaveSession(ctx, rec))
}

func (m Mirror) DeleteSession(ctx context.Context, id string) error {
	return errors.Join(m.Primary.DeleteSession(ctx, id), m.Cache.DeleteSession(ctx, id))
}

func (m Mirror) LoadSessions(ctx context.Context) ([]SessionRecord, error) {
	primary, err := m.Primary.LoadSessions(ctx)
	if err != nil {
		return nil, err
	}
	cached, err := m.Cache.LoadSessions(ctx)
	if err != nil {
		return primary, nil
	}

	byID := make(map[string]int, len(primary))
	for i, r := range primary {
		byID[r.ID] = i
	}
	for _, c := range cached {
		i, ok := byID[c.ID]
		if !ok {
			byID[c.ID] = len(primary)
			primary = append(primary, c)
			continue
		}
		if c.UpdatedAt.After(primary[i].UpdatedAt) {
			primary[i] = c
		}
	}
	return primary, nil
}
