package vote

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// CountCache keeps recent vote tallies so bulk count reads skip the aggregation.
// Every Invalidate bumps a per-item version; Set only stores a tally whose
// version still equals the one read by Versions before the store was queried.
type CountCache interface {
	// Get returns the cached tallies and the ids that missed.
	Get(ctx context.Context, postIDs []string) (map[string]Counts, []string, error)
	Versions(ctx context.Context, postIDs []string) (map[string]int64, error)
	Set(ctx context.Context, counts []Counts, versions map[string]int64) error
	Invalidate(ctx context.Context, postIDs ...string) error
}

// versionTTL outlives any cached tally so a version cannot reset under a
// pending write-back.
const versionTTL = 24 * time.Hour

type RedisCountCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCountCache(client *redis.Client, ttl time.Duration) *RedisCountCache {
	return &RedisCountCache{client: client, ttl: ttl}
}

// ConnectRedis accepts either a redis:// URL or a host:port address.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(addr, "redis://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func countKey(postID string) string {
	return "linkcamp:votes:" + postID
}

func versionKey(postID string) string {
	return "linkcamp:votes:ver:" + postID
}

func (c *RedisCountCache) Get(ctx context.Context, postIDs []string) (map[string]Counts, []string, error) {
	cmds := make([]*redis.MapStringStringCmd, len(postIDs))
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range postIDs {
			cmds[i] = p.HGetAll(ctx, countKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, postIDs, err
	}

	hits := make(map[string]Counts, len(postIDs))
	var missing []string
	for i, id := range postIDs {
		data, err := cmds[i].Result()
		if err != nil || len(data) == 0 {
			missing = append(missing, id)
			continue
		}
		up, _ := strconv.ParseInt(data["up"], 10, 64)
		down, _ := strconv.ParseInt(data["down"], 10, 64)
		hits[id] = Counts{PostID: id, Upvotes: up, Downvotes: down}
	}
	return hits, missing, nil
}

func (c *RedisCountCache) Versions(ctx context.Context, postIDs []string) (map[string]int64, error) {
	if len(postIDs) == 0 {
		return map[string]int64{}, nil
	}
	keys := make([]string, len(postIDs))
	for i, id := range postIDs {
		keys[i] = versionKey(id)
	}
	return readVersions(ctx, c.client, postIDs, keys)
}

func readVersions(ctx context.Context, cmd redis.Cmdable, postIDs, keys []string) (map[string]int64, error) {
	vals, err := cmd.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(postIDs))
	for i, id := range postIDs {
		var v int64
		if raw, ok := vals[i].(string); ok {
			v, _ = strconv.ParseInt(raw, 10, 64)
		}
		out[id] = v
	}
	return out, nil
}

// Set writes the tallies whose version is unchanged since versions was read.
// A concurrent Invalidate aborts the transaction and nothing is stored.
func (c *RedisCountCache) Set(ctx context.Context, counts []Counts, versions map[string]int64) error {
	if len(counts) == 0 {
		return nil
	}
	ids := make([]string, len(counts))
	keys := make([]string, len(counts))
	for i, n := range counts {
		ids[i] = n.PostID
		keys[i] = versionKey(n.PostID)
	}

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersions(ctx, tx, ids, keys)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for _, n := range counts {
				seen, ok := versions[n.PostID]
				if !ok || current[n.PostID] != seen {
					continue
				}
				key := countKey(n.PostID)
				p.HSet(ctx, key, "up", n.Upvotes, "down", n.Downvotes)
				p.Expire(ctx, key, c.ttl)
			}
			return nil
		})
		return err
	}, keys...)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisCountCache) Invalidate(ctx context.Context, postIDs ...string) error {
	if len(postIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range postIDs {
			p.Incr(ctx, versionKey(id))
			p.Expire(ctx, versionKey(id), versionTTL)
			p.Del(ctx, countKey(id))
		}
		return nil
	})
	return err
}

// NopCache always misses.
type NopCache struct{}

func (NopCache) Get(_ context.Context, postIDs []string) (map[string]Counts, []string, error) {
	return map[string]Counts{}, postIDs, nil
}

func (NopCache) Versions(context.Context, []string) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (NopCache) Set(context.Context, []Counts, map[string]int64) error { return nil }

func (NopCache) Invalidate(context.Context, ...string) error { return nil }
