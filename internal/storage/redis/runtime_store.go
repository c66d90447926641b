package redis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/kaigosha/sitewarden/internal/limits"
	"github.com/kaigosha/sitewarden/internal/storage"
)

type runtimeStore struct {
	client *redis.Client
}

func (s *runtimeStore) Get(ctx context.Context, siteID string) (*limits.UsageState, error) {
	return getJSON[limits.UsageState](ctx, s.client, runtimeKeyPrefix+siteID)
}

func (s *runtimeStore) Put(ctx context.Context, siteID string, state limits.UsageState) error {
	return putJSON(ctx, s.client, runtimeKeyPrefix+siteID, state)
}

func (s *runtimeStore) All(ctx context.Context) (map[string]limits.UsageState, error) {
	states := make(map[string]limits.UsageState)

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, runtimeKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}

		if len(keys) > 0 {
			pipe := s.client.Pipeline()
			cmds := make([]*redis.StringCmd, len(keys))
			for i, key := range keys {
				cmds[i] = pipe.Get(ctx, key)
			}
			if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
				return nil, err
			}

			for i, cmd := range cmds {
				data, err := cmd.Result()
				if err != nil {
					continue
				}
				var state limits.UsageState
				if err := json.Unmarshal([]byte(data), &state); err != nil {
					// Skip corrupt records, the service rebuilds them.
					continue
				}
				siteID := strings.TrimPrefix(keys[i], runtimeKeyPrefix)
				states[siteID] = state
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return states, nil
}

func (s *runtimeStore) Delete(ctx context.Context, siteID string) error {
	deleted, err := s.client.Del(ctx, runtimeKeyPrefix+siteID).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return storage.ErrNotFound
	}
	return nil
}
