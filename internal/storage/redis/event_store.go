package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kaigosha/sitewarden/internal/storage"
)

type eventStore struct {
	client *redis.Client
}

// Append pushes the event to the head of the list, so the list stays
// ordered newest first.
func (s *eventStore) Append(ctx context.Context, event storage.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.client.LPush(ctx, keyEvents, data).Err()
}

func (s *eventStore) List(ctx context.Context, limit int) ([]storage.Event, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	entries, err := s.client.LRange(ctx, keyEvents, 0, stop).Result()
	if err != nil {
		return nil, err
	}

	events := make([]storage.Event, 0, len(entries))
	for _, entry := range entries {
		var event storage.Event
		if err := json.Unmarshal([]byte(entry), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *eventStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	total, err := s.client.LLen(ctx, keyEvents).Result()
	if err != nil {
		return 0, err
	}
	excess := int(total) - keep
	if excess <= 0 {
		return 0, nil
	}

	if keep == 0 {
		if err := s.client.Del(ctx, keyEvents).Err(); err != nil {
			return 0, err
		}
		return excess, nil
	}

	if err := s.client.LTrim(ctx, keyEvents, 0, int64(keep)-1).Err(); err != nil {
		return 0, err
	}
	return excess, nil
}

func (s *eventStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, keyEvents).Err()
}
