package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/kaigosha/sitewarden/internal/storage"
)

type settingsStore struct {
	client *redis.Client
}

func (s *settingsStore) Get(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, keySettings).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *settingsStore) Put(ctx context.Context, raw []byte) error {
	return s.client.Set(ctx, keySettings, raw, 0).Err()
}
