package bolt

import (
	"context"

	"go.etcd.io/bbolt"

	"github.com/kaigosha/sitewarden/internal/storage"
)

type settingsStore struct {
	db *bbolt.DB
}

func (s *settingsStore) Get(ctx context.Context) ([]byte, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketSettings))
		if b == nil {
			return storage.ErrNotFound
		}
		value := b.Get([]byte(settingsKey))
		if value == nil {
			return storage.ErrNotFound
		}
		raw = append([]byte(nil), value...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *settingsStore) Put(ctx context.Context, raw []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketSettings))
		if b == nil {
			return storage.ErrNotFound
		}
		return b.Put([]byte(settingsKey), raw)
	})
}
