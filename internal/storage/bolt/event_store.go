package bolt

import (
	"context"

	"go.etcd.io/bbolt"

	"github.com/kaigosha/sitewarden/internal/storage"
)

type eventStore struct {
	db *bbolt.DB
}

func (s *eventStore) Append(ctx context.Context, event storage.Event) error {
	key, err := eventKey(event.Timestamp)
	if err != nil {
		return err
	}
	data, err := marshal(event)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketEvents))
		if b == nil {
			return storage.ErrNotFound
		}
		return b.Put([]byte(key), data)
	})
}

// List returns up to limit events, newest first. A non-positive limit
// returns all events.
func (s *eventStore) List(ctx context.Context, limit int) ([]storage.Event, error) {
	var events []storage.Event
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketEvents))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(events) >= limit {
				break
			}
			var event storage.Event
			if err := unmarshal(v, &event); err != nil {
				continue
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Prune deletes the oldest events until only keep entries remain. It
// returns the number of deleted records.
func (s *eventStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketEvents))
		if b == nil {
			return nil
		}
		total := b.Stats().KeyN
		excess := total - keep
		if excess <= 0 {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil && deleted < excess; k, _ = c.First() {
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *eventStore) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := tx.DeleteBucket([]byte(bucketEvents)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketEvents))
		return err
	})
}
