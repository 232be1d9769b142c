package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/ahmmedrejowan/chargify/pkg/storage"
)

const bucketSessions = "charging_sessions"

// Store implements storage.SessionStore on a bbolt file. Sessions are keyed
// by a big-endian sequence number and stored as JSON.
type Store struct {
	db *bbolt.DB
}

var _ storage.SessionStore = &Store{}

// Open opens (and creates if needed) a bolt database at path.
func Open(path string) (*Store, error) {
	if err := storage.EnsureDir(path); err != nil {
		return nil, fmt.Errorf("create bolt dir: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketSessions)); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketSessions, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Insert(ctx context.Context, session storage.ChargingSession) (storage.ChargingSession, error) {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return fmt.Errorf("bucket missing: %s", bucketSessions)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		session.ID = int64(seq)
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		return b.Put(itob(seq), data)
	})
	if err != nil {
		return storage.ChargingSession{}, err
	}
	return session, nil
}

func (s *Store) QueryRecent(ctx context.Context, limit int) ([]storage.ChargingSession, error) {
	if limit <= 0 {
		return []storage.ChargingSession{}, nil
	}
	all, err := s.QueryAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) QueryAll(ctx context.Context) ([]storage.ChargingSession, error) {
	return s.list(ctx, func(storage.ChargingSession) bool { return true })
}

func (s *Store) QuerySince(ctx context.Context, since time.Time) ([]storage.ChargingSession, error) {
	from := since.UnixMilli()
	return s.list(ctx, func(c storage.ChargingSession) bool { return c.StartTime >= from })
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	if id <= 0 {
		return storage.ErrNotFound
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return storage.ErrNotFound
		}
		key := itob(uint64(id))
		if b.Get(key) == nil {
			return storage.ErrNotFound
		}
		return b.Delete(key)
	})
}

// ClearAll removes every session. The ID sequence keeps counting.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return nil
		}
		var keys [][]byte
		err := b.ForEach(func(k, _ []byte) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			keys = append(keys, append([]byte(nil), k...))
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) list(ctx context.Context, keep func(storage.ChargingSession) bool) ([]storage.ChargingSession, error) {
	items := make([]storage.ChargingSession, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var item storage.ChargingSession
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshal session: %w", err)
			}
			if keep(item) {
				items = append(items, item)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool { return storage.Newer(items[i], items[j]) })
	return items, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
