package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahmmedrejowan/chargify/pkg/storage"
)

// Options configures the redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key. Defaults to "chargify".
	Prefix string
}

// Store implements storage.SessionStore on redis. Each session is a hash;
// a sorted set scored by start time indexes them.
type Store struct {
	client *redis.Client
	prefix string
}

var _ storage.SessionStore = &Store{}

// Open connects to redis and verifies the connection.
func Open(opts Options) (*Store, error) {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "chargify"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client, prefix: prefix}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) indexKey() string { return s.prefix + ":sessions" }
func (s *Store) seqKey() string   { return s.prefix + ":sessions:seq" }

func (s *Store) sessionKey(member string) string {
	return s.prefix + ":session:" + member
}

// member is zero padded so equal start times sort by id.
func member(id int64) string {
	return fmt.Sprintf("%020d", id)
}

func (s *Store) Insert(ctx context.Context, session storage.ChargingSession) (storage.ChargingSession, error) {
	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return storage.ChargingSession{}, fmt.Errorf("failed to allocate session id: %w", err)
	}
	session.ID = id
	m := member(id)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.sessionKey(m), sessionToHash(session))
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(session.StartTime), Member: m})
		return nil
	})
	if err != nil {
		return storage.ChargingSession{}, fmt.Errorf("failed to insert session: %w", err)
	}
	return session, nil
}

func (s *Store) QueryRecent(ctx context.Context, limit int) ([]storage.ChargingSession, error) {
	if limit <= 0 {
		return []storage.ChargingSession{}, nil
	}
	members, err := s.client.ZRevRange(ctx, s.indexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	return s.load(ctx, members)
}

func (s *Store) QueryAll(ctx context.Context) ([]storage.ChargingSession, error) {
	members, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	return s.load(ctx, members)
}

func (s *Store) QuerySince(ctx context.Context, since time.Time) ([]storage.ChargingSession, error) {
	members, err := s.client.ZRevRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	return s.load(ctx, members)
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	m := member(id)
	removed, err := s.client.ZRem(ctx, s.indexKey(), m).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session %d: %w", id, err)
	}
	if removed == 0 {
		return storage.ErrNotFound
	}
	if err := s.client.Del(ctx, s.sessionKey(m)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %d: %w", id, err)
	}
	return nil
}

// ClearAll removes every session and the index. The id sequence is kept.
func (s *Store) ClearAll(ctx context.Context) error {
	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, s.sessionKey(m))
	}
	keys = append(keys, s.indexKey())

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, members []string) ([]storage.ChargingSession, error) {
	sessions := make([]storage.ChargingSession, 0, len(members))
	if len(members) == 0 {
		return sessions, nil
	}

	cmds := make([]*redis.MapStringStringCmd, 0, len(members))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range members {
			cmds = append(cmds, pipe.HGetAll(ctx, s.sessionKey(m)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	for _, cmd := range cmds {
		data := cmd.Val()
		if len(data) == 0 {
			// Deleted between the index read and the load.
			continue
		}
		session, err := parseSession(data)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}
