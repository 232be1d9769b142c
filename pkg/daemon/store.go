package daemon

import (
	"fmt"

	"github.com/ahmmedrejowan/chargify/pkg/config"
	"github.com/ahmmedrejowan/chargify/pkg/storage"
	"github.com/ahmmedrejowan/chargify/pkg/storage/bolt"
	"github.com/ahmmedrejowan/chargify/pkg/storage/redis"
	"github.com/ahmmedrejowan/chargify/pkg/storage/sqlite"
)

func openStore(st config.Storage) (storage.SessionStore, error) {
	switch st.Backend {
	case config.BackendSQLite, "":
		return sqlite.Open(st.Path)
	case config.BackendBolt:
		return bolt.Open(st.Path)
	case config.BackendRedis:
		return redis.Open(redis.Options{
			Addr:     st.RedisAddr,
			Password: st.RedisPassword,
			DB:       st.RedisDB,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", st.Backend)
	}
}
