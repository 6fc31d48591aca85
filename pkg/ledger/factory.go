package ledger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
)

// BackendType selects the ledger persistence backend.
type BackendType string

const (
	BackendMemory BackendType = "memory"
	BackendSQLite BackendType = "sqlite"
	BackendRedis  BackendType = "redis"
)

// NewStoreFromEnv creates a ledger store based on environment variables.
//
// Environment variables:
//   - LEDGER_BACKEND: "sqlite" (default), "redis", or "memory"
//   - DATA_DIR: base directory for the sqlite file (default: "data")
//   - LEDGER_SQLITE_PATH: explicit sqlite file path (overrides DATA_DIR)
//   - REDIS_ADDR, REDIS_PASSWORD: redis connection settings
func NewStoreFromEnv() (Store, error) {
	backend := BackendType(os.Getenv("LEDGER_BACKEND"))
	if backend == "" {
		backend = BackendSQLite
	}

	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		path := os.Getenv("LEDGER_SQLITE_PATH")
		if path == "" {
			dataDir := os.Getenv("DATA_DIR")
			if dataDir == "" {
				dataDir = "data"
			}
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				return nil, fmt.Errorf("ledger: ensure data dir: %w", err)
			}
			path = filepath.Join(dataDir, "ledger.db")
		}
		return OpenSQLiteStore(path)
	case BackendRedis:
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		return NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("ledger: unsupported backend: %s", backend)
	}
}
