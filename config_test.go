package gradebook

import (
	"testing"
	"time"

	"github.com/poiesic/gradebook/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, 16, cfg.CacheSize)
	assert.Equal(t, "gradebook", cfg.MongoDatabase)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(
		WithBackend(BackendBadger),
		WithPath("/tmp/gb"),
		WithCacheSize(4),
		WithSortedMemoryFind(true),
		WithConnectTimeout(time.Second),
	)
	assert.Equal(t, BackendBadger, cfg.Backend)
	assert.Equal(t, "/tmp/gb", cfg.Path)
	assert.Equal(t, 4, cfg.CacheSize)
	assert.True(t, cfg.SortedMemoryFind)
	assert.Equal(t, time.Second, cfg.ConnectTimeout)
}

func TestConfig_Normalize(t *testing.T) {
	cfg := &Config{Backend: "  MongoDB ", CacheSize: -3}
	cfg.Normalize()
	assert.Equal(t, BackendMongo, cfg.Backend)
	assert.Equal(t, 1, cfg.CacheSize)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)

	empty := &Config{}
	empty.Normalize()
	assert.Equal(t, BackendMemory, empty.Backend)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ConfigOption
		wantErr bool
	}{
		{"memory", nil, false},
		{"badger with path", []ConfigOption{WithBackend(BackendBadger), WithPath("/tmp/x")}, false},
		{"badger in memory", []ConfigOption{WithBackend(BackendBadger), WithInMemoryBadger(true)}, false},
		{"badger without path", []ConfigOption{WithBackend(BackendBadger)}, true},
		{"mongo", []ConfigOption{WithBackend(BackendMongo), WithMongoURI("mongodb://localhost:27017")}, false},
		{"mongo without uri", []ConfigOption{WithBackend(BackendMongo)}, true},
		{"mongo without database", []ConfigOption{WithBackend(BackendMongo), WithMongoURI("mongodb://h"), WithMongoDatabase("")}, true},
		{"unknown backend", []ConfigOption{WithBackend("postgres")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfig(tt.opts...).Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, storage.ErrConfiguration)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("reads environment", func(t *testing.T) {
		t.Setenv("GRADEBOOK_BACKEND", "badger")
		t.Setenv("GRADEBOOK_PATH", "/var/lib/gradebook")
		t.Setenv("GRADEBOOK_CACHE_SIZE", "64")
		t.Setenv("GRADEBOOK_CONNECT_TIMEOUT", "3s")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, BackendBadger, cfg.Backend)
		assert.Equal(t, "/var/lib/gradebook", cfg.Path)
		assert.Equal(t, 64, cfg.CacheSize)
		assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
	})

	t.Run("options override environment", func(t *testing.T) {
		t.Setenv("GRADEBOOK_BACKEND", "badger")
		cfg, err := LoadConfig(WithBackend(BackendMemory))
		require.NoError(t, err)
		assert.Equal(t, BackendMemory, cfg.Backend)
	})

	t.Run("malformed value", func(t *testing.T) {
		t.Setenv("GRADEBOOK_CACHE_SIZE", "lots")
		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env")
	})

	t.Run("invalid result", func(t *testing.T) {
		t.Setenv("GRADEBOOK_BACKEND", "mongo")
		_, err := LoadConfig()
		assert.ErrorIs(t, err, storage.ErrConfiguration)
	})
}
