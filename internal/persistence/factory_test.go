package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsd/internal/structures"
)

func TestRedisUserDBs_DeterministicAssignment(t *testing.T) {
	conf := &structures.Config{}
	conf.Storage.Redis.DB = 3
	conf.Auth.Tokens = map[string]string{
		"token-c": "carol",
		"token-a": "alice",
		"token-b": "bob",
	}

	dbs := redisUserDBs(conf)
	assert.Equal(t, map[string]int{
		"default": 3,
		"alice":   4,
		"bob":     5,
		"carol":   6,
	}, dbs)
}

func TestRedisUserDBs_DuplicateAndDefaultUsers(t *testing.T) {
	conf := &structures.Config{}
	conf.Auth.Tokens = map[string]string{
		"token-1": "alice",
		"token-2": "alice",
		"token-3": "default",
	}

	dbs := redisUserDBs(conf)
	assert.Equal(t, map[string]int{"default": 0, "alice": 1}, dbs)
}

func TestStoreFactory_FileBackendSharesStorePerUser(t *testing.T) {
	conf := &structures.Config{}
	conf.Storage.Backend = "file"
	conf.Storage.FilePath = t.TempDir()

	registry := NewStoreRegistry(conf, newTestFileManager(t))
	factory := NewStoreFactory(conf, registry)

	first, err := factory("alice")
	require.NoError(t, err)
	second, err := factory("alice")
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := factory("bob")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestStoreFactory_RedisBackendRejectsUnknownUser(t *testing.T) {
	conf := &structures.Config{}
	conf.Storage.Backend = "redis"

	factory := NewStoreFactory(conf, nil)
	_, err := factory("stranger")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stranger")
}
