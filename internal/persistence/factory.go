package persistence

import (
	"fmt"
	"sort"

	"gsd/internal/services"
	"gsd/internal/store"
	"gsd/internal/structures"
)

// NewStoreFactory picks the per-user store backend. The file backend opens
// snapshot-backed memory stores through the registry; the redis backend maps
// each configured user to its own database number.
func NewStoreFactory(conf *structures.Config, registry *StoreRegistry) services.StoreFactory {
	if conf.Storage.Backend == "redis" {
		dbs := redisUserDBs(conf)
		return func(user string) (store.Store, error) {
			db, ok := dbs[user]
			if !ok {
				return nil, fmt.Errorf("no redis database assigned to user %q", user)
			}
			return store.NewRedisStore(conf.Storage.Redis.Addr, conf.Storage.Redis.Password, db), nil
		}
	}
	return registry.Open
}

// redisUserDBs assigns database numbers deterministically: the default user
// keeps the configured db, every other configured user follows in sorted
// order. The assignment is stable as long as the user set in the config is.
func redisUserDBs(conf *structures.Config) map[string]int {
	base := conf.Storage.Redis.DB
	dbs := map[string]int{"default": base}

	users := make([]string, 0, len(conf.Auth.Tokens))
	seen := map[string]bool{"default": true}
	for _, user := range conf.Auth.Tokens {
		if !seen[user] {
			seen[user] = true
			users = append(users, user)
		}
	}
	sort.Strings(users)
	for i, user := range users {
		dbs[user] = base + 1 + i
	}
	return dbs
}
