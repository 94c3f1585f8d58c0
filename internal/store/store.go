// Package store provides the per-user data store primitives: ordered
// collections keyed by a numeric score (timestamps), plain keys, hashes and
// capped lists, with two interchangeable backends (Redis and in-memory).
package store

import "errors"

// ErrConflict is returned by Watch when one of the watched keys was modified
// by a concurrent writer between the reads and the commit.
var ErrConflict = errors.New("store: watched key modified concurrently")

// Member is an entry of an ordered collection.
type Member struct {
	Score float64 `json:"score"`
	Value string  `json:"value"`
}

// Tx buffers writes to be committed atomically.
type Tx interface {
	ZAdd(key string, score float64, member string)
	ZRemRangeByScore(key string, min, max float64)
	Set(key, value string)
	Incr(key string)
	Del(keys ...string)
	HSet(key, field, value string)
	HDel(key, field string)
	LPush(key, value string)
	LTrim(key string, start, stop int)
}

type Store interface {
	Get(key string) (string, bool, error)

	// ZRangeByScore returns members with min <= score <= max in ascending
	// score order. A true minExcl makes the lower bound exclusive. Use
	// math.Inf for unbounded ends.
	ZRangeByScore(key string, min, max float64, minExcl bool) ([]Member, error)
	// ZRangeByScoreN is ZRangeByScore limited to the first n members.
	ZRangeByScoreN(key string, min, max float64, minExcl bool, n int) ([]Member, error)
	// ZRevRangeByScoreN returns up to n members with score <= max in
	// descending score order.
	ZRevRangeByScoreN(key string, max float64, n int) ([]Member, error)
	// ZTail returns the last n members in ascending score order.
	ZTail(key string, n int) ([]Member, error)

	HGet(key, field string) (string, bool, error)
	HGetAll(key string) (map[string]string, error)
	LRange(key string, start, stop int) ([]string, error)

	// Update commits the writes buffered by fn as one atomic batch.
	Update(fn func(tx Tx)) error
	// Watch runs fn with reads against the live store and commits its
	// buffered writes only if none of the watched keys changed in between;
	// otherwise it returns ErrConflict without applying anything. A fn that
	// buffers no writes commits nothing and never conflicts.
	Watch(keys []string, fn func(tx Tx) error) error

	Close() error
}

// RunWatch retries an optimistic transaction until it commits without
// conflict. Conflicts are never surfaced to the caller; any other error
// aborts the loop.
func RunWatch(s Store, keys []string, fn func(tx Tx) error) error {
	for {
		err := s.Watch(keys, fn)
		if errors.Is(err, ErrConflict) {
			continue
		}
		return err
	}
}
