package store

import (
	"sort"
	"strconv"
	"sync"
)

// MemStore is a fully in-memory Store. It backs the file storage backend and
// the test suites. Every written key carries a version counter so Watch can
// detect conflicting concurrent writers the same way the Redis backend does.
type MemStore struct {
	mu     sync.RWMutex
	kv     map[string]string
	zsets  map[string][]Member
	hashes map[string]map[string]string
	lists  map[string][]string
	vers   map[string]uint64
}

func NewMemStore() *MemStore {
	return &MemStore{
		kv:     make(map[string]string),
		zsets:  make(map[string][]Member),
		hashes: make(map[string]map[string]string),
		lists:  make(map[string][]string),
		vers:   make(map[string]uint64),
	}
}

func (s *MemStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.kv[key]
	return v, ok, nil
}

func (s *MemStore) ZRangeByScore(key string, min, max float64, minExcl bool) ([]Member, error) {
	return s.ZRangeByScoreN(key, min, max, minExcl, -1)
}

func (s *MemStore) ZRangeByScoreN(key string, min, max float64, minExcl bool, n int) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Member
	for _, m := range s.zsets[key] {
		if m.Score > max {
			break
		}
		if m.Score < min || (minExcl && m.Score == min) {
			continue
		}
		out = append(out, m)
		if n >= 0 && len(out) == n {
			break
		}
	}
	return out, nil
}

func (s *MemStore) ZRevRangeByScoreN(key string, max float64, n int) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.zsets[key]
	var out []Member
	for i := len(set) - 1; i >= 0; i-- {
		if set[i].Score > max {
			continue
		}
		out = append(out, set[i])
		if n >= 0 && len(out) == n {
			break
		}
	}
	return out, nil
}

func (s *MemStore) ZTail(key string, n int) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.zsets[key]
	start := len(set) - n
	if n < 0 || start < 0 {
		start = 0
	}
	out := make([]Member, len(set)-start)
	copy(out, set[start:])
	return out, nil
}

func (s *MemStore) HGet(key, field string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.hashes[key][field]
	return v, ok, nil
}

func (s *MemStore) HGetAll(key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.hashes[key]))
	for f, v := range s.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (s *MemStore) LRange(key string, start, stop int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.lists[key]
	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= len(list) {
		stop = len(list) - 1
	}
	if start > stop {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

func (s *MemStore) Update(fn func(tx Tx)) error {
	tx := &memTx{}
	fn(tx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(tx)
	return nil
}

func (s *MemStore) Watch(keys []string, fn func(tx Tx) error) error {
	s.mu.RLock()
	snap := make(map[string]uint64, len(keys))
	for _, k := range keys {
		snap[k] = s.vers[k]
	}
	s.mu.RUnlock()

	tx := &memTx{}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.ops) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if s.vers[k] != snap[k] {
			return ErrConflict
		}
	}
	s.apply(tx)
	return nil
}

func (s *MemStore) Close() error { return nil }

// apply runs the buffered ops; the caller holds the write lock.
func (s *MemStore) apply(tx *memTx) {
	for _, op := range tx.ops {
		op(s)
	}
}

func (s *MemStore) touch(key string) {
	s.vers[key]++
}

type memTx struct {
	ops []func(*MemStore)
}

func (t *memTx) ZAdd(key string, score float64, member string) {
	t.ops = append(t.ops, func(s *MemStore) {
		set := s.zsets[key]
		for i, m := range set {
			if m.Value != member {
				continue
			}
			if m.Score == score {
				return
			}
			set = append(set[:i], set[i+1:]...)
			break
		}
		set = append(set, Member{Score: score, Value: member})
		sort.SliceStable(set, func(i, j int) bool {
			if set[i].Score != set[j].Score {
				return set[i].Score < set[j].Score
			}
			return set[i].Value < set[j].Value
		})
		s.zsets[key] = set
		s.touch(key)
	})
}

func (t *memTx) ZRemRangeByScore(key string, min, max float64) {
	t.ops = append(t.ops, func(s *MemStore) {
		set := s.zsets[key]
		kept := set[:0]
		removed := false
		for _, m := range set {
			if m.Score >= min && m.Score <= max {
				removed = true
				continue
			}
			kept = append(kept, m)
		}
		if removed {
			s.zsets[key] = append([]Member(nil), kept...)
			s.touch(key)
		}
	})
}

func (t *memTx) Set(key, value string) {
	t.ops = append(t.ops, func(s *MemStore) {
		s.kv[key] = value
		s.touch(key)
	})
}

func (t *memTx) Incr(key string) {
	t.ops = append(t.ops, func(s *MemStore) {
		s.kv[key] = incrDecimal(s.kv[key])
		s.touch(key)
	})
}

func (t *memTx) Del(keys ...string) {
	t.ops = append(t.ops, func(s *MemStore) {
		for _, key := range keys {
			delete(s.kv, key)
			delete(s.zsets, key)
			delete(s.hashes, key)
			delete(s.lists, key)
			s.touch(key)
		}
	})
}

func (t *memTx) HSet(key, field, value string) {
	t.ops = append(t.ops, func(s *MemStore) {
		h := s.hashes[key]
		if h == nil {
			h = make(map[string]string)
			s.hashes[key] = h
		}
		h[field] = value
		s.touch(key)
	})
}

func (t *memTx) HDel(key, field string) {
	t.ops = append(t.ops, func(s *MemStore) {
		delete(s.hashes[key], field)
		s.touch(key)
	})
}

func (t *memTx) LPush(key, value string) {
	t.ops = append(t.ops, func(s *MemStore) {
		s.lists[key] = append([]string{value}, s.lists[key]...)
		s.touch(key)
	})
}

func (t *memTx) LTrim(key string, start, stop int) {
	t.ops = append(t.ops, func(s *MemStore) {
		list := s.lists[key]
		if start < 0 {
			start = 0
		}
		if stop >= len(list) {
			stop = len(list) - 1
		}
		if start > stop || start >= len(list) {
			s.lists[key] = nil
		} else {
			s.lists[key] = append([]string(nil), list[start:stop+1]...)
		}
		s.touch(key)
	})
}

func incrDecimal(v string) string {
	n, _ := strconv.ParseInt(v, 10, 64)
	return strconv.FormatInt(n+1, 10)
}
