package store

// Snapshot is the serializable state of a MemStore, used by the file storage
// backend to persist and restore data across restarts.
type Snapshot struct {
	KV     map[string]string            `json:"kv"`
	ZSets  map[string][]Member          `json:"zsets"`
	Hashes map[string]map[string]string `json:"hashes"`
	Lists  map[string][]string          `json:"lists"`
}

func (s *MemStore) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		KV:     make(map[string]string, len(s.kv)),
		ZSets:  make(map[string][]Member, len(s.zsets)),
		Hashes: make(map[string]map[string]string, len(s.hashes)),
		Lists:  make(map[string][]string, len(s.lists)),
	}
	for k, v := range s.kv {
		snap.KV[k] = v
	}
	for k, set := range s.zsets {
		snap.ZSets[k] = append([]Member(nil), set...)
	}
	for k, h := range s.hashes {
		hc := make(map[string]string, len(h))
		for f, v := range h {
			hc[f] = v
		}
		snap.Hashes[k] = hc
	}
	for k, l := range s.lists {
		snap.Lists[k] = append([]string(nil), l...)
	}
	return snap
}

func (s *MemStore) Restore(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.kv = make(map[string]string, len(snap.KV))
	for k, v := range snap.KV {
		s.kv[k] = v
		s.touch(k)
	}
	s.zsets = make(map[string][]Member, len(snap.ZSets))
	for k, set := range snap.ZSets {
		s.zsets[k] = append([]Member(nil), set...)
		s.touch(k)
	}
	s.hashes = make(map[string]map[string]string, len(snap.Hashes))
	for k, h := range snap.Hashes {
		hc := make(map[string]string, len(h))
		for f, v := range h {
			hc[f] = v
		}
		s.hashes[k] = hc
		s.touch(k)
	}
	s.lists = make(map[string][]string, len(snap.Lists))
	for k, l := range snap.Lists {
		s.lists[k] = append([]string(nil), l...)
		s.touch(k)
	}
}
