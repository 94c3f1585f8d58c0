package testutil

import (
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"gsd/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// MockNotifier implements providers.NotifierInterface and records every call
// with its marshalled payload.
type MockNotifier struct {
	mu    sync.Mutex
	Calls []NotifierCall
}

type NotifierCall struct {
	Event   string
	Payload []byte
}

func (m *MockNotifier) Call(event string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, NotifierCall{Event: event, Payload: raw})
}

// Events returns the recorded event names in call order.
func (m *MockNotifier) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]string, 0, len(m.Calls))
	for _, call := range m.Calls {
		events = append(events, call.Event)
	}
	return events
}

// Reset drops all recorded calls.
func (m *MockNotifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu                sync.Mutex
	Requests          int
	CacheHits         int
	CacheMisses       int
	WebhookCalls      map[string]int
	WebhookFailures   map[string]int
	EpisodeInserts    map[string]int
	MergeComputations int
	Persistences      int
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
}

func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) IncWebhookCalls(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WebhookCalls == nil {
		m.WebhookCalls = make(map[string]int)
	}
	m.WebhookCalls[event]++
}

func (m *MockMetrics) IncWebhookFailures(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WebhookFailures == nil {
		m.WebhookFailures = make(map[string]int)
	}
	m.WebhookFailures[event]++
}

func (m *MockMetrics) IncEpisodeInserts(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EpisodeInserts == nil {
		m.EpisodeInserts = make(map[string]int)
	}
	m.EpisodeInserts[status]++
}

func (m *MockMetrics) IncMergeComputations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MergeComputations++
}

func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persistences++
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Data == nil {
		m.Data = make(map[string][]byte)
	}
	m.Data[key] = value
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}
