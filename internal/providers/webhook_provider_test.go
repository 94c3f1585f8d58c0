package providers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsd/internal/store"
	"gsd/internal/structures"
)

type recordedLogger struct{}

func (recordedLogger) Errorf(TypeEnum, string, ...interface{}) {}
func (recordedLogger) Warnf(TypeEnum, string, ...interface{})  {}
func (recordedLogger) Debugf(TypeEnum, string, ...interface{}) {}
func (recordedLogger) Infof(TypeEnum, string, ...interface{})  {}
func (recordedLogger) Fatalf(TypeEnum, string, ...interface{}) {}
func (recordedLogger) Close()                                  {}

type countingMetrics struct {
	noopMetrics
	calls    int
	failures int
}

func (m *countingMetrics) IncWebhookCalls(string)    { m.calls++ }
func (m *countingMetrics) IncWebhookFailures(string) { m.failures++ }

func newTestWebhookProvider(t *testing.T, mutate func(*structures.Config)) (WebhookProviderInterface, *countingMetrics) {
	t.Helper()
	conf := &structures.Config{}
	conf.Webhooks.Timeout = 2 * time.Second
	conf.Webhooks.Sync = true
	if mutate != nil {
		mutate(conf)
	}
	metrics := &countingMetrics{}
	return NewWebhookProvider(store.NewMemStore(), conf, recordedLogger{}, metrics, "default"), metrics
}

func TestWebhookProvider_RegisterListDelete(t *testing.T) {
	wp, _ := newTestWebhookProvider(t, nil)

	id1, err := wp.Register("glucose:changed", "http://example.com/a", "")
	require.NoError(t, err)
	id2, err := wp.Register("glucose:changed", "http://example.com/b", "new.mgDl > `180`")
	require.NoError(t, err)

	regs, err := wp.List("glucose:changed")
	require.NoError(t, err)
	require.Len(t, regs, 2)

	require.NoError(t, wp.Delete("glucose:changed", id1))
	regs, err = wp.List("glucose:changed")
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, id2, regs[0].ID)

	require.NoError(t, wp.DeleteAll("glucose:changed"))
	regs, err = wp.List("glucose:changed")
	require.NoError(t, err)
	assert.Empty(t, regs)
}

func TestWebhookProvider_CallDeliversWithUserHeader(t *testing.T) {
	var gotUser string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get("X-Gsd-User")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer server.Close()

	wp, metrics := newTestWebhookProvider(t, nil)
	_, err := wp.Register("episode:changed", server.URL, "")
	require.NoError(t, err)

	wp.Call("episode:changed", map[string]string{"episode": "high"})

	assert.Equal(t, "default", gotUser)
	assert.JSONEq(t, `{"episode":"high"}`, string(gotBody))
	assert.Equal(t, 1, metrics.calls)
	assert.Equal(t, 0, metrics.failures)
}

func TestWebhookProvider_FilterSkipsNonMatchingPayloads(t *testing.T) {
	delivered := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered++
	}))
	defer server.Close()

	wp, _ := newTestWebhookProvider(t, nil)
	_, err := wp.Register("glucose:changed", server.URL, "new.mgDl > `180`")
	require.NoError(t, err)

	wp.Call("glucose:changed", map[string]interface{}{"new": map[string]interface{}{"mgDl": 120}})
	assert.Equal(t, 0, delivered)

	wp.Call("glucose:changed", map[string]interface{}{"new": map[string]interface{}{"mgDl": 210}})
	assert.Equal(t, 1, delivered)
}

func TestWebhookProvider_FailedDeliveryCountsAsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	wp, metrics := newTestWebhookProvider(t, nil)
	_, err := wp.Register("glucose:changed", server.URL, "")
	require.NoError(t, err)

	wp.Call("glucose:changed", map[string]string{"x": "y"})
	assert.Equal(t, 1, metrics.calls)
	assert.Equal(t, 1, metrics.failures)
}

func TestWebhookProvider_MaxCallsCapsDispatch(t *testing.T) {
	delivered := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered++
	}))
	defer server.Close()

	wp, _ := newTestWebhookProvider(t, func(conf *structures.Config) {
		conf.Webhooks.MaxCalls = 2
	})
	_, err := wp.Register("glucose:changed", server.URL, "")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		wp.Call("glucose:changed", map[string]int{"n": i})
	}
	assert.Equal(t, 2, delivered)
}

func TestWebhookProvider_LastDeliveriesRecordedAndFiltered(t *testing.T) {
	wp, _ := newTestWebhookProvider(t, nil)

	wp.Call("glucose:changed", map[string]interface{}{"new": map[string]interface{}{"mgDl": 120}})
	wp.Call("glucose:changed", map[string]interface{}{"new": map[string]interface{}{"mgDl": 210}})

	deliveries, err := wp.LastDeliveries("glucose:changed", "", 10)
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	// Newest first.
	assert.Contains(t, string(deliveries[0].Data), "210")

	deliveries, err = wp.LastDeliveries("glucose:changed", "new.mgDl > `180`", 10)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Contains(t, string(deliveries[0].Data), "210")
}

func TestWebhookProvider_DeliveryRecordedEvenWithoutRegistrations(t *testing.T) {
	wp, _ := newTestWebhookProvider(t, nil)

	wp.Call("insulin-record:changed", map[string]string{"x": "y"})

	deliveries, err := wp.LastDeliveries("insulin-record:changed", "", 10)
	require.NoError(t, err)
	assert.Len(t, deliveries, 1)
}

func TestMatchesFilter_LooseTruthiness(t *testing.T) {
	cases := []struct {
		payload string
		filter  string
		want    bool
	}{
		{`{"a": 1}`, "", true},
		{`{"a": 1}`, "a", true},
		{`{"a": 0}`, "a", false},
		{`{"a": ""}`, "a", false},
		{`{"a": "x"}`, "a", true},
		{`{"a": []}`, "a", false},
		{`{"a": [1]}`, "a", true},
		{`{"a": {}}`, "a", false},
		{`{"a": {"b": 1}}`, "a", true},
		{`{"a": false}`, "a", false},
		{`{"a": null}`, "a", false},
		{`{"a": 1}`, "b", false},
	}
	for _, tc := range cases {
		got, err := matchesFilter([]byte(tc.payload), tc.filter)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "payload %s filter %q", tc.payload, tc.filter)
	}
}
