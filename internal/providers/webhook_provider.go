package providers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmespath/go-jmespath"
	"go.uber.org/atomic"

	"gsd/internal/store"
	"gsd/internal/structures"
)

// maxLastDeliveries caps the per-event ring of recorded deliveries.
const maxLastDeliveries = 100

// NotifierInterface is the outbound side of change notifications. Delivery is
// fire-and-forget: failures are logged and dropped, never surfaced to the
// write path.
type NotifierInterface interface {
	Call(event string, payload interface{})
}

type WebhookRegistration struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Filter string `json:"filter"`
}

type WebhookDelivery struct {
	Date time.Time       `json:"date"`
	Data json.RawMessage `json:"data"`
}

type WebhookProviderInterface interface {
	NotifierInterface
	Register(event, url, filter string) (string, error)
	List(event string) ([]WebhookRegistration, error)
	Delete(event, id string) error
	DeleteAll(event string) error
	LastDeliveries(event, filter string, lastN int) ([]WebhookDelivery, error)
}

type WebhookProvider struct {
	store      store.Store
	logger     Logger
	metrics    MetricsProviderInterface
	client     *http.Client
	user       string
	maxCalls   int64
	sync       bool
	dispatched atomic.Int64
}

func NewWebhookProvider(st store.Store, conf *structures.Config, logger Logger, metrics MetricsProviderInterface, user string) WebhookProviderInterface {
	return &WebhookProvider{
		store:   st,
		logger:  logger,
		metrics: metrics,
		client: &http.Client{
			Timeout: conf.Webhooks.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		user:     user,
		maxCalls: conf.Webhooks.MaxCalls,
		sync:     conf.Webhooks.Sync,
	}
}

func registrationsKey(event string) string { return "webhooks:" + event }
func deliveriesKey(event string) string    { return "last-webhooks:" + event }

func (wp *WebhookProvider) Register(event, url, filter string) (string, error) {
	id := uuid.NewString()
	raw, err := json.Marshal(WebhookRegistration{URL: url, Filter: filter})
	if err != nil {
		return "", err
	}
	err = wp.store.Update(func(tx store.Tx) {
		tx.HSet(registrationsKey(event), id, string(raw))
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (wp *WebhookProvider) List(event string) ([]WebhookRegistration, error) {
	all, err := wp.store.HGetAll(registrationsKey(event))
	if err != nil {
		return nil, err
	}
	regs := make([]WebhookRegistration, 0, len(all))
	for id, raw := range all {
		var reg WebhookRegistration
		if err := json.Unmarshal([]byte(raw), &reg); err != nil {
			return nil, fmt.Errorf("decode webhook %s: %w", id, err)
		}
		reg.ID = id
		regs = append(regs, reg)
	}
	return regs, nil
}

func (wp *WebhookProvider) Delete(event, id string) error {
	return wp.store.Update(func(tx store.Tx) {
		tx.HDel(registrationsKey(event), id)
	})
}

func (wp *WebhookProvider) DeleteAll(event string) error {
	return wp.store.Update(func(tx store.Tx) {
		tx.Del(registrationsKey(event), deliveriesKey(event))
	})
}

func (wp *WebhookProvider) LastDeliveries(event, filter string, lastN int) ([]WebhookDelivery, error) {
	raws, err := wp.store.LRange(deliveriesKey(event), 0, lastN-1)
	if err != nil {
		return nil, err
	}
	deliveries := make([]WebhookDelivery, 0, len(raws))
	for _, raw := range raws {
		var d WebhookDelivery
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("decode webhook delivery: %w", err)
		}
		match, err := matchesFilter(d.Data, filter)
		if err != nil {
			return nil, err
		}
		if match {
			deliveries = append(deliveries, d)
		}
	}
	return deliveries, nil
}

// Call delivers the payload to every registration of the event and records it
// in the per-event delivery ring. Dispatch is asynchronous unless the
// provider was configured for synchronous mode.
func (wp *WebhookProvider) Call(event string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		wp.logger.Errorf(TypeApp, "webhook %s: cannot marshal payload: %s", event, err)
		return
	}
	if wp.sync {
		wp.dispatch(event, raw)
		return
	}
	go wp.dispatch(event, raw)
}

func (wp *WebhookProvider) dispatch(event string, payload []byte) {
	regs, err := wp.List(event)
	if err != nil {
		wp.logger.Errorf(TypeApp, "webhook %s: cannot list registrations: %s", event, err)
		return
	}
	for _, reg := range regs {
		match, err := matchesFilter(payload, reg.Filter)
		if err != nil {
			wp.logger.Warnf(TypeApp, "webhook %s (%s): bad filter %q: %s", event, reg.ID, reg.Filter, err)
			continue
		}
		if !match {
			continue
		}
		wp.deliver(event, reg, payload)
	}

	entry, err := json.Marshal(WebhookDelivery{Date: time.Now().UTC(), Data: payload})
	if err != nil {
		wp.logger.Errorf(TypeApp, "webhook %s: cannot marshal delivery: %s", event, err)
		return
	}
	err = wp.store.Update(func(tx store.Tx) {
		tx.LPush(deliveriesKey(event), string(entry))
		tx.LTrim(deliveriesKey(event), 0, maxLastDeliveries-1)
	})
	if err != nil {
		wp.logger.Errorf(TypeApp, "webhook %s: cannot record delivery: %s", event, err)
	}
}

func (wp *WebhookProvider) deliver(event string, reg WebhookRegistration, payload []byte) {
	if wp.maxCalls > 0 && wp.dispatched.Inc() > wp.maxCalls {
		wp.logger.Warnf(TypeApp, "webhook %s: dispatch cap reached, dropping call to %s", event, reg.URL)
		return
	}
	req, err := http.NewRequest(http.MethodPost, reg.URL, bytes.NewReader(payload))
	if err != nil {
		wp.logger.Warnf(TypeApp, "webhook %s: bad url %q: %s", event, reg.URL, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gsd-User", wp.user)

	wp.metrics.IncWebhookCalls(event)
	resp, err := wp.client.Do(req)
	if err != nil {
		wp.metrics.IncWebhookFailures(event)
		wp.logger.Debugf(TypeApp, "webhook %s: calling %s failed: %s", event, reg.URL, err)
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		wp.metrics.IncWebhookFailures(event)
		wp.logger.Debugf(TypeApp, "webhook %s: %s answered %d", event, reg.URL, resp.StatusCode)
	}
}

// matchesFilter evaluates a JMESPath expression against the payload; an empty
// expression matches everything. The result is interpreted loosely: nil,
// false, empty strings and empty collections do not match.
func matchesFilter(payload []byte, filter string) (bool, error) {
	if filter == "" {
		return true, nil
	}
	var data interface{}
	if err := json.Unmarshal(payload, &data); err != nil {
		return false, err
	}
	res, err := jmespath.Search(filter, data)
	if err != nil {
		return false, err
	}
	return isTruthy(res), nil
}

func isTruthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	}
	return true
}
