package services

import (
	"fmt"
	"sync"
	"time"

	"gsd/internal/providers"
	"gsd/internal/store"
	"gsd/internal/structures"
)

// Session bundles the store and the services of one user. Every user gets
// an isolated store, so records, webhooks and the revision counter never
// leak across users.
type Session struct {
	User     string
	Store    store.Store
	Webhooks providers.WebhookProviderInterface
	Revision RevisionServiceInterface
	Cgm      CgmServiceInterface
	Userdata UserdataServiceInterface
	Glucose  GlucoseServiceInterface
	Instant  InstantGlucoseServiceInterface
	Episodes EpisodeServiceInterface
	Insulin  InsulinServiceInterface
	Lows     LowServiceInterface
	Food     FoodServiceInterface
	HbA1c    HbA1cServiceInterface
	Upload   UploadServiceInterface
}

func NewSession(
	user string,
	st store.Store,
	conf *structures.Config,
	loc *time.Location,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) *Session {
	webhooks := providers.NewWebhookProvider(st, conf, logger, metrics, user)
	revision := NewRevisionService(st)
	cgm := NewCgmService(st)
	userdata := NewUserdataService(st)
	episodes := NewEpisodeService(st, conf, loc, revision, cgm, webhooks, logger, metrics)
	instant := NewInstantGlucoseService(st, loc, revision, logger)
	glucose := NewGlucoseService(st, conf, loc, revision, cgm, episodes, instant, userdata, webhooks, logger, metrics)
	insulin := NewInsulinService(st, loc, revision, webhooks, logger)
	lows := NewLowService(st, loc, revision, webhooks, logger)
	food := NewFoodService(st, loc, revision, webhooks, logger)
	hba1c := NewHbA1cService(glucose)
	upload := NewUploadService(cgm, glucose, episodes, instant, insulin, lows, food, revision, logger)

	return &Session{
		User:     user,
		Store:    st,
		Webhooks: webhooks,
		Revision: revision,
		Cgm:      cgm,
		Userdata: userdata,
		Glucose:  glucose,
		Instant:  instant,
		Episodes: episodes,
		Insulin:  insulin,
		Lows:     lows,
		Food:     food,
		HbA1c:    hba1c,
		Upload:   upload,
	}
}

// StoreFactory opens the backing store of one user.
type StoreFactory func(user string) (store.Store, error)

// SessionManagerInterface hands out per-user sessions, creating them lazily
// on first use.
type SessionManagerInterface interface {
	Session(user string) (*Session, error)
	Close() error
}

type SessionManager struct {
	conf    *structures.Config
	loc     *time.Location
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	factory StoreFactory

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager(
	conf *structures.Config,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
	factory StoreFactory,
) (SessionManagerInterface, error) {
	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", conf.Timezone, err)
	}
	return &SessionManager{
		conf:     conf,
		loc:      loc,
		logger:   logger,
		metrics:  metrics,
		factory:  factory,
		sessions: make(map[string]*Session),
	}, nil
}

func (sm *SessionManager) Session(user string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if session, ok := sm.sessions[user]; ok {
		return session, nil
	}
	st, err := sm.factory(user)
	if err != nil {
		return nil, fmt.Errorf("open store for user %q: %w", user, err)
	}
	session := NewSession(user, st, sm.conf, sm.loc, sm.logger, sm.metrics)
	sm.sessions[user] = session
	return session, nil
}

func (sm *SessionManager) Close() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	var firstErr error
	for user, session := range sm.sessions {
		if err := session.Store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close store for user %q: %w", user, err)
		}
		delete(sm.sessions, user)
	}
	return firstErr
}
