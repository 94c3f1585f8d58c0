package services

import (
	"testing"
	"time"

	"gsd/internal/store"
	"gsd/internal/structures"
	"gsd/internal/testutil"
)

type serviceFixture struct {
	store    *store.MemStore
	logger   *testutil.MockLogger
	notifier *testutil.MockNotifier
	metrics  *testutil.MockMetrics
	revision RevisionServiceInterface
	cgm      CgmServiceInterface
	userdata UserdataServiceInterface
	episodes EpisodeServiceInterface
	instant  InstantGlucoseServiceInterface
	glucose  GlucoseServiceInterface
	insulin  InsulinServiceInterface
	lows     LowServiceInterface
	food     FoodServiceInterface
	upload   UploadServiceInterface
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	st := store.NewMemStore()
	conf := &structures.Config{
		Thresholds: structures.ThresholdsConfig{Low: 70, High: 180},
	}
	logger := &testutil.MockLogger{}
	notifier := &testutil.MockNotifier{}
	metrics := &testutil.MockMetrics{}
	revision := NewRevisionService(st)
	cgm := NewCgmService(st)
	userdata := NewUserdataService(st)
	episodes := NewEpisodeService(st, conf, time.UTC, revision, cgm, notifier, logger, metrics)
	instant := NewInstantGlucoseService(st, time.UTC, revision, logger)
	glucose := NewGlucoseService(st, conf, time.UTC, revision, cgm, episodes, instant, userdata, notifier, logger, metrics)
	insulin := NewInsulinService(st, time.UTC, revision, notifier, logger)
	lows := NewLowService(st, time.UTC, revision, notifier, logger)
	food := NewFoodService(st, time.UTC, revision, notifier, logger)
	upload := NewUploadService(cgm, glucose, episodes, instant, insulin, lows, food, revision, logger)

	return &serviceFixture{
		store:    st,
		logger:   logger,
		notifier: notifier,
		metrics:  metrics,
		revision: revision,
		cgm:      cgm,
		userdata: userdata,
		episodes: episodes,
		instant:  instant,
		glucose:  glucose,
		insulin:  insulin,
		lows:     lows,
		food:     food,
		upload:   upload,
	}
}

// at builds a timestamp on a fixed day, UTC.
func at(hour, min int) time.Time {
	return time.Date(2023, 3, 15, hour, min, 0, 0, time.UTC)
}

func countEvents(notifier *testutil.MockNotifier, event string) int {
	count := 0
	for _, e := range notifier.Events() {
		if e == event {
			count++
		}
	}
	return count
}
