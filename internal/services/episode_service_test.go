package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsd/internal/models"
)

func TestForMgDl_Thresholds(t *testing.T) {
	f := newServiceFixture(t)

	assert.Equal(t, models.EpisodeLow, f.episodes.ForMgDl(69))
	assert.Equal(t, models.EpisodeNormal, f.episodes.ForMgDl(70))
	assert.Equal(t, models.EpisodeNormal, f.episodes.ForMgDl(179))
	assert.Equal(t, models.EpisodeHigh, f.episodes.ForMgDl(180))
}

func TestEpisodeInsert_Statuses(t *testing.T) {
	f := newServiceFixture(t)

	status, err := f.episodes.Insert(models.EpisodeNormal, at(14, 0), false)
	require.NoError(t, err)
	assert.Equal(t, InsertEpisodeInserted, status)

	status, err = f.episodes.Insert(models.EpisodeHigh, at(15, 0), false)
	require.NoError(t, err)
	assert.Equal(t, InsertEpisodeInserted, status)

	// The state already in effect at that time: nothing to record.
	status, err = f.episodes.Insert(models.EpisodeHigh, at(15, 30), false)
	require.NoError(t, err)
	assert.Equal(t, InsertEpisodeDuplicate, status)

	// Same state as the stretch that follows: its start moves earlier.
	status, err = f.episodes.Insert(models.EpisodeHigh, at(14, 30), false)
	require.NoError(t, err)
	assert.Equal(t, InsertEpisodeReplaced, status)

	records, err := f.episodes.Last(10, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.EpisodeHigh, records[0].Episode)
	assert.True(t, records[0].Timestamp.Equal(at(14, 30)))
	assert.Equal(t, models.EpisodeNormal, records[1].Episode)
	assert.True(t, records[1].Timestamp.Equal(at(14, 0)))
}

func TestEpisodeInsert_DuplicateDoesNotBumpRevision(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.episodes.Insert(models.EpisodeNormal, at(14, 0), false)
	require.NoError(t, err)
	before, err := f.revision.Get()
	require.NoError(t, err)

	status, err := f.episodes.Insert(models.EpisodeNormal, at(14, 5), false)
	require.NoError(t, err)
	require.Equal(t, InsertEpisodeDuplicate, status)

	after, err := f.revision.Get()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEpisodeInsert_RetroactiveEarlierStartDoesNotNotify(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.episodes.Insert(models.EpisodeNormal, at(15, 0), true)
	require.NoError(t, err)
	require.Equal(t, 1, countEvents(f.notifier, "episode:changed"))

	// The same state starting earlier replaces the current record but the
	// in-effect state did not change, so no notification.
	status, err := f.episodes.Insert(models.EpisodeNormal, at(14, 0), true)
	require.NoError(t, err)
	assert.Equal(t, InsertEpisodeReplaced, status)
	assert.Equal(t, 1, countEvents(f.notifier, "episode:changed"))

	record, err := f.episodes.CurrentRecord(nil)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.Timestamp.Equal(at(14, 0)))
}

func TestEpisodeInsertBatch_OrderIndependent(t *testing.T) {
	forward := newServiceFixture(t)
	backward := newServiceFixture(t)

	records := []models.EpisodeRecord{
		{Timestamp: at(14, 0), Episode: models.EpisodeNormal},
		{Timestamp: at(15, 0), Episode: models.EpisodeHigh},
	}
	reversed := []models.EpisodeRecord{records[1], records[0]}

	_, err := forward.episodes.InsertBatch(records)
	require.NoError(t, err)
	_, err = backward.episodes.InsertBatch(reversed)
	require.NoError(t, err)

	a, err := forward.episodes.Last(10, nil)
	require.NoError(t, err)
	b, err := backward.episodes.Last(10, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	require.Len(t, a, 2)
	assert.Equal(t, models.EpisodeHigh, a[0].Episode)
}

func TestEpisodeInsertBatch_Status(t *testing.T) {
	f := newServiceFixture(t)

	status, err := f.episodes.InsertBatch([]models.EpisodeRecord{
		{Timestamp: at(14, 0), Episode: models.EpisodeNormal},
		{Timestamp: at(14, 30), Episode: models.EpisodeNormal},
		{Timestamp: at(15, 0), Episode: models.EpisodeHigh},
	})
	require.NoError(t, err)

	assert.True(t, status.Success)
	assert.Equal(t, 2, status.NbInserted)
	assert.Equal(t, 0, status.NbReplaced)
	assert.Equal(t, 1, status.NbDuplicates)
	assert.Equal(t, "added 2 record(s), replaced 0 record(s), skipped 1 duplicate(s)", status.Status)
}

func TestEpisodeCurrent_UntilBound(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.episodes.Insert(models.EpisodeNormal, at(14, 0), false)
	require.NoError(t, err)
	_, err = f.episodes.Insert(models.EpisodeHigh, at(15, 0), false)
	require.NoError(t, err)

	until := at(14, 30)
	episode, err := f.episodes.Current(&until)
	require.NoError(t, err)
	assert.Equal(t, models.EpisodeNormal, episode)

	episode, err = f.episodes.Current(nil)
	require.NoError(t, err)
	assert.Equal(t, models.EpisodeHigh, episode)

	before := at(13, 0)
	episode, err = f.episodes.Current(&before)
	require.NoError(t, err)
	assert.Equal(t, models.EpisodeUnknown, episode)
}

func TestEpisodeAfter_ExclusiveBound(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.episodes.Insert(models.EpisodeNormal, at(14, 0), false)
	require.NoError(t, err)
	_, err = f.episodes.Insert(models.EpisodeHigh, at(15, 0), false)
	require.NoError(t, err)

	records, err := f.episodes.After(at(14, 0))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.EpisodeHigh, records[0].Episode)
}
