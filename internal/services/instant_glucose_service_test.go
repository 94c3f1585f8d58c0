package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsd/internal/models"
)

func TestInstantGlucose_SameDeviceSameTimestampReplaces(t *testing.T) {
	f := newServiceFixture(t)

	require.NoError(t, f.instant.Record(models.InstantGlucoseRecord{
		Timestamp: at(14, 0), MgDl: 100, ModelName: "G7", DeviceID: "dev-1",
	}))
	require.NoError(t, f.instant.Record(models.InstantGlucoseRecord{
		Timestamp: at(14, 0), MgDl: 105, ModelName: "G7", DeviceID: "dev-1",
	}))

	records, err := f.instant.Latest(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 105, records[0].MgDl)
}

func TestInstantGlucose_OtherDevicesAtSameTimestampPreserved(t *testing.T) {
	f := newServiceFixture(t)

	require.NoError(t, f.instant.Record(models.InstantGlucoseRecord{
		Timestamp: at(14, 0), MgDl: 100, ModelName: "G7", DeviceID: "dev-1",
	}))
	require.NoError(t, f.instant.Record(models.InstantGlucoseRecord{
		Timestamp: at(14, 0), MgDl: 98, ModelName: "Libre", DeviceID: "dev-2",
	}))
	require.NoError(t, f.instant.Record(models.InstantGlucoseRecord{
		Timestamp: at(14, 0), MgDl: 102, ModelName: "G7", DeviceID: "dev-1",
	}))

	records, err := f.instant.Latest(10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byDevice := map[string]int{}
	for _, record := range records {
		byDevice[record.DeviceID] = record.MgDl
	}
	assert.Equal(t, 102, byDevice["dev-1"])
	assert.Equal(t, 98, byDevice["dev-2"])
}

func TestInstantGlucose_RecordDoesNotBumpRevision(t *testing.T) {
	f := newServiceFixture(t)

	before, err := f.revision.Get()
	require.NoError(t, err)
	require.NoError(t, f.instant.Record(models.InstantGlucoseRecord{
		Timestamp: at(14, 0), MgDl: 100, ModelName: "G7", DeviceID: "dev-1",
	}))
	after, err := f.revision.Get()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestInstantGlucose_FindWindow(t *testing.T) {
	f := newServiceFixture(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, f.instant.Record(models.InstantGlucoseRecord{
			Timestamp: at(14, i), MgDl: 100 + i, ModelName: "G7", DeviceID: "dev-1",
		}))
	}

	records, err := f.instant.Find(at(14, 1), at(14, 3))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 101, records[0].MgDl)
	assert.Equal(t, 103, records[2].MgDl)
}
