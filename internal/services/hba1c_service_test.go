package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsd/internal/models"
)

func historicAt(ts time.Time, mgDl int) models.GlucoseRecord {
	return models.GlucoseRecord{Timestamp: ts, MgDl: mgDl, RecordType: models.GlucoseRecordTypeHistoric}
}

func TestCalculateHbA1c(t *testing.T) {
	assert.Nil(t, CalculateHbA1c(nil))

	got := CalculateHbA1c([]models.GlucoseRecord{historicAt(at(0, 0), 100)})
	require.NotNil(t, got)
	assert.InDelta(t, 5.111498257839721, *got, 0.00001)

	// Interpolated minute by minute, 90..110 averages back to 100.
	got = CalculateHbA1c([]models.GlucoseRecord{
		historicAt(at(0, 0), 90),
		historicAt(at(0, 20), 110),
	})
	require.NotNil(t, got)
	assert.InDelta(t, 5.111498257839721, *got, 0.00001)

	got = CalculateHbA1c([]models.GlucoseRecord{
		historicAt(at(0, 0), 90),
		historicAt(at(0, 20), 111),
	})
	require.NotNil(t, got)
	assert.Greater(t, *got, 5.111498257839721)

	got = CalculateHbA1c([]models.GlucoseRecord{
		historicAt(at(0, 0), 90),
		historicAt(at(0, 20), 109),
	})
	require.NotNil(t, got)
	assert.Less(t, *got, 5.111498257839721)

	got = CalculateHbA1c([]models.GlucoseRecord{
		historicAt(at(0, 0), 90),
		historicAt(at(0, 1), 95),
	})
	require.NotNil(t, got)
	assert.InDelta(t, 4.850174216027875, *got, 0.00001)

	// A gap wider than the smoothing window is not interpolated: the late
	// reading enters the average as a single sample.
	got = CalculateHbA1c([]models.GlucoseRecord{
		historicAt(at(0, 0), 90),
		historicAt(at(0, 2), 95),
		historicAt(at(20, 0), 195),
	})
	require.NotNil(t, got)
	assert.InDelta(t, 5.743031358885017, *got, 0.00001)
}

func TestHbA1cCompute_UsesHistoricRange(t *testing.T) {
	f := newServiceFixture(t)
	hba1c := NewHbA1cService(f.glucose)

	require.NoError(t, f.glucose.Record(models.GlucoseRecordTypeHistoric, at(0, 0), 100, false))
	// Scans never contribute to the estimate.
	require.NoError(t, f.glucose.Record(models.GlucoseRecordTypeScan, at(0, 1), 200, false))

	result, err := hba1c.Compute(at(0, 0), at(1, 0))
	require.NoError(t, err)
	require.NotNil(t, result.HbA1c)
	assert.InDelta(t, 5.111498257839721, *result.HbA1c, 0.00001)
	assert.True(t, result.FromDate.Equal(at(0, 0)))

	empty, err := hba1c.Compute(at(2, 0), at(3, 0))
	require.NoError(t, err)
	assert.Nil(t, empty.HbA1c)
}
