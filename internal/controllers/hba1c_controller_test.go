package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsd/internal/models"
)

func TestHbA1cCompute_RequiresRange(t *testing.T) {
	f := newControllerFixture(t)
	hc := NewHbA1cController(f.logger, f.sessions)

	rec := f.serve("POST /hba1c", hc.Compute,
		httptest.NewRequest(http.MethodPost, "/hba1c", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHbA1cCompute_ReturnsEstimate(t *testing.T) {
	f := newControllerFixture(t)
	hc := NewHbA1cController(f.logger, f.sessions)

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, f.session(t).Glucose.Record(models.GlucoseRecordTypeHistoric, base, 100, false))

	from := base.Add(-time.Minute).Format(time.RFC3339)
	to := base.Add(time.Minute).Format(time.RFC3339)
	rec := f.serve("POST /hba1c", hc.Compute,
		httptest.NewRequest(http.MethodPost, "/hba1c?from="+from+"&to="+to, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		HbA1c *float64 `json:"hba1c"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.HbA1c)
	assert.InDelta(t, 5.1115, *result.HbA1c, 0.001)
}

func TestHbA1cCompute_NullWhenNoData(t *testing.T) {
	f := newControllerFixture(t)
	hc := NewHbA1cController(f.logger, f.sessions)

	from := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339)
	to := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	rec := f.serve("POST /hba1c", hc.Compute,
		httptest.NewRequest(http.MethodPost, "/hba1c?from="+from+"&to="+to, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		HbA1c *float64 `json:"hba1c"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Nil(t, result.HbA1c)
}
