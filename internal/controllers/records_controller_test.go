package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsd/internal/models"
)

func TestInsulinUploadAndGetLast(t *testing.T) {
	f := newControllerFixture(t)
	c := NewInsulinController(f.logger, f.sessions)

	ts := time.Now().UTC().Add(-10 * time.Minute).Truncate(time.Second).Format(time.RFC3339)
	body := `{"insulin-records":[{"id":"i-1","timestamp":"` + ts + `","units":5}]}`
	rec := f.serve("POST /insulin/upload", c.Upload,
		httptest.NewRequest(http.MethodPost, "/insulin/upload", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.serve("GET /insulin/last", c.GetLast,
		httptest.NewRequest(http.MethodGet, "/insulin/last", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var records []models.InsulinRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "i-1", records[0].ID)
	assert.Equal(t, 5, records[0].Units)
}

func TestInsulinUpload_MissingRecordsRejected(t *testing.T) {
	f := newControllerFixture(t)
	c := NewInsulinController(f.logger, f.sessions)

	rec := f.serve("POST /insulin/upload", c.Upload,
		httptest.NewRequest(http.MethodPost, "/insulin/upload", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInsulinClearAll(t *testing.T) {
	f := newControllerFixture(t)
	c := NewInsulinController(f.logger, f.sessions)
	require.NoError(t, f.session(t).Insulin.Record(models.InsulinRecord{
		ID: "i-1", Timestamp: time.Now().UTC(), Units: 3,
	}))

	rec := f.serve("DELETE /insulin", c.ClearAll,
		httptest.NewRequest(http.MethodDelete, "/insulin", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	records, err := f.session(t).Insulin.Latest(10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLowUploadAndGetLast(t *testing.T) {
	f := newControllerFixture(t)
	c := NewLowController(f.logger, f.sessions)

	ts := time.Now().UTC().Add(-10 * time.Minute).Truncate(time.Second).Format(time.RFC3339)
	body := `{"low-records":[{"id":"l-1","timestamp":"` + ts + `","sugar_in_grams":15}]}`
	rec := f.serve("POST /low/upload", c.Upload,
		httptest.NewRequest(http.MethodPost, "/low/upload", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.serve("GET /low/last", c.GetLast,
		httptest.NewRequest(http.MethodGet, "/low/last", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var records []models.LowRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, 15.0, records[0].SugarInGrams)
}

func TestFoodUploadAndGetLast(t *testing.T) {
	f := newControllerFixture(t)
	c := NewFoodController(f.logger, f.sessions)

	ts := time.Now().UTC().Add(-10 * time.Minute).Truncate(time.Second).Format(time.RFC3339)
	body := `{"food-records":[{"id":"f-1","timestamp":"` + ts + `","name":"Pasta","carbs":45.5}]}`
	rec := f.serve("POST /food/upload", c.Upload,
		httptest.NewRequest(http.MethodPost, "/food/upload", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.serve("GET /food/last", c.GetLast,
		httptest.NewRequest(http.MethodGet, "/food/last", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var records []models.FoodRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Pasta", records[0].Name)
	require.NotNil(t, records[0].Carbs)
	assert.Equal(t, 45.5, *records[0].Carbs)
}
