package controllers

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"gsd/internal/models"
	"gsd/internal/providers"
	"gsd/internal/services"
)

type InstantGlucoseController struct {
	logger   providers.Logger
	sessions services.SessionManagerInterface
}

func NewInstantGlucoseController(logger providers.Logger, sessions services.SessionManagerInterface) *InstantGlucoseController {
	return &InstantGlucoseController{
		logger:   logger,
		sessions: sessions,
	}
}

const defaultLastInstant = 288

func (ic *InstantGlucoseController) GetLast(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(ic.sessions, w, r)
	if !ok {
		return
	}
	lastN := intParam(r, "last_n", defaultLastInstant)
	records, err := session.Instant.Latest(lastN)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (ic *InstantGlucoseController) Find(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(ic.sessions, w, r)
	if !ok {
		return
	}
	from, err := timeParam(r, "from")
	if err != nil || from == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	to, err := timeParam(r, "to")
	if err != nil || to == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	records, err := session.Instant.Find(*from, *to)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type instantGlucoseUpload struct {
	Records []models.InstantGlucoseRecord `json:"instant-glucose-records"`
}

func (ic *InstantGlucoseController) Upload(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(ic.sessions, w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var body instantGlucoseUpload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Records == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	status, err := session.Instant.InsertBatch(body.Records)
	if err != nil {
		ic.logger.Errorf(providers.TypeApp, "instant glucose upload failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (ic *InstantGlucoseController) ClearAll(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(ic.sessions, w, r)
	if !ok {
		return
	}
	if err := session.Instant.ClearAll(); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// downloadWindowSlackSeconds widens the historic augmentation window around
// the instant readings so edge records line up in the export.
const downloadWindowSlackSeconds = 300

type csvRow struct {
	timestamp time.Time
	model     string
	device    string
	instant   *int
	historic  *int
}

// Download exports the raw instant stream as CSV, augmented with the
// historic records covering the same time window, gzip-encoded when the
// client accepts it.
func (ic *InstantGlucoseController) Download(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(ic.sessions, w, r)
	if !ok {
		return
	}
	lastN := intParam(r, "last_n", services.DefaultInstantLastN)
	instant, err := session.Instant.Latest(lastN)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rows := make([]csvRow, 0, len(instant))
	for _, record := range instant {
		mgDl := record.MgDl
		rows = append(rows, csvRow{
			timestamp: record.Timestamp,
			model:     record.ModelName,
			device:    record.DeviceID,
			instant:   &mgDl,
		})
	}
	if len(instant) > 0 {
		from := instant[len(instant)-1].Timestamp.Add(-downloadWindowSlackSeconds * time.Second)
		to := instant[0].Timestamp.Add(downloadWindowSlackSeconds * time.Second)
		historic, err := session.Glucose.Find(models.GlucoseRecordTypeHistoric, from, to)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		for _, record := range historic {
			mgDl := record.MgDl
			rows = append(rows, csvRow{timestamp: record.Timestamp, historic: &mgDl})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].timestamp.Before(rows[j].timestamp)
	})

	var sb strings.Builder
	sb.WriteString("timestamp,model_name,device_id,instant,historic\n")
	for _, row := range rows {
		sb.WriteString(row.timestamp.Format(time.RFC3339))
		sb.WriteByte(',')
		sb.WriteString(row.model)
		sb.WriteByte(',')
		sb.WriteString(row.device)
		sb.WriteByte(',')
		if row.instant != nil {
			sb.WriteString(strconv.Itoa(*row.instant))
		}
		sb.WriteByte(',')
		if row.historic != nil {
			sb.WriteString(strconv.Itoa(*row.historic))
		}
		sb.WriteByte('\n')
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="instant-glucose.csv"`)
	if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer func() {
			if err := gz.Close(); err != nil {
				ic.logger.Errorf(providers.TypeApp, "closing gzip stream: %s", err)
			}
		}()
		_, _ = gz.Write([]byte(sb.String()))
		return
	}
	_, _ = w.Write([]byte(sb.String()))
}
