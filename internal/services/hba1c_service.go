package services

import (
	"sort"
	"time"

	"gsd/internal/models"
)

// smootheGlucoseForAtMostSeconds bounds the gap over which two readings are
// interpolated; beyond it the later reading enters the average as-is.
const smootheGlucoseForAtMostSeconds = 60 * 60

// HbA1cResult is an estimated HbA1c over a time range, nil when no historic
// records fall inside the range.
type HbA1cResult struct {
	FromDate time.Time `json:"from_date"`
	ToDate   time.Time `json:"to_date"`
	HbA1c    *float64  `json:"hba1c"`
}

type HbA1cServiceInterface interface {
	Compute(from, to time.Time) (HbA1cResult, error)
}

type HbA1cService struct {
	glucose GlucoseServiceInterface
}

func NewHbA1cService(glucose GlucoseServiceInterface) HbA1cServiceInterface {
	return &HbA1cService{glucose: glucose}
}

func (s *HbA1cService) Compute(from, to time.Time) (HbA1cResult, error) {
	records, err := s.glucose.Find(models.GlucoseRecordTypeHistoric, from, to)
	if err != nil {
		return HbA1cResult{}, err
	}
	return HbA1cResult{
		FromDate: from,
		ToDate:   to,
		HbA1c:    CalculateHbA1c(records),
	}, nil
}

// CalculateHbA1c estimates HbA1c from historic readings using the standard
// eAG formula (avg + 46.7) / 28.7. Readings are resampled to one value per
// minute by linear interpolation so that uneven sampling does not skew the
// average.
func CalculateHbA1c(records []models.GlucoseRecord) *float64 {
	if len(records) == 0 {
		return nil
	}
	sorted := make([]models.GlucoseRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	values := []float64{float64(sorted[0].MgDl)}
	last := sorted[0]
	for _, record := range sorted[1:] {
		deltaSeconds := record.Timestamp.Sub(last.Timestamp).Seconds()
		if deltaSeconds > smootheGlucoseForAtMostSeconds {
			values = append(values, float64(record.MgDl))
			last = record
			continue
		}
		deltaMgDl := float64(record.MgDl - last.MgDl)
		current := last.Timestamp.Add(time.Minute)
		for i := 1; !current.After(record.Timestamp); i++ {
			values = append(values, float64(last.MgDl)+deltaMgDl*float64(i)/(deltaSeconds/60))
			current = current.Add(time.Minute)
		}
		last = record
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	hba1c := (avg + 46.7) / 28.7
	return &hba1c
}
