package models

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// LowRecord tracks a treated hypoglycemia event and the sugar taken for it.
type LowRecord struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	SugarInGrams float64   `json:"sugar_in_grams"`
	Deleted      bool      `json:"deleted"`
}

func (r LowRecord) Equal(other LowRecord) bool {
	return r.ID == other.ID &&
		r.Timestamp.Unix() == other.Timestamp.Unix() &&
		r.SugarInGrams == other.SugarInGrams &&
		r.Deleted == other.Deleted
}

type lowValue struct {
	ID           string  `json:"id"`
	Ts           string  `json:"ts"`
	SugarInGrams float64 `json:"sugar_in_grams"`
	Deleted      bool    `json:"deleted"`
}

func EncodeLowValue(r LowRecord) (score float64, value string, err error) {
	score = Score(r.Timestamp)
	raw, err := json.Marshal(lowValue{ID: r.ID, Ts: FormatScore(score), SugarInGrams: r.SugarInGrams, Deleted: r.Deleted})
	if err != nil {
		return 0, "", err
	}
	return score, string(raw), nil
}

func DecodeLowValue(value string, loc *time.Location) (LowRecord, error) {
	var raw lowValue
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return LowRecord{}, fmt.Errorf("decode low value: %w", err)
	}
	ts, err := TimeFromScoreString(raw.Ts, loc)
	if err != nil {
		return LowRecord{}, fmt.Errorf("decode low value: %w", err)
	}
	return LowRecord{ID: raw.ID, Timestamp: ts, SugarInGrams: raw.SugarInGrams, Deleted: raw.Deleted}, nil
}
