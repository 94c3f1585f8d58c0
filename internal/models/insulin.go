package models

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

type InsulinRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Units     int       `json:"units"`
	Deleted   bool      `json:"deleted"`
}

// Equal reports whether two records carry the same payload, timestamps
// compared at second precision. Used for duplicate suppression.
func (r InsulinRecord) Equal(other InsulinRecord) bool {
	return r.ID == other.ID &&
		r.Timestamp.Unix() == other.Timestamp.Unix() &&
		r.Units == other.Units &&
		r.Deleted == other.Deleted
}

type insulinValue struct {
	ID      string `json:"id"`
	Ts      string `json:"ts"`
	Units   int    `json:"units"`
	Deleted bool   `json:"deleted"`
}

func EncodeInsulinValue(r InsulinRecord) (score float64, value string, err error) {
	score = Score(r.Timestamp)
	raw, err := json.Marshal(insulinValue{ID: r.ID, Ts: FormatScore(score), Units: r.Units, Deleted: r.Deleted})
	if err != nil {
		return 0, "", err
	}
	return score, string(raw), nil
}

func DecodeInsulinValue(value string, loc *time.Location) (InsulinRecord, error) {
	var raw insulinValue
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return InsulinRecord{}, fmt.Errorf("decode insulin value: %w", err)
	}
	ts, err := TimeFromScoreString(raw.Ts, loc)
	if err != nil {
		return InsulinRecord{}, fmt.Errorf("decode insulin value: %w", err)
	}
	return InsulinRecord{ID: raw.ID, Timestamp: ts, Units: raw.Units, Deleted: raw.Deleted}, nil
}
