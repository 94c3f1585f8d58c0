package models

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

type GlucoseSpeed string

const (
	GlucoseSpeedAuto   GlucoseSpeed = "auto"
	GlucoseSpeedCustom GlucoseSpeed = "custom"
	GlucoseSpeedFast   GlucoseSpeed = "fast"
	GlucoseSpeedMedium GlucoseSpeed = "medium"
	GlucoseSpeedSlow   GlucoseSpeed = "slow"
)

// FoodComps describes how fast the carbs of a food are expected to absorb.
type FoodComps struct {
	GlucoseSpeed GlucoseSpeed `json:"glucose_speed"`
	Comp         *float64     `json:"comp"`
}

type FoodRecord struct {
	ID                string     `json:"id"`
	Timestamp         time.Time  `json:"timestamp"`
	Deleted           bool       `json:"deleted"`
	Name              string     `json:"name"`
	Carbs             *float64   `json:"carbs"`
	Comps             FoodComps  `json:"comps"`
	RecordUntil       *time.Time `json:"record_until"`
	RememberRecording bool       `json:"remember_recording"`
}

func (r FoodRecord) Equal(other FoodRecord) bool {
	if r.ID != other.ID ||
		r.Timestamp.Unix() != other.Timestamp.Unix() ||
		r.Deleted != other.Deleted ||
		r.Name != other.Name ||
		r.RememberRecording != other.RememberRecording {
		return false
	}
	if !equalFloatPtr(r.Carbs, other.Carbs) || !equalFloatPtr(r.Comps.Comp, other.Comps.Comp) {
		return false
	}
	if r.Comps.GlucoseSpeed != other.Comps.GlucoseSpeed {
		return false
	}
	return equalTimePtr(r.RecordUntil, other.RecordUntil)
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Unix() == b.Unix()
}

type foodValue struct {
	ID                string    `json:"id"`
	Ts                string    `json:"ts"`
	Deleted           bool      `json:"deleted"`
	Name              string    `json:"name"`
	Carbs             *float64  `json:"carbs"`
	Comps             FoodComps `json:"comps"`
	RecordUntil       *float64  `json:"record_until"`
	RememberRecording bool      `json:"remember_recording"`
}

func EncodeFoodValue(r FoodRecord) (score float64, value string, err error) {
	score = Score(r.Timestamp)
	var recordUntil *float64
	if r.RecordUntil != nil {
		s := Score(*r.RecordUntil)
		recordUntil = &s
	}
	raw, err := json.Marshal(foodValue{
		ID:                r.ID,
		Ts:                FormatScore(score),
		Deleted:           r.Deleted,
		Name:              r.Name,
		Carbs:             r.Carbs,
		Comps:             r.Comps,
		RecordUntil:       recordUntil,
		RememberRecording: r.RememberRecording,
	})
	if err != nil {
		return 0, "", err
	}
	return score, string(raw), nil
}

func DecodeFoodValue(value string, loc *time.Location) (FoodRecord, error) {
	var raw foodValue
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return FoodRecord{}, fmt.Errorf("decode food value: %w", err)
	}
	ts, err := TimeFromScoreString(raw.Ts, loc)
	if err != nil {
		return FoodRecord{}, fmt.Errorf("decode food value: %w", err)
	}
	var recordUntil *time.Time
	if raw.RecordUntil != nil {
		t := TimeFromScore(*raw.RecordUntil, loc)
		recordUntil = &t
	}
	return FoodRecord{
		ID:                raw.ID,
		Timestamp:         ts,
		Deleted:           raw.Deleted,
		Name:              raw.Name,
		Carbs:             raw.Carbs,
		Comps:             raw.Comps,
		RecordUntil:       recordUntil,
		RememberRecording: raw.RememberRecording,
	}, nil
}
