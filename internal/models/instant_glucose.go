package models

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"gsd/internal/store"
)

// InstantGlucoseRecord is a raw per-device reading. Several devices may
// report at the same timestamp; dedup happens per (model, device) pair.
type InstantGlucoseRecord struct {
	Timestamp time.Time `json:"timestamp"`
	MgDl      int       `json:"mgDl"`
	ModelName string    `json:"model_name"`
	DeviceID  string    `json:"device_id"`
}

type instantGlucoseMember struct {
	Ts        string `json:"ts"`
	MgDl      int    `json:"mgDl"`
	ModelName string `json:"model_name"`
	DeviceID  string `json:"device_id"`
}

func EncodeInstantGlucoseMember(r InstantGlucoseRecord) (score float64, member string, err error) {
	score = Score(r.Timestamp)
	raw, err := json.Marshal(instantGlucoseMember{
		Ts:        FormatScore(score),
		MgDl:      r.MgDl,
		ModelName: r.ModelName,
		DeviceID:  r.DeviceID,
	})
	if err != nil {
		return 0, "", err
	}
	return score, string(raw), nil
}

func DecodeInstantGlucoseMember(m store.Member, loc *time.Location) (InstantGlucoseRecord, error) {
	var raw instantGlucoseMember
	if err := json.Unmarshal([]byte(m.Value), &raw); err != nil {
		return InstantGlucoseRecord{}, fmt.Errorf("decode instant glucose member: %w", err)
	}
	ts, err := TimeFromScoreString(raw.Ts, loc)
	if err != nil {
		return InstantGlucoseRecord{}, fmt.Errorf("decode instant glucose member: %w", err)
	}
	return InstantGlucoseRecord{
		Timestamp: ts,
		MgDl:      raw.MgDl,
		ModelName: raw.ModelName,
		DeviceID:  raw.DeviceID,
	}, nil
}
