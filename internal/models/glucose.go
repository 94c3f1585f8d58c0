package models

import (
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"gsd/internal/store"
)

type GlucoseRecordType string

const (
	// Historic records are the periodic CGM samples, the authoritative
	// baseline. Scan records are ad-hoc samples filling the gaps.
	GlucoseRecordTypeHistoric GlucoseRecordType = "historic"
	GlucoseRecordTypeScan     GlucoseRecordType = "scan"
)

func ParseGlucoseRecordType(s string) (GlucoseRecordType, error) {
	switch GlucoseRecordType(s) {
	case GlucoseRecordTypeHistoric, GlucoseRecordTypeScan:
		return GlucoseRecordType(s), nil
	}
	return "", fmt.Errorf("unknown glucose record type %q", s)
}

type GlucoseRecord struct {
	Timestamp  time.Time         `json:"timestamp"`
	MgDl       int               `json:"mgDl"`
	RecordType GlucoseRecordType `json:"record_type"`
}

type glucoseMember struct {
	Ts   string `json:"ts"`
	MgDl int    `json:"mgDl"`
}

// EncodeGlucoseMember renders a record to its stored member form. The score
// is the unix timestamp at second precision.
func EncodeGlucoseMember(timestamp time.Time, mgDl int) (score float64, member string, err error) {
	score = Score(timestamp)
	raw, err := json.Marshal(glucoseMember{Ts: FormatScore(score), MgDl: mgDl})
	if err != nil {
		return 0, "", err
	}
	return score, string(raw), nil
}

func DecodeGlucoseMember(recordType GlucoseRecordType, m store.Member, loc *time.Location) (GlucoseRecord, error) {
	var raw glucoseMember
	if err := json.Unmarshal([]byte(m.Value), &raw); err != nil {
		return GlucoseRecord{}, fmt.Errorf("decode glucose member: %w", err)
	}
	ts, err := TimeFromScoreString(raw.Ts, loc)
	if err != nil {
		return GlucoseRecord{}, fmt.Errorf("decode glucose member: %w", err)
	}
	return GlucoseRecord{Timestamp: ts, MgDl: raw.MgDl, RecordType: recordType}, nil
}

// Score truncates a time to second precision for use as a collection score.
func Score(t time.Time) float64 {
	return float64(t.Unix())
}

func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func TimeFromScore(score float64, loc *time.Location) time.Time {
	return time.Unix(int64(score), 0).In(loc)
}

func TimeFromScoreString(s string, loc *time.Location) (time.Time, error) {
	score, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp score %q: %w", s, err)
	}
	return TimeFromScore(score, loc), nil
}
