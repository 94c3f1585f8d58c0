package models

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"gsd/internal/store"
)

// Episode is the derived glycemic state classification.
type Episode string

const (
	EpisodeUnknown      Episode = "unknown"
	EpisodeDisconnected Episode = "disconnected"
	EpisodeError        Episode = "error"
	EpisodeLow          Episode = "low"
	EpisodeNormal       Episode = "normal"
	EpisodeHigh         Episode = "high"
)

func ParseEpisode(s string) (Episode, error) {
	switch Episode(s) {
	case EpisodeUnknown, EpisodeDisconnected, EpisodeError, EpisodeLow, EpisodeNormal, EpisodeHigh:
		return Episode(s), nil
	}
	return "", fmt.Errorf("unknown episode %q", s)
}

type EpisodeRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Episode   Episode   `json:"episode"`
}

type episodeMember struct {
	Ts      string  `json:"ts"`
	Episode Episode `json:"episode"`
}

func EncodeEpisodeMember(timestamp time.Time, episode Episode) (score float64, member string, err error) {
	score = Score(timestamp)
	raw, err := json.Marshal(episodeMember{Ts: FormatScore(score), Episode: episode})
	if err != nil {
		return 0, "", err
	}
	return score, string(raw), nil
}

func DecodeEpisodeMember(m store.Member, loc *time.Location) (EpisodeRecord, error) {
	var raw episodeMember
	if err := json.Unmarshal([]byte(m.Value), &raw); err != nil {
		return EpisodeRecord{}, fmt.Errorf("decode episode member: %w", err)
	}
	ts, err := TimeFromScoreString(raw.Ts, loc)
	if err != nil {
		return EpisodeRecord{}, fmt.Errorf("decode episode member: %w", err)
	}
	return EpisodeRecord{Timestamp: ts, Episode: raw.Episode}, nil
}
