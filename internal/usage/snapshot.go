package usage

import (
	"encoding/json"
	"math"
	"time"
)

// Snapshot is the result of one refresh cycle. When Error is set the counts
// are meaningless and the snapshot must be shown as failed.
type Snapshot struct {
	Used       int
	Total      int
	Percentage float64
	Email      string
	UpdatedAt  time.Time
	Error      string
}

// Failure builds a failed snapshot stamped at now.
func Failure(now time.Time, msg string) Snapshot {
	return Snapshot{UpdatedAt: now, Error: msg}
}

func (s Snapshot) Failed() bool {
	return s.Error != ""
}

// Pending reports whether no cycle has completed yet.
func (s Snapshot) Pending() bool {
	return s.UpdatedAt.IsZero() && s.Error == ""
}

// Remaining is the number of requests left, never negative.
func (s Snapshot) Remaining() int {
	return max(s.Total-s.Used, 0)
}

// LastUpdate is UpdatedAt as local wall-clock time, HH:MM:SS.
func (s Snapshot) LastUpdate() string {
	if s.UpdatedAt.IsZero() {
		return ""
	}
	return s.UpdatedAt.Local().Format("15:04:05")
}

// Percent returns used/total as a percentage rounded to one decimal place,
// capped at 100. A zero total gives 0.
func Percent(used, total int) float64 {
	if total <= 0 || used <= 0 {
		return 0
	}
	p := math.Round(float64(used)*1000/float64(total)) / 10
	return math.Min(p, 100)
}

type snapshotJSON struct {
	Used       int     `json:"used"`
	Total      int     `json:"total"`
	Remaining  int     `json:"remaining"`
	Percentage float64 `json:"percentage"`
	Email      string  `json:"email,omitempty"`
	LastUpdate string  `json:"last_update,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	v := snapshotJSON{
		Used:       s.Used,
		Total:      s.Total,
		Remaining:  s.Remaining(),
		Percentage: s.Percentage,
		Email:      s.Email,
		LastUpdate: s.LastUpdate(),
		Error:      s.Error,
	}
	if !s.UpdatedAt.IsZero() {
		v.UpdatedAt = s.UpdatedAt.Format(time.RFC3339)
	}
	return json.Marshal(v)
}
