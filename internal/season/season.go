package season

import (
	"fmt"
	"time"

	"chain-arena/internal/constants"
	"chain-arena/internal/domain"
)

// seasonNames cycles after eight entries: season 9 reuses the first name.
var seasonNames = []string{
	"Genesis Season",
	"Iron Season",
	"Obsidian Season",
	"Ember Season",
	"Storm Season",
	"Frost Season",
	"Eclipse Season",
	"Aurora Season",
}

// New creates the next season. With no previous season it returns the genesis
// season (number 1); otherwise the number increments and the name cycles.
// Duration is always 90 days from now.
func New(prev *domain.Season, now time.Time) domain.Season {
	number := 1
	if prev != nil {
		number = prev.Number + 1
	}
	return domain.Season{
		ID:        fmt.Sprintf("s%d", number),
		Number:    number,
		Name:      seasonNames[(number-1)%len(seasonNames)],
		StartedAt: now.UnixMilli(),
		EndsAt:    now.Add(constants.SeasonDuration).UnixMilli(),
		IsActive:  true,
	}
}

// IsExpired reports whether the season has ended; the end instant counts as
// expired.
func IsExpired(s domain.Season, now time.Time) bool {
	return now.UnixMilli() >= s.EndsAt
}

// End returns an inactive copy, leaving the original untouched.
func End(s domain.Season) domain.Season {
	s.IsActive = false
	return s
}

// TimeRemaining is the countdown to a season's end, clamped at zero.
type TimeRemaining struct {
	Days    int   `json:"days"`
	Hours   int   `json:"hours"`
	TotalMs int64 `json:"totalMs"`
}

// Remaining computes the time left in the season.
func Remaining(s domain.Season, now time.Time) TimeRemaining {
	totalMs := s.EndsAt - now.UnixMilli()
	if totalMs < 0 {
		totalMs = 0
	}
	d := time.Duration(totalMs) * time.Millisecond
	return TimeRemaining{
		Days:    int(d.Hours()) / 24,
		Hours:   int(d.Hours()) % 24,
		TotalMs: totalMs,
	}
}
