package paper

import (
	"fmt"
	"strings"
	"time"
)

// Blackout is a weekly window during which ticks are ignored. The window
// opens on StartDay at StartHour UTC and lasts Duration.
type Blackout struct {
	Enabled   bool
	StartDay  time.Weekday
	StartHour int
	Duration  time.Duration
}

// DefaultBlackout covers the weekend: Friday 18:00 UTC through Sunday 06:00.
func DefaultBlackout() Blackout {
	return Blackout{Enabled: true, StartDay: time.Friday, StartHour: 18, Duration: 36 * time.Hour}
}

func (b Blackout) Contains(t time.Time) bool {
	if !b.Enabled || b.Duration <= 0 {
		return false
	}
	t = t.UTC()
	back := (int(t.Weekday()) - int(b.StartDay) + 7) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	start := day.AddDate(0, 0, -back).Add(time.Duration(b.StartHour) * time.Hour)
	if start.After(t) {
		start = start.AddDate(0, 0, -7)
	}
	return t.Before(start.Add(b.Duration))
}

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
