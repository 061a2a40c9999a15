package scheduler

import (
	"fmt"
	"time"

	"github.com/linkdive/linkdive/internal/config"
)

// Window describes when monitoring work may be enqueued. Hours are half
// open: a 07-19 window admits 07:00:00 through 18:59:59 local time.
type Window struct {
	loc      *time.Location
	start    int
	end      int
	weekdays map[time.Weekday]bool
}

// NewWindow builds a Window from configuration.
func NewWindow(cfg *config.WindowConfig) (*Window, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid window timezone %q: %w", cfg.Timezone, err)
	}

	weekdays := make(map[time.Weekday]bool, len(cfg.Weekdays))
	for _, d := range cfg.Weekdays {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("invalid window weekday %d", d)
		}
		weekdays[time.Weekday(d)] = true
	}

	return &Window{
		loc:      loc,
		start:    cfg.StartHour,
		end:      cfg.EndHour,
		weekdays: weekdays,
	}, nil
}

// Contains reports whether the instant falls inside the window.
func (w *Window) Contains(t time.Time) bool {
	local := t.In(w.loc)
	if !w.weekdays[local.Weekday()] {
		return false
	}
	hour := local.Hour()
	return hour >= w.start && hour < w.end
}
