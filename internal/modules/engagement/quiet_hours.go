package engagement

import (
	"fmt"
	"strings"
	"time"
)

// QuietHours is a local wall-clock window [Start, End) in minutes after
// midnight. Start > End wraps past midnight.
type QuietHours struct {
	Start int
	End   int
}

// ParseQuietHours parses "HH:MM" bounds. ok is false when either bound is
// empty or malformed, or when both are equal, meaning no quiet window.
func ParseQuietHours(start, end string) (QuietHours, bool) {
	s, err := parseClock(start)
	if err != nil {
		return QuietHours{}, false
	}
	e, err := parseClock(end)
	if err != nil {
		return QuietHours{}, false
	}
	if s == e {
		return QuietHours{}, false
	}
	return QuietHours{Start: s, End: e}, true
}

func parseClock(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("empty clock")
	}
	var h, m int
	if _, err := fmt.Sscanf(v, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("clock %q: %w", v, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", v)
	}
	return h*60 + m, nil
}

func (q QuietHours) Contains(minute int) bool {
	if q.Start < q.End {
		return minute >= q.Start && minute < q.End
	}
	return minute >= q.Start || minute < q.End
}

// ContainsTime checks t's wall clock in its own location.
func (q QuietHours) ContainsTime(t time.Time) bool {
	return q.Contains(t.Hour()*60 + t.Minute())
}
