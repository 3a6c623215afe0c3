package engagement

import (
	"testing"
	"time"
)

func TestQuietHoursSameDay(t *testing.T) {
	q, ok := ParseQuietHours("19:00", "21:00")
	if !ok {
		t.Fatalf("expected quiet hours to parse")
	}
	cases := map[int]bool{
		18*60 + 59: false,
		19 * 60:    true,
		20 * 60:    true,
		21 * 60:    false,
	}
	for minute, want := range cases {
		if got := q.Contains(minute); got != want {
			t.Fatalf("Contains(%d)=%v want %v", minute, got, want)
		}
	}
}

func TestQuietHoursWrapMidnight(t *testing.T) {
	q, ok := ParseQuietHours("22:00", "07:00")
	if !ok {
		t.Fatalf("expected quiet hours to parse")
	}
	cases := map[int]bool{
		21*60 + 59: false,
		22 * 60:    true,
		23*60 + 30: true,
		0:          true,
		6*60 + 59:  true,
		7 * 60:     false,
		20 * 60:    false,
	}
	for minute, want := range cases {
		if got := q.Contains(minute); got != want {
			t.Fatalf("Contains(%d)=%v want %v", minute, got, want)
		}
	}
}

func TestQuietHoursUnset(t *testing.T) {
	for _, pair := range [][2]string{{"", ""}, {"22:00", ""}, {"25:00", "07:00"}, {"08:00", "08:00"}, {"late", "early"}} {
		if _, ok := ParseQuietHours(pair[0], pair[1]); ok {
			t.Fatalf("expected %v to mean no quiet hours", pair)
		}
	}
}

func TestQuietHoursContainsTimeUsesWallClock(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	q, _ := ParseQuietHours("19:30", "23:00")
	if !q.ContainsTime(time.Date(2024, 1, 15, 20, 0, 0, 0, loc)) {
		t.Fatalf("expected 20:00 local to be quiet")
	}
	if q.ContainsTime(time.Date(2024, 1, 15, 19, 0, 0, 0, loc)) {
		t.Fatalf("expected 19:00 local to be outside quiet hours")
	}
}

func TestParseSlotHours(t *testing.T) {
	got := parseSlotHours("morning_motivation=8, evening_checkin = 21,bad,progress_reminder=99")
	if got["morning_motivation"] != 8 || got["evening_checkin"] != 21 {
		t.Fatalf("unexpected slot hours %v", got)
	}
	if _, ok := got["progress_reminder"]; ok {
		t.Fatalf("expected out-of-range hour to be ignored")
	}
}
