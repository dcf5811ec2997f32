package summary

import "time"

// DayWindow is the half-open UTC calendar-day interval that scopes every
// query and every client-side filter of one invocation.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// currentDayWindow computes the window once, at the start of an invocation.
// Reusing it everywhere keeps a run that straddles midnight on a single
// frame of reference.
func currentDayWindow() DayWindow {
	return dayWindowAt(time.Now())
}

func dayWindowAt(t time.Time) DayWindow {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return DayWindow{Start: start, End: start.Add(24 * time.Hour)}
}

// Contains reports whether ts falls inside the window.
func (w DayWindow) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// dateRange renders the search-qualifier range. The end date is the day
// after the start; the hosting service treats the range as date-inclusive.
func (w DayWindow) dateRange() string {
	return w.Start.Format("2006-01-02") + ".." + w.End.Format("2006-01-02")
}
