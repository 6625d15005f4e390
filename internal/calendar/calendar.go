package calendar

import (
	"fmt"
	"sort"
	"time"
)

// Calendar holds an ascending list of trading sessions and supports
// O(log n) date -> index lookups. Sessions are normalized to UTC midnight
// for daily calendars; minute calendars store the exact bar timestamps.
type Calendar struct {
	sessions []time.Time
}

// New creates a Calendar from an ascending session list.
func New(sessions []time.Time) (*Calendar, error) {
	if len(sessions) == 0 {
		return nil, fmt.Errorf("calendar requires at least one session")
	}
	for i := 1; i < len(sessions); i++ {
		if !sessions[i].After(sessions[i-1]) {
			return nil, fmt.Errorf("calendar sessions not strictly ascending at position %d", i)
		}
	}
	owned := make([]time.Time, len(sessions))
	copy(owned, sessions)
	return &Calendar{sessions: owned}, nil
}

// NewWeekday generates a daily calendar of weekday sessions in [start, end].
func NewWeekday(start, end time.Time) (*Calendar, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("calendar end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	var sessions []time.Time
	for d := normalize(start); !d.After(normalize(end)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			sessions = append(sessions, d)
		}
	}
	return New(sessions)
}

// NewMinutes expands a daily calendar into a minute calendar with
// minutesPerSession bars per session, starting at open past midnight UTC.
func NewMinutes(daily *Calendar, open time.Duration, minutesPerSession int) (*Calendar, error) {
	if minutesPerSession <= 0 {
		return nil, fmt.Errorf("minutesPerSession must be positive, got %d", minutesPerSession)
	}
	minutes := make([]time.Time, 0, daily.Len()*minutesPerSession)
	for _, day := range daily.sessions {
		base := day.Add(open)
		for m := 0; m < minutesPerSession; m++ {
			minutes = append(minutes, base.Add(time.Duration(m)*time.Minute))
		}
	}
	return New(minutes)
}

func normalize(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Len returns the number of sessions.
func (c *Calendar) Len() int {
	return len(c.sessions)
}

// At returns the session at position i.
func (c *Calendar) At(i int) time.Time {
	return c.sessions[i]
}

// FirstSession returns the earliest known session.
func (c *Calendar) FirstSession() time.Time {
	return c.sessions[0]
}

// LastSession returns the latest known session.
func (c *Calendar) LastSession() time.Time {
	return c.sessions[len(c.sessions)-1]
}

// Sessions returns the sessions in [lo, hi) by position.
func (c *Calendar) Sessions(lo, hi int) []time.Time {
	return c.sessions[lo:hi]
}

// GetLoc returns the position of t, or an error if t is not a session.
func (c *Calendar) GetLoc(t time.Time) (int, error) {
	i := sort.Search(len(c.sessions), func(i int) bool {
		return !c.sessions[i].Before(t)
	})
	if i == len(c.sessions) || !c.sessions[i].Equal(t) {
		return 0, fmt.Errorf("%s is not a session", t.Format(time.RFC3339))
	}
	return i, nil
}

// SliceIndexer returns the half-open position range [lo, hi) of sessions
// falling within [start, end]. start and end need not be sessions.
func (c *Calendar) SliceIndexer(start, end time.Time) (int, int) {
	lo := sort.Search(len(c.sessions), func(i int) bool {
		return !c.sessions[i].Before(start)
	})
	hi := sort.Search(len(c.sessions), func(i int) bool {
		return c.sessions[i].After(end)
	})
	return lo, hi
}

// SearchLeft returns the position of the first session >= t.
func (c *Calendar) SearchLeft(t time.Time) int {
	return SearchLeft(c.sessions, t)
}

// SearchRight returns the position of the first session > t.
func (c *Calendar) SearchRight(t time.Time) int {
	return SearchRight(c.sessions, t)
}

// SearchLeft returns the insertion point for t in the ascending slice ts
// keeping equal elements to the right of the returned index.
func SearchLeft(ts []time.Time, t time.Time) int {
	return sort.Search(len(ts), func(i int) bool {
		return !ts[i].Before(t)
	})
}

// SearchRight returns the insertion point for t in the ascending slice ts
// keeping equal elements to the left of the returned index.
func SearchRight(ts []time.Time, t time.Time) int {
	return sort.Search(len(ts), func(i int) bool {
		return ts[i].After(t)
	})
}
