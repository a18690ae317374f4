package risk

import "time"

// Trading session windows in UTC hours.
const (
	londonOpen  = 7
	londonClose = 16
	newYorkOpen = 12
	newYorkEnd  = 21
	tokyoOpen   = 0
	tokyoClose  = 9
	sydneyOpen  = 21 // wraps midnight
	sydneyClose = 6
)

// Sessions reports which named trading sessions contain a given moment.
type Sessions struct {
	London  bool `json:"london"`
	NewYork bool `json:"newYork"`
	Tokyo   bool `json:"tokyo"`
	Sydney  bool `json:"sydney"`
}

// CurrentSessions computes UTC-hour session membership for t.
func CurrentSessions(t time.Time) Sessions {
	h := t.UTC().Hour()
	return Sessions{
		London:  h >= londonOpen && h < londonClose,
		NewYork: h >= newYorkOpen && h < newYorkEnd,
		Tokyo:   h >= tokyoOpen && h < tokyoClose,
		Sydney:  h >= sydneyOpen || h < sydneyClose,
	}
}

// IsWeekend reports whether t falls in the weekend market closure:
// Friday 21:00 UTC through Sunday 21:00 UTC.
func IsWeekend(t time.Time) bool {
	u := t.UTC()
	day := u.Weekday()
	hour := u.Hour()
	return (day == time.Friday && hour >= 21) ||
		day == time.Saturday ||
		(day == time.Sunday && hour < 21)
}

// checkSessionFilter applies the session gate. A disabled filter always
// passes regardless of the clock.
func checkSessionFilter(filter SessionFilter, now time.Time) (bool, string) {
	if !filter.Enabled {
		return true, ""
	}

	if filter.BlockWeekends && IsWeekend(now) {
		return false, "Trading blocked: Weekend market closure"
	}

	s := CurrentSessions(now)
	allowed := (filter.AllowLondon && s.London) ||
		(filter.AllowNewYork && s.NewYork) ||
		(filter.AllowTokyo && s.Tokyo) ||
		(filter.AllowSydney && s.Sydney)
	if !allowed {
		return false, "Trading blocked: Outside allowed trading sessions"
	}
	return true, ""
}
