// Package recurrence expands RFC 5545 RRULE strings into concrete event
// occurrences. Only the subset used by calendar events is supported:
// FREQ, INTERVAL, COUNT, UNTIL, BYDAY and BYMONTHDAY.
package recurrence

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Frequency int

const (
	Daily Frequency = iota
	Weekly
	Monthly
	Yearly
)

func (f Frequency) String() string {
	switch f {
	case Daily:
		return "DAILY"
	case Weekly:
		return "WEEKLY"
	case Monthly:
		return "MONTHLY"
	case Yearly:
		return "YEARLY"
	}
	return "UNKNOWN"
}

// WeekdayOrd is a BYDAY entry. Ord is 0 for plain weekdays ("TU"),
// positive for the nth weekday of the month ("2TU") and negative
// counting from the end ("-1FR").
type WeekdayOrd struct {
	Weekday time.Weekday
	Ord     int
}

// Rule is a parsed RRULE. Zero Count and zero Until mean unbounded.
type Rule struct {
	Freq       Frequency
	Interval   int
	Count      int
	Until      time.Time
	ByDay      []WeekdayOrd
	ByMonthDay []int
}

var weekdayCodes = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

// Parse parses an RRULE string such as
// "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE;UNTIL=20261231T000000Z".
// A leading "RRULE:" prefix is tolerated. Unknown parts are rejected so a
// rule we cannot honor never silently expands to the wrong dates.
func Parse(s string) (*Rule, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "RRULE:"))
	if s == "" {
		return nil, fmt.Errorf("recurrence: empty rule")
	}

	rule := &Rule{Interval: 1}
	seenFreq := false

	for _, part := range strings.Split(s, ";") {
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("recurrence: malformed part %q", part)
		}
		name = strings.ToUpper(strings.TrimSpace(name))
		value = strings.TrimSpace(value)

		switch name {
		case "FREQ":
			switch strings.ToUpper(value) {
			case "DAILY":
				rule.Freq = Daily
			case "WEEKLY":
				rule.Freq = Weekly
			case "MONTHLY":
				rule.Freq = Monthly
			case "YEARLY":
				rule.Freq = Yearly
			default:
				return nil, fmt.Errorf("recurrence: unsupported FREQ %q", value)
			}
			seenFreq = true

		case "INTERVAL":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("recurrence: invalid INTERVAL %q", value)
			}
			rule.Interval = n

		case "COUNT":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("recurrence: invalid COUNT %q", value)
			}
			rule.Count = n

		case "UNTIL":
			t, err := parseUntil(value)
			if err != nil {
				return nil, err
			}
			rule.Until = t

		case "BYDAY":
			for _, code := range strings.Split(value, ",") {
				wd, err := parseWeekdayOrd(code)
				if err != nil {
					return nil, err
				}
				rule.ByDay = append(rule.ByDay, wd)
			}

		case "BYMONTHDAY":
			for _, raw := range strings.Split(value, ",") {
				n, err := strconv.Atoi(raw)
				if err != nil || n < 1 || n > 31 {
					return nil, fmt.Errorf("recurrence: invalid BYMONTHDAY %q", raw)
				}
				rule.ByMonthDay = append(rule.ByMonthDay, n)
			}
			sort.Ints(rule.ByMonthDay)

		case "WKST":
			// Week start only matters for BYWEEKNO style rules we don't
			// support; accept and ignore the default-compatible values.
			if _, ok := weekdayCodes[strings.ToUpper(value)]; !ok {
				return nil, fmt.Errorf("recurrence: invalid WKST %q", value)
			}

		default:
			return nil, fmt.Errorf("recurrence: unsupported part %q", name)
		}
	}

	if !seenFreq {
		return nil, fmt.Errorf("recurrence: missing FREQ")
	}
	if err := rule.validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

func (r *Rule) validate() error {
	if r.Count > 0 && !r.Until.IsZero() {
		// RFC 5545 forbids both; the original calendar kept whichever the
		// editor set last, so COUNT wins and UNTIL is dropped.
		r.Until = time.Time{}
	}
	for _, wd := range r.ByDay {
		if wd.Ord != 0 && r.Freq != Monthly {
			return fmt.Errorf("recurrence: ordinal BYDAY only valid with FREQ=MONTHLY")
		}
	}
	if len(r.ByMonthDay) > 0 && r.Freq != Monthly {
		return fmt.Errorf("recurrence: BYMONTHDAY only valid with FREQ=MONTHLY")
	}
	if len(r.ByMonthDay) > 0 && len(r.ByDay) > 0 {
		return fmt.Errorf("recurrence: BYDAY and BYMONTHDAY cannot be combined")
	}
	return nil
}

func parseWeekdayOrd(code string) (WeekdayOrd, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 2 {
		return WeekdayOrd{}, fmt.Errorf("recurrence: invalid BYDAY entry %q", code)
	}

	day := code[len(code)-2:]
	wd, ok := weekdayCodes[day]
	if !ok {
		return WeekdayOrd{}, fmt.Errorf("recurrence: invalid BYDAY weekday %q", code)
	}

	entry := WeekdayOrd{Weekday: wd}
	if prefix := code[:len(code)-2]; prefix != "" {
		n, err := strconv.Atoi(prefix)
		if err != nil || n == 0 || n > 4 || n < -4 {
			return WeekdayOrd{}, fmt.Errorf("recurrence: invalid BYDAY ordinal %q", code)
		}
		entry.Ord = n
	}
	return entry, nil
}

func parseUntil(value string) (time.Time, error) {
	// Basic formats per RFC 5545: 20261231T235959Z or the bare date 20261231.
	if t, err := time.Parse("20060102T150405Z", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("20060102", value); err == nil {
		// A bare date means "through that day", so instances on the day
		// itself still count.
		return t.Add(23*time.Hour + 59*time.Minute + 59*time.Second), nil
	}
	// The web editor historically posted RFC 3339 as well.
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("recurrence: invalid UNTIL %q", value)
}

// String renders the rule back into canonical RRULE form.
func (r *Rule) String() string {
	parts := []string{"FREQ=" + r.Freq.String()}
	if r.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(r.Interval))
	}
	if r.Count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(r.Count))
	}
	if !r.Until.IsZero() {
		parts = append(parts, "UNTIL="+r.Until.UTC().Format("20060102T150405Z"))
	}
	if len(r.ByDay) > 0 {
		codes := make([]string, len(r.ByDay))
		for i, wd := range r.ByDay {
			codes[i] = wd.code()
		}
		parts = append(parts, "BYDAY="+strings.Join(codes, ","))
	}
	if len(r.ByMonthDay) > 0 {
		days := make([]string, len(r.ByMonthDay))
		for i, d := range r.ByMonthDay {
			days[i] = strconv.Itoa(d)
		}
		parts = append(parts, "BYMONTHDAY="+strings.Join(days, ","))
	}
	return strings.Join(parts, ";")
}

func (w WeekdayOrd) code() string {
	codes := [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}
	if w.Ord != 0 {
		return strconv.Itoa(w.Ord) + codes[w.Weekday]
	}
	return codes[w.Weekday]
}
