package recurrence

import (
	"sort"
	"time"
)

// Occurrence is one concrete instance of a recurring event.
type Occurrence struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// maxSteps bounds expansion so an unbounded rule queried with a huge window
// cannot spin forever.
const maxSteps = 10000

// Expand enumerates the occurrences of an event between windowStart and
// windowEnd. start and end describe the first instance; every generated
// instance keeps the same duration and wall-clock time in start's location.
//
// Occurrences are reported when [Start, End) intersects
// [windowStart, windowEnd). Exception dates suppress an instance but still
// consume COUNT, matching how calendar clients treat EXDATE. An exception
// date at midnight excludes the whole calendar day, otherwise it must match
// the instance start exactly.
//
// A nil rule yields the single base instance.
func Expand(rule *Rule, start, end, windowStart, windowEnd time.Time, exdates []time.Time) []Occurrence {
	if start.IsZero() || !windowStart.Before(windowEnd) {
		return nil
	}
	dur := end.Sub(start)
	if dur < 0 {
		dur = 0
	}

	if rule == nil {
		if start.Before(windowEnd) && start.Add(dur).After(windowStart) {
			return []Occurrence{{Start: start, End: start.Add(dur)}}
		}
		return nil
	}

	var out []Occurrence
	emitted := 0
	steps := 0

	for period := 0; ; period++ {
		steps++
		if steps > maxSteps {
			return out
		}

		periodBase, candidates := periodCandidates(rule, start, period)
		if !periodBase.Before(windowEnd) {
			return out
		}

		for _, cand := range candidates {
			steps++
			if steps > maxSteps {
				return out
			}
			if cand.Before(start) {
				// Week or month positions before the series start are not
				// instances.
				continue
			}
			if rule.Count > 0 && emitted >= rule.Count {
				return out
			}
			if !rule.Until.IsZero() && cand.After(rule.Until) {
				return out
			}
			emitted++
			if !cand.Before(windowEnd) {
				return out
			}
			if excluded(cand, exdates) {
				continue
			}
			if cand.Add(dur).After(windowStart) {
				out = append(out, Occurrence{Start: cand, End: cand.Add(dur)})
			}
		}
	}
}

// periodCandidates returns the chronologically sorted candidate starts for
// one period of the rule, plus the period's own start used as the forward
// progress marker.
func periodCandidates(rule *Rule, seed time.Time, period int) (time.Time, []time.Time) {
	h, min, sec := seed.Clock()
	ns := seed.Nanosecond()
	loc := seed.Location()

	switch rule.Freq {
	case Daily:
		d := seed.AddDate(0, 0, period*rule.Interval)
		return d, []time.Time{d}

	case Weekly:
		if len(rule.ByDay) == 0 {
			d := seed.AddDate(0, 0, period*rule.Interval*7)
			return d, []time.Time{d}
		}
		weekStart := startOfWeek(seed).AddDate(0, 0, period*rule.Interval*7)
		cands := make([]time.Time, 0, len(rule.ByDay))
		for _, wd := range rule.ByDay {
			offset := (int(wd.Weekday) - int(time.Monday) + 7) % 7
			day := weekStart.AddDate(0, 0, offset)
			cands = append(cands, time.Date(day.Year(), day.Month(), day.Day(), h, min, sec, ns, loc))
		}
		sortTimes(cands)
		return weekStart, cands

	case Monthly:
		months := seed.Year()*12 + int(seed.Month()) - 1 + period*rule.Interval
		y, m := months/12, time.Month(months%12+1)
		monthStart := time.Date(y, m, 1, 0, 0, 0, 0, loc)

		var cands []time.Time
		switch {
		case len(rule.ByMonthDay) > 0:
			for _, d := range rule.ByMonthDay {
				if d <= daysIn(y, m) {
					cands = append(cands, time.Date(y, m, d, h, min, sec, ns, loc))
				}
			}
		case len(rule.ByDay) > 0:
			for _, wd := range rule.ByDay {
				for _, d := range monthWeekdays(y, m, wd) {
					cands = append(cands, time.Date(y, m, d, h, min, sec, ns, loc))
				}
			}
			sortTimes(cands)
		default:
			// Months without the seed's day of month (say the 31st) simply
			// skip, they do not roll into the next month.
			if d := seed.Day(); d <= daysIn(y, m) {
				cands = append(cands, time.Date(y, m, d, h, min, sec, ns, loc))
			}
		}
		return monthStart, cands

	case Yearly:
		y := seed.Year() + period*rule.Interval
		yearStart := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		if seed.Month() == time.February && seed.Day() == 29 && daysIn(y, time.February) < 29 {
			return yearStart, nil
		}
		return yearStart, []time.Time{time.Date(y, seed.Month(), seed.Day(), h, min, sec, ns, loc)}
	}

	return seed, nil
}

// monthWeekdays returns the days of the month matching a BYDAY entry.
// Ord 0 means every matching weekday, positive selects the nth, negative
// counts back from the last.
func monthWeekdays(y int, m time.Month, wd WeekdayOrd) []int {
	var days []int
	for d := 1; d <= daysIn(y, m); d++ {
		if time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Weekday() == wd.Weekday {
			days = append(days, d)
		}
	}
	switch {
	case wd.Ord > 0:
		if wd.Ord <= len(days) {
			return days[wd.Ord-1 : wd.Ord]
		}
		return nil
	case wd.Ord < 0:
		if -wd.Ord <= len(days) {
			i := len(days) + wd.Ord
			return days[i : i+1]
		}
		return nil
	}
	return days
}

func excluded(t time.Time, exdates []time.Time) bool {
	for _, ex := range exdates {
		if ex.IsZero() {
			continue
		}
		if ex.Hour() == 0 && ex.Minute() == 0 && ex.Second() == 0 && ex.Nanosecond() == 0 {
			ey, em, ed := ex.Date()
			ty, tm, td := t.In(ex.Location()).Date()
			if ey == ty && em == tm && ed == td {
				return true
			}
		} else if ex.Equal(t) {
			return true
		}
	}
	return false
}

// startOfWeek returns midnight Monday of t's week, the RFC 5545 default
// week start.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) - int(time.Monday) + 7) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func sortTimes(ts []time.Time) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
}
