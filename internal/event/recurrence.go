package event

import (
	"time"

	"github.com/teambition/rrule-go"
)

// NextOccurrence returns the first occurrence of the recurring event that
// is still running at or after from: an occurrence starting before from
// counts when start+dur is past from. A zero time means the rule has no
// such occurrence.
func NextOccurrence(rule string, start time.Time, dur time.Duration, exdates []time.Time, from time.Time) (time.Time, error) {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return time.Time{}, err
	}
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exdates {
		set.ExDate(ex.In(start.Location()))
	}

	if dur > 0 {
		return set.After(from.Add(-dur).In(start.Location()), false), nil
	}
	return set.After(from.In(start.Location()), true), nil
}

// Overlaps reports whether an event starting at start and lasting dur
// (recurring when rule is non-empty) has any occurrence intersecting
// [from, to). A nil to means unbounded.
func Overlaps(rule string, start time.Time, dur time.Duration, exdates []time.Time, from time.Time, to *time.Time) (bool, error) {
	first := start
	if rule != "" {
		next, err := NextOccurrence(rule, start, dur, exdates, from)
		if err != nil {
			return false, err
		}
		if next.IsZero() {
			return false, nil
		}
		first = next
	}

	end := first.Add(dur)
	if dur > 0 {
		if !end.After(from) {
			return false, nil
		}
	} else if first.Before(from) {
		return false, nil
	}
	if to != nil && !first.Before(*to) {
		return false, nil
	}
	return true, nil
}
