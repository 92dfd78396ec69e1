package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/tutorhub/scheduler/internal/model"
)

// Expand turns a recurring rule into the concrete slots whose start falls in
// [windowStart, windowEnd). Conversion to UTC uses the timezone snapshot
// stored on the rule, so expansion is stable even if the owner later changes
// their profile timezone. Occurrences are whole or absent: a rule whose
// ActiveUntil cuts into an occurrence drops that occurrence entirely.
func Expand(rule *model.AvailabilityRule, windowStart, windowEnd time.Time) ([]*model.AvailabilitySlot, error) {
	if rule.StartMinute >= rule.EndMinute {
		return nil, fmt.Errorf("%w: rule %d: start %d >= end %d",
			ErrInvalidRule, rule.ID, rule.StartMinute, rule.EndMinute)
	}
	if rule.Weekday < 0 || rule.Weekday > 6 {
		return nil, fmt.Errorf("%w: rule %d: weekday %d", ErrInvalidRule, rule.ID, rule.Weekday)
	}
	if rule.ActiveFrom != nil && rule.ActiveUntil != nil && rule.ActiveFrom.After(*rule.ActiveUntil) {
		return nil, fmt.Errorf("%w: rule %d: active_from after active_until", ErrInvalidRule, rule.ID)
	}

	loc, err := time.LoadLocation(rule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: rule %d: timezone %q", ErrInvalidRule, rule.ID, rule.Timezone)
	}

	from := windowStart
	if rule.ActiveFrom != nil && rule.ActiveFrom.After(from) {
		from = *rule.ActiveFrom
	}
	until := windowEnd
	if rule.ActiveUntil != nil && rule.ActiveUntil.Before(until) {
		until = *rule.ActiveUntil
	}
	if !until.After(from) {
		return nil, nil
	}

	// Walk owner-local dates; stepping the date rather than the instant keeps
	// the wall-clock start stable across DST transitions.
	local := from.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	for int(day.Weekday()) != rule.Weekday {
		day = day.AddDate(0, 0, 1)
	}

	var slots []*model.AvailabilitySlot
	for {
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, rule.StartMinute, 0, 0, loc)
		if !start.Before(until) {
			break
		}
		if !start.Before(from) {
			end := time.Date(day.Year(), day.Month(), day.Day(), 0, rule.EndMinute, 0, 0, loc)
			ruleID := rule.ID
			slots = append(slots, &model.AvailabilitySlot{
				OwnerID: rule.OwnerID,
				RuleID:  &ruleID,
				Start:   start.UTC(),
				End:     end.UTC(),
				Purpose: rule.Purpose,
			})
		}
		day = day.AddDate(0, 0, 7)
	}

	return slots, nil
}

// ExpandAll expands every rule over the same window and merges the results
// into one sequence ordered by start, ties broken by rule ID.
func ExpandAll(rules []*model.AvailabilityRule, windowStart, windowEnd time.Time) ([]*model.AvailabilitySlot, error) {
	var all []*model.AvailabilitySlot
	for _, rule := range rules {
		slots, err := Expand(rule, windowStart, windowEnd)
		if err != nil {
			return nil, err
		}
		all = append(all, slots...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Start.Equal(all[j].Start) {
			return all[i].Start.Before(all[j].Start)
		}
		return derefRuleID(all[i]) < derefRuleID(all[j])
	})

	return all, nil
}

func derefRuleID(s *model.AvailabilitySlot) int64 {
	if s.RuleID == nil {
		return 0
	}
	return *s.RuleID
}
