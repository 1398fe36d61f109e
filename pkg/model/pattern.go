package model

import "time"

// TimeOfDay is a coarse bucket of the local clock
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

// TimeOfDayForHour maps an hour (0-23) to its bucket:
// morning [5,12), afternoon [12,17), evening [17,21), night otherwise.
func TimeOfDayForHour(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 21:
		return Evening
	default:
		return Night
	}
}

// Condition names one of the four risk flags
type Condition string

const (
	ConditionLowActivity Condition = "lowActivity"
	ConditionPoorSleep   Condition = "poorSleep"
	ConditionLowWater    Condition = "lowWater"
	ConditionHighStress  Condition = "highStress"
)

// Conditions lists the risk flags in their canonical order
var Conditions = []Condition{
	ConditionLowActivity,
	ConditionPoorSleep,
	ConditionLowWater,
	ConditionHighStress,
}

// ConditionSet is a day's risk posture. A true flag means the risk factor
// is present (or the healthy behavior was not tracked).
type ConditionSet struct {
	LowActivity bool `json:"low_activity"`
	PoorSleep   bool `json:"poor_sleep"`
	LowWater    bool `json:"low_water"`
	HighStress  bool `json:"high_stress"`
}

// AllRisk is the condition set of a day with no evidence of healthy behavior
func AllRisk() ConditionSet {
	return ConditionSet{LowActivity: true, PoorSleep: true, LowWater: true, HighStress: true}
}

// Get returns the flag for c
func (s ConditionSet) Get(c Condition) bool {
	switch c {
	case ConditionLowActivity:
		return s.LowActivity
	case ConditionPoorSleep:
		return s.PoorSleep
	case ConditionLowWater:
		return s.LowWater
	case ConditionHighStress:
		return s.HighStress
	}
	return false
}

// And narrows every flag to the conjunction with other
func (s ConditionSet) And(other ConditionSet) ConditionSet {
	return ConditionSet{
		LowActivity: s.LowActivity && other.LowActivity,
		PoorSleep:   s.PoorSleep && other.PoorSleep,
		LowWater:    s.LowWater && other.LowWater,
		HighStress:  s.HighStress && other.HighStress,
	}
}

// Active returns the conditions whose flag is true, in canonical order
func (s ConditionSet) Active() []Condition {
	var active []Condition
	for _, c := range Conditions {
		if s.Get(c) {
			active = append(active, c)
		}
	}
	return active
}

// ActiveCount is the number of true flags
func (s ConditionSet) ActiveCount() int {
	return len(s.Active())
}

// Agreement counts the flags on which s and other hold the same value
func (s ConditionSet) Agreement(other ConditionSet) int {
	n := 0
	for _, c := range Conditions {
		if s.Get(c) == other.Get(c) {
			n++
		}
	}
	return n
}

// Pattern is a recurring (weekday, time-of-day, conditions) circumstance
// under which migraines have occurred. Patterns are derived on every
// analysis pass and never persisted.
type Pattern struct {
	DayOfWeek   time.Weekday `json:"day_of_week"`
	TimeOfDay   TimeOfDay    `json:"time_of_day"`
	Conditions  ConditionSet `json:"conditions"`
	Occurrences int          `json:"occurrences"`
	Confidence  float64      `json:"confidence"`
}

// PatternKey identifies the bucket a pattern aggregates
type PatternKey struct {
	DayOfWeek time.Weekday
	TimeOfDay TimeOfDay
}

// Key returns the pattern's bucket
func (p Pattern) Key() PatternKey {
	return PatternKey{DayOfWeek: p.DayOfWeek, TimeOfDay: p.TimeOfDay}
}
