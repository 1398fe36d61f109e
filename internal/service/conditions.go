package service

import (
	"strconv"
	"strings"

	"github.com/boswellbenjamin/migrainauts/pkg/model"
)

// AnalyzeConditions derives a day's risk flags from its tracking entries.
// Every flag starts true and is cleared only by a tracked entry showing the
// healthy behavior. Categories without a risk flag are ignored.
func AnalyzeConditions(day model.DayRecord) model.ConditionSet {
	conditions := model.AllRisk()

	for _, entry := range day.Entries {
		switch e := entry.(type) {
		case *model.ActivityEntry:
			if e.Tracked && e.Value != "" {
				conditions.LowActivity = false
			}
		case *model.SleepEntry:
			if e.Tracked && e.Hours != nil && *e.Hours >= 7 {
				conditions.PoorSleep = false
			}
		case *model.WaterEntry:
			if e.Tracked && e.Glasses != nil && *e.Glasses >= 6 {
				conditions.LowWater = false
			}
		case *model.StressEntry:
			if e.Tracked && e.Level != model.StressHigh {
				conditions.HighStress = false
			}
		case *model.MealEntry, *model.MoodEntry, *model.SymptomEntry, *model.MedicineEntry:
			// no risk flag
		}
	}

	return conditions
}

// timeOfDayForClock buckets an "HH:MM" string. An unreadable hour falls into night.
func timeOfDayForClock(clock string) model.TimeOfDay {
	hourPart, _, _ := strings.Cut(strings.TrimSpace(clock), ":")
	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return model.Night
	}
	return model.TimeOfDayForHour(hour)
}
