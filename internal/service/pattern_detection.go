package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"go.uber.org/zap"
)

// PatternThresholds holds the tunable constants of pattern mining and matching
type PatternThresholds struct {
	MinConfidence        float64
	ConditionMatchRatio  float64
	OccurrenceSaturation int
	OccurrenceWeight     float64
	ConditionWeight      float64
	WarningWindowHours   int
	EarlyWindowHours     int
	Anchors              map[model.TimeOfDay]int
}

// DefaultPatternThresholds returns the thresholds the engine ships with
func DefaultPatternThresholds() PatternThresholds {
	return PatternThresholds{
		MinConfidence:        0.3,
		ConditionMatchRatio:  0.75,
		OccurrenceSaturation: 5,
		OccurrenceWeight:     0.6,
		ConditionWeight:      0.4,
		WarningWindowHours:   4,
		EarlyWindowHours:     8,
		Anchors: map[model.TimeOfDay]int{
			model.Morning:   10,
			model.Afternoon: 14,
			model.Evening:   19,
			model.Night:     2,
		},
	}
}

// Notifier dispatches notifications and answers deduplication queries
type Notifier interface {
	Send(ctx context.Context, n model.NotificationRecord) (*model.NotificationRecord, error)
	HasSentSince(ctx context.Context, t model.NotificationType, since time.Time) (bool, error)
}

// PatternDetectionService mines migraine patterns and turns matches into notifications
type PatternDetectionService struct {
	notifier   Notifier
	thresholds PatternThresholds
	loc        *time.Location
	now        func() time.Time
	logger     *zap.Logger
}

// NewPatternDetectionService creates a new PatternDetectionService
func NewPatternDetectionService(notifier Notifier, thresholds PatternThresholds, loc *time.Location, logger *zap.Logger) *PatternDetectionService {
	if loc == nil {
		loc = time.Local
	}
	return &PatternDetectionService{
		notifier:   notifier,
		thresholds: thresholds,
		loc:        loc,
		now:        time.Now,
		logger:     logger,
	}
}

// AnalyzePatterns groups migraines by (weekday, time of day) and scores each
// group. A condition stays set on a pattern only if it held on every
// contributing day. Migraines without a matching day record are skipped.
// The result holds patterns above MinConfidence, highest confidence first.
func (s *PatternDetectionService) AnalyzePatterns(migraines []model.MigraineEvent, days []model.DayRecord) []model.Pattern {
	byKey := make(map[model.PatternKey]int)
	var patterns []model.Pattern

	for _, migraine := range migraines {
		day, ok := findDay(days, migraine.Date)
		if !ok {
			continue
		}

		conditions := AnalyzeConditions(day)
		key := model.PatternKey{
			DayOfWeek: migraine.Date.Weekday(),
			TimeOfDay: timeOfDayForClock(migraine.StartTime),
		}

		if i, seen := byKey[key]; seen {
			patterns[i].Occurrences++
			patterns[i].Conditions = patterns[i].Conditions.And(conditions)
			continue
		}

		byKey[key] = len(patterns)
		patterns = append(patterns, model.Pattern{
			DayOfWeek:   key.DayOfWeek,
			TimeOfDay:   key.TimeOfDay,
			Conditions:  conditions,
			Occurrences: 1,
		})
	}

	result := make([]model.Pattern, 0, len(patterns))
	for _, p := range patterns {
		p.Confidence = s.Confidence(p.Occurrences, p.Conditions)
		if p.Confidence > s.thresholds.MinConfidence {
			result = append(result, p)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Confidence > result[j].Confidence
	})

	return result
}

// Confidence scores a pattern from its repetition and its specificity
func (s *PatternDetectionService) Confidence(occurrences int, conditions model.ConditionSet) float64 {
	occurrenceScore := math.Min(float64(occurrences)/float64(s.thresholds.OccurrenceSaturation), 1)
	conditionScore := float64(conditions.ActiveCount()) / float64(len(model.Conditions))
	return occurrenceScore*s.thresholds.OccurrenceWeight + conditionScore*s.thresholds.ConditionWeight
}

// ConditionsMatch reports whether current agrees with the pattern on enough flags
func (s *PatternDetectionService) ConditionsMatch(pattern, current model.ConditionSet) bool {
	return float64(pattern.Agreement(current))/float64(len(model.Conditions)) >= s.thresholds.ConditionMatchRatio
}

// HoursUntil returns the hours from hour to the bucket's anchor hour, in [0,24)
func (s *PatternDetectionService) HoursUntil(tod model.TimeOfDay, hour int) int {
	expected, ok := s.thresholds.Anchors[tod]
	if !ok {
		expected = 12
	}
	return ((expected-hour)%24 + 24) % 24
}

// CheckForPatterns compares today against the mined patterns and dispatches
// at most one predictive warning or early-pattern notice. It returns the
// dispatched record, or nil when nothing was sent.
func (s *PatternDetectionService) CheckForPatterns(ctx context.Context, today model.DayRecord, patterns []model.Pattern, migraines []model.MigraineEvent) (*model.NotificationRecord, error) {
	now := s.now().In(s.loc)
	currentDay := now.Weekday()
	currentTime := model.TimeOfDayForHour(now.Hour())
	currentConditions := AnalyzeConditions(today)

	var best *model.Pattern
	for i := range patterns {
		p := &patterns[i]
		if p.DayOfWeek == currentDay && p.TimeOfDay == currentTime && s.ConditionsMatch(p.Conditions, currentConditions) {
			best = p
			break
		}
	}
	if best == nil {
		return nil, nil
	}

	sent, err := s.notifier.HasSentSince(ctx, model.NotificationPredictiveWarning, startOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("failed to check sent warnings: %w", err)
	}
	if sent {
		s.logger.Info("predictive warning already sent today",
			zap.String("day", best.DayOfWeek.String()),
			zap.String("time_of_day", string(best.TimeOfDay)),
		)
		return nil, nil
	}

	hoursUntil := s.HoursUntil(best.TimeOfDay, now.Hour())

	switch {
	case hoursUntil > 0 && hoursUntil <= s.thresholds.WarningWindowHours:
		return s.notifier.Send(ctx, s.predictiveWarning(*best, hoursUntil))
	case hoursUntil > s.thresholds.WarningWindowHours && hoursUntil <= s.thresholds.EarlyWindowHours:
		return s.notifier.Send(ctx, s.earlyPatternNotice(*best))
	default:
		s.logger.Debug("pattern matched outside notification window",
			zap.Int("hours_until", hoursUntil),
		)
		return nil, nil
	}
}

// CheckForPositiveReinforcement congratulates the user when today breaks the
// strongest pattern for this weekday and no migraine was logged today.
// It sends at most one such notification per day.
func (s *PatternDetectionService) CheckForPositiveReinforcement(ctx context.Context, today model.DayRecord, patterns []model.Pattern, migraines []model.MigraineEvent) (*model.NotificationRecord, error) {
	now := s.now().In(s.loc)
	currentDay := now.Weekday()

	var best *model.Pattern
	for i := range patterns {
		if patterns[i].DayOfWeek == currentDay {
			best = &patterns[i]
			break
		}
	}
	if best == nil {
		return nil, nil
	}

	if s.ConditionsMatch(best.Conditions, AnalyzeConditions(today)) {
		return nil, nil
	}

	for _, m := range migraines {
		if model.SameDate(m.Date, now) {
			return nil, nil
		}
	}

	sent, err := s.notifier.HasSentSince(ctx, model.NotificationPositiveReinforcement, startOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("failed to check sent reinforcements: %w", err)
	}
	if sent {
		return nil, nil
	}

	return s.notifier.Send(ctx, model.NotificationRecord{
		Type:     model.NotificationPositiveReinforcement,
		Priority: model.PriorityLow,
		Title:    "🎉 Great job!",
		Body:     fmt.Sprintf("You broke your typical %s pattern", strings.ToLower(dayName(currentDay))),
		Details: &model.NotificationDetails{
			Explanation: "You did something different today and it worked!",
			Confidence:  best.Confidence,
			DataPoints: []string{
				"You changed your usual behavior",
				"No migraine occurred",
				"This is worth noting!",
			},
		},
	})
}

func (s *PatternDetectionService) predictiveWarning(p model.Pattern, hoursUntil int) model.NotificationRecord {
	day := dayName(p.DayOfWeek)
	active := conditionTexts(p.Conditions)

	dataPoints := []string{
		fmt.Sprintf("Previous occurrences: %d times", p.Occurrences),
		fmt.Sprintf("Expected time: in %d hours", hoursUntil),
	}
	for _, c := range active {
		dataPoints = append(dataPoints, "Active factor: "+c)
	}

	suggestions := SuggestedActions(p.Conditions)
	actions := make([]model.NotificationAction, 0, len(suggestions))
	for i, title := range suggestions {
		actionType := model.ActionSecondary
		if i == 0 {
			actionType = model.ActionPrimary
		}
		actions = append(actions, model.NotificationAction{
			ID:    fmt.Sprintf("action_%d", i),
			Title: title,
			Type:  actionType,
		})
	}

	return model.NotificationRecord{
		Type:     model.NotificationPredictiveWarning,
		Priority: model.PriorityHigh,
		Title:    "⚠️ Migraine Risk Detected",
		Body:     fmt.Sprintf("Your typical %s pattern is forming...", strings.ToLower(day)),
		Details: &model.NotificationDetails{
			Explanation: fmt.Sprintf("On %s during %s you usually get migraines when %s. Today you're following the same pattern.",
				strings.ToLower(day), p.TimeOfDay, strings.Join(active, " and ")),
			Confidence: p.Confidence,
			DataPoints: dataPoints,
			Actions:    actions,
		},
		PatternData: &model.PatternData{
			DayOfWeek: day,
			TimeOfDay: string(p.TimeOfDay),
			Factors:   active,
		},
	}
}

func (s *PatternDetectionService) earlyPatternNotice(p model.Pattern) model.NotificationRecord {
	active := conditionTexts(p.Conditions)

	triggers := make([]model.TriggerState, 0, len(model.Conditions))
	for _, c := range model.Conditions {
		triggers = append(triggers, model.TriggerState{
			Name:   conditionText(c),
			Active: p.Conditions.Get(c),
		})
	}

	return model.NotificationRecord{
		Type:     model.NotificationEarlyPattern,
		Priority: model.PriorityMedium,
		Title:    "💡 Pattern Forming",
		Body:     fmt.Sprintf("%d of %d factors that usually lead to migraines are active", len(active), len(model.Conditions)),
		Details: &model.NotificationDetails{
			Explanation: "Based on your previous migraines, we've detected that certain factors often lead to migraines later in the day.",
			Confidence:  p.Confidence,
			DataPoints:  active,
			Triggers:    triggers,
		},
	}
}

// SuggestedActions lists what the user can do against the active conditions,
// followed by the general measures. At most five actions are returned.
func SuggestedActions(conditions model.ConditionSet) []string {
	var actions []string

	if conditions.LowActivity {
		actions = append(actions, "Take a 20-minute walk now")
	}
	if conditions.LowWater {
		actions = append(actions, "Drink 2 glasses of water")
	}
	if conditions.HighStress {
		actions = append(actions, "Take a 10-minute break and breathe deeply")
	}

	actions = append(actions,
		"Take a preventative medication",
		"Use your Relivia device",
		"Avoid bright lights for the next hour",
	)

	if len(actions) > 5 {
		actions = actions[:5]
	}
	return actions
}

func conditionText(c model.Condition) string {
	switch c {
	case model.ConditionLowActivity:
		return "you haven't been active"
	case model.ConditionPoorSleep:
		return "you slept poorly"
	case model.ConditionLowWater:
		return "you drank little water"
	case model.ConditionHighStress:
		return "you've had high stress"
	}
	return string(c)
}

func conditionTexts(conditions model.ConditionSet) []string {
	active := conditions.Active()
	texts := make([]string, 0, len(active))
	for _, c := range active {
		texts = append(texts, conditionText(c))
	}
	return texts
}

func dayName(d time.Weekday) string {
	return d.String()
}

func findDay(days []model.DayRecord, date time.Time) (model.DayRecord, bool) {
	for _, d := range days {
		if model.SameDate(d.Date, date) {
			return d, true
		}
	}
	return model.DayRecord{}, false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
