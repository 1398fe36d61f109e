package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// TrackingCategory identifies the variant of a tracking entry
type TrackingCategory string

const (
	CategorySleep    TrackingCategory = "sleep"
	CategoryWater    TrackingCategory = "water"
	CategoryMeals    TrackingCategory = "meals"
	CategoryActivity TrackingCategory = "activity"
	CategoryStress   TrackingCategory = "stress"
	CategoryMood     TrackingCategory = "mood"
	CategorySymptoms TrackingCategory = "symptoms"
	CategoryMedicine TrackingCategory = "medicine"
)

// StressLevel is the self-reported stress of a stress entry
type StressLevel string

const (
	StressLow    StressLevel = "low"
	StressMedium StressLevel = "medium"
	StressHigh   StressLevel = "high"
)

// MoodLevel is the self-reported mood of a mood entry
type MoodLevel string

const (
	MoodGreat    MoodLevel = "great"
	MoodGood     MoodLevel = "good"
	MoodOkay     MoodLevel = "okay"
	MoodBad      MoodLevel = "bad"
	MoodTerrible MoodLevel = "terrible"
)

// TrackingEntry is a closed sum over the eight tracking categories.
// The concrete variants are the *Entry types in this package.
type TrackingEntry interface {
	Category() TrackingCategory
	Meta() EntryMeta
	Stamp(id string, at time.Time)
	isTrackingEntry()
}

// EntryMeta holds the fields shared by every tracking entry
type EntryMeta struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Tracked   bool      `json:"tracked"`
	Timestamp time.Time `json:"timestamp"`
}

// Meta returns the shared entry fields
func (m EntryMeta) Meta() EntryMeta { return m }

// Stamp fills the id and timestamp of a new entry, keeping any already set
func (m *EntryMeta) Stamp(id string, at time.Time) {
	if m.ID == "" {
		m.ID = id
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = at
	}
}

type SleepEntry struct {
	EntryMeta
	Hours    *float64 `json:"hours,omitempty"`
	Quality  string   `json:"quality,omitempty"` // poor, fair, good, excellent
	Bedtime  string   `json:"bedtime,omitempty"`
	WakeTime string   `json:"wake_time,omitempty"`
}

type WaterEntry struct {
	EntryMeta
	Glasses *int     `json:"glasses,omitempty"`
	Liters  *float64 `json:"liters,omitempty"`
}

// Meal is a single meal inside a meals entry
type Meal struct {
	Time        string `json:"time"`
	Kind        string `json:"kind"` // breakfast, lunch, dinner, snack
	Description string `json:"description,omitempty"`
}

type MealEntry struct {
	EntryMeta
	Meals []Meal `json:"meals"`
}

type ActivityEntry struct {
	EntryMeta
	Value        string `json:"value,omitempty"`
	ActivityType string `json:"activity_type,omitempty"`
	Duration     *int   `json:"duration,omitempty"` // minutes
	Intensity    string `json:"intensity,omitempty"`
}

type StressEntry struct {
	EntryMeta
	Level    StressLevel `json:"level"`
	Triggers []string    `json:"triggers,omitempty"`
}

type MoodEntry struct {
	EntryMeta
	Level MoodLevel `json:"level"`
	Notes string    `json:"notes,omitempty"`
}

type SymptomEntry struct {
	EntryMeta
	Symptoms []string         `json:"symptoms"`
	Severity MigraineSeverity `json:"severity,omitempty"`
}

type MedicineEntry struct {
	EntryMeta
	MedicineName  string `json:"medicine_name"`
	Dosage        string `json:"dosage,omitempty"`
	Time          string `json:"time"`
	Effectiveness *int   `json:"effectiveness,omitempty"` // 1-5
}

func (*SleepEntry) Category() TrackingCategory    { return CategorySleep }
func (*WaterEntry) Category() TrackingCategory    { return CategoryWater }
func (*MealEntry) Category() TrackingCategory     { return CategoryMeals }
func (*ActivityEntry) Category() TrackingCategory { return CategoryActivity }
func (*StressEntry) Category() TrackingCategory   { return CategoryStress }
func (*MoodEntry) Category() TrackingCategory     { return CategoryMood }
func (*SymptomEntry) Category() TrackingCategory  { return CategorySymptoms }
func (*MedicineEntry) Category() TrackingCategory { return CategoryMedicine }

func (*SleepEntry) isTrackingEntry()    {}
func (*WaterEntry) isTrackingEntry()    {}
func (*MealEntry) isTrackingEntry()     {}
func (*ActivityEntry) isTrackingEntry() {}
func (*StressEntry) isTrackingEntry()   {}
func (*MoodEntry) isTrackingEntry()     {}
func (*SymptomEntry) isTrackingEntry()  {}
func (*MedicineEntry) isTrackingEntry() {}

// NewTrackingEntry returns an empty entry of the given category
func NewTrackingEntry(category TrackingCategory) (TrackingEntry, error) {
	switch category {
	case CategorySleep:
		return &SleepEntry{}, nil
	case CategoryWater:
		return &WaterEntry{}, nil
	case CategoryMeals:
		return &MealEntry{}, nil
	case CategoryActivity:
		return &ActivityEntry{}, nil
	case CategoryStress:
		return &StressEntry{}, nil
	case CategoryMood:
		return &MoodEntry{}, nil
	case CategorySymptoms:
		return &SymptomEntry{}, nil
	case CategoryMedicine:
		return &MedicineEntry{}, nil
	}
	return nil, fmt.Errorf("unknown tracking category: %q", category)
}

// MarshalTrackingEntry encodes an entry with a "type" discriminator
func MarshalTrackingEntry(entry TrackingEntry) ([]byte, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s entry: %w", entry.Category(), err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to marshal %s entry: %w", entry.Category(), err)
	}

	category, _ := json.Marshal(entry.Category())
	fields["type"] = category

	return json.Marshal(fields)
}

// UnmarshalTrackingEntry decodes an entry produced by MarshalTrackingEntry
func UnmarshalTrackingEntry(data []byte) (TrackingEntry, error) {
	var head struct {
		Type TrackingCategory `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to read tracking entry type: %w", err)
	}

	entry, err := NewTrackingEntry(head.Type)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s entry: %w", head.Type, err)
	}

	return entry, nil
}

// TrackingEntries is a list of entries that round-trips through JSON
type TrackingEntries []TrackingEntry

func (t TrackingEntries) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(t))
	for _, entry := range t {
		data, err := MarshalTrackingEntry(entry)
		if err != nil {
			return nil, err
		}
		raw = append(raw, data)
	}
	return json.Marshal(raw)
}

func (t *TrackingEntries) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	entries := make(TrackingEntries, 0, len(raw))
	for _, item := range raw {
		entry, err := UnmarshalTrackingEntry(item)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	*t = entries
	return nil
}
