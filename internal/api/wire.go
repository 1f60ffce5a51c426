package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andrewtitoo/ReMissionCapstone/internal/model"
)

// logRecord is the wire form of one symptom log. Backend revisions
// disagree on the exercise field (singular comma-joined string vs
// array) and on timestamp formatting, so decoding is tolerant of both.
type logRecord struct {
	ID             int64           `json:"id"`
	UserID         string          `json:"user_id"`
	LoggedAt       string          `json:"logged_at"`
	PainLevel      int             `json:"pain_level"`
	StressLevel    int             `json:"stress_level"`
	SleepHours     float64         `json:"sleep_hours"`
	ExerciseDone   bool            `json:"exercise_done"`
	ExerciseType   json.RawMessage `json:"exercise_type"`
	ExerciseTypes  []string        `json:"exercise_types"`
	TookMedication bool            `json:"took_medication"`
	FlareUp        bool            `json:"flare_up"`
}

func (r logRecord) toEntry() (model.SymptomLogEntry, error) {
	loggedAt, err := parseTimestamp(r.LoggedAt)
	if err != nil {
		return model.SymptomLogEntry{}, err
	}
	return model.SymptomLogEntry{
		ID:             r.ID,
		UserID:         r.UserID,
		LoggedAt:       loggedAt,
		PainLevel:      r.PainLevel,
		StressLevel:    r.StressLevel,
		SleepHours:     r.SleepHours,
		ExerciseDone:   r.ExerciseDone,
		ExerciseTypes:  r.exerciseTypeSet(),
		TookMedication: r.TookMedication,
		FlareUp:        r.FlareUp,
	}, nil
}

func (r logRecord) exerciseTypeSet() []string {
	if len(r.ExerciseTypes) > 0 {
		return cleanTags(r.ExerciseTypes)
	}
	if len(r.ExerciseType) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(r.ExerciseType, &single); err == nil {
		return cleanTags(strings.Split(single, ","))
	}
	var many []string
	if err := json.Unmarshal(r.ExerciseType, &many); err == nil {
		return cleanTags(many)
	}
	return nil
}

func cleanTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		result = append(result, tag)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// timestampLayouts covers the formats seen from the backend: RFC3339
// from newer revisions, the SQL default, and the RFC1123 form the
// original Flask jsonify emitted.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02",
}

func parseTimestamp(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("logged_at is empty")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("logged_at %q has unknown format", v)
}
