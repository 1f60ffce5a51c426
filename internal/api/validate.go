package api

import (
	"fmt"
	"strings"

	"github.com/andrewtitoo/ReMissionCapstone/internal/model"
)

const (
	MinLevel     = 0
	MaxLevel     = 10
	MaxSleepHrs  = 24
	maxTagLength = 50
)

// ValidateEntry range-checks an entry before transmission so clearly
// invalid input never costs a round-trip. The server remains the
// authority on acceptance.
func ValidateEntry(entry model.SymptomLogEntry) error {
	if entry.PainLevel < MinLevel || entry.PainLevel > MaxLevel {
		return fmt.Errorf("pain_level %d out of range %d-%d", entry.PainLevel, MinLevel, MaxLevel)
	}
	if entry.StressLevel < MinLevel || entry.StressLevel > MaxLevel {
		return fmt.Errorf("stress_level %d out of range %d-%d", entry.StressLevel, MinLevel, MaxLevel)
	}
	if entry.SleepHours < 0 || entry.SleepHours > MaxSleepHrs {
		return fmt.Errorf("sleep_hours %.1f out of range 0-%d", entry.SleepHours, MaxSleepHrs)
	}
	for _, tag := range entry.ExerciseTypes {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			return fmt.Errorf("exercise_types contains a blank tag")
		}
		if len(trimmed) > maxTagLength {
			return fmt.Errorf("exercise type %q is too long", trimmed)
		}
	}
	if !entry.ExerciseDone && len(entry.ExerciseTypes) > 0 {
		return fmt.Errorf("exercise_types given but exercise_done is false")
	}
	return nil
}
