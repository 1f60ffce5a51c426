// Package analytics turns an ordered sequence of symptom log entries
// into summary statistics, classification buckets and chart-ready
// series. Everything here is pure and deterministic.
package analytics

import (
	"math"
	"sort"

	"github.com/andrewtitoo/ReMissionCapstone/internal/model"
)

// DefaultPainThreshold separates high from low pain when bucketing.
// "High" is strictly greater than the threshold.
const DefaultPainThreshold = 7

// DefaultRecentWindow is how many trailing entries feed the trend
// charts.
const DefaultRecentWindow = 7

// Field selects which entry value a series projects.
type Field string

const (
	FieldPain   Field = "pain_level"
	FieldStress Field = "stress_level"
	FieldSleep  Field = "sleep_hours"
)

// SortByLoggedAt orders entries chronologically ascending. The sort is
// stable: entries sharing a timestamp keep the order the gateway
// delivered them in.
func SortByLoggedAt(entries []model.SymptomLogEntry) []model.SymptomLogEntry {
	sorted := make([]model.SymptomLogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LoggedAt.Before(sorted[j].LoggedAt)
	})
	return sorted
}

// ComputeAverages returns the arithmetic mean of pain, stress and sleep
// over all entries, rounded to one decimal place. The second return is
// false for an empty sequence; there is no meaningful zero value.
func ComputeAverages(entries []model.SymptomLogEntry) (model.Averages, bool) {
	if len(entries) == 0 {
		return model.Averages{}, false
	}
	var pain, stress, sleep float64
	for _, entry := range entries {
		pain += float64(entry.PainLevel)
		stress += float64(entry.StressLevel)
		sleep += entry.SleepHours
	}
	n := float64(len(entries))
	return model.Averages{
		Pain:   round1(pain / n),
		Stress: round1(stress / n),
		Sleep:  round1(sleep / n),
	}, true
}

// ComputeAveragesWindow averages over the trailing window entries only.
func ComputeAveragesWindow(entries []model.SymptomLogEntry, window int) (model.Averages, bool) {
	return ComputeAverages(tail(entries, window))
}

// ComputeAdherence returns the percentage of entries with exercise done
// and medication taken, rounded to one decimal place.
func ComputeAdherence(entries []model.SymptomLogEntry) (model.Adherence, bool) {
	if len(entries) == 0 {
		return model.Adherence{}, false
	}
	var exercised, medicated int
	for _, entry := range entries {
		if entry.ExerciseDone {
			exercised++
		}
		if entry.TookMedication {
			medicated++
		}
	}
	n := float64(len(entries))
	return model.Adherence{
		ExercisePct:   round1(float64(exercised) / n * 100),
		MedicationPct: round1(float64(medicated) / n * 100),
	}, true
}

// BucketPainVsExercise cross-tabulates entries by pain severity and
// exercise. Pain strictly above painThreshold counts as high; at or
// below counts as low. The boundary convention is load-bearing for
// chart-count reproducibility.
func BucketPainVsExercise(entries []model.SymptomLogEntry, painThreshold int) model.PainExerciseBuckets {
	var buckets model.PainExerciseBuckets
	for _, entry := range entries {
		high := entry.PainLevel > painThreshold
		switch {
		case high && entry.ExerciseDone:
			buckets.HighPainExercised++
		case high && !entry.ExerciseDone:
			buckets.HighPainRested++
		case !high && entry.ExerciseDone:
			buckets.LowPainExercised++
		default:
			buckets.LowPainRested++
		}
	}
	return buckets
}

// SeriesFor projects one field into label/value points for chart
// consumption, labels being the entry dates. A positive windowSize
// keeps only the most recent entries, still in chronological order.
func SeriesFor(entries []model.SymptomLogEntry, field Field, windowSize int) []model.SeriesPoint {
	windowed := tail(entries, windowSize)
	points := make([]model.SeriesPoint, 0, len(windowed))
	for _, entry := range windowed {
		var value float64
		switch field {
		case FieldStress:
			value = float64(entry.StressLevel)
		case FieldSleep:
			value = entry.SleepHours
		default:
			value = float64(entry.PainLevel)
		}
		points = append(points, model.SeriesPoint{
			Label: entry.LoggedAt.Format("Jan 2"),
			Value: value,
		})
	}
	return points
}

// SnapshotOptions tunes snapshot assembly; zero values select the
// defaults above.
type SnapshotOptions struct {
	PainThreshold int
	RecentWindow  int
}

// BuildSnapshot assembles the full aggregate view over chronologically
// sorted entries. An empty sequence produces a snapshot with the
// has-flags unset rather than misleading zeros.
func BuildSnapshot(entries []model.SymptomLogEntry, opts SnapshotOptions) model.AggregateSnapshot {
	threshold := opts.PainThreshold
	if threshold <= 0 {
		threshold = DefaultPainThreshold
	}
	window := opts.RecentWindow
	if window <= 0 {
		window = DefaultRecentWindow
	}

	snapshot := model.AggregateSnapshot{
		TotalEntries:  len(entries),
		Buckets:       BucketPainVsExercise(entries, threshold),
		RecentEntries: tail(entries, window),
	}
	snapshot.Averages, snapshot.HasAverages = ComputeAverages(entries)
	snapshot.Adherence, snapshot.HasAdherence = ComputeAdherence(entries)
	for _, entry := range entries {
		if entry.FlareUp {
			snapshot.FlareDays++
		} else {
			snapshot.NonFlareDays++
		}
	}
	return snapshot
}

// tail returns the last n entries, or all of them when n <= 0 or
// exceeds the length.
func tail(entries []model.SymptomLogEntry, n int) []model.SymptomLogEntry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[len(entries)-n:]
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
