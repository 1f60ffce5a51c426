// Package insight derives short natural-language observations from
// aggregated statistics. Rules are independent and additive; emission
// order is user-visible and fixed.
package insight

import (
	"fmt"
	"strings"

	"github.com/andrewtitoo/ReMissionCapstone/internal/model"
)

const (
	// LowSleepThreshold is the mean sleep (hours) below which the
	// low-sleep rule fires.
	LowSleepThreshold = 7.0
	// HighStressThreshold is the mean stress level above which the
	// high-stress rule fires.
	HighStressThreshold = 6.0
)

// Generate produces the insight list for a snapshot. Entries must be
// chronologically sorted, newest last. When at least one entry exists,
// exactly one of flare-warning and reassurance is emitted first, then
// low-sleep, then high-stress. An empty sequence yields only the
// no-data insight.
func Generate(snapshot model.AggregateSnapshot, entries []model.SymptomLogEntry) []model.Insight {
	if len(entries) == 0 {
		return []model.Insight{{
			Tag:  model.InsightNoData,
			Text: "No symptom logs yet. Log your first entry to start seeing trends.",
		}}
	}

	var insights []model.Insight

	latest := entries[len(entries)-1]
	if latest.FlareUp {
		insights = append(insights, model.Insight{
			Tag:  model.InsightFlareWarning,
			Text: "Recent log indicates a potential flare-up. Review your symptoms carefully.",
		})
	} else {
		insights = append(insights, model.Insight{
			Tag:  model.InsightReassurance,
			Text: "You're doing great! No recent signs of flare-up.",
		})
	}

	if snapshot.HasAverages {
		if snapshot.Averages.Sleep < LowSleepThreshold {
			insights = append(insights, model.Insight{
				Tag:  model.InsightLowSleep,
				Text: "Your average sleep is below 7 hours. Aim for better rest.",
			})
		}
		if snapshot.Averages.Stress > HighStressThreshold {
			insights = append(insights, model.Insight{
				Tag:  model.InsightHighStress,
				Text: "Your stress levels are relatively high. Consider stress-reducing activities.",
			})
		}
	}

	return insights
}

// TrendSummary builds a one-paragraph trend report over the full log
// history, mirroring what the backend's analysis service produces so
// the client can show something useful while that endpoint is down.
func TrendSummary(entries []model.SymptomLogEntry) string {
	if len(entries) == 0 {
		return "No data available for trend analysis."
	}

	var parts []string

	highPain := 0
	missedMedication := 0
	var stressSum, sleepSum float64
	for _, entry := range entries {
		if entry.PainLevel > 7 {
			highPain++
		}
		if !entry.TookMedication {
			missedMedication++
		}
		stressSum += float64(entry.StressLevel)
		sleepSum += entry.SleepHours
	}
	avgStress := stressSum / float64(len(entries))
	avgSleep := sleepSum / float64(len(entries))

	if highPain > 0 {
		parts = append(parts, fmt.Sprintf("High pain levels recorded on %d occasions. Consider reviewing potential triggers.", highPain))
	}
	if avgStress > 6 {
		parts = append(parts, fmt.Sprintf("Average stress level is high (%.1f). Stress reduction strategies could improve health.", avgStress))
	}
	if avgSleep < 6 {
		parts = append(parts, fmt.Sprintf("Average sleep duration is below recommended levels (%.1f hours). Improving sleep hygiene might help.", avgSleep))
	}
	if missedMedication > 0 {
		parts = append(parts, fmt.Sprintf("Medication was missed on %d occasions. Ensure regular medication intake to manage symptoms effectively.", missedMedication))
	}

	if len(parts) == 0 {
		return "No significant trends detected."
	}
	return strings.Join(parts, " ")
}
