package model

import "time"

// SymptomLogEntry is one self-reported log record. Entries are immutable
// once created; the client only ever holds a read-only sequence fetched
// for the current session.
type SymptomLogEntry struct {
	ID             int64     `json:"id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	LoggedAt       time.Time `json:"logged_at"`
	PainLevel      int       `json:"pain_level"`
	StressLevel    int       `json:"stress_level"`
	SleepHours     float64   `json:"sleep_hours"`
	ExerciseDone   bool      `json:"exercise_done"`
	ExerciseTypes  []string  `json:"exercise_types,omitempty"`
	TookMedication bool      `json:"took_medication"`
	FlareUp        bool      `json:"flare_up"`
}

type Averages struct {
	Pain   float64 `json:"avg_pain_level"`
	Stress float64 `json:"avg_stress_level"`
	Sleep  float64 `json:"avg_sleep_hours"`
}

type Adherence struct {
	ExercisePct   float64 `json:"exercise_pct"`
	MedicationPct float64 `json:"medication_pct"`
}

// PainExerciseBuckets cross-tabulates entries by pain severity and
// whether exercise was done that day. The four counts always sum to the
// number of entries bucketed.
type PainExerciseBuckets struct {
	HighPainExercised int `json:"high_pain_exercised"`
	HighPainRested    int `json:"high_pain_rested"`
	LowPainExercised  int `json:"low_pain_exercised"`
	LowPainRested     int `json:"low_pain_rested"`
}

func (b PainExerciseBuckets) Total() int {
	return b.HighPainExercised + b.HighPainRested + b.LowPainExercised + b.LowPainRested
}

type SeriesPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// AggregateSnapshot is derived from a fetched log sequence and never
// persisted. HasAverages/HasAdherence are false for an empty sequence;
// callers must branch on them rather than display zeros.
type AggregateSnapshot struct {
	TotalEntries  int                 `json:"total_entries"`
	Averages      Averages            `json:"averages"`
	HasAverages   bool                `json:"has_averages"`
	Adherence     Adherence           `json:"adherence"`
	HasAdherence  bool                `json:"has_adherence"`
	Buckets       PainExerciseBuckets `json:"buckets"`
	FlareDays     int                 `json:"flare_days"`
	NonFlareDays  int                 `json:"non_flare_days"`
	RecentEntries []SymptomLogEntry   `json:"recent_entries"`
	GeneratedAt   time.Time           `json:"generated_at"`
}

const (
	InsightFlareWarning = "flare-warning"
	InsightReassurance  = "reassurance"
	InsightLowSleep     = "low-sleep"
	InsightHighStress   = "high-stress"
	InsightNoData       = "no-data"
)

// Insight is one rule-triggered observation. Insights are transient and
// regenerated with every snapshot.
type Insight struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

// InsightSummary is the reconciled shape of the backend analysis
// response. Older backends return a flat summary string, newer ones a
// classification plus structured insights; the gateway normalizes both
// into this.
type InsightSummary struct {
	Classification string   `json:"classification,omitempty"`
	SummaryText    string   `json:"summary_text"`
	Insights       []string `json:"insights"`
}

const (
	SpeakerBot  = "chiip"
	SpeakerUser = "user"
)

// BotTurn is one message in the conversational surface. Turns live only
// for the duration of the view.
type BotTurn struct {
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	SentAt  time.Time `json:"sent_at"`
}
