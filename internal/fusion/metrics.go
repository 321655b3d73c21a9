package fusion

import "time"

// HoursPerDay is the size of the circadian activity histogram, one bucket
// per wall-clock hour.
const HoursPerDay = 24

// PatientMetrics is the running aggregate kept per patient. Counters and
// time-in-posture fields accumulate over the current day; cadence, gait
// speed, postural stability and inactivity duration are exponentially
// smoothed; gait speed, stability and the TUG estimate survive the daily
// reset because they describe the patient, not the day.
type PatientMetrics struct {
	StepCount             int                 `json:"stepCount"`
	AverageCadence        float64             `json:"averageCadence"`
	TimeSeated            float64             `json:"timeSeated"`
	TimeStanding          float64             `json:"timeStanding"`
	TimeWalking           float64             `json:"timeWalking"`
	GaitSpeed             float64             `json:"gaitSpeed"`
	PosturalStability     float64             `json:"posturalStability"`
	FallsDetected         bool                `json:"fallsDetected"`
	FallsTimestamp        *time.Time          `json:"fallsTimestamp,omitempty"`
	InactivityEpisodes    int                 `json:"inactivityEpisodes"`
	InactivityAvgDuration float64             `json:"inactivityAvgDuration"`
	TugEstimated          float64             `json:"tugEstimated"`
	AbruptTransitions     int                 `json:"abruptTransitions"`
	CircadianPattern      [HoursPerDay]float64 `json:"circadianPattern"`
}
