package fusion

import (
	"encoding/json"
	"time"
)

// AlertType classifies emitted alerts.
type AlertType string

const (
	AlertFallDetected        AlertType = "fall_detected"
	AlertProlongedInactivity AlertType = "prolonged_inactivity"
)

// Alert is an emission decided during fusion. It is immutable after
// creation; only the acknowledged flag may be flipped later by a caregiver.
type Alert struct {
	Type         AlertType       `json:"type"`
	Timestamp    time.Time       `json:"timestamp"`
	Acknowledged bool            `json:"acknowledged"`
	Duration     *float64        `json:"duration,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
}

// Retained weights for exponential smoothing: the fraction of the current
// value that survives a new sample.
const (
	smoothingRetained = 0.7
	stabilityRetained = 0.8
)

// Apply merges a reading into the current aggregate and decides alert
// emission. It is a pure, total function: absent reading fields default to
// no contribution, and no input combination produces an error. The caller
// owns persistence of the returned state and alerts.
//
// now must be the server-side receive time; the device clock is stored with
// the history record for display only and never drives fusion.
func Apply(current PatientMetrics, reading SensorReading, now time.Time) (PatientMetrics, []Alert) {
	next := current

	next.StepCount += intOrZero(reading.StepCount)
	next.AverageCadence = smooth(current.AverageCadence, reading.AverageCadence, smoothingRetained)
	next.TimeSeated += floatOrZero(reading.TimeSeated)
	next.TimeStanding += floatOrZero(reading.TimeStanding)
	next.TimeWalking += floatOrZero(reading.TimeWalking)
	next.GaitSpeed = smooth(current.GaitSpeed, reading.GaitSpeed, smoothingRetained)
	next.PosturalStability = smooth(current.PosturalStability, reading.PosturalStability, stabilityRetained)

	fell := reading.FallDetected != nil && *reading.FallDetected
	if fell {
		// Sticky until the next daily reset.
		next.FallsDetected = true
		ts := now
		next.FallsTimestamp = &ts
	}

	next.InactivityEpisodes += intOrZero(reading.InactivityEpisodes)
	next.InactivityAvgDuration = smooth(current.InactivityAvgDuration, reading.InactivityAvgDuration, smoothingRetained)

	if reading.TugEstimated != nil && *reading.TugEstimated > 0 {
		// Zero is a failed estimate, not a measurement.
		next.TugEstimated = *reading.TugEstimated
	}

	next.AbruptTransitions += intOrZero(reading.AbruptTransitions)

	if series, ok := reading.HourlyActivity.Series(); ok {
		copy(next.CircadianPattern[:], series)
	} else if inc, ok := reading.HourlyActivity.Scalar(); ok {
		next.CircadianPattern[now.Hour()] += inc
	}

	var alerts []Alert
	if fell {
		alerts = append(alerts, Alert{
			Type:      AlertFallDetected,
			Timestamp: now,
			Details:   fallDetails(reading.Raw),
		})
	}
	if reading.InactivityEpisodes != nil && *reading.InactivityEpisodes > 0 {
		duration := floatOrZero(reading.InactivityAvgDuration)
		alerts = append(alerts, Alert{
			Type:      AlertProlongedInactivity,
			Timestamp: now,
			Duration:  &duration,
		})
	}
	return next, alerts
}

// ResetDaily zeroes the day's tallies while keeping the latest physiological
// estimates (gait speed, postural stability, TUG). Idempotent.
func ResetDaily(current PatientMetrics) PatientMetrics {
	return PatientMetrics{
		GaitSpeed:         current.GaitSpeed,
		PosturalStability: current.PosturalStability,
		TugEstimated:      current.TugEstimated,
	}
}

// smooth applies exponential smoothing with the given retained weight. A
// zero current value means cold start and the sample becomes the baseline.
func smooth(current float64, sample *float64, retained float64) float64 {
	if sample == nil {
		return current
	}
	if current == 0 {
		return *sample
	}
	return current*retained + *sample*(1-retained)
}

func fallDetails(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{"raw":null}`)
	}
	details, err := json.Marshal(struct {
		Raw json.RawMessage `json:"raw"`
	}{Raw: raw})
	if err != nil {
		return json.RawMessage(`{"raw":null}`)
	}
	return details
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
