package fusion

import (
	"encoding/json"
	"errors"
)

// SensorReading is one partial reading pushed by a device. Every field is
// optional; an absent field contributes nothing to the fused aggregate.
// Raw carries the opaque device payload alongside the parsed metrics; it is
// attached to fall alerts and history records but never fused.
type SensorReading struct {
	StepCount             *int            `json:"stepCount,omitempty"`
	AverageCadence        *float64        `json:"averageCadence,omitempty"`
	TimeSeated            *float64        `json:"timeSeated,omitempty"`
	TimeStanding          *float64        `json:"timeStanding,omitempty"`
	TimeWalking           *float64        `json:"timeWalking,omitempty"`
	GaitSpeed             *float64        `json:"gaitSpeed,omitempty"`
	PosturalStability     *float64        `json:"posturalStability,omitempty"`
	FallDetected          *bool           `json:"fallDetected,omitempty"`
	InactivityEpisodes    *int            `json:"inactivityEpisodes,omitempty"`
	InactivityAvgDuration *float64        `json:"inactivityAvgDuration,omitempty"`
	TugEstimated          *float64        `json:"tugEstimated,omitempty"`
	AbruptTransitions     *int            `json:"abruptTransitions,omitempty"`
	HourlyActivity        *HourlyActivity `json:"hourlyActivity,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// HourlyActivity accepts either a scalar (this hour's activity increment)
// or a full-day array of 24 buckets (bulk overwrite). Anything else is
// carried but ignored by the engine.
type HourlyActivity struct {
	scalar *float64
	series []float64
}

// ScalarActivity builds a single-hour increment.
func ScalarActivity(v float64) *HourlyActivity {
	return &HourlyActivity{scalar: &v}
}

// SeriesActivity builds a full-day histogram upload.
func SeriesActivity(series []float64) *HourlyActivity {
	return &HourlyActivity{series: series}
}

// Scalar returns the single-hour increment, if that is what arrived.
func (h *HourlyActivity) Scalar() (float64, bool) {
	if h == nil || h.scalar == nil {
		return 0, false
	}
	return *h.scalar, true
}

// Series returns the full-day histogram only when it has exactly 24
// buckets; shorter or longer arrays are not a valid overwrite.
func (h *HourlyActivity) Series() ([]float64, bool) {
	if h == nil || len(h.series) != HoursPerDay {
		return nil, false
	}
	return h.series, true
}

// UnmarshalJSON accepts a JSON number or a JSON array of numbers.
func (h *HourlyActivity) UnmarshalJSON(data []byte) error {
	var scalar float64
	if err := json.Unmarshal(data, &scalar); err == nil {
		h.scalar = &scalar
		h.series = nil
		return nil
	}
	var series []float64
	if err := json.Unmarshal(data, &series); err == nil {
		h.scalar = nil
		h.series = series
		return nil
	}
	return errors.New("fusion: hourlyActivity must be a number or an array of numbers")
}

// MarshalJSON writes back whichever shape arrived.
func (h HourlyActivity) MarshalJSON() ([]byte, error) {
	if h.scalar != nil {
		return json.Marshal(*h.scalar)
	}
	return json.Marshal(h.series)
}
