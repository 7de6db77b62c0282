package messages

import (
	"github.com/smartirrigation/device-agent/internal/model"
)

// Inbound command payloads, one per device-scoped topic suffix.

// ScheduleCommand replaces the current schedule ({device_id}/schedule).
// A payload missing type/time means "schedule removed".
type ScheduleCommand struct {
	Type model.Recurrence `json:"type"`
	Time string           `json:"time"`
}

// ModeCommand switches the irrigation mode ({device_id}/irrigation_type).
// Schedule is required, and validated, only for SCHEDULED.
type ModeCommand struct {
	IrrigationType model.IrrigationMode `json:"irrigation_type"`
	Schedule       *model.Schedule      `json:"schedule,omitempty"`
}

// Prediction verdicts.
const (
	PredictionStop  = 0
	PredictionStart = 1
)

// PredictionCommand carries the externally computed irrigation decision
// ({device_id}/prediction).
type PredictionCommand struct {
	Prediction int `json:"prediction"`
}
