package model

// IrrigationMode governs which scheduling task drives the actuator.
// Exactly one mode is active at any time.
type IrrigationMode string

const (
	ModeAutomatic IrrigationMode = "AUTOMATIC"
	ModeManual    IrrigationMode = "MANUAL"
	ModeScheduled IrrigationMode = "SCHEDULED"
)

func (m IrrigationMode) Valid() bool {
	switch m {
	case ModeAutomatic, ModeManual, ModeScheduled:
		return true
	}
	return false
}
