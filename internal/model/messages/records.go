package messages

import "time"

// Timestamp layouts used on the wire.
const (
	TimestampLayout = "2006/01/02 15:04:05"
	PeriodLayout    = "2006/01"
)

// SensorReadings is one calibrated snapshot of the environment.
type SensorReadings struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Moisture    float64 `json:"moisture"`
}

// SensorDataMessage is published on {device_id}/record/sensor_data on every
// telemetry tick, and on {device_id}/predict when requesting a decision.
type SensorDataMessage struct {
	SensorData SensorReadings `json:"sensor_data"`
	Timestamp  string         `json:"timestamp"`
}

func NewSensorDataMessage(r SensorReadings, at time.Time) SensorDataMessage {
	return SensorDataMessage{SensorData: r, Timestamp: at.Format(TimestampLayout)}
}

// WaterUsedMessage is published on {device_id}/record/water_used after every
// completed activation.
type WaterUsedMessage struct {
	WaterUsed float64 `json:"water_used"`
	Date      string  `json:"date"` // "YYYY/MM"
}

// RegisterMessage is published once on "register" at startup.
type RegisterMessage struct {
	DeviceID string `json:"device_id"`
}
