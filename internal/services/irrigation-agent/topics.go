package irrigation_agent

import "fmt"

// Topics are the device-scoped MQTT topics. Inbound command topics carry
// the device id prefix; register is shared by every device.
type Topics struct {
	Register         string
	RecordSensorData string
	RecordWaterUsed  string
	Predict          string

	Schedule       string
	Irrigate       string
	Prediction     string
	IrrigationType string
}

func TopicsFor(deviceID string) Topics {
	return Topics{
		Register:         "register",
		RecordSensorData: fmt.Sprintf("%s/record/sensor_data", deviceID),
		RecordWaterUsed:  fmt.Sprintf("%s/record/water_used", deviceID),
		Predict:          fmt.Sprintf("%s/predict", deviceID),
		Schedule:         fmt.Sprintf("%s/schedule", deviceID),
		Irrigate:         fmt.Sprintf("%s/irrigate", deviceID),
		Prediction:       fmt.Sprintf("%s/prediction", deviceID),
		IrrigationType:   fmt.Sprintf("%s/irrigation_type", deviceID),
	}
}

// CommandSubscriptions maps every inbound command topic to its QoS.
// Commands are subscribed at QoS1; redeliveries are deduplicated by the
// dispatcher.
func (t Topics) CommandSubscriptions() map[string]byte {
	return map[string]byte{
		t.Schedule:       1,
		t.Irrigate:       1,
		t.Prediction:     1,
		t.IrrigationType: 1,
	}
}
