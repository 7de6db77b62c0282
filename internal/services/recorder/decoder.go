package recorder

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	msg "github.com/smartirrigation/device-agent/internal/model/messages"
)

// Record types persisted by the recorder.
const (
	TypeSensorData = "sensor_data"
	TypeWaterUsed  = "water_used"
	TypeRegister   = "register"
)

// RecordEvent is one decoded device record, normalized from any of the
// record topics.
type RecordEvent struct {
	Type      string
	DeviceID  string
	Fields    map[string]interface{}
	Timestamp time.Time
}

// MQTTHandler turns MQTT record messages into RecordEvents and hands them
// to sink (Influx).
type MQTTHandler struct{ sink func(RecordEvent) }

func NewMQTTHandler(sink func(RecordEvent)) *MQTTHandler { return &MQTTHandler{sink: sink} }

func (h *MQTTHandler) Handle(_ string, m mqtt.Message) error {
	topic := m.Topic()
	payload := m.Payload()

	var (
		evt RecordEvent
		err error
	)
	switch {
	case strings.HasSuffix(topic, "/record/sensor_data"):
		evt, err = decodeSensorData(topic, payload)
	case strings.HasSuffix(topic, "/record/water_used"):
		evt, err = decodeWaterUsed(topic, payload)
	case topic == "register":
		evt, err = decodeRegister(payload)
	default:
		return nil // ignore other topics
	}
	if err != nil {
		return err
	}
	if h.sink != nil {
		h.sink(evt)
	}
	return nil
}

func decodeSensorData(topic string, payload []byte) (RecordEvent, error) {
	var d msg.SensorDataMessage
	if err := json.Unmarshal(payload, &d); err != nil {
		return RecordEvent{}, err
	}
	deviceID := deviceFromTopic(topic)
	if deviceID == "" {
		return RecordEvent{}, errors.New("sensor_data: missing device id in topic")
	}
	return RecordEvent{
		Type:     TypeSensorData,
		DeviceID: deviceID,
		Fields: map[string]interface{}{
			"temperature": d.SensorData.Temperature,
			"humidity":    d.SensorData.Humidity,
			"moisture":    d.SensorData.Moisture,
		},
		Timestamp: parseTimestamp(d.Timestamp),
	}, nil
}

func decodeWaterUsed(topic string, payload []byte) (RecordEvent, error) {
	var w msg.WaterUsedMessage
	if err := json.Unmarshal(payload, &w); err != nil {
		return RecordEvent{}, err
	}
	deviceID := deviceFromTopic(topic)
	if deviceID == "" {
		return RecordEvent{}, errors.New("water_used: missing device id in topic")
	}
	return RecordEvent{
		Type:     TypeWaterUsed,
		DeviceID: deviceID,
		Fields: map[string]interface{}{
			"water_used": w.WaterUsed,
			"period":     w.Date,
		},
		Timestamp: time.Now(),
	}, nil
}

func decodeRegister(payload []byte) (RecordEvent, error) {
	var r msg.RegisterMessage
	if err := json.Unmarshal(payload, &r); err != nil {
		return RecordEvent{}, err
	}
	if strings.TrimSpace(r.DeviceID) == "" {
		return RecordEvent{}, errors.New("register: missing device id")
	}
	return RecordEvent{
		Type:      TypeRegister,
		DeviceID:  r.DeviceID,
		Fields:    map[string]interface{}{"registered": int64(1)},
		Timestamp: time.Now(),
	}, nil
}

// deviceFromTopic extracts the device id from "{device_id}/record/...".
func deviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return strings.TrimSpace(parts[0])
}

// parseTimestamp reads the device wire layout, falling back to the arrival
// time when the payload carries a malformed one.
func parseTimestamp(s string) time.Time {
	t, err := time.Parse(msg.TimestampLayout, s)
	if err != nil {
		return time.Now()
	}
	return t
}
