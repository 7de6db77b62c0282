package recorder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smartirrigation/device-agent/internal/services/recorder"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func capture() (*[]recorder.RecordEvent, func(recorder.RecordEvent)) {
	var got []recorder.RecordEvent
	return &got, func(evt recorder.RecordEvent) { got = append(got, evt) }
}

func TestDecodeSensorData(t *testing.T) {
	got, sink := capture()
	h := recorder.NewMQTTHandler(sink)

	msg := &fakeMessage{
		topic:   "698d1f4a2b3c4d5e6f708192/record/sensor_data",
		payload: []byte(`{"sensor_data":{"temperature":21.5,"humidity":55,"moisture":40.2},"timestamp":"2026/09/01 08:00:05"}`),
	}
	require.NoError(t, h.Handle("", msg))

	require.Len(t, *got, 1)
	evt := (*got)[0]
	require.Equal(t, recorder.TypeSensorData, evt.Type)
	require.Equal(t, "698d1f4a2b3c4d5e6f708192", evt.DeviceID)
	require.Equal(t, 21.5, evt.Fields["temperature"])
	require.Equal(t, 40.2, evt.Fields["moisture"])
	require.Equal(t, time.Date(2026, 9, 1, 8, 0, 5, 0, time.UTC), evt.Timestamp)
}

func TestDecodeSensorDataBadTimestampFallsBack(t *testing.T) {
	got, sink := capture()
	h := recorder.NewMQTTHandler(sink)

	msg := &fakeMessage{
		topic:   "698d1f4a2b3c4d5e6f708192/record/sensor_data",
		payload: []byte(`{"sensor_data":{"temperature":20,"humidity":50,"moisture":30},"timestamp":"yesterday"}`),
	}
	require.NoError(t, h.Handle("", msg))

	require.Len(t, *got, 1)
	require.WithinDuration(t, time.Now(), (*got)[0].Timestamp, 5*time.Second)
}

func TestDecodeWaterUsed(t *testing.T) {
	got, sink := capture()
	h := recorder.NewMQTTHandler(sink)

	msg := &fakeMessage{
		topic:   "698d1f4a2b3c4d5e6f708192/record/water_used",
		payload: []byte(`{"water_used":0.115,"date":"2026/09"}`),
	}
	require.NoError(t, h.Handle("", msg))

	require.Len(t, *got, 1)
	evt := (*got)[0]
	require.Equal(t, recorder.TypeWaterUsed, evt.Type)
	require.Equal(t, "698d1f4a2b3c4d5e6f708192", evt.DeviceID)
	require.Equal(t, 0.115, evt.Fields["water_used"])
	require.Equal(t, "2026/09", evt.Fields["period"])
}

func TestDecodeRegister(t *testing.T) {
	got, sink := capture()
	h := recorder.NewMQTTHandler(sink)

	msg := &fakeMessage{topic: "register", payload: []byte(`{"device_id":"698d1f4a2b3c4d5e6f708192"}`)}
	require.NoError(t, h.Handle("", msg))

	require.Len(t, *got, 1)
	require.Equal(t, recorder.TypeRegister, (*got)[0].Type)
	require.Equal(t, "698d1f4a2b3c4d5e6f708192", (*got)[0].DeviceID)
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name    string
		topic   string
		payload string
	}{
		{"malformed sensor_data", "dev1/record/sensor_data", `{"sensor_data":`},
		{"malformed water_used", "dev1/record/water_used", `nope`},
		{"register without id", "register", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, sink := capture()
			h := recorder.NewMQTTHandler(sink)
			err := h.Handle("", &fakeMessage{topic: tc.topic, payload: []byte(tc.payload)})
			require.Error(t, err)
			require.Empty(t, *got)
		})
	}
}

func TestUnknownTopicIgnored(t *testing.T) {
	got, sink := capture()
	h := recorder.NewMQTTHandler(sink)

	require.NoError(t, h.Handle("", &fakeMessage{topic: "dev1/predict", payload: []byte(`{}`)}))
	require.Empty(t, *got)
}

func TestRecordToPoint(t *testing.T) {
	evt := recorder.RecordEvent{
		Type:      recorder.TypeWaterUsed,
		DeviceID:  "dev1",
		Fields:    map[string]interface{}{"water_used": 0.5},
		Timestamp: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
	}
	p := recorder.RecordToPoint(evt)

	require.Equal(t, "irrigation_record", p.Name())
	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	require.Equal(t, recorder.TypeWaterUsed, tags["record_type"])
	require.Equal(t, "dev1", tags["device_id"])
	require.Equal(t, evt.Timestamp, p.Time())
}
