package recorder

import (
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordToPoint normalizes a RecordEvent into a *write.Point for InfluxDB.
// Everything lands in one measurement, tagged by record type and device.
func RecordToPoint(evt RecordEvent) *write.Point {
	tags := map[string]string{
		"record_type": evt.Type,
	}
	if evt.DeviceID != "" {
		tags["device_id"] = evt.DeviceID
	}

	fields := map[string]interface{}{}
	for k, v := range evt.Fields {
		fields[k] = v
	}
	if _, ok := fields["count"]; !ok {
		fields["count"] = int64(1)
	}

	return influxdb2.NewPoint("irrigation_record", tags, fields, evt.Timestamp)
}
