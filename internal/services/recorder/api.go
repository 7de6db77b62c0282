package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// WaterUsage is the payload exposed to dashboard consumers.
type WaterUsage struct {
	DeviceID string  `json:"device_id,omitempty"`
	Liters   float64 `json:"liters"`
	Time     string  `json:"time"` // RFC3339
}

type usageQueryParams struct {
	Minutes   int
	Limit     int
	TimeoutMS int
}

func parseUsageQuery(r *http.Request, defMin, defLim, defTOms int) usageQueryParams {
	q := r.URL.Query()
	get := func(k string, def, min, max int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < min {
					return min
				}
				if max > 0 && n > max {
					return max
				}
				return n
			}
		}
		return def
	}
	return usageQueryParams{
		Minutes:   get("minutes", defMin, 1, 31*24*60),
		Limit:     get("limit", defLim, 1, 500),
		TimeoutMS: get("timeout_ms", defTOms, 200, 5000),
	}
}

func buildWaterFlux(bucket string, minutes, limit int) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == "irrigation_record" and r.record_type == "water_used")
  |> filter(fn: (r) => r._field == "water_used")
  |> keep(columns: ["_time","_value","device_id"])
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, minutes, limit)
}

func runWaterQuery(w http.ResponseWriter, r *http.Request, influx influxdb2.Client, org, bucket string, defMin, defLim int) {
	p := parseUsageQuery(r, defMin, defLim, 2000)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(p.TimeoutMS)*time.Millisecond)
	defer cancel()

	api := influx.QueryAPI(org)
	res, err := api.Query(ctx, buildWaterFlux(bucket, p.Minutes, p.Limit))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Error", "influx-query-error")
		_, _ = w.Write([]byte("[]"))
		return
	}
	defer func() { _ = res.Close() }()

	out := make([]WaterUsage, 0, p.Limit)
	for res.Next() {
		rec := res.Record()

		var liters float64
		switch v := rec.Value().(type) {
		case float64:
			liters = v
		case int64:
			liters = float64(v)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				liters = f
			}
		}

		var deviceID string
		if v := rec.ValueByKey("device_id"); v != nil {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				deviceID = s
			}
		}

		out = append(out, WaterUsage{
			DeviceID: deviceID,
			Liters:   liters,
			Time:     rec.Time().UTC().Format(time.RFC3339),
		})
	}
	if res.Err() != nil {
		w.Header().Set("X-Error", "influx-iter-error")
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// NewWaterUsageLatestHandler serves
// GET /records/water/latest?limit=20[&minutes=43200].
func NewWaterUsageLatestHandler(influx influxdb2.Client, org, bucket string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		runWaterQuery(w, r, influx, org, bucket, 43200, 20)
	})
}
