package recorder

import (
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	ingestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recorder_records_ingested_total",
		Help: "Device records written to InfluxDB, by record type.",
	}, []string{"record_type"})

	writeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recorder_influx_write_errors_total",
		Help: "Asynchronous InfluxDB write failures.",
	})
)

// Writer wraps the async WriteAPI and tracks the last write error for
// /healthz and /readyz.
type Writer struct {
	api     api.WriteAPI
	mu      sync.RWMutex
	lastErr time.Time
}

// NewWriter starts the listener for Influx's asynchronous write errors.
func NewWriter(w api.WriteAPI) *Writer {
	ww := &Writer{
		api:     w,
		lastErr: time.Now().Add(-24 * time.Hour), // "long ago" until proven otherwise
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				ww.mu.Lock()
				ww.lastErr = time.Now()
				ww.mu.Unlock()
				writeErrorsTotal.Inc()
				log.Error().Err(err).Msg("influx write error")
			}
		}
	}()
	return ww
}

// Write enqueues one record for asynchronous persistence.
func (w *Writer) Write(evt RecordEvent) {
	w.api.WritePoint(RecordToPoint(evt))
	ingestedTotal.WithLabelValues(evt.Type).Inc()
}

// LastErrorAge reports how long writes have gone without a failure.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}
