package sensors

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/smartirrigation/device-agent/internal/model/messages"
)

// AnalogReader reads one raw 16-bit sample from an analog probe.
type AnalogReader interface {
	ReadRaw() (int, error)
}

// ClimateProber reads temperature (°C) and relative humidity (%). A probe
// may fail transiently; Bank retries it.
type ClimateProber interface {
	Probe() (temperature, humidity float64, err error)
}

// Calibration maps raw probe samples onto percentages.
type Calibration struct {
	DrySoilRaw   float64 // raw value in dry soil -> 0%
	WetSoilRaw   float64 // raw value in wet soil -> 100%
	RainLowerRaw float64 // at or below -> 100%
	RainUpperRaw float64 // at or above -> 0%
}

// DefaultCalibration matches the deployed probe hardware.
func DefaultCalibration() Calibration {
	return Calibration{
		DrySoilRaw:   44300,
		WetSoilRaw:   19000,
		RainLowerRaw: 13000,
		RainUpperRaw: 65535,
	}
}

const (
	climateAttempts   = 5
	climateRetryDelay = 2 * time.Second
)

// Bank bundles the device's sensors behind calibrated reads.
type Bank struct {
	moisture AnalogReader
	rain     AnalogReader
	climate  ClimateProber
	cal      Calibration

	retryDelay time.Duration
}

func NewBank(moisture, rain AnalogReader, climate ClimateProber, cal Calibration) *Bank {
	return &Bank{
		moisture:   moisture,
		rain:       rain,
		climate:    climate,
		cal:        cal,
		retryDelay: climateRetryDelay,
	}
}

// ReadMoisture returns soil moisture in [0,100]: a linear remap of the
// calibrated dry..wet raw range, clamped.
func (b *Bank) ReadMoisture() (float64, error) {
	raw, err := b.moisture.ReadRaw()
	if err != nil {
		return 0, err
	}
	level := (b.cal.DrySoilRaw - float64(raw)) / (b.cal.DrySoilRaw - b.cal.WetSoilRaw) * 100
	return clamp(level, 0, 100), nil
}

// ReadRain returns precipitation intensity in [0,100], saturating outside
// the calibrated raw window. Lower raw samples mean more rain.
func (b *Bank) ReadRain() (float64, error) {
	raw, err := b.rain.ReadRaw()
	if err != nil {
		return 0, err
	}
	r := float64(raw)
	switch {
	case r <= b.cal.RainLowerRaw:
		return 100, nil
	case r >= b.cal.RainUpperRaw:
		return 0, nil
	}
	return (b.cal.RainUpperRaw - r) / (b.cal.RainUpperRaw - b.cal.RainLowerRaw) * 100, nil
}

// ReadClimate probes temperature and humidity, retrying up to 5 times with
// a fixed delay. On exhausted retries it degrades to the (0,0) sentinel;
// callers must treat that as "unavailable", never as a valid zero reading.
func (b *Bank) ReadClimate(ctx context.Context) (temperature, humidity float64) {
	op := func() error {
		var err error
		temperature, humidity, err = b.climate.Probe()
		return err
	}
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(b.retryDelay), climateAttempts-1),
		ctx,
	)
	if err := backoff.Retry(op, bo); err != nil {
		log.Warn().Err(err).Msg("climate probe exhausted retries, degrading to sentinel")
		return 0, 0
	}
	return temperature, humidity
}

// Snapshot reads all sensors into one immutable reading set.
func (b *Bank) Snapshot(ctx context.Context) messages.SensorReadings {
	moisture, err := b.ReadMoisture()
	if err != nil {
		log.Warn().Err(err).Msg("moisture read failed")
	}
	temperature, humidity := b.ReadClimate(ctx)
	return messages.SensorReadings{
		Temperature: temperature,
		Humidity:    humidity,
		Moisture:    moisture,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
