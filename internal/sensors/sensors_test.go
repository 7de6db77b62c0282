package sensors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sampleReader struct {
	raw int
	err error
}

func (r *sampleReader) ReadRaw() (int, error) { return r.raw, r.err }

type flakyClimate struct {
	calls    int
	failures int
	temp     float64
	hum      float64
}

func (c *flakyClimate) Probe() (float64, float64, error) {
	c.calls++
	if c.calls <= c.failures {
		return 0, 0, errors.New("probe checksum error")
	}
	return c.temp, c.hum, nil
}

func testBank(moisture, rain *sampleReader, climate ClimateProber) *Bank {
	b := NewBank(moisture, rain, climate, DefaultCalibration())
	b.retryDelay = time.Millisecond
	return b
}

func TestReadMoistureCalibrationEndpoints(t *testing.T) {
	cal := DefaultCalibration()
	reader := &sampleReader{}
	b := testBank(reader, &sampleReader{}, &flakyClimate{})

	reader.raw = int(cal.DrySoilRaw)
	m, err := b.ReadMoisture()
	require.NoError(t, err)
	require.Zero(t, m)

	reader.raw = int(cal.WetSoilRaw)
	m, err = b.ReadMoisture()
	require.NoError(t, err)
	require.Equal(t, 100.0, m)
}

func TestReadMoistureClampsBeyondCalibration(t *testing.T) {
	reader := &sampleReader{}
	b := testBank(reader, &sampleReader{}, &flakyClimate{})

	for _, raw := range []int{0, 5000, 18999, 44301, 65535} {
		reader.raw = raw
		m, err := b.ReadMoisture()
		require.NoError(t, err)
		require.GreaterOrEqual(t, m, 0.0, "raw=%d", raw)
		require.LessOrEqual(t, m, 100.0, "raw=%d", raw)
	}
}

func TestReadRainSaturation(t *testing.T) {
	cal := DefaultCalibration()
	reader := &sampleReader{}
	b := testBank(&sampleReader{}, reader, &flakyClimate{})

	reader.raw = int(cal.RainLowerRaw) - 1000
	r, err := b.ReadRain()
	require.NoError(t, err)
	require.Equal(t, 100.0, r)

	reader.raw = int(cal.RainUpperRaw)
	r, err = b.ReadRain()
	require.NoError(t, err)
	require.Zero(t, r)

	// midpoint of the calibrated window
	reader.raw = int((cal.RainLowerRaw + cal.RainUpperRaw) / 2)
	r, err = b.ReadRain()
	require.NoError(t, err)
	require.InDelta(t, 50.0, r, 0.1)
}

func TestReadClimateRecoversWithinRetryBudget(t *testing.T) {
	climate := &flakyClimate{failures: 4, temp: 21.5, hum: 55}
	b := testBank(&sampleReader{}, &sampleReader{}, climate)

	temp, hum := b.ReadClimate(context.Background())
	require.Equal(t, 21.5, temp)
	require.Equal(t, 55.0, hum)
	require.Equal(t, 5, climate.calls)
}

func TestReadClimateSentinelAfterExhaustedRetries(t *testing.T) {
	climate := &flakyClimate{failures: 100, temp: 21.5, hum: 55}
	b := testBank(&sampleReader{}, &sampleReader{}, climate)

	temp, hum := b.ReadClimate(context.Background())
	require.Zero(t, temp)
	require.Zero(t, hum)
	// Exactly 5 attempts; the (0,0) sentinel is distinguishable from a real
	// reading only by this call count.
	require.Equal(t, 5, climate.calls)
}

func TestSnapshotCarriesAllReadings(t *testing.T) {
	cal := DefaultCalibration()
	b := testBank(&sampleReader{raw: int(cal.WetSoilRaw)}, &sampleReader{}, &flakyClimate{temp: 19, hum: 72})

	s := b.Snapshot(context.Background())
	require.Equal(t, 100.0, s.Moisture)
	require.Equal(t, 19.0, s.Temperature)
	require.Equal(t, 72.0, s.Humidity)
}
