package sensors

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/smartirrigation/device-agent/internal/actuator"
)

// Simulated backends: the agent runs against drifting synthetic readings
// when no probe hardware is attached.

// SimSoilProbe drifts soil moisture over time: it dries slowly while the
// relay is off and re-wets while irrigation is running, then renders the
// level back into the raw calibrated range.
type SimSoilProbe struct {
	mu    sync.Mutex
	relay actuator.Driver
	cal   Calibration

	level       float64 // [0..1]
	last        time.Time
	gainPerMin  float64
	decayPerMin float64
}

func NewSimSoilProbe(relay actuator.Driver, cal Calibration) *SimSoilProbe {
	return &SimSoilProbe{
		relay:       relay,
		cal:         cal,
		level:       0.30,
		last:        time.Now(),
		gainPerMin:  0.006,
		decayPerMin: 0.001,
	}
}

func (p *SimSoilProbe) ReadRaw() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	dtMin := now.Sub(p.last).Minutes()
	if dtMin < 0 {
		dtMin = 0
	}
	if p.relay != nil && p.relay.State() == actuator.StateOn {
		p.level += p.gainPerMin * dtMin
	} else {
		p.level -= p.decayPerMin * dtMin
	}
	p.level = math.Max(0, math.Min(1, p.level))
	p.last = now

	// level 1.0 -> wet raw, level 0.0 -> dry raw
	raw := p.cal.DrySoilRaw - p.level*(p.cal.DrySoilRaw-p.cal.WetSoilRaw)
	return int(math.Round(raw)), nil
}

// SimRainProbe reports a fixed rain level with small jitter, in raw units.
type SimRainProbe struct {
	mu    sync.Mutex
	cal   Calibration
	level float64 // [0..100]
	rand  *rand.Rand
}

func NewSimRainProbe(cal Calibration, level float64) *SimRainProbe {
	return &SimRainProbe{
		cal:   cal,
		level: math.Max(0, math.Min(100, level)),
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetLevel adjusts the simulated rain percentage.
func (p *SimRainProbe) SetLevel(level float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = math.Max(0, math.Min(100, level))
}

func (p *SimRainProbe) ReadRaw() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	jittered := p.level + p.rand.Float64()*2 - 1
	jittered = math.Max(0, math.Min(100, jittered))
	raw := p.cal.RainUpperRaw - jittered/100*(p.cal.RainUpperRaw-p.cal.RainLowerRaw)
	return int(math.Round(raw)), nil
}

// SimClimateProbe returns plausible temperature/humidity around a base
// point.
type SimClimateProbe struct {
	mu   sync.Mutex
	rand *rand.Rand
}

func NewSimClimateProbe() *SimClimateProbe {
	return &SimClimateProbe{rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (p *SimClimateProbe) Probe() (float64, float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	temperature := 15 + p.rand.Float64()*20 // 15..35 °C
	humidity := 30 + p.rand.Float64()*60    // 30..90 %
	return temperature, humidity, nil
}
