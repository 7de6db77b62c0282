package irrigation_agent

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/smartirrigation/device-agent/internal/actuator"
	"github.com/smartirrigation/device-agent/internal/model"
	"github.com/smartirrigation/device-agent/internal/model/messages"
	"github.com/smartirrigation/device-agent/internal/sensors"
	"github.com/smartirrigation/device-agent/internal/usage"
	"github.com/smartirrigation/device-agent/pkg/dedup"
	"github.com/smartirrigation/device-agent/pkg/mqttclient"
)

// Options tune the agent's fixed constants. Zero fields fall back to the
// deployed device defaults.
type Options struct {
	PulseDuration          time.Duration // irrigate-now pulse
	UsageRatePerSecond     float64       // liters per second of activation
	LocalRainThreshold     float64       // percent, rain-skip gate
	WeatherRainThresholdMM float64       // mm, rain-skip gate
	RainRecheckInterval    time.Duration
	TelemetryInterval      time.Duration
	ManualIdleInterval     time.Duration
	MaxWaitChunk           time.Duration
	Latitude               float64
	Longitude              float64
}

func DefaultOptions() Options {
	return Options{
		PulseDuration:          5 * time.Second,
		UsageRatePerSecond:     0.023,
		LocalRainThreshold:     50,
		WeatherRainThresholdMM: 5,
		RainRecheckInterval:    time.Hour,
		TelemetryInterval:      6 * time.Second,
		ManualIdleInterval:     24 * time.Hour,
		MaxWaitChunk:           24 * time.Hour,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.PulseDuration <= 0 {
		o.PulseDuration = def.PulseDuration
	}
	if o.UsageRatePerSecond <= 0 {
		o.UsageRatePerSecond = def.UsageRatePerSecond
	}
	if o.LocalRainThreshold <= 0 {
		o.LocalRainThreshold = def.LocalRainThreshold
	}
	if o.WeatherRainThresholdMM <= 0 {
		o.WeatherRainThresholdMM = def.WeatherRainThresholdMM
	}
	if o.RainRecheckInterval <= 0 {
		o.RainRecheckInterval = def.RainRecheckInterval
	}
	if o.TelemetryInterval <= 0 {
		o.TelemetryInterval = def.TelemetryInterval
	}
	if o.ManualIdleInterval <= 0 {
		o.ManualIdleInterval = def.ManualIdleInterval
	}
	if o.MaxWaitChunk <= 0 {
		o.MaxWaitChunk = def.MaxWaitChunk
	}
	return o
}

// Agent is the irrigation mode state machine and scheduling engine. It owns
// the current mode and schedule, runs exactly one scheduling task at a
// time, dispatches inbound commands in arrival order, and accounts water
// usage for every completed activation.
type Agent struct {
	deviceID string
	topics   Topics
	pub      mqttclient.PublisherFactory
	consumer mqttclient.IConsumer
	relay    actuator.Driver
	sensors  *sensors.Bank
	weather  WeatherClient
	usage    *usage.Accumulator
	opts     Options
	deduper  *dedup.Deduper
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error

	rootCtx context.Context

	// mu serializes command handling and guards mode, schedule and the
	// scheduling-task lifecycle. The scheduling task itself never takes mu.
	mu         sync.Mutex
	mode       model.IrrigationMode
	schedule   model.Schedule
	taskCancel context.CancelFunc
	taskDone   chan struct{}

	// windowMu guards the single activation window. Held only for window
	// transitions, never across waits.
	windowMu    sync.Mutex
	windowOpen  bool
	windowStart time.Time
}

func New(
	deviceID string,
	consumer mqttclient.IConsumer,
	pub mqttclient.PublisherFactory,
	relay actuator.Driver,
	bank *sensors.Bank,
	weather WeatherClient,
	opts Options,
) *Agent {
	return &Agent{
		deviceID: deviceID,
		topics:   TopicsFor(deviceID),
		pub:      pub,
		consumer: consumer,
		relay:    relay,
		sensors:  bank,
		weather:  weather,
		usage:    usage.NewAccumulator(),
		opts:     opts.withDefaults(),
		deduper:  dedup.New(10*time.Minute, 20000),
		now:      time.Now,
		sleep:    sleepCtx,
		mode:     model.ModeAutomatic,
		schedule: model.DefaultAutomaticSchedule(),
	}
}

// Mode returns the currently active irrigation mode.
func (a *Agent) Mode() model.IrrigationMode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Schedule returns the currently installed schedule.
func (a *Agent) Schedule() model.Schedule {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.schedule
}

// Usage returns the accumulated per-period water records.
func (a *Agent) Usage() []usage.Record {
	return a.usage.Records()
}

// Start subscribes to the command topics, launches the scheduling task and
// the telemetry publisher, and blocks until ctx is cancelled. The relay is
// forced OFF on the way out.
func (a *Agent) Start(ctx context.Context) {
	a.rootCtx = ctx

	a.consumer.SetHandler(a.route)
	go a.consumer.ConsumeMessage(ctx)
	go a.telemetryLoop(ctx)

	a.mu.Lock()
	a.startTaskLocked()
	a.mu.Unlock()

	<-ctx.Done()

	a.mu.Lock()
	a.stopTaskLocked()
	a.mu.Unlock()
	_ = a.relay.Off()
}

// route dispatches one inbound message by topic suffix. Every delivery
// registers its payload hash with the deduper; only QoS1 redeliveries (DUP
// flag set) of an already-seen payload are dropped, so identical commands
// deliberately re-sent by a user still go through.
func (a *Agent) route(topic string, msg mqtt.Message) error {
	seen := !a.deduper.ShouldProcess(dedup.PayloadID(append([]byte(topic+"|"), msg.Payload()...)))
	if msg.Duplicate() && seen {
		return nil
	}
	switch {
	case strings.HasSuffix(topic, "/irrigate"):
		log.Info().Str("topic", topic).Msg("irrigation command received")
		a.HandleIrrigate(msg.Payload())
	case strings.HasSuffix(topic, "/schedule"):
		log.Info().Str("topic", topic).Msg("schedule command received")
		a.HandleSchedule(msg.Payload())
	case strings.HasSuffix(topic, "/prediction"):
		log.Info().Str("topic", topic).Msg("prediction command received")
		a.HandlePrediction(msg.Payload())
	case strings.HasSuffix(topic, "/irrigation_type"):
		log.Info().Str("topic", topic).Msg("irrigation type command received")
		a.HandleMode(msg.Payload())
	}
	return nil
}

// HandleIrrigate actuates a single fixed-length pulse and records usage.
// A pulse while an activation window is already open is a no-op.
func (a *Agent) HandleIrrigate(_ []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.openWindow(); !ok {
		log.Info().Msg("activation window already open, irrigate command ignored")
		return
	}
	_ = a.relay.On()
	time.Sleep(a.opts.PulseDuration) // the pulse always runs to completion
	_ = a.relay.Off()
	a.closeWindowAndRecord()
}

// HandleSchedule replaces the schedule. A payload missing type or time
// means "schedule removed" and clears it; an invalid recurrence or clock
// value leaves the prior schedule untouched. Replacement restarts the
// scheduling task so the new schedule takes effect immediately.
func (a *Agent) HandleSchedule(payload []byte) {
	var cmd messages.ScheduleCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		log.Warn().Err(err).Msg("schedule command: bad payload")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if cmd.Type == "" || cmd.Time == "" {
		a.schedule = model.Schedule{}
		log.Info().Msg("schedule removed")
		a.restartTaskLocked()
		return
	}

	next := model.Schedule{Type: cmd.Type, Time: cmd.Time, DurationSeconds: a.schedule.DurationSeconds}
	if next.DurationSeconds <= 0 {
		next.DurationSeconds = model.DefaultAutomaticSchedule().DurationSeconds
	}
	if err := next.Validate(); err != nil {
		log.Warn().Err(err).Msg("schedule command ignored")
		return
	}
	a.schedule = next
	log.Info().Str("type", string(next.Type)).Str("time", next.Time).Msg("schedule replaced")
	a.restartTaskLocked()
}

// HandleMode switches the irrigation mode: it cancels the running
// scheduling task, awaits its teardown, forces the actuator OFF, installs
// the mode-appropriate schedule and starts a fresh task. Invalid payloads
// leave mode and schedule unchanged.
func (a *Agent) HandleMode(payload []byte) {
	var cmd messages.ModeCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		log.Warn().Err(err).Msg("mode command: bad payload")
		return
	}
	if !cmd.IrrigationType.Valid() {
		log.Warn().Str("irrigation_type", string(cmd.IrrigationType)).Msg("mode command ignored")
		return
	}

	var sched model.Schedule
	switch cmd.IrrigationType {
	case model.ModeAutomatic:
		sched = model.DefaultAutomaticSchedule()
	case model.ModeManual:
		sched = model.Schedule{}
	case model.ModeScheduled:
		if cmd.Schedule == nil {
			log.Warn().Msg("mode command ignored: SCHEDULED without schedule")
			return
		}
		sched = *cmd.Schedule
		if sched.DurationSeconds <= 0 {
			log.Warn().Msg("mode command ignored: schedule without duration")
			return
		}
		if err := sched.Validate(); err != nil {
			log.Warn().Err(err).Msg("mode command ignored: bad schedule")
			return
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopTaskLocked()
	a.forceOff()
	a.mode = cmd.IrrigationType
	a.schedule = sched
	a.startTaskLocked()
	log.Info().Str("mode", string(a.mode)).Msg("irrigation mode switched")
}

// HandlePrediction consumes an externally computed start/stop verdict.
// Start opens the activation window (idempotently), actuates ON and
// immediately requests a fresh decision with current readings; this is a
// continuous evaluation loop that only a stop verdict ends. Stop actuates
// OFF, closes the window and emits the elapsed-time usage record (0 when
// no window was open).
func (a *Agent) HandlePrediction(payload []byte) {
	var cmd messages.PredictionCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		log.Warn().Err(err).Msg("prediction command: bad payload")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	switch cmd.Prediction {
	case messages.PredictionStart:
		a.openWindow()
		_ = a.relay.On()
		a.publishPredictRequest(a.taskContext())
	case messages.PredictionStop:
		_ = a.relay.Off()
		liters := 0.0
		if start, ok := a.closeWindow(); ok {
			liters = a.now().Sub(start).Seconds() * a.opts.UsageRatePerSecond
		}
		a.recordAndPublishUsage(liters)
	default:
		log.Warn().Int("prediction", cmd.Prediction).Msg("prediction command ignored")
	}
}

// taskContext returns a context for command-path publishes.
func (a *Agent) taskContext() context.Context {
	if a.rootCtx != nil {
		return a.rootCtx
	}
	return context.Background()
}

// ----- activation window -----

// openWindow opens the single activation window. It reports false, leaving
// the existing window untouched, when one is already open.
func (a *Agent) openWindow() (time.Time, bool) {
	a.windowMu.Lock()
	defer a.windowMu.Unlock()
	if a.windowOpen {
		return a.windowStart, false
	}
	a.windowOpen = true
	a.windowStart = a.now()
	return a.windowStart, true
}

// closeWindow consumes the open window, if any.
func (a *Agent) closeWindow() (time.Time, bool) {
	a.windowMu.Lock()
	defer a.windowMu.Unlock()
	if !a.windowOpen {
		return time.Time{}, false
	}
	a.windowOpen = false
	return a.windowStart, true
}

func (a *Agent) windowIsOpen() bool {
	a.windowMu.Lock()
	defer a.windowMu.Unlock()
	return a.windowOpen
}

// forceOff drives the actuator OFF and settles any open activation
// window so a cancelled activation still produces a usage record.
func (a *Agent) forceOff() {
	_ = a.relay.Off()
	a.closeWindowAndRecord()
}

// closeWindowAndRecord converts the open window into a usage record.
func (a *Agent) closeWindowAndRecord() {
	start, ok := a.closeWindow()
	if !ok {
		return
	}
	liters := a.now().Sub(start).Seconds() * a.opts.UsageRatePerSecond
	a.recordAndPublishUsage(liters)
}

// recordAndPublishUsage merges the activation into the current period and
// publishes the water-used record for this activation.
func (a *Agent) recordAndPublishUsage(liters float64) {
	period := usage.PeriodOf(a.now())
	a.usage.Record(period, liters)

	out := messages.WaterUsedMessage{WaterUsed: liters, Date: period}
	b, _ := json.Marshal(out)
	if err := a.pub(a.topics.RecordWaterUsed).PublishMessageQos(1, false, string(b)); err != nil {
		log.Error().Err(err).Msg("publish water_used failed")
		return
	}
	log.Info().Float64("liters", liters).Str("period", period).Msg("water usage recorded")
}

// publishPredictRequest sends a fresh sensor snapshot to the prediction
// oracle.
func (a *Agent) publishPredictRequest(ctx context.Context) {
	snapshot := a.sensors.Snapshot(ctx)
	msg := messages.NewSensorDataMessage(snapshot, a.now())
	b, _ := json.Marshal(msg)
	if err := a.pub(a.topics.Predict).PublishMessageQos(1, false, string(b)); err != nil {
		log.Error().Err(err).Msg("publish predict request failed")
		return
	}
	log.Info().Float64("moisture", snapshot.Moisture).Msg("prediction requested")
}
