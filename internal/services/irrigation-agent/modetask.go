package irrigation_agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smartirrigation/device-agent/internal/model"
	"github.com/smartirrigation/device-agent/internal/model/messages"
)

// The scheduling task: exactly one per agent, restarted on every mode or
// schedule change. The task receives a snapshot of mode and schedule at
// start so configuration changes never race it; changes always cancel and
// restart it instead.

// startTaskLocked launches the scheduling task for the current mode and
// schedule. Caller holds a.mu.
func (a *Agent) startTaskLocked() {
	ctx, cancel := context.WithCancel(a.taskContext())
	done := make(chan struct{})
	a.taskCancel = cancel
	a.taskDone = done
	go a.runTask(ctx, a.mode, a.schedule, done)
}

// stopTaskLocked cancels the scheduling task and awaits its teardown, so
// no stale task can actuate after a mode or schedule change. Caller holds
// a.mu.
func (a *Agent) stopTaskLocked() {
	if a.taskCancel == nil {
		return
	}
	a.taskCancel()
	<-a.taskDone
	a.taskCancel = nil
	a.taskDone = nil
}

// restartTaskLocked replaces the scheduling task, forcing the actuator OFF
// in between. Caller holds a.mu.
func (a *Agent) restartTaskLocked() {
	a.stopTaskLocked()
	a.forceOff()
	a.startTaskLocked()
}

func (a *Agent) runTask(ctx context.Context, mode model.IrrigationMode, sched model.Schedule, done chan struct{}) {
	defer close(done)
	defer func() { _ = a.relay.Off() }() // forced OFF on any teardown

	log.Info().Str("mode", string(mode)).Msg("scheduling task started")
	for ctx.Err() == nil {
		switch mode {
		case model.ModeAutomatic:
			_ = a.runAutomaticCycle(ctx, sched)
		case model.ModeScheduled:
			_ = a.runScheduledCycle(ctx, sched)
		default:
			_ = a.sleep(ctx, a.opts.ManualIdleInterval)
		}
	}
	log.Info().Str("mode", string(mode)).Msg("scheduling task cancelled")
}

// runAutomaticCycle waits out the schedule, holds at the rain-skip gate
// while both the local probe and the external weather service report rain
// above threshold, then defers the actual decision to the prediction
// oracle.
func (a *Agent) runAutomaticCycle(ctx context.Context, sched model.Schedule) error {
	if sched.IsZero() || sched.Validate() != nil {
		return a.sleep(ctx, a.opts.ManualIdleInterval)
	}
	if err := a.waitForSchedule(ctx, sched); err != nil {
		return err
	}

	for {
		localRain, err := a.sensors.ReadRain()
		if err != nil {
			log.Warn().Err(err).Msg("rain probe read failed, treating as dry")
			localRain = 0
		}
		precip, err := a.weather.CurrentPrecipMM(ctx, a.opts.Latitude, a.opts.Longitude)
		if err != nil {
			log.Warn().Err(err).Msg("weather lookup failed, treating as dry")
			precip = 0
		}
		if !(localRain > a.opts.LocalRainThreshold && precip > a.opts.WeatherRainThresholdMM) {
			break
		}
		_ = a.relay.Off()
		log.Info().Float64("local_rain", localRain).Float64("precip_mm", precip).
			Msg("rain detected, irrigation skipped")
		if err := a.sleep(ctx, a.opts.RainRecheckInterval); err != nil {
			return err
		}
	}

	a.publishPredictRequest(ctx)
	return a.settle(ctx)
}

// runScheduledCycle waits out the schedule and actuates for the configured
// duration, accounting usage from the activation window. A cycle that
// finds the window already open (a prediction activation in flight) skips
// rather than double-activating.
func (a *Agent) runScheduledCycle(ctx context.Context, sched model.Schedule) error {
	if sched.IsZero() || sched.Validate() != nil {
		// no usable schedule: behave like Manual until reconfigured
		return a.sleep(ctx, a.opts.ManualIdleInterval)
	}
	if err := a.waitForSchedule(ctx, sched); err != nil {
		return err
	}

	if _, ok := a.openWindow(); !ok {
		log.Info().Msg("activation window already open, scheduled cycle skipped")
		return a.settle(ctx)
	}

	_ = a.relay.On()
	waitErr := a.sleep(ctx, sched.Duration())
	_ = a.relay.Off()
	a.closeWindowAndRecord()
	if waitErr != nil {
		return waitErr
	}
	return a.settle(ctx)
}

// waitForSchedule sleeps until the schedule's next occurrence, in chunks
// of at most MaxWaitChunk so cancellation is never held up by a bare
// month-long sleep.
func (a *Agent) waitForSchedule(ctx context.Context, sched model.Schedule) error {
	remaining, err := sched.UntilNext(a.now())
	if err != nil {
		// callers validate first, so this only trips on a programming error
		log.Error().Err(err).Msg("unusable schedule in wait")
		return a.sleep(ctx, a.opts.ManualIdleInterval)
	}
	log.Info().Dur("wait", remaining).Msg("next irrigation scheduled")

	for remaining > 0 {
		chunk := remaining
		if chunk > a.opts.MaxWaitChunk {
			chunk = a.opts.MaxWaitChunk
		}
		if err := a.sleep(ctx, chunk); err != nil {
			return err
		}
		remaining -= chunk
	}
	return nil
}

// settle pauses until the schedule's minute has passed so a completed
// cycle is not re-triggered within the same minute.
func (a *Agent) settle(ctx context.Context) error {
	rem := time.Duration(60-a.now().Second()) * time.Second
	return a.sleep(ctx, rem)
}

// telemetryLoop publishes a sensor snapshot on a fixed cadence. It runs
// for the life of the agent, independent of mode transitions.
func (a *Agent) telemetryLoop(ctx context.Context) {
	ticker := time.NewTicker(a.opts.TelemetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.publishTelemetry(ctx)
		}
	}
}

func (a *Agent) publishTelemetry(ctx context.Context) {
	snapshot := a.sensors.Snapshot(ctx)
	msg := messages.NewSensorDataMessage(snapshot, a.now())
	b, _ := json.Marshal(msg)
	if err := a.pub(a.topics.RecordSensorData).PublishMessage(string(b)); err != nil {
		log.Error().Err(err).Msg("publish sensor_data failed")
	}
}

// sleepCtx waits d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
