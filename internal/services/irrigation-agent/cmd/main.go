package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/smartirrigation/device-agent/internal/actuator"
	"github.com/smartirrigation/device-agent/internal/config"
	"github.com/smartirrigation/device-agent/internal/identity"
	"github.com/smartirrigation/device-agent/internal/model/messages"
	"github.com/smartirrigation/device-agent/internal/sensors"
	agent "github.com/smartirrigation/device-agent/internal/services/irrigation-agent"
	"github.com/smartirrigation/device-agent/pkg/mqttclient"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deviceID, err := identity.LoadOrCreate(config.DeviceIDPath())
	if err != nil {
		log.Fatal().Err(err).Msg("device identity init failed")
	}
	log.Info().Str("device_id", deviceID).Msg("device identity loaded")

	mqttCfg := &mqttclient.Config{
		Host:     config.MQTTHost(),
		Port:     config.MQTTPort(),
		User:     config.MQTTUser(),
		Password: config.MQTTPassword(),
		ClientID: fmt.Sprintf("DeviceAgent-%s", deviceID),
	}
	client, err := mqttclient.NewConn(mqttCfg, ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connect failed")
	}
	defer mqttclient.CloseConn(client)

	relay, bank, err := buildBackend(config.SensorBackend())
	if err != nil {
		log.Fatal().Err(err).Msg("sensor backend init failed")
	}
	log.Info().Str("backend", config.SensorBackend()).Msg("sensor backend ready")

	// announce the device before handling any traffic
	reg, _ := json.Marshal(messages.RegisterMessage{DeviceID: deviceID})
	if err := mqttclient.NewPublisher(client, "register").PublishMessageQos(1, false, string(reg)); err != nil {
		log.Fatal().Err(err).Msg("device registration failed")
	}

	topics := agent.TopicsFor(deviceID)
	consumer := mqttclient.NewMultiConsumer(client, topics.CommandSubscriptions(), nil)
	weather := agent.NewWeatherAPIClient(config.WeatherAPIKey())

	opts := agent.DefaultOptions()
	opts.Latitude = config.Latitude()
	opts.Longitude = config.Longitude()

	a := agent.New(deviceID, consumer, mqttclient.NewPublisherFactory(client), relay, bank, weather, opts)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Info().Msg("shutting down...")
		cancel()
	}()

	log.Info().Str("device_id", deviceID).Msg("device agent running")
	a.Start(ctx)
}

// buildBackend wires the actuator and sensor bank for the configured
// backend: in-process simulation, or the Raspberry Pi hardware stack.
func buildBackend(backend string) (actuator.Driver, *sensors.Bank, error) {
	cal := sensors.DefaultCalibration()

	switch backend {
	case "sim":
		relay := actuator.NewMemoryRelay()
		soil := sensors.NewSimSoilProbe(relay, cal)
		rain := sensors.NewSimRainProbe(cal, config.SimRainLevel())
		climate := sensors.NewSimClimateProbe()
		return relay, sensors.NewBank(soil, rain, climate, cal), nil

	case "gpio":
		relay, err := actuator.NewGPIORelay(config.RelayPin())
		if err != nil {
			return nil, nil, err
		}
		adc, err := sensors.NewMCP3008()
		if err != nil {
			return nil, nil, err
		}
		climate, err := sensors.NewSHT2xProbe()
		if err != nil {
			return nil, nil, err
		}
		soil := sensors.NewADCChannel(adc, config.ADCMoistureChannel())
		rain := sensors.NewADCChannel(adc, config.ADCRainChannel())
		return relay, sensors.NewBank(soil, rain, climate, cal), nil

	default:
		return nil, nil, fmt.Errorf("unknown sensor backend %q", backend)
	}
}
