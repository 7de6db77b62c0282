package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/smartirrigation/device-agent/internal/config"
	"github.com/smartirrigation/device-agent/internal/services/recorder"
	"github.com/smartirrigation/device-agent/pkg/dedup"
	"github.com/smartirrigation/device-agent/pkg/mqttclient"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// InfluxDB
	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(config.WriteBatchSize())).
		SetFlushInterval(uint(config.WriteFlushInterval().Milliseconds()))
	influx := influxdb2.NewClientWithOptions(config.InfluxURL(), config.InfluxToken(), opts)
	defer influx.Close()
	writeAPI := influx.WriteAPI(config.InfluxOrg(), config.InfluxBucket())
	writer := recorder.NewWriter(writeAPI)

	// MQTT
	mqttCfg := &mqttclient.Config{
		Host:     config.MQTTHost(),
		Port:     config.MQTTPort(),
		User:     config.MQTTUser(),
		Password: config.MQTTPassword(),
		// unique suffix: two recorders sharing a hostname must not steal
		// each other's broker session
		ClientID: "recorder-" + hostname() + "-" + uuid.NewString()[:8],
	}
	client, err := mqttclient.NewConn(mqttCfg, ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connect failed")
	}
	defer mqttclient.CloseConn(client)

	// HTTP
	mux := http.NewServeMux()
	mux.Handle("/healthz", recorder.NewHealthHandler(client, influx, writer))
	mux.Handle("/readyz", recorder.NewReadyHandler(client, influx, writer, 2*time.Second))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/records/water/latest", recorder.NewWaterUsageLatestHandler(influx, config.InfluxOrg(), config.InfluxBucket()))

	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(config.HTTPPort()),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Int("port", config.HTTPPort()).Msg("recorder http listening")
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Consumer
	h := recorder.NewMQTTHandler(writer.Write)
	d := dedup.New(10*time.Minute, 20000)

	for _, topic := range splitTopics(config.RecordSubTopics()) {
		topic := topic
		log.Info().Str("topic", topic).Msg("subscribing")

		// QoS1 only where the device publishes at QoS1
		qos := byte(0)
		if strings.HasSuffix(topic, "/record/water_used") || topic == "register" {
			qos = 1
		}

		if token := client.Subscribe(topic, qos, func(_ mqtt.Client, m mqtt.Message) {
			// every delivery registers its hash; QoS1 redeliveries of a
			// seen record must not double-count usage
			seen := !d.ShouldProcess(dedup.PayloadID(append([]byte(m.Topic()+"|"), m.Payload()...)))
			if m.Duplicate() && seen {
				return
			}
			if err := h.Handle("", m); err != nil {
				log.Warn().Err(err).Str("topic", m.Topic()).Msg("record dropped")
			}
		}); token.Wait() && token.Error() != nil {
			log.Fatal().Err(token.Error()).Str("topic", topic).Msg("subscribe error")
		}
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc
	log.Info().Msg("shutting down...")

	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	_ = hs.Shutdown(shCtx)

	// leave room for the final influx flush
	time.Sleep(config.WriteFlushInterval() + 100*time.Millisecond)
}

func splitTopics(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "local"
}
