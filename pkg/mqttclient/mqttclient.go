package mqttclient

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Config holds the broker connection parameters.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
}

// NewConn connects to the MQTT broker, retrying with exponential backoff.
// The connection is torn down when ctx is cancelled.
func NewConn(cfg *Config, ctx context.Context) (mqtt.Client, error) {
	connAddr := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(connAddr)
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(true) // commands must be handled in arrival order

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	maxRetries := 5

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Warn().Err(token.Error()).Str("broker", connAddr).Msg("mqtt connect failed")
			return token.Error()
		}
		return nil
	}, backoff.WithMaxRetries(bo, uint64(maxRetries-1)))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}

	log.Info().Str("broker", connAddr).Msg("connected to MQTT broker")

	go func() {
		<-ctx.Done()
		client.Disconnect(250)
		log.Info().Msg("mqtt connection closed")
	}()

	return client, nil
}

// CloseConn disconnects the client if it is still connected.
func CloseConn(client mqtt.Client) {
	if client.IsConnected() {
		client.Disconnect(250)
		log.Info().Msg("mqtt connection successfully closed")
	}
}
