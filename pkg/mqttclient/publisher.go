package mqttclient

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// IPublisher publishes messages to a single topic.
type IPublisher interface {
	PublishMessage(message string) error
	PublishMessageQos(qos byte, retained bool, message string) error
	Close()
}

// PublisherFactory builds a topic-bound publisher; services that publish to
// several topics take one of these instead of a fixed IPublisher.
type PublisherFactory func(topic string) IPublisher

// Publisher is a topic-bound IPublisher over a shared MQTT client.
type Publisher struct {
	client mqtt.Client
	topic  string
}

func NewPublisher(client mqtt.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// NewPublisherFactory returns a PublisherFactory over the shared client.
func NewPublisherFactory(client mqtt.Client) PublisherFactory {
	return func(topic string) IPublisher {
		return NewPublisher(client, topic)
	}
}

// PublishMessage publishes at QoS 0.
func (p *Publisher) PublishMessage(message string) error {
	return p.PublishMessageQos(0, false, message)
}

// PublishMessageQos publishes at the given QoS.
func (p *Publisher) PublishMessageQos(qos byte, retained bool, message string) error {
	token := p.client.Publish(p.topic, qos, retained, message)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish message: %w", token.Error())
	}
	log.Debug().Str("topic", p.topic).Int("qos", int(qos)).Msg("message published")
	return nil
}

// Close gracefully closes the underlying MQTT connection.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
		log.Info().Msg("mqtt client disconnected")
	}
}
