package mqttclient

import (
	"context"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Handler processes one inbound message from a subscribed topic.
type Handler func(topic string, message mqtt.Message) error

// IConsumer subscribes to one or more topics and dispatches messages to a
// handler until the context is cancelled.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler Handler)
}

// Consumer subscribes to a single topic on a shared MQTT client.
type Consumer struct {
	client  mqtt.Client
	topic   string
	qos     byte
	handler Handler
}

func NewConsumer(client mqtt.Client, topic string, qos byte, handler Handler) *Consumer {
	return &Consumer{client: client, topic: topic, qos: qos, handler: handler}
}

func (c *Consumer) SetHandler(handler Handler) {
	c.handler = handler
}

// ConsumeMessage subscribes and blocks until ctx is cancelled, then
// unsubscribes.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	token := c.client.Subscribe(c.topic, c.qos, func(_ mqtt.Client, message mqtt.Message) {
		if c.handler == nil {
			log.Warn().Str("topic", c.topic).Msg("no handler set for topic")
			return
		}
		if err := c.handler(message.Topic(), message); err != nil {
			log.Error().Err(err).Str("topic", message.Topic()).Msg("error handling message")
		}
	})
	if token.Wait() && token.Error() != nil {
		log.Error().Err(token.Error()).Str("topic", c.topic).Msg("subscribe error")
		return
	}
	log.Info().Str("topic", c.topic).Msg("subscribed")

	<-ctx.Done()

	unsub := c.client.Unsubscribe(c.topic)
	unsub.Wait()
}

// MultiConsumer subscribes to several topics with a shared handler.
type MultiConsumer struct {
	client  mqtt.Client
	topics  map[string]byte // topic -> qos
	handler Handler
}

func NewMultiConsumer(client mqtt.Client, topics map[string]byte, handler Handler) *MultiConsumer {
	return &MultiConsumer{client: client, topics: topics, handler: handler}
}

func (m *MultiConsumer) SetHandler(handler Handler) {
	m.handler = handler
}

func (m *MultiConsumer) ConsumeMessage(ctx context.Context) {
	for topic, qos := range m.topics {
		token := m.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
			if m.handler == nil {
				log.Warn().Str("topic", msg.Topic()).Msg("no handler set for topic")
				return
			}
			if err := m.handler(msg.Topic(), msg); err != nil {
				log.Error().Err(err).Str("topic", msg.Topic()).Msg("error handling message")
			}
		})
		token.Wait()
		if token.Error() != nil {
			log.Error().Err(token.Error()).Str("topic", topic).Msg("subscribe error")
		} else {
			log.Info().Str("topic", topic).Msg("subscribed")
		}
	}

	<-ctx.Done()

	for topic := range m.topics {
		m.client.Unsubscribe(topic)
	}
}
