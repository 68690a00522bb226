// Package broker wraps an MQTT connection for the edge agent: publishing
// telemetry upstream and subscribing to the agent's command topic, with
// automatic reconnect and persistent-session re-subscription. Ported from
// original_source/crates/infrastructure/src/messaging/mqtt_client.rs, built
// on github.com/eclipse/paho.mqtt.golang instead of rumqttc.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Message is an incoming publish delivered to a Subscribe handler.
type Message struct {
	Topic   string
	Payload []byte
}

// Client wraps a paho MQTT client with connection tracking and
// re-subscription on reconnect, matching MqttClient's behavior.
type Client struct {
	opts   *mqtt.ClientOptions
	client mqtt.Client
	logger *slog.Logger

	mu            sync.RWMutex
	subscriptions map[string]func(Message)
	connected     bool
}

// Config configures a Client's connection to the broker.
type Config struct {
	Host         string
	Port         uint16
	ClientID     string
	Username     string
	Password     string
	KeepAlive    time.Duration
	CleanSession bool
	WillTopic    string
	WillPayload  []byte
}

// NewClient builds a Client from cfg. It does not connect; call Connect.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 20 * time.Second
	}

	c := &Client{logger: logger, subscriptions: make(map[string]func(Message))}

	broker := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(cfg.ClientID).
		SetKeepAlive(cfg.KeepAlive).
		SetCleanSession(cfg.CleanSession).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.WillTopic != "" {
		opts.SetWill(cfg.WillTopic, string(cfg.WillPayload), 1, true)
	}

	opts.SetOnConnectHandler(func(mqtt.Client) {
		c.logger.Info("mqtt connected")
		c.mu.Lock()
		c.connected = true
		subs := make(map[string]func(Message), len(c.subscriptions))
		for topic, handler := range c.subscriptions {
			subs[topic] = handler
		}
		c.mu.Unlock()

		for topic, handler := range subs {
			c.subscribeTopic(topic, handler)
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.logger.Error("mqtt connection lost", "error", err)
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	})

	c.opts = opts
	return c
}

// Connect dials the broker and blocks until the connection completes or
// ctx is cancelled.
func (c *Client) Connect(ctx context.Context) error {
	c.client = mqtt.NewClient(c.opts)
	token := c.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return fmt.Errorf("mqtt connect timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect failed: %w", err)
	}
	return nil
}

// Disconnect closes the connection, waiting up to 250ms to flush.
func (c *Client) Disconnect() {
	if c.client != nil {
		c.client.Disconnect(250)
	}
}

// IsConnected reports whether the underlying client currently believes
// it's connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnectionOpen()
}

// PublishBytes publishes payload to topic at the given QoS.
func (c *Client) PublishBytes(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error {
	if c.client == nil {
		return fmt.Errorf("mqtt client not connected")
	}
	token := c.client.Publish(topic, qos, retain, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt publish to %s timed out", topic)
	}
	return token.Error()
}

// Publish publishes a string payload at QoS 1, matching MqttClient::publish.
func (c *Client) Publish(ctx context.Context, topic, payload string, retain bool) error {
	return c.PublishBytes(ctx, topic, []byte(payload), 1, retain)
}

// Subscribe registers handler for topic at QoS 1, remembering it so a
// reconnect re-subscribes automatically.
func (c *Client) Subscribe(topic string, handler func(Message)) error {
	c.mu.Lock()
	c.subscriptions[topic] = handler
	c.mu.Unlock()

	if c.client != nil && c.client.IsConnectionOpen() {
		return c.subscribeTopic(topic, handler)
	}
	return nil
}

func (c *Client) subscribeTopic(topic string, handler func(Message)) error {
	token := c.client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		handler(Message{Topic: msg.Topic(), Payload: msg.Payload()})
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt subscribe to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		c.logger.Error("failed to subscribe", "topic", topic, "error", err)
		return err
	}
	return nil
}
