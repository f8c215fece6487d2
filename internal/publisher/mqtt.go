package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jgoulah/eco2mix/internal/config"
	"github.com/jgoulah/eco2mix/internal/sensors"
	"github.com/jgoulah/eco2mix/pkg/models"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"

	qos = 1
)

// Client is the part of mqtt.Client the publisher needs
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher announces sensors through Home Assistant MQTT discovery and
// publishes every snapshot as one JSON state message.
type MQTTPublisher struct {
	client          Client
	discoveryPrefix string
	topicPrefix     string
	sensors         []sensors.Description
	logger          logrus.FieldLogger

	mu        sync.Mutex
	announced map[string]bool
}

// NewMQTT connects to the broker and returns a publisher for the selected sensors
func NewMQTT(cfg *config.Config, selected []sensors.Description, logger logrus.FieldLogger) (*MQTTPublisher, error) {
	if cfg.MQTT.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	availability := availabilityTopic(cfg.GetMQTTTopicPrefix())

	// Configure MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.MQTT.Broker))
	opts.SetClientID("eco2mix-" + uuid.NewString())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetWill(availability, payloadOffline, qos, true)

	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
	}
	if cfg.MQTT.Password != "" {
		opts.SetPassword(cfg.MQTT.Password)
	}

	// Create and connect client
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return NewMQTTWithClient(client, cfg, selected, logger), nil
}

// NewMQTTWithClient builds a publisher on an already connected client
func NewMQTTWithClient(client Client, cfg *config.Config, selected []sensors.Description, logger logrus.FieldLogger) *MQTTPublisher {
	return &MQTTPublisher{
		client:          client,
		discoveryPrefix: cfg.GetMQTTDiscoveryPrefix(),
		topicPrefix:     cfg.GetMQTTTopicPrefix(),
		sensors:         selected,
		logger:          logger.WithField("component", "mqtt"),
		announced:       make(map[string]bool),
	}
}

// Publish announces any selected sensor that now has a value, then sends the
// state and marks the device online. Sensors never seen with a value are
// skipped; announced ones that lost their value are sent as null (unknown).
func (p *MQTTPublisher) Publish(ctx context.Context, snapshot *models.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := make(map[string]interface{}, len(p.sensors))
	for _, d := range p.sensors {
		value, ok := d.State(snapshot)
		if !ok {
			if p.announced[d.Key] {
				state[d.Key] = nil
			}
			continue
		}
		if d.Numeric() {
			state[d.Key] = json.Number(value)
		} else {
			state[d.Key] = value
		}

		if p.announced[d.Key] {
			continue
		}
		if err := p.announce(ctx, d); err != nil {
			return err
		}
		p.announced[d.Key] = true
	}

	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := p.publish(ctx, p.stateTopic(), false, body); err != nil {
		return fmt.Errorf("publishing state: %w", err)
	}
	if err := p.publish(ctx, availabilityTopic(p.topicPrefix), true, payloadOnline); err != nil {
		return fmt.Errorf("publishing availability: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"timestamp": snapshot.Timestamp,
		"sensors":   len(state),
	}).Debug("Published state")
	return nil
}

// MarkUnavailable flags the device offline in Home Assistant
func (p *MQTTPublisher) MarkUnavailable(ctx context.Context) error {
	if err := p.publish(ctx, availabilityTopic(p.topicPrefix), true, payloadOffline); err != nil {
		return fmt.Errorf("publishing availability: %w", err)
	}
	return nil
}

// Close disconnects from the broker. The device keeps its last availability.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

func (p *MQTTPublisher) announce(ctx context.Context, d sensors.Description) error {
	item := configurationItem(d, p.stateTopic(), availabilityTopic(p.topicPrefix))
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding discovery config for %s: %w", d.Key, err)
	}

	if err := p.publish(ctx, p.discoveryTopic(d.Key), true, body); err != nil {
		return fmt.Errorf("announcing %s: %w", d.Key, err)
	}
	p.logger.WithField("sensor", d.Key).Info("Announced sensor")
	return nil
}

func (p *MQTTPublisher) publish(ctx context.Context, topic string, retained bool, payload interface{}) error {
	token := p.client.Publish(topic, qos, retained, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MQTTPublisher) discoveryTopic(key string) string {
	return fmt.Sprintf("%s/sensor/eco2mix/%s/config", p.discoveryPrefix, key)
}

func (p *MQTTPublisher) stateTopic() string {
	return p.topicPrefix + "/state"
}

func availabilityTopic(prefix string) string {
	return prefix + "/availability"
}
