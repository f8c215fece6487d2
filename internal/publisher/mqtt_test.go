package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/eco2mix/internal/config"
	"github.com/jgoulah/eco2mix/internal/sensors"
	"github.com/jgoulah/eco2mix/pkg/models"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type message struct {
	topic    string
	retained bool
	payload  string
}

type fakeClient struct {
	mu           sync.Mutex
	messages     []message
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	var body string
	switch p := payload.(type) {
	case string:
		body = p
	case []byte:
		body = string(p)
	}
	c.messages = append(c.messages, message{topic: topic, retained: retained, payload: body})
	return newFakeToken(c.err)
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func (c *fakeClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for _, m := range c.messages {
		out = append(out, m.topic)
	}
	return out
}

func (c *fakeClient) last(topic string) (message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].topic == topic {
			return c.messages[i], true
		}
	}
	return message{}, false
}

func newTestMQTT(t *testing.T, client *fakeClient, keys ...string) *MQTTPublisher {
	t.Helper()
	selected, err := sensors.Select(keys)
	require.NoError(t, err)

	logger, _ := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewMQTTWithClient(client, &config.Config{}, selected, logger)
}

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Timestamp:           "2024-01-15T14:30:00+00:00",
		Consumption:         models.Float(50_000_000),
		Wind:                models.Float(5_000_000),
		TotalProduction:     45_000_000,
		RenewablePercentage: models.Float(26.666666),
		LowCarbonPercentage: models.Float(93.333333),
	}
}

func TestMQTTPublishAnnouncesAndSendsState(t *testing.T) {
	client := &fakeClient{}
	pub := newTestMQTT(t, client)

	require.NoError(t, pub.Publish(context.Background(), testSnapshot()))

	assert.Equal(t, []string{
		"homeassistant/sensor/eco2mix/consumption/config",
		"homeassistant/sensor/eco2mix/total_production/config",
		"homeassistant/sensor/eco2mix/renewable_percentage/config",
		"homeassistant/sensor/eco2mix/low_carbon_percentage/config",
		"homeassistant/sensor/eco2mix/timestamp/config",
		"eco2mix/state",
		"eco2mix/availability",
	}, client.topics())

	state, ok := client.last("eco2mix/state")
	require.True(t, ok)
	assert.False(t, state.retained)
	assert.JSONEq(t, `{
		"consumption": 50000000.00,
		"total_production": 45000000.00,
		"renewable_percentage": 26.7,
		"low_carbon_percentage": 93.3,
		"timestamp": "2024-01-15T14:30:00Z"
	}`, state.payload)

	availability, ok := client.last("eco2mix/availability")
	require.True(t, ok)
	assert.True(t, availability.retained)
	assert.Equal(t, "online", availability.payload)
}

func TestMQTTDiscoveryPayload(t *testing.T) {
	client := &fakeClient{}
	pub := newTestMQTT(t, client, "consumption", "timestamp")

	require.NoError(t, pub.Publish(context.Background(), testSnapshot()))

	msg, ok := client.last("homeassistant/sensor/eco2mix/consumption/config")
	require.True(t, ok)
	assert.True(t, msg.retained)

	var item map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(msg.payload), &item))
	assert.Equal(t, "power", item["device_class"])
	assert.Equal(t, "kW", item["unit_of_measurement"])
	assert.Equal(t, "measurement", item["state_class"])
	assert.Equal(t, "eco2mix-consumption", item["unique_id"])
	assert.Equal(t, "eco2mix/state", item["state_topic"])
	assert.Equal(t, "eco2mix/availability", item["availability_topic"])
	assert.Equal(t, "{{ value_json.consumption if value_json.consumption is not none else None }}", item["value_template"])
	assert.Equal(t, float64(2), item["suggested_display_precision"])
	assert.Equal(t, "éCO2mix", item["device"].(map[string]interface{})["name"])

	msg, ok = client.last("homeassistant/sensor/eco2mix/timestamp/config")
	require.True(t, ok)
	item = nil
	require.NoError(t, json.Unmarshal([]byte(msg.payload), &item))
	assert.Equal(t, "timestamp", item["device_class"])
	assert.Equal(t, "diagnostic", item["entity_category"])
	assert.NotContains(t, item, "unit_of_measurement")
	assert.NotContains(t, item, "state_class")
	assert.NotContains(t, item, "suggested_display_precision")
}

func TestMQTTSkipsAbsentSensors(t *testing.T) {
	client := &fakeClient{}
	pub := newTestMQTT(t, client, "consumption", "solar", "solar_percentage")

	require.NoError(t, pub.Publish(context.Background(), testSnapshot()))

	assert.NotContains(t, client.topics(), "homeassistant/sensor/eco2mix/solar/config")
	assert.NotContains(t, client.topics(), "homeassistant/sensor/eco2mix/solar_percentage/config")

	state, _ := client.last("eco2mix/state")
	assert.JSONEq(t, `{"consumption": 50000000.00}`, state.payload)

	// solar shows up later: announce it then
	snap := testSnapshot()
	snap.Solar = models.Float(1_500_000)
	require.NoError(t, pub.Publish(context.Background(), snap))
	assert.Contains(t, client.topics(), "homeassistant/sensor/eco2mix/solar/config")
}

func TestMQTTAnnouncesOnce(t *testing.T) {
	client := &fakeClient{}
	pub := newTestMQTT(t, client, "consumption")

	require.NoError(t, pub.Publish(context.Background(), testSnapshot()))
	require.NoError(t, pub.Publish(context.Background(), testSnapshot()))

	count := 0
	for _, topic := range client.topics() {
		if topic == "homeassistant/sensor/eco2mix/consumption/config" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestMQTTMarkUnavailableAndClose(t *testing.T) {
	client := &fakeClient{}
	pub := newTestMQTT(t, client)

	require.NoError(t, pub.MarkUnavailable(context.Background()))
	msg, ok := client.last("eco2mix/availability")
	require.True(t, ok)
	assert.Equal(t, "offline", msg.payload)
	assert.True(t, msg.retained)

	require.NoError(t, pub.Publish(context.Background(), testSnapshot()))
	msg, ok = client.last("eco2mix/availability")
	require.True(t, ok)
	assert.Equal(t, "online", msg.payload)

	pub.Close()
	assert.True(t, client.disconnected)
}

func TestMQTTClearsSensorsThatLoseTheirValue(t *testing.T) {
	client := &fakeClient{}
	pub := newTestMQTT(t, client)

	require.NoError(t, pub.Publish(context.Background(), testSnapshot()))

	noProduction := &models.Snapshot{
		Timestamp:   "2024-01-15T14:45:00+00:00",
		Consumption: models.Float(0),
	}
	require.NoError(t, pub.Publish(context.Background(), noProduction))

	state, ok := client.last("eco2mix/state")
	require.True(t, ok)
	assert.JSONEq(t, `{
		"consumption": 0.00,
		"total_production": 0.00,
		"renewable_percentage": null,
		"low_carbon_percentage": null,
		"timestamp": "2024-01-15T14:45:00Z"
	}`, state.payload)
}

func TestMQTTCustomPrefixes(t *testing.T) {
	client := &fakeClient{}
	selected, err := sensors.Select([]string{"consumption"})
	require.NoError(t, err)
	logger, _ := logtest.NewNullLogger()

	cfg := &config.Config{MQTT: config.MQTTConfig{DiscoveryPrefix: "ha", TopicPrefix: "grid/fr"}}
	pub := NewMQTTWithClient(client, cfg, selected, logger)

	require.NoError(t, pub.Publish(context.Background(), testSnapshot()))
	assert.Equal(t, []string{
		"ha/sensor/eco2mix/consumption/config",
		"grid/fr/state",
		"grid/fr/availability",
	}, client.topics())
}

func TestMQTTPublishError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	pub := newTestMQTT(t, client, "consumption")

	err := pub.Publish(context.Background(), testSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")

	// a failed announce is retried on the next publish
	client.err = nil
	require.NoError(t, pub.Publish(context.Background(), testSnapshot()))
	assert.Contains(t, client.topics(), "homeassistant/sensor/eco2mix/consumption/config")
}

func TestNewMQTTRequiresBroker(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	_, err := NewMQTT(&config.Config{}, nil, logger)
	assert.Error(t, err)
}
