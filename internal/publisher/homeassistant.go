package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jgoulah/eco2mix/internal/config"
	"github.com/jgoulah/eco2mix/internal/sensors"
	"github.com/jgoulah/eco2mix/pkg/models"
)

const (
	stateUnavailable = "unavailable"
	stateUnknown     = "unknown"
)

// HAPayload is the body of a Home Assistant REST state update
type HAPayload struct {
	State      string                 `json:"state"`
	Attributes map[string]interface{} `json:"attributes"`
}

// HTTPPublisher writes sensor states through the Home Assistant REST API
type HTTPPublisher struct {
	client  *http.Client
	baseURL string
	token   string
	sensors []sensors.Description
	logger  logrus.FieldLogger

	mu     sync.Mutex
	posted map[string]bool
}

// NewHTTP creates a publisher for the Home Assistant REST API
func NewHTTP(haCfg config.HAConfig, selected []sensors.Description, logger logrus.FieldLogger) (*HTTPPublisher, error) {
	if haCfg.URL == "" {
		return nil, fmt.Errorf("Home Assistant URL is required when enabled")
	}
	if haCfg.Token == "" {
		return nil, fmt.Errorf("Home Assistant token is required when enabled")
	}

	return &HTTPPublisher{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(haCfg.URL, "/"),
		token:   haCfg.Token,
		sensors: selected,
		logger:  logger.WithField("component", "homeassistant"),
		posted:  make(map[string]bool),
	}, nil
}

// Publish posts one state per selected sensor. Sensors never seen with a
// value are skipped; sensors that lost their value are set to "unknown".
func (p *HTTPPublisher) Publish(ctx context.Context, snapshot *models.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	published := 0
	for _, d := range p.sensors {
		value, ok := d.State(snapshot)
		if !ok {
			if !p.posted[d.Key] {
				continue
			}
			value = stateUnknown
		}
		if err := p.postState(ctx, d, value); err != nil {
			return err
		}
		p.posted[d.Key] = true
		published++
	}

	p.logger.WithFields(logrus.Fields{
		"timestamp": snapshot.Timestamp,
		"sensors":   published,
	}).Debug("Published state")
	return nil
}

// MarkUnavailable sets every selected sensor to "unavailable"
func (p *HTTPPublisher) MarkUnavailable(ctx context.Context) error {
	for _, d := range p.sensors {
		if err := p.postState(ctx, d, stateUnavailable); err != nil {
			return err
		}
	}
	return nil
}

// EntityID returns the Home Assistant entity written for a sensor
func EntityID(d sensors.Description) string {
	return "sensor.eco2mix_" + d.Key
}

func (p *HTTPPublisher) postState(ctx context.Context, d sensors.Description, state string) error {
	apiURL := fmt.Sprintf("%s/api/states/%s", p.baseURL, EntityID(d))

	payload := HAPayload{
		State:      state,
		Attributes: attributes(d),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	// 200 updates an existing entity, 201 creates it
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP error for %s: status %d, response: %s", EntityID(d), resp.StatusCode, string(respBody))
	}

	return nil
}

func attributes(d sensors.Description) map[string]interface{} {
	attrs := map[string]interface{}{
		"friendly_name": deviceName + " " + d.Name,
		"icon":          d.Icon,
	}
	if unit := d.Unit(); unit != sensors.NoUnit {
		attrs["unit_of_measurement"] = unit
	}
	if class := d.DeviceClass(); class != sensors.NoDeviceClass {
		attrs["device_class"] = class
	}
	if sc := d.StateClass(); sc != "" {
		attrs["state_class"] = sc
	}
	return attrs
}
