// Package publish pushes rendered widget state to surfaces other than the tray.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
)

// statePayload is the retained message body. Countdown is evaluated at publish time.
type statePayload struct {
	engine.View
	Countdown string    `json:"countdown"`
	At        time.Time `json:"at"`
}

// MQTTRenderer publishes each View as a retained message so remote displays
// pick up the current state as soon as they subscribe.
type MQTTRenderer struct {
	client mqtt.Client
	topic  string
	now    func() time.Time
}

var _ engine.Renderer = (*MQTTRenderer)(nil)

// NewMQTTRenderer connects to broker and returns a renderer publishing on topic.
func NewMQTTRenderer(broker, topic string) (*MQTTRenderer, error) {
	if topic == "" {
		topic = config.DefaultMQTTTopic
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf(config.MQTTClientIDFormat, uuid.NewString()))
	opts.SetConnectTimeout(config.MQTTConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		slog.Info(config.MsgMQTTConnected,
			config.LogKeyComponent, config.CompPublish,
			config.LogKeyBroker, broker,
		)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn(config.MsgMQTTLost,
			config.LogKeyComponent, config.CompPublish,
			config.LogKeyBroker, broker,
			config.LogKeyError, err,
		)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(config.MQTTConnectTimeout) {
		return nil, fmt.Errorf("%s: %s", config.ErrMQTTConnect, broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrMQTTConnect, err)
	}

	return newMQTTRenderer(client, topic), nil
}

func newMQTTRenderer(client mqtt.Client, topic string) *MQTTRenderer {
	return &MQTTRenderer{client: client, topic: topic, now: time.Now}
}

// Render implements engine.Renderer.
func (m *MQTTRenderer) Render(ctx context.Context, v engine.View) error {
	now := m.now()
	body, err := json.Marshal(statePayload{View: v, Countdown: v.CountdownAt(now), At: now})
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrMQTTPublish, err)
	}

	token := m.client.Publish(m.topic, config.MQTTQoS, config.MQTTRetained, body)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", config.ErrMQTTPublish, ctx.Err())
	case <-time.After(config.MQTTPublishTimeout):
		return fmt.Errorf("%s: %w", config.ErrMQTTPublish, errors.New(config.ErrMQTTTimeout))
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrMQTTPublish, err)
	}

	slog.Debug(config.MsgRender,
		config.LogKeyComponent, config.CompPublish,
		config.LogKeyTopic, m.topic,
		config.LogKeyOutcome, v.Outcome.String(),
	)
	return nil
}

// Close disconnects from the broker.
func (m *MQTTRenderer) Close() {
	m.client.Disconnect(config.MQTTDisconnectMillis)
}
