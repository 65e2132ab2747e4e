package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/magma/magma-sub003/internal/config"
)

const mqttTimeout = 5 * time.Second

// MQTTForwarder publishes the fleet report to a topic and every device
// status to topic/<serial>
type MQTTForwarder struct {
	client mqtt.Client
	topic  string
	qos    byte
}

// NewMQTTForwarder connects to the broker
func NewMQTTForwarder(cfg config.MQTTConfig) (*MQTTForwarder, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("MQTT client connected")
	})

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Error().Err(err).Str("broker", cfg.Broker).Msg("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connect %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, err)
	}

	return newMQTTForwarder(client, cfg.Topic, cfg.QoS), nil
}

func newMQTTForwarder(client mqtt.Client, topic string, qos byte) *MQTTForwarder {
	return &MQTTForwarder{client: client, topic: topic, qos: qos}
}

// Name implements Forwarder
func (f *MQTTForwarder) Name() string { return "mqtt" }

// Forward implements Forwarder
func (f *MQTTForwarder) Forward(ctx context.Context, report *Report) error {
	if !f.client.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	if err := f.publish(f.topic, report); err != nil {
		return err
	}
	for _, st := range report.Devices {
		if st.Serial == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.publish(f.topic+"/"+st.Serial, st); err != nil {
			return err
		}
	}
	return nil
}

func (f *MQTTForwarder) publish(topic string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}

	token := f.client.Publish(topic, f.qos, false, data)
	if !token.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close implements Forwarder
func (f *MQTTForwarder) Close() {
	if f.client.IsConnected() {
		f.client.Disconnect(250)
	}
}
