package pipeline

import (
	"context"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wattlens/wattlens/internal/config"
)

// MQTTConsumer subscribes to a chunk topic and forwards raw payloads into
// the pipeline. The subscription is re-established by the on-connect
// handler after every reconnect.
type MQTTConsumer struct {
	client mqtt.Client
	output chan<- []byte
	cfg    config.MQTTConfig
	logger *zap.Logger
}

// NewMQTTConsumer creates and configures a new MQTT consumer instance.
// The client does not connect until Run is called.
func NewMQTTConsumer(cfg config.MQTTConfig, output chan<- []byte, logger *zap.Logger) (*MQTTConsumer, error) {
	if cfg.Broker == "" || cfg.Topic == "" {
		logger.Error("MQTT configuration validation failed",
			zap.String("broker", cfg.Broker),
			zap.String("topic", cfg.Topic),
		)
		return nil, ErrInvalidMQTTConfig
	}

	c := &MQTTConsumer{
		output: output,
		cfg:    cfg,
		logger: logger,
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "wattlens-" + uuid.NewString()[:8]
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})
	c.client = mqtt.NewClient(opts)

	logger.Info("MQTT consumer created",
		zap.String("broker", cfg.Broker),
		zap.String("topic", cfg.Topic),
		zap.String("client_id", clientID),
		zap.Int("qos", cfg.QoS),
	)

	return c, nil
}

func (c *MQTTConsumer) onConnect(client mqtt.Client) {
	c.logger.Info("MQTT connected, subscribing", zap.String("topic", c.cfg.Topic))
	if token := client.Subscribe(c.cfg.Topic, byte(c.cfg.QoS), c.onMessage); token.Wait() && token.Error() != nil {
		c.logger.Error("MQTT subscribe failed",
			zap.String("topic", c.cfg.Topic),
			zap.Error(token.Error()),
		)
	}
}

// onMessage runs on the paho router goroutine, so the handoff must not
// block; a full channel drops the payload instead.
func (c *MQTTConsumer) onMessage(_ mqtt.Client, msg mqtt.Message) {
	select {
	case c.output <- msg.Payload():
	default:
		eventsDropped.WithLabelValues("mqtt_consumer").Inc()
		c.logger.Warn("Payload channel full, dropping MQTT message",
			zap.String("topic", msg.Topic()),
		)
	}
}

// Run connects the client and blocks until the context is cancelled.
// Reconnects after the initial connect are handled by the paho client.
func (c *MQTTConsumer) Run(ctx context.Context) error {
	sugar := c.logger.Sugar()
	sugar.Info("Starting MQTT consumer...")

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("%w: %w", ErrMQTTConnectFailed, token.Error())
	}

	<-ctx.Done()
	sugar.Info("Context cancelled, disconnecting MQTT client...")
	c.client.Disconnect(250)
	sugar.Info("MQTT consumer stopped.")
	return context.Canceled
}
