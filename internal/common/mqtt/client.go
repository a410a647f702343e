package mqtt

import (
	"fmt"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	quiesceMillis  = 250
)

// Client 只负责发布公告的 MQTT 连接
type Client struct {
	client mqtt.Client
	logger *zap.Logger
}

// NewClient 连接 broker；断线后由 paho 自动重连，重连结果记录到日志
func NewClient(cfg *config.MQTTConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("broker", cfg.Broker), zap.String("client_id", cfg.ClientID))

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Info("mqtt connected")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("mqtt connection lost", zap.Error(err))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return &Client{client: c, logger: log}, nil
}

// Publish 发布并等待 broker 确认，超过 publishTimeout 视为失败
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if !c.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt not connected, dropping message for %s", topic)
	}
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to topic %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

func (c *Client) Disconnect() {
	c.client.Disconnect(quiesceMillis)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}
