package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher is satisfied by internal/common/mqtt.Client.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTBroadcaster 发布到 <topic>/<kind>
type MQTTBroadcaster struct {
	pub   Publisher
	topic string
	qos   byte
}

func NewMQTTBroadcaster(pub Publisher, topic string, qos byte) *MQTTBroadcaster {
	return &MQTTBroadcaster{pub: pub, topic: topic, qos: qos}
}

func (m *MQTTBroadcaster) Broadcast(_ context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return m.pub.Publish(m.topic+"/"+msg.Kind, m.qos, false, payload)
}
