package notify

import (
	"encoding/json"
	"time"
)

// LogSink writes every notification to the logger at debug level.
type LogSink struct {
	logger Logger
}

// NewLogSink creates a sink logging through the given logger.
func NewLogSink(logger Logger) *LogSink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogSink{logger: logger}
}

// HandleNotification implements Sink.
func (s *LogSink) HandleNotification(kind string, detail map[string]any) {
	s.logger.Debug("notification", "kind", kind, "detail", detail)
}

// Publisher is the MQTT surface the bridge needs. Satisfied by the
// infrastructure MQTT client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// TopicBuilder maps a notification kind to its MQTT topic.
type TopicBuilder interface {
	Notify(kind string) string
}

// MQTTBridge publishes notifications to per-kind MQTT topics so
// external observers can subscribe without touching the engine.
type MQTTBridge struct {
	publisher Publisher
	topics    TopicBuilder
	qos       byte
	logger    Logger
}

// NewMQTTBridge creates a bridge publishing through the given client.
func NewMQTTBridge(publisher Publisher, topics TopicBuilder, qos byte) *MQTTBridge {
	return &MQTTBridge{
		publisher: publisher,
		topics:    topics,
		qos:       qos,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the bridge.
func (s *MQTTBridge) SetLogger(logger Logger) {
	s.logger = logger
}

// HandleNotification implements Sink. Notifications raised while the
// broker is unreachable are dropped; delivery is best effort.
func (s *MQTTBridge) HandleNotification(kind string, detail map[string]any) {
	if !s.publisher.IsConnected() {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"kind":      kind,
		"detail":    detail,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.Error("encoding notification failed", "kind", kind, "error", err)
		return
	}

	if err := s.publisher.Publish(s.topics.Notify(kind), payload, s.qos, false); err != nil {
		s.logger.Warn("publishing notification failed", "kind", kind, "error", err)
	}
}
