package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// MQTTPublisher is the subset of the MQTT client the MQTT sink needs.
type MQTTPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTSink publishes every event as JSON.
type MQTTSink struct {
	client MQTTPublisher
	topic  func(Event) string
	qos    byte
}

// NewMQTTSink creates a sink publishing to the topic chosen by topic.
// Events are never retained: they describe one occurrence, not a state.
func NewMQTTSink(client MQTTPublisher, topic func(Event) string, qos byte) *MQTTSink {
	return &MQTTSink{client: client, topic: topic, qos: qos}
}

// Handle implements Sink.
func (s *MQTTSink) Handle(_ context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	return s.client.Publish(s.topic(e), payload, s.qos, false)
}

// CommandMetricWriter is the subset of the InfluxDB client the metrics sink
// needs. Writes are expected to be non-blocking.
type CommandMetricWriter interface {
	WriteCommandMetric(socketID, action string, success bool, code, bits, repeat int, durationMS int64)
}

// InfluxSink records command events as time-series points.
// Registry events are ignored.
type InfluxSink struct {
	writer CommandMetricWriter
}

// NewInfluxSink creates a sink writing command metrics to writer.
func NewInfluxSink(writer CommandMetricWriter) *InfluxSink {
	return &InfluxSink{writer: writer}
}

// Handle implements Sink.
func (s *InfluxSink) Handle(_ context.Context, e Event) error {
	if e.Command == nil {
		return nil
	}
	socketID := "all"
	if e.SocketID != nil {
		socketID = strconv.Itoa(*e.SocketID)
	}
	c := e.Command
	s.writer.WriteCommandMetric(socketID, string(c.Action), c.Success, c.Code, c.Bits, c.Repeat, c.DurationMS)
	return nil
}
