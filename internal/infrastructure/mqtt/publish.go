package mqtt

import "fmt"

// maxPayloadSize caps a single event payload.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic. Socket events go out unretained; the
// client only retains rfsocket/system/status itself.
//
// Publish satisfies events.MQTTPublisher.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := checkTopic(topic, qos); err != nil {
		return err
	}
	if n := len(payload); n > maxPayloadSize {
		return fmt.Errorf("%w: %d byte payload over the %d byte limit", ErrPublishFailed, n, maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return await(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// QoS returns the configured default QoS level.
func (c *Client) QoS() byte {
	return byte(c.cfg.QoS)
}
