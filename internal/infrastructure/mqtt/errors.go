package mqtt

import (
	"errors"
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Sentinels returned by the client; compare with errors.Is.
var (
	ErrNotConnected      = errors.New("mqtt: client not connected")
	ErrConnectionFailed  = errors.New("mqtt: connection failed")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")
	ErrInvalidQoS        = errors.New("mqtt: qos must be 0, 1 or 2")
	ErrInvalidTopic      = errors.New("mqtt: empty topic")
)

// checkTopic validates the arguments shared by Publish and Subscribe.
func checkTopic(topic string, qos byte) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	}
	return nil
}

// await blocks on a broker token and wraps a timeout or broker error in
// the operation's sentinel.
func await(token pahomqtt.Token, op error) error {
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: no acknowledgement within %v", op, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", op, err)
	}
	return nil
}
