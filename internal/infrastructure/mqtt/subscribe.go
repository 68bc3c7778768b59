package mqtt

import "fmt"

// Subscribe registers handler for topic, which may carry + and #
// wildcards. The subscription is remembered and replayed on reconnect;
// a failed subscribe is forgotten again.
//
//	err := client.Subscribe(mqtt.Topics{}.AllSocketCommands(), 1,
//	    dispatcher.CommandHandler(ctx, mqtt.CommandRef))
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := checkTopic(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.remember(subscription{topic: topic, qos: qos, handler: handler})
	if err := await(c.client.Subscribe(topic, qos, c.wrapHandler(handler)), ErrSubscribeFailed); err != nil {
		c.forget(topic)
		return err
	}
	return nil
}

// Unsubscribe drops topic. Messages already in flight may still arrive.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.forget(topic)
	return await(c.client.Unsubscribe(topic), ErrUnsubscribeFailed)
}

func (c *Client) remember(s subscription) {
	c.subMu.Lock()
	c.subscriptions[s.topic] = s
	c.subMu.Unlock()
}

func (c *Client) forget(topic string) {
	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()
}

// SubscriptionCount returns the number of tracked subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription matches the exact topic string, not wildcards.
func (c *Client) HasSubscription(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, ok := c.subscriptions[topic]
	return ok
}
