package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/rfsocket-core/internal/events"
	"github.com/nerrad567/rfsocket-core/internal/socket"
)

// RemoteActor is recorded as the actor of commands received from the broker.
const RemoteActor = "mqtt"

// CommandHandler returns a message handler for inbound broker commands.
//
// refFromTopic extracts the socket id or name from the topic. The payload
// is either the bare word "on"/"off" or a JSON object {"on_off": "on"}; in
// both forms the state is case-insensitive and may carry surrounding spaces.
// Commands run under ctx, so cancelling it aborts in-flight transmissions.
func (d *Dispatcher) CommandHandler(ctx context.Context, refFromTopic func(topic string) (string, bool)) func(topic string, payload []byte) error {
	return func(topic string, payload []byte) error {
		ref, ok := refFromTopic(topic)
		if !ok {
			return fmt.Errorf("not a command topic: %s", topic)
		}

		onOff, err := parseRemotePayload(payload)
		if err != nil {
			return err
		}
		on, err := ParseState(onOff)
		if err != nil {
			return err
		}

		_, err = d.SetSocketState(events.WithActor(ctx, RemoteActor), socket.ParseRef(ref), on)
		return err
	}
}

func parseRemotePayload(payload []byte) (string, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var body struct {
			OnOff string `json:"on_off"`
		}
		if err := json.Unmarshal(trimmed, &body); err != nil {
			return "", fmt.Errorf("decoding command payload: %w", err)
		}
		return normalizeState(body.OnOff), nil
	}
	return normalizeState(string(trimmed)), nil
}

func normalizeState(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
