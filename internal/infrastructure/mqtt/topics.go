package mqtt

import (
	"fmt"
	"strings"

	"github.com/nerrad567/rfsocket-core/internal/events"
)

// TopicPrefix is the root of every RF Socket Core topic.
const TopicPrefix = "rfsocket"

// Topics provides builders for RF Socket Core MQTT topics.
//
//	rfsocket/events/socket/{id}   registry and command events for one socket
//	rfsocket/events/system        events not tied to a socket (all-off)
//	rfsocket/command/{ref}        inbound on/off requests, ref is id or name
//	rfsocket/system/status        retained online/offline status and LWT
type Topics struct{}

// SocketEvents returns the event topic for one socket.
//
// Example: rfsocket/events/socket/3
func (Topics) SocketEvents(socketID int) string {
	return fmt.Sprintf("%s/events/socket/%d", TopicPrefix, socketID)
}

// SystemEvents returns the topic for events that address no single socket.
//
// Example: rfsocket/events/system
func (Topics) SystemEvents() string {
	return TopicPrefix + "/events/system"
}

// SocketCommand returns the inbound command topic for a socket id or name.
//
// Example: rfsocket/command/lamp
func (Topics) SocketCommand(ref string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, ref)
}

// AllSocketCommands is the subscription pattern for every inbound command.
//
// Pattern: rfsocket/command/+
func (Topics) AllSocketCommands() string {
	return TopicPrefix + "/command/+"
}

// SystemStatus returns the retained status topic.
//
// Example: rfsocket/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// EventTopic picks the topic an event is published on.
func EventTopic(e events.Event) string {
	if e.SocketID != nil {
		return Topics{}.SocketEvents(*e.SocketID)
	}
	return Topics{}.SystemEvents()
}

// CommandRef extracts the socket reference from an inbound command topic.
// It returns false when topic is not a command topic.
func CommandRef(topic string) (string, bool) {
	ref, ok := strings.CutPrefix(topic, TopicPrefix+"/command/")
	if !ok || ref == "" || strings.Contains(ref, "/") {
		return "", false
	}
	return ref, true
}
