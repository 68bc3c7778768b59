// Package mqtt connects RF Socket Core to an MQTT broker.
//
// Outbound, every registry and command event is published as JSON so home
// automation systems can follow what the sockets are doing. Inbound, the
// service can listen on rfsocket/command/+ and treat each message as an
// on/off request for the socket named in the topic.
//
//	RF Socket Core ──events──▶ Broker ──▶ Home Assistant, Node-RED, ...
//	RF Socket Core ◀─command── Broker ◀── automations
//
// # Security Considerations
//
//   - Use TLS (cfg.Broker.TLS=true) when the broker is not on localhost
//   - Inbound commands bypass the HTTP API's JWT checks; restrict who can
//     publish to rfsocket/command/# with the broker's ACL
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	bus.AddSink("mqtt", events.NewMQTTSink(client, mqtt.EventTopic, client.QoS()))
package mqtt
