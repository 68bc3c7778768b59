// Package influxdb records socket command history in InfluxDB.
//
// Every transmission attempt becomes one point in the socket_commands
// measurement, tagged by socket and action, so dashboards can chart how
// often each socket is switched and how long the radio takes.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	bus.AddSink("influxdb", events.NewInfluxSink(client))
//
// # Error Handling
//
// Writes are non-blocking and batched (batch_size, flush_interval); batch
// failures are delivered to the SetOnError callback. Connection and health
// check errors are returned directly.
package influxdb
