package metrics

// WSMetrics provides observability for the WebSocket layer.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead.
type WSMetrics interface {
	// RecordConnectionOpened counts an accepted upgrade on a channel. The
	// channel is the handler's path pattern.
	RecordConnectionOpened(channel string)

	// RecordConnectionClosed counts a torn-down connection.
	RecordConnectionClosed(channel string)

	// SetActiveConnections updates the registry-wide connection gauge.
	SetActiveConnections(count int)

	// RecordMessage records one data message and its payload size.
	//
	// Parameters:
	//   - channel: the handler's path pattern
	//   - direction: "received" or "sent"
	//   - bytes: payload size after reassembly (received) or before
	//     compression (sent)
	RecordMessage(channel string, direction string, bytes int)

	// RecordBroadcast records a fan-out and how many connections it
	// reached.
	RecordBroadcast(channel string, delivered int)
}
