// Package command sends device commands over MQTT and correlates their
// asynchronous replies.
//
// Commands go out on data_update/{id} as a {"command", "params"} envelope
// and are fire-and-forget at the transport level. Replies, when a device
// chooses to answer, arrive later on config/{id} with a matching
// "command" field. The Correlator bridges the two: a caller can publish
// and walk away, or publish and wait with a timeout for the correlated
// reply. A timed-out wait returns no reply and no error; silence is an
// expected outcome on a lossy transport, not a failure.
package command
