// Package router classifies inbound MQTT messages and dispatches them
// to domain handlers.
//
// Classification is a fixed prefix match over the known topic families
// with the device id parsed from the following path segment. Anything
// unknown or unparseable is logged and dropped; the transport keeps
// flowing no matter what a device publishes.
//
// The Dispatcher adds the concurrency model: messages are sharded by
// device id onto a fixed set of worker goroutines with bounded queues.
// Two messages from the same device always land on the same shard and
// are handled in arrival order, which the reconciliation algorithms
// rely on. Distinct devices proceed in parallel. A full shard queue
// drops the message; ingest is at-most-once by design.
package router
