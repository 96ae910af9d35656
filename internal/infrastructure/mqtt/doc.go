// Package mqtt provides the MQTT transport adapter for Wihajster Core.
//
// This package manages:
//   - Connection to the broker with infinite fixed-delay reconnect
//   - Message publishing (local-send confirmation only)
//   - Topic subscriptions, restored automatically on every reconnect
//   - Last Will and Testament (LWT) for backend offline detection
//   - Topic builders and parsing for the device topic families
//
// # Architecture
//
// The broker sits between the core and a fleet of ESP32-class sensor
// nodes. Everything device-facing flows through here: settings sync
// snapshots and command envelopes outbound; sensor readings, telemetry,
// presence announcements, settings reports/acks, and command responses
// inbound. The adapter knows nothing about message semantics - it hands
// every inbound (topic, payload) pair to the router.
//
// # Failure model
//
// Connection-level failures are handled here (log + reconnect forever at
// a fixed delay); malformed payloads are the router's concern. Publish
// reports only whether the local send succeeded - there is deliberately
// no delivery guarantee, because the reconciliation protocol is built to
// survive lost messages.
package mqtt
