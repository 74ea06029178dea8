// Package mqtt provides MQTT client connectivity for the DHD800 bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with automatic restoration on reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// MQTT is the bridge's host surface: control systems publish action
// commands to dhd800/command/{instance} and consume retained device
// state, connectivity status and schema documents from the matching
// state/status/schema topics.
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
package mqtt
