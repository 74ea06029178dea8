package bridge

import (
	"encoding/json"
	"time"

	"github.com/thomascantrellsea/companion-module-christie-dhd800/internal/projector"
)

// MQTT message types for the bridge surface.

// CommandMessage is received on dhd800/command/{instance} to trigger an
// action on the projector.
type CommandMessage struct {
	// Action is the action identifier (e.g., "power_on", "input_2").
	Action string `json:"action"`

	// Source optionally records where the command originated.
	Source string `json:"source,omitempty"`
}

// StateMessage is published retained on dhd800/state/{instance}
// whenever a poll cycle completes.
type StateMessage struct {
	// Timestamp is when the state was observed (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Values holds the variable values keyed by variable identifier
	// (power_state, input_source). Values are raw hex tokens from the
	// projector.
	Values map[string]string `json:"values"`
}

// StatusMessage is published retained on dhd800/status/{instance} when
// the instance reports a connectivity status change.
type StatusMessage struct {
	// Timestamp is when the status was reported (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Status is the connectivity status (ok, bad_config, error).
	Status string `json:"status"`

	// Message explains the status, empty when nominal.
	Message string `json:"message,omitempty"`
}

// FeedbackMessage is published on dhd800/feedback/{instance} when the
// instance requests a feedback re-evaluation. Downstream consumers
// compare the current tokens against their expected values.
type FeedbackMessage struct {
	// Timestamp is when the re-evaluation was requested (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Feedbacks holds the current token per feedback kind.
	Feedbacks []FeedbackValue `json:"feedbacks"`
}

// FeedbackValue is the current token for one feedback kind.
type FeedbackValue struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// SchemaMessage is published retained on dhd800/schema/{instance} at
// startup so consumers can discover the bridge's capabilities.
type SchemaMessage struct {
	// Timestamp is when the schema was published (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// ConfigFields describes the configuration surface.
	ConfigFields []projector.ConfigField `json:"config_fields"`

	// Actions lists the triggerable actions.
	Actions []projector.ActionDefinition `json:"actions"`

	// Feedbacks lists the evaluable feedback kinds.
	Feedbacks []projector.FeedbackDefinition `json:"feedbacks"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the bridge is operating with issues.
	HealthDegraded HealthStatus = "degraded"

	// HealthOffline indicates the bridge is not connected (from LWT).
	HealthOffline HealthStatus = "offline"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published retained on dhd800/health/{instance} at a
// fixed interval, and registered as the MQTT Last Will with status
// "offline".
type HealthMessage struct {
	// Bridge is the bridge instance identifier.
	Bridge string `json:"bridge"`

	// Timestamp is when the health status was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Status indicates the current operational status.
	Status HealthStatus `json:"status"`

	// Version is the bridge software version.
	Version string `json:"version"`

	// UptimeSeconds is how long the bridge has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// Statistics contains operational counters.
	Statistics *BridgeStatistics `json:"statistics,omitempty"`

	// Reason explains the status (especially for offline/degraded).
	Reason string `json:"reason,omitempty"`
}

// BridgeStatistics contains operational counters from the instance.
type BridgeStatistics struct {
	// CommandsSent is the total number of command sessions opened.
	CommandsSent uint64 `json:"commands_sent"`

	// PollSuccesses is the total number of completed poll cycles.
	PollSuccesses uint64 `json:"poll_successes"`

	// PollFailures is the total number of failed poll cycles.
	PollFailures uint64 `json:"poll_failures"`
}

// NewHealthMessage creates a health status message.
func NewHealthMessage(instanceID, version string, status HealthStatus, stats projector.InstanceStats, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:        instanceID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		Statistics: &BridgeStatistics{
			CommandsSent:  stats.CommandsSent,
			PollSuccesses: stats.PollSuccesses,
			PollFailures:  stats.PollFailures,
		},
	}
}

// NewLWTMessage creates the Last Will and Testament payload published by
// the broker if the bridge disconnects unexpectedly.
func NewLWTMessage(instanceID string) HealthMessage {
	return HealthMessage{
		Bridge:    instanceID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "connection lost",
	}
}

// NewLWTPayload marshals the Last Will message for registration at
// MQTT connect time.
func NewLWTPayload(instanceID string) ([]byte, error) {
	return json.Marshal(NewLWTMessage(instanceID))
}
