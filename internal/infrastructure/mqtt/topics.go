package mqtt

import "fmt"

// TopicPrefix is the base for all bridge topics.
// Scheme: dhd800/{category}/{instance_id}
const TopicPrefix = "dhd800"

// Topics provides builders for the bridge's MQTT topics. Using these
// helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.State("projector-main")
//	// Returns: "dhd800/state/projector-main"
type Topics struct{}

// Command returns the topic on which action commands are received.
//
// Example: dhd800/command/projector-main
func (Topics) Command(instanceID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, instanceID)
}

// State returns the topic for device state variable updates (retained).
//
// Example: dhd800/state/projector-main
func (Topics) State(instanceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, instanceID)
}

// Status returns the topic for connectivity status updates (retained).
//
// Example: dhd800/status/projector-main
func (Topics) Status(instanceID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, instanceID)
}

// Feedback returns the topic for feedback re-evaluation events.
//
// Example: dhd800/feedback/projector-main
func (Topics) Feedback(instanceID string) string {
	return fmt.Sprintf("%s/feedback/%s", TopicPrefix, instanceID)
}

// Schema returns the topic on which the bridge publishes its
// configuration-field, action and feedback definitions (retained).
//
// Example: dhd800/schema/projector-main
func (Topics) Schema(instanceID string) string {
	return fmt.Sprintf("%s/schema/%s", TopicPrefix, instanceID)
}

// Health returns the topic for periodic health reports (retained).
// The same topic carries the Last Will message.
//
// Example: dhd800/health/projector-main
func (Topics) Health(instanceID string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, instanceID)
}
