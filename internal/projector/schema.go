package projector

// ConfigField describes one configuration field exposed to the host
// surface, including the validation pattern the host should apply to
// user input.
type ConfigField struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Label   string `json:"label"`
	Default string `json:"default,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// ActionDefinition describes one user-triggerable action.
type ActionDefinition struct {
	ID    ActionID `json:"id"`
	Label string   `json:"label"`
}

// FeedbackKind identifies a class of boolean feedback derived from
// cached device state.
type FeedbackKind string

// Supported feedback kinds.
const (
	FeedbackPowerState  FeedbackKind = "power_state"
	FeedbackInputSource FeedbackKind = "input_source"
)

// FeedbackDefinition describes one feedback the host can evaluate. The
// host supplies the expected token; evaluation compares it against the
// device state cache.
type FeedbackDefinition struct {
	Kind  FeedbackKind `json:"kind"`
	Label string       `json:"label"`
}

// Validation patterns for configuration fields.
const (
	// hostnamePattern accepts hostnames and IPv4 addresses.
	hostnamePattern = `^[a-zA-Z0-9]([a-zA-Z0-9.-]*[a-zA-Z0-9])?$`

	// portPattern accepts a decimal port number.
	portPattern = `^\d{1,5}$`
)

// ConfigFieldSchema returns the fixed three-field configuration schema:
// host, port and password.
func ConfigFieldSchema() []ConfigField {
	return []ConfigField{
		{
			ID:      "host",
			Type:    "text",
			Label:   "Projector Host",
			Pattern: hostnamePattern,
		},
		{
			ID:      "port",
			Type:    "number",
			Label:   "Projector Port",
			Default: "10000",
			Pattern: portPattern,
		},
		{
			ID:    "password",
			Type:  "text",
			Label: "Password",
		},
	}
}

// ActionDefinitions returns all supported actions in a stable order.
func ActionDefinitions() []ActionDefinition {
	return []ActionDefinition{
		{ID: ActionPowerOn, Label: "Power On"},
		{ID: ActionPowerOff, Label: "Power Off"},
		{ID: ActionInput1, Label: "Input 1"},
		{ID: ActionInput2, Label: "Input 2"},
		{ID: ActionInput3, Label: "Input 3"},
		{ID: ActionInput4, Label: "Input 4"},
		{ID: ActionMenuOn, Label: "Menu On"},
		{ID: ActionMenuOff, Label: "Menu Off"},
	}
}

// FeedbackDefinitions returns all supported feedback kinds.
func FeedbackDefinitions() []FeedbackDefinition {
	return []FeedbackDefinition{
		{Kind: FeedbackPowerState, Label: "Power State Matches"},
		{Kind: FeedbackInputSource, Label: "Input Source Matches"},
	}
}
