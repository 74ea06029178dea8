package projector

// ActionID identifies a user-facing control action.
type ActionID string

// Supported actions.
const (
	ActionPowerOn  ActionID = "power_on"
	ActionPowerOff ActionID = "power_off"
	ActionInput1   ActionID = "input_1"
	ActionInput2   ActionID = "input_2"
	ActionInput3   ActionID = "input_3"
	ActionInput4   ActionID = "input_4"
	ActionMenuOn   ActionID = "menu_on"
	ActionMenuOff  ActionID = "menu_off"
)

// Control command codes understood by the DHD800.
const (
	CmdPowerOn  = "C00"
	CmdPowerOff = "C01"
	CmdInput1   = "C05"
	CmdInput2   = "C06"
	CmdInput3   = "C07"
	CmdInput4   = "C08"
	CmdMenuOn   = "C1C"
	CmdMenuOff  = "C1D"
)

// Status query codes. CR0 returns the power state token, CR1 the input
// source token.
const (
	QueryPower = "CR0"
	QueryInput = "CR1"
)

// actionCommands is the fixed action-to-command table. Every supported
// action maps to exactly one command code.
var actionCommands = map[ActionID]string{
	ActionPowerOn:  CmdPowerOn,
	ActionPowerOff: CmdPowerOff,
	ActionInput1:   CmdInput1,
	ActionInput2:   CmdInput2,
	ActionInput3:   CmdInput3,
	ActionInput4:   CmdInput4,
	ActionMenuOn:   CmdMenuOn,
	ActionMenuOff:  CmdMenuOff,
}

// CommandForAction returns the command code for an action identifier.
// The second return value is false for unknown identifiers, which callers
// treat as a no-op rather than an error.
func CommandForAction(id ActionID) (string, bool) {
	code, ok := actionCommands[id]
	return code, ok
}
