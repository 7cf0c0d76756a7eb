package inspire

import (
	"fmt"
	"strings"
)

// Temperature constraints enforced before any setpoint write.
const (
	MinTemperature  = 10.0
	MaxTemperature  = 30.0
	TemperatureStep = 0.5
)

// Function is a thermostat operating mode as understood by the vendor.
// The wire value is the integer sent with a set_function message.
type Function int

const (
	FunctionOff      Function = 1
	FunctionProgram1 Function = 2
	FunctionProgram2 Function = 3
	FunctionBoth     Function = 4
	FunctionOn       Function = 5
	FunctionBoost    Function = 6
)

// Valid reports whether f is a known wire value.
func (f Function) Valid() bool {
	return f >= FunctionOff && f <= FunctionBoost
}

// String returns the canonical lowercase name used in configuration,
// MQTT payloads and the HTTP API.
func (f Function) String() string {
	switch f {
	case FunctionOff:
		return "off"
	case FunctionProgram1:
		return "program1"
	case FunctionProgram2:
		return "program2"
	case FunctionBoth:
		return "both"
	case FunctionOn:
		return "manual"
	case FunctionBoost:
		return "boost"
	default:
		return fmt.Sprintf("function(%d)", int(f))
	}
}

// ParseFunction converts a user-facing mode name to a Function.
// Accepted names: off, program1, program2, both, manual, boost.
// "on" is accepted as an alias for manual.
func ParseFunction(s string) (Function, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return FunctionOff, nil
	case "program1":
		return FunctionProgram1, nil
	case "program2":
		return FunctionProgram2, nil
	case "both":
		return FunctionBoth, nil
	case "manual", "on":
		return FunctionOn, nil
	case "boost":
		return FunctionBoost, nil
	default:
		return 0, fmt.Errorf("%w: unknown function %q", ErrValidation, s)
	}
}

// FunctionFromStatus converts the Current_Function text reported by the
// vendor ("Off", "Program 1", "Boost", ...) to a Function. Unknown or
// empty text maps to FunctionOff, matching how the thermostat behaves
// when no program is active.
func FunctionFromStatus(text string) Function {
	switch strings.TrimSpace(text) {
	case "Program 1":
		return FunctionProgram1
	case "Program 2":
		return FunctionProgram2
	case "Both":
		return FunctionBoth
	case "On":
		return FunctionOn
	case "Boost":
		return FunctionBoost
	default:
		return FunctionOff
	}
}

// Device is one entry from the vendor's device list.
type Device struct {
	ID   string
	Name string
	Type string

	// Attributes holds every element of the <device> block verbatim,
	// including the ones already lifted into typed fields.
	Attributes map[string]string
}

// Information is the flattened attribute set from get_device_information.
// Keys are vendor element names (Current_Temperature, Boiler_Status,
// Battery, ...), values are the raw text content.
type Information map[string]string

// Summary is the flattened account summary from get_summary.
type Summary map[string]string
