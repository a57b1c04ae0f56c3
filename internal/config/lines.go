// internal/config/lines.go
package config

// Logical line names.
const (
	LineShaft      = "shaft"
	LineDoor       = "door"
	LineModeManual = "mode_manual"
	LineHomeSensor = "home_sensor"
	LinePressure   = "pressure"
	LineBusy       = "busy"

	LineCellPowered = "cell_powered"
	LineCellAuto    = "cell_auto"
	LineCellFaulted = "cell_faulted"
	LineCellShaft   = "cell_shaft"

	BtnHome         = "btn_home"
	BtnExtend       = "btn_extend"
	BtnTest         = "btn_test"
	BtnAck          = "btn_ack"
	BtnDurationUp   = "btn_duration_up"
	BtnDurationDown = "btn_duration_down"
	BtnResetCount   = "btn_reset_count"
	BtnMaterial     = "btn_material"

	LineRelay = "relay"
	LineDrive = "drive"
	LineBit0  = "bit0"
	LineBit1  = "bit1"
	LineBit2  = "bit2"
	LineBit3  = "bit3"
	LineBit4  = "bit4"
	LineBit5  = "bit5"

	LineMachineSafe = "machine_safe"
	LineBlasting    = "blasting"
	LineHeartbeat   = "heartbeat"

	LampGreen = "lamp_green"
	LampRed   = "lamp_red"
	LampWhite = "lamp_white"
)

// BitLines are the position code lines, least significant first.
var BitLines = [6]string{LineBit0, LineBit1, LineBit2, LineBit3, LineBit4, LineBit5}

// CellInputs are the four handshake inputs; all or none are configured.
var CellInputs = []string{LineCellPowered, LineCellAuto, LineCellFaulted, LineCellShaft}

// Lamps are the stack-light outputs; all or none are configured.
var Lamps = []string{LampGreen, LampRed, LampWhite}

// Buttons are the operator trigger inputs. All optional.
var Buttons = []string{
	BtnHome, BtnExtend, BtnTest, BtnAck,
	BtnDurationUp, BtnDurationDown, BtnResetCount, BtnMaterial,
}

// RequiredLines must be present in every configuration.
var RequiredLines = []string{
	LineShaft, LineDoor, LineRelay,
	LineBit0, LineBit1, LineBit2, LineBit3, LineBit4, LineBit5,
	LineDrive, LineBusy,
}

var inputLines = map[string]bool{
	LineShaft: true, LineDoor: true, LineModeManual: true, LineHomeSensor: true,
	LinePressure: true, LineBusy: true,
	LineCellPowered: true, LineCellAuto: true, LineCellFaulted: true, LineCellShaft: true,
	BtnHome: true, BtnExtend: true, BtnTest: true, BtnAck: true,
	BtnDurationUp: true, BtnDurationDown: true, BtnResetCount: true, BtnMaterial: true,
}

var outputLines = map[string]bool{
	LineRelay: true, LineDrive: true,
	LineBit0: true, LineBit1: true, LineBit2: true, LineBit3: true, LineBit4: true, LineBit5: true,
	LineMachineSafe: true, LineBlasting: true, LineHeartbeat: true,
	LampGreen: true, LampRed: true, LampWhite: true,
}

// IsInput reports whether name is a known input line.
func IsInput(name string) bool { return inputLines[name] }

// IsOutput reports whether name is a known output line.
func IsOutput(name string) bool { return outputLines[name] }
