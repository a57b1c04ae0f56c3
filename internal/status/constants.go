// internal/status/constants.go
package status

// Machine status block layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of holding registers per machine.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotState holds the process state code.
const SlotState = 0

// SlotFault holds the active fault code (0 outside Error).
const SlotFault = 1

// SlotSecondsInError holds how long the machine has been in Error.
const SlotSecondsInError = 2

// SlotColor holds the status indicator colour.
const SlotColor = 3

// SlotFlags holds the Flag* bits.
const SlotFlags = 4

// SlotLastExit holds why the last blast ended.
const SlotLastExit = 5

// SlotTotalCountHi and SlotTotalCountLo hold the lifetime counter, big-endian.
const SlotTotalCountHi = 6
const SlotTotalCountLo = 7

// SlotDurationMs holds the configured blast duration.
const SlotDurationMs = 8

// SlotMaterial holds the material tag.
const SlotMaterial = 9

// SlotSessions holds blasts since boot, saturating.
const SlotSessions = 10

// SlotLiveEnd is one past the last live slot.
const SlotLiveEnd = 11

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// Device name is always placed at the END of the status block.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// Slot 19 is reserved.

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// ---- FLAGS ----

const (
	FlagHomed uint16 = 1 << iota
	FlagCellAvailable
	FlagManual
	FlagRelay
	FlagDoorClosed
	FlagShaftPresent
)
