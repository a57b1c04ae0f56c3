// internal/status/encode.go
package status

// Encode converts a Snapshot into the live slots of the status block
// (slots 0 .. SlotLiveEnd-1). Values that do not fit a register saturate.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotLiveEnd)

	regs[SlotState] = s.State
	regs[SlotFault] = s.Fault
	regs[SlotSecondsInError] = saturate(s.SecondsInError)
	regs[SlotColor] = s.Color
	regs[SlotFlags] = s.Flags
	regs[SlotLastExit] = s.LastExit
	regs[SlotTotalCountHi] = uint16(s.TotalCount >> 16)
	regs[SlotTotalCountLo] = uint16(s.TotalCount)
	regs[SlotDurationMs] = saturate(s.DurationMs)
	regs[SlotMaterial] = s.Material
	regs[SlotSessions] = saturate(s.Sessions)

	return regs
}

// HARD INVARIANT: counters shown in one register MUST NOT wrap.
func saturate(v uint32) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

// EncodeDeviceName packs up to 16 ASCII characters into 8 registers.
// Each register stores two ASCII bytes in big-endian order.
func EncodeDeviceName(name string) []uint16 {
	out := make([]uint16, SlotDeviceNameSlots)

	b := []byte(name)
	if len(b) > DeviceNameMaxChars {
		b = b[:DeviceNameMaxChars]
	}

	// sanitize to printable ASCII
	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < DeviceNameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}
