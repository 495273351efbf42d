package memory

import "fmt"

// ErrStringBounds is returned when a string opcode would violate the
// [len][cap][bytes] invariant (len <= cap) or read/write past cap+1
// bytes of payload.
var ErrStringBounds = fmt.Errorf("string bounds violation")

// StringHeaderSize is the fixed [len:u16][cap:u16] prefix preceding
// every string descriptor's byte payload.
const StringHeaderSize = 4

// StringLen reads the len field of a string descriptor at addr.
func (m *Memory) StringLen(addr uint32) (uint16, error) {
	return m.ReadU16(addr)
}

// StringCap reads the cap field of a string descriptor at addr.
func (m *Memory) StringCap(addr uint32) (uint16, error) {
	return m.ReadU16(addr + 2)
}

// StringBytes returns a copy of the len bytes currently stored in the
// descriptor at addr (not including the null terminator).
func (m *Memory) StringBytes(addr uint32) ([]byte, error) {
	n, err := m.StringLen(addr)
	if err != nil {
		return nil, err
	}
	c, err := m.StringCap(addr)
	if err != nil {
		return nil, err
	}
	if n > c {
		return nil, fmt.Errorf("%w: len %d exceeds cap %d at 0x%04X", ErrStringBounds, n, c, addr)
	}
	seg, off, err := m.findSegment(addr, uint32(StringHeaderSize)+uint32(c)+1)
	if err != nil {
		return nil, err
	}
	start := off + StringHeaderSize
	return append([]byte(nil), seg.data[start:start+uint32(n)]...), nil
}

// StringClear sets len to 0 and writes a null terminator at bytes[0].
func (m *Memory) StringClear(addr uint32) error {
	if err := m.WriteU16(addr, 0); err != nil {
		return err
	}
	return m.WriteU8(addr+StringHeaderSize, 0)
}

// StringCopy writes src (truncated to the destination's capacity, §4.3
// "STRCPY/STRCAT truncate to destination capacity; never overrun")
// into the descriptor at dst, always leaving a null terminator.
func (m *Memory) StringCopy(dst uint32, src []byte) error {
	c, err := m.StringCap(dst)
	if err != nil {
		return err
	}
	n := uint16(len(src))
	if n > c {
		n = c
	}
	seg, off, err := m.findSegment(dst, uint32(StringHeaderSize)+uint32(c)+1)
	if err != nil {
		return err
	}
	if !seg.write {
		return fmt.Errorf("%w: write to read-only region %s at 0x%04X", ErrViolation, seg.name, dst)
	}
	start := off + StringHeaderSize
	copy(seg.data[start:start+uint32(n)], src[:n])
	seg.data[start+uint32(n)] = 0
	seg.data[off] = byte(n)
	seg.data[off+1] = byte(n >> 8)
	return nil
}

// StringCat appends src to the descriptor at dst, truncating to the
// remaining capacity.
func (m *Memory) StringCat(dst uint32, src []byte) error {
	cur, err := m.StringBytes(dst)
	if err != nil {
		return err
	}
	return m.StringCopy(dst, append(cur, src...))
}

// StringCompare returns -1, 0 or 1 per STRCMP semantics (byte-wise,
// shorter-is-less when one is a prefix of the other).
func StringCompare(a, b []byte) int32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
