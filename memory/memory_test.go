package memory

import (
	"errors"
	"testing"
)

func TestRegionBasesAndSizes(t *testing.T) {
	m := New()

	cases := []struct {
		r    Region
		base uint32
		size int
	}{
		{RegionIPI, IPIBase, IPISize},
		{RegionOPI, OPIBase, OPISize},
		{RegionWork, WorkBase, WorkSize},
		{RegionRetain, RetainBase, RetainSize},
		{RegionCode, CodeBase, CodeSize},
	}
	for _, c := range cases {
		data := m.Region(c.r)
		if len(data) != c.size {
			t.Errorf("%s: expected size %d, got %d", c.r, c.size, len(data))
		}
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	m := New()

	if err := m.WriteU32(WorkBase, 0xDEADBEEF); err != nil {
		t.Fatalf("WriteU32: %v", err)
	}
	v, err := m.ReadU32(WorkBase)
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}
	if v != 0xDEADBEEF {
		t.Errorf("expected 0xDEADBEEF, got 0x%08X", v)
	}

	if err := m.WriteU16(OPIBase, 77); err != nil {
		t.Fatalf("WriteU16: %v", err)
	}
	v16, err := m.ReadU16(OPIBase)
	if err != nil {
		t.Fatalf("ReadU16: %v", err)
	}
	if v16 != 77 {
		t.Errorf("expected 77, got %d", v16)
	}
}

func TestCrossRegionBoundaryViolation(t *testing.T) {
	m := New()
	// The five regions are contiguous and together span the full
	// 16-bit address space, but each is a distinct backing array: a
	// 4-byte read starting 2 bytes before the end of IPI must not
	// silently spill into OPI's array.
	if _, err := m.ReadU32(IPIBase + IPISize - 2); !errors.Is(err, ErrViolation) {
		t.Errorf("expected a read straddling IPI/OPI to violate, got %v", err)
	}
}

func TestUnmappedAddressViolation(t *testing.T) {
	m := New()
	// Anything beyond the end of the code region (the top of the
	// 16-bit space) is unmapped.
	addr := uint32(CodeBase + CodeSize)
	if _, ok := m.RegionOf(addr); ok {
		t.Errorf("expected 0x%04X to be unmapped", addr)
	}
	if _, err := m.ReadU8(addr); !errors.Is(err, ErrViolation) {
		t.Errorf("expected ErrViolation, got %v", err)
	}
}

func TestWriteReadOnlyCodeFails(t *testing.T) {
	m := New()
	if err := m.LoadCode([]byte{0x00, 0x01}, 0); err != nil {
		t.Fatalf("LoadCode: %v", err)
	}
	m.LockCode()

	if err := m.WriteU8(CodeBase, 0xFF); !errors.Is(err, ErrViolation) {
		t.Errorf("expected write-to-locked-code to fail with ErrViolation, got %v", err)
	}

	m.UnlockCode()
	if err := m.WriteU8(CodeBase, 0xFF); err != nil {
		t.Errorf("expected write to succeed once unlocked: %v", err)
	}
}

func TestResetPreservesRetainByDefault(t *testing.T) {
	m := New()
	if err := m.WriteU32(RetainBase, 42); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteU32(WorkBase, 42); err != nil {
		t.Fatal(err)
	}
	m.Reset()

	retained, err := m.ReadU32(RetainBase)
	if err != nil {
		t.Fatal(err)
	}
	if retained != 42 {
		t.Errorf("expected Retain to survive Reset, got %d", retained)
	}
	work, err := m.ReadU32(WorkBase)
	if err != nil {
		t.Fatal(err)
	}
	if work != 0 {
		t.Errorf("expected Work to be zeroed by Reset, got %d", work)
	}
}

func TestResetZeroesRetainWhenConfigured(t *testing.T) {
	m := New()
	m.SetRetainPolicy(RetainZero)
	if err := m.WriteU32(RetainBase, 42); err != nil {
		t.Fatal(err)
	}
	m.Reset()

	retained, err := m.ReadU32(RetainBase)
	if err != nil {
		t.Fatal(err)
	}
	if retained != 0 {
		t.Errorf("expected Retain to be zeroed, got %d", retained)
	}
}

func TestStringCopyTruncatesToCapacity(t *testing.T) {
	m := New()
	const addr = WorkBase
	// cap=5
	if err := m.WriteU16(addr, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteU16(addr+2, 5); err != nil {
		t.Fatal(err)
	}

	if err := m.StringCopy(addr, []byte("Hello World")); err != nil {
		t.Fatalf("StringCopy: %v", err)
	}

	n, err := m.StringLen(addr)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("expected len=5, got %d", n)
	}
	b, err := m.StringBytes(addr)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "Hello" {
		t.Errorf("expected %q, got %q", "Hello", string(b))
	}
}

func TestStringCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int32
	}{
		{"abc", "abc", 0},
		{"abc", "abd", -1},
		{"abd", "abc", 1},
		{"ab", "abc", -1},
		{"abc", "ab", 1},
	}
	for _, c := range cases {
		got := StringCompare([]byte(c.a), []byte(c.b))
		if got != c.want {
			t.Errorf("StringCompare(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
