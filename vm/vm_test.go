package vm

import (
	"testing"

	"github.com/eduardojvieira/ZPLC-sub003/memory"
)

type fakeHAL struct{ ms uint32 }

func (f fakeHAL) TickMillis() uint32 { return f.ms }

// lohi splits an address into its little-endian operand bytes at
// runtime, since the region base constants (e.g. memory.OPIBase =
// 0x1000) overflow a compile-time byte conversion.
func lohi(addr uint32) (lo, hi byte) {
	return byte(addr), byte(addr >> 8)
}

func loadProgram(t *testing.T, mem *memory.Memory, code []byte) *Instance {
	t.Helper()
	if err := mem.LoadCode(code, 0); err != nil {
		t.Fatalf("LoadCode: %v", err)
	}
	in := New(mem)
	if err := in.SetEntry(0, uint16(len(code))); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}
	in.ResetCycle()
	return in
}

func runToHalt(t *testing.T, in *Instance) {
	t.Helper()
	state, overrun, err := in.Run(fakeHAL{}, 10000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if overrun {
		t.Fatalf("unexpected overrun")
	}
	if state != Halted {
		t.Fatalf("expected Halted, got %v (error=%v)", state, in.Error)
	}
}

// Scenario 1 (§8): PUSH32 10; PUSH32 20; ADD; HALT -> stack [30], sp=1.
func TestScenarioArithmetic(t *testing.T) {
	mem := memory.New()
	code := []byte{
		byte(OpPUSH32), 10, 0, 0, 0,
		byte(OpPUSH32), 20, 0, 0, 0,
		byte(OpADD),
		byte(OpHALT),
	}
	in := loadProgram(t, mem, code)
	runToHalt(t, in)

	if in.SP != 1 {
		t.Fatalf("expected sp=1, got %d", in.SP)
	}
	if got := in.TOS(); got != 30 {
		t.Fatalf("expected TOS=30, got %d", got)
	}
}

// Scenario 2 (§8): PUSH32 0; JZ @L; PUSH32 100; L: PUSH32 42; HALT.
func TestScenarioControlFlow(t *testing.T) {
	mem := memory.New()
	// Layout:
	// 0: PUSH32 0        (5 bytes)  -> 0..4
	// 5: JZ <L>          (3 bytes)  -> 5..7
	// 8: PUSH32 100      (5 bytes)  -> 8..12 (skipped)
	// 13: L: PUSH32 42   (5 bytes)  -> 13..17
	// 18: HALT
	const labelL = 13
	code := []byte{
		byte(OpPUSH32), 0, 0, 0, 0,
		byte(OpJZ), byte(labelL), 0,
		byte(OpPUSH32), 100, 0, 0, 0,
		byte(OpPUSH32), 42, 0, 0, 0,
		byte(OpHALT),
	}
	in := loadProgram(t, mem, code)
	runToHalt(t, in)

	if in.SP != 1 {
		t.Fatalf("expected sp=1, got %d", in.SP)
	}
	if got := in.TOS(); got != 42 {
		t.Fatalf("expected TOS=42, got %d", got)
	}
}

// Scenario 3 (§8): Fahrenheit = (C*9/5)+32 computed in float, stored
// to OPI[0] as a 16-bit value via STORE16.
func TestScenarioFahrenheitConversion(t *testing.T) {
	cases := []struct {
		celsius  int32
		expected uint16
	}{
		{25, 77},
		{0, 32},
		{100, 212},
	}

	for _, c := range cases {
		mem := memory.New()
		if err := mem.WriteU16(memory.IPIBase, uint16(int16(c.celsius))); err != nil {
			t.Fatal(err)
		}

		// IPI[0..1] holds C as a 16-bit int.
		// LOAD16 IPI[0] -> push C (zero extended)
		// ZEXT16 not needed since value is non-negative in test cases;
		// widen path: I2F, PUSH32 9, MULF needs float*float so convert
		// 9 and 5 to float constants via I2F on pushed ints.
		ipiLo, ipiHi := lohi(memory.IPIBase)
		opiLo, opiHi := lohi(memory.OPIBase)
		code := []byte{
			byte(OpLOAD16), ipiLo, ipiHi,
			byte(OpI2F),
			byte(OpPUSH32), 9, 0, 0, 0,
			byte(OpI2F),
			byte(OpMULF),
			byte(OpPUSH32), 5, 0, 0, 0,
			byte(OpI2F),
			byte(OpDIVF),
			byte(OpPUSH32), 32, 0, 0, 0,
			byte(OpI2F),
			byte(OpADDF),
			byte(OpF2I),
			byte(OpSTORE16), opiLo, opiHi,
			byte(OpHALT),
		}
		in := loadProgram(t, mem, code)
		runToHalt(t, in)

		got, err := mem.ReadU16(memory.OPIBase)
		if err != nil {
			t.Fatal(err)
		}
		if got != c.expected {
			t.Errorf("C=%d: expected F=%d, got %d", c.celsius, c.expected, got)
		}
	}
}

// Scenario 4 (§8): two instances sharing code, stacks remain isolated.
func TestMultiInstanceIsolation(t *testing.T) {
	mem := memory.New()
	code := []byte{
		byte(OpPUSH32), 1, 0, 0, 0,
		byte(OpPUSH32), 5, 0, 0, 0,
		byte(OpHALT),
	}
	if err := mem.LoadCode(code, 0); err != nil {
		t.Fatal(err)
	}

	vm1 := New(mem)
	_ = vm1.SetEntry(0, uint16(len(code)))
	vm1.ResetCycle()

	vm2 := New(mem)
	_ = vm2.SetEntry(0, uint16(len(code)))
	vm2.ResetCycle()

	runToHalt(t, vm1)

	if vm2.SP != 0 {
		t.Fatalf("expected untouched vm2.sp=0, got %d", vm2.SP)
	}
	if vm2.Halted {
		t.Fatalf("expected vm2 not halted before it runs")
	}

	runToHalt(t, vm2)
	if vm2.StackSlice()[0] != 1 || vm2.StackSlice()[1] != 5 {
		t.Fatalf("expected vm2 stack [1,5], got %v", vm2.StackSlice())
	}

	// Mutate vm1's stack directly and confirm vm2 is unaffected.
	vm1.stack[0] = 999
	if vm2.stack[0] == 999 {
		t.Fatalf("stack isolation violated: vm2 observed vm1's mutation")
	}
}

func TestPush8SignExtends(t *testing.T) {
	mem := memory.New()
	code := []byte{byte(OpPUSH8), 0xFF, byte(OpHALT)}
	in := loadProgram(t, mem, code)
	runToHalt(t, in)
	if got := in.TOS(); got != 0xFFFFFFFF {
		t.Fatalf("expected 0xFFFFFFFF, got 0x%08X", got)
	}
}

func TestExtAndZextBoundary(t *testing.T) {
	mem := memory.New()
	code := []byte{
		byte(OpPUSH8), 0x80,
		byte(OpEXT8),
		byte(OpHALT),
	}
	in := loadProgram(t, mem, code)
	runToHalt(t, in)
	if got := int32(in.TOS()); got != -128 {
		t.Fatalf("expected EXT8(0x80) = -128, got %d", got)
	}

	mem2 := memory.New()
	code2 := []byte{
		byte(OpPUSH32), 0xFF, 0xBE, 0xAD, 0xDE,
		byte(OpZEXT8),
		byte(OpHALT),
	}
	in2 := loadProgram(t, mem2, code2)
	runToHalt(t, in2)
	if got := in2.TOS(); got != 0x000000FF {
		t.Fatalf("expected ZEXT8(0xDEADBEFF) = 0xFF, got 0x%08X", got)
	}
}

func TestDivByZeroDoesNotModifyMemory(t *testing.T) {
	mem := memory.New()
	if err := mem.WriteU32(memory.WorkBase, 0xAAAAAAAA); err != nil {
		t.Fatal(err)
	}
	workLo, workHi := lohi(memory.WorkBase)
	code := []byte{
		byte(OpPUSH32), 10, 0, 0, 0,
		byte(OpPUSH32), 0, 0, 0, 0,
		byte(OpDIV),
		byte(OpSTORE32), workLo, workHi,
		byte(OpHALT),
	}
	in := loadProgram(t, mem, code)
	state, _, _ := in.Run(fakeHAL{}, 1000)
	if state != Faulted {
		t.Fatalf("expected Faulted, got %v", state)
	}
	if in.Error != DivByZero {
		t.Fatalf("expected DIV_BY_ZERO, got %v", in.Error)
	}

	v, err := mem.ReadU32(memory.WorkBase)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xAAAAAAAA {
		t.Fatalf("expected memory untouched by faulted DIV, got 0x%08X", v)
	}
}

func TestStrcpyTruncatesToCapacity(t *testing.T) {
	mem := memory.New()
	const descAddr = memory.WorkBase
	const srcAddr = memory.WorkBase + 16

	if err := mem.WriteU16(descAddr+2, 5); err != nil {
		t.Fatal(err)
	}
	// give srcAddr enough capacity to hold "Hello World" untruncated
	if err := mem.WriteU16(srcAddr+2, 11); err != nil {
		t.Fatal(err)
	}
	if err := mem.StringCopy(srcAddr, []byte("Hello World")); err != nil {
		t.Fatal(err)
	}

	descLo, descHi := lohi(descAddr)
	srcLo, srcHi := lohi(srcAddr)
	code := []byte{
		byte(OpPUSH16), descLo, descHi,
		byte(OpPUSH16), srcLo, srcHi,
		byte(OpSTRCPY),
		byte(OpHALT),
	}
	in := loadProgram(t, mem, code)
	runToHalt(t, in)

	n, err := mem.StringLen(descAddr)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("expected len=5, got %d", n)
	}
	b, err := mem.StringBytes(descAddr)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "Hello" {
		t.Fatalf("expected %q, got %q", "Hello", string(b))
	}
}

func TestCallOverflow(t *testing.T) {
	mem := memory.New()
	// CALL to self, CallMax+1 times in a row will overflow on the
	// (CallMax+1)th call since every call pushes a return address
	// without ever returning.
	code := make([]byte, 0, 3*(CallMax+2)+1)
	for i := 0; i < CallMax+1; i++ {
		// CALL target = 0 (the start of the call chain)
		code = append(code, byte(OpCALL), 0, 0)
	}
	code = append(code, byte(OpHALT))

	in := loadProgram(t, mem, code)
	state, _, _ := in.Run(fakeHAL{}, 10000)
	if state != Faulted {
		t.Fatalf("expected Faulted, got %v", state)
	}
	if in.Error != CallOverflow {
		t.Fatalf("expected CALL_OVERFLOW, got %v", in.Error)
	}
}

func TestRetUnderflow(t *testing.T) {
	mem := memory.New()
	code := []byte{byte(OpRET)}
	in := loadProgram(t, mem, code)
	state, _, _ := in.Run(fakeHAL{}, 10)
	if state != Faulted || in.Error != CallUnderflow {
		t.Fatalf("expected CALL_UNDERFLOW fault, got state=%v error=%v", state, in.Error)
	}
}

func TestStackUnderflowOnPop(t *testing.T) {
	mem := memory.New()
	code := []byte{byte(OpADD)}
	in := loadProgram(t, mem, code)
	state, _, _ := in.Run(fakeHAL{}, 10)
	if state != Faulted || in.Error != StackUnderflow {
		t.Fatalf("expected STACK_UNDERFLOW, got state=%v error=%v", state, in.Error)
	}
}

func TestInvalidPCOutOfCodeLimit(t *testing.T) {
	mem := memory.New()
	code := []byte{byte(OpNOP)}
	if err := mem.LoadCode(code, 0); err != nil {
		t.Fatal(err)
	}
	in := New(mem)
	if err := in.SetEntry(0, 1); err != nil {
		t.Fatal(err)
	}
	in.ResetCycle()
	in.PC = 50 // well outside [0,1)
	state, _, _ := in.Run(fakeHAL{}, 10)
	if state != Faulted || in.Error != InvalidPC {
		t.Fatalf("expected INVALID_PC, got state=%v error=%v", state, in.Error)
	}
}

func TestBudgetExhaustionIsOverrunNotFault(t *testing.T) {
	mem := memory.New()
	// An infinite loop: JMP 0.
	code := []byte{byte(OpJMP), 0, 0}
	in := loadProgram(t, mem, code)
	state, overrun, err := in.Run(fakeHAL{}, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !overrun {
		t.Fatalf("expected overrun=true")
	}
	if state != Running {
		t.Fatalf("expected Running on budget exhaustion, got %v", state)
	}
	if in.Halted {
		t.Fatalf("budget exhaustion must not halt the instance")
	}
}

func TestGetTicksReadsHAL(t *testing.T) {
	mem := memory.New()
	code := []byte{byte(OpGETTICKS), byte(OpHALT)}
	in := loadProgram(t, mem, code)
	state, _, err := in.Run(fakeHAL{ms: 1234}, 10)
	if err != nil || state != Halted {
		t.Fatalf("unexpected run result: state=%v err=%v", state, err)
	}
	if got := in.TOS(); got != 1234 {
		t.Fatalf("expected GET_TICKS=1234, got %d", got)
	}
}

func TestBreakEntersPausedState(t *testing.T) {
	mem := memory.New()
	code := []byte{byte(OpBREAK), byte(OpHALT)}
	in := loadProgram(t, mem, code)
	state, err := in.Step(fakeHAL{})
	if err != nil {
		t.Fatal(err)
	}
	if state != Paused {
		t.Fatalf("expected Paused after BREAK, got %v", state)
	}
	if !in.Paused {
		t.Fatalf("expected in.Paused=true")
	}
}
