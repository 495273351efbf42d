// Package vm implements the stack-based bytecode virtual machine: its
// per-task instance state (§4.2), the ~75-opcode instruction set
// (§4.3), and the decode/execute loop. Every instance shares the same
// underlying memory (code + IPI/OPI/Work/Retain) but owns its own
// stack, call stack and program counter — stack isolation is
// invariant (§3 invariant 5).
package vm

import "github.com/eduardojvieira/ZPLC-sub003/memory"

// Defaults for per-instance resource limits (§3 "VM instance").
const (
	StackMax = 256
	CallMax  = 32
)

// State is the outcome of a Step or Run call (§4.2's
// "Ready → Decode → Execute → (Ready | Halted | Fault)").
type State int

const (
	Running State = iota
	Halted
	Paused // entered via BREAK; resumption is a dispatcher-level action
	Faulted
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Halted:
		return "Halted"
	case Paused:
		return "Paused"
	case Faulted:
		return "Faulted"
	default:
		return "Unknown"
	}
}

// Instance is one task's VM execution state. It is created when a
// task is registered, reset at the start of every cycle, and
// destroyed when the task is unregistered (§3 "Lifecycle").
type Instance struct {
	Mem *memory.Memory

	PC uint16

	stack [StackMax]uint32
	SP    uint16

	callStack [CallMax]uint16
	CSP       uint16

	Halted bool
	Paused bool
	Error  ErrKind

	EntryPoint uint16
	CodeLimit  uint16

	// currentHAL is set for the duration of a single Step call so
	// GET_TICKS can reach the platform clock without threading it
	// through every handler signature.
	currentHAL HALInterface
}

// New creates an Instance bound to the given shared memory. Callers
// must follow with SetEntry before the first Run.
func New(mem *memory.Memory) *Instance {
	inst := &Instance{Mem: mem}
	inst.Init()
	return inst
}

// Init zeroes stacks, clears the error, and marks the instance not
// halted with pc <- 0 (§4.2 "init(vm)").
func (in *Instance) Init() {
	in.stack = [StackMax]uint32{}
	in.SP = 0
	in.callStack = [CallMax]uint16{}
	in.CSP = 0
	in.Halted = false
	in.Paused = false
	in.Error = OK
	in.PC = 0
}

// SetEntry installs the task's slice of the shared code region. It is
// an error for the slice to extend past the code region.
func (in *Instance) SetEntry(entryPoint, codeLimit uint16) error {
	end := uint32(entryPoint) + uint32(codeLimit)
	if end > memory.CodeSize {
		return &Fault{Kind: InvalidPC, PC: entryPoint}
	}
	in.EntryPoint = entryPoint
	in.CodeLimit = codeLimit
	return nil
}

// ResetCycle reinitializes the instance for a new cycle: pc goes back
// to entry_point, sp to 0, halted to false, error to OK, and the call
// stack is cleared (§4.2 "reset_cycle(vm)").
func (in *Instance) ResetCycle() {
	in.PC = in.EntryPoint
	in.SP = 0
	in.CSP = 0
	in.Halted = false
	in.Paused = false
	in.Error = OK
}

// TOS returns the top-of-stack value without popping, or 0 if empty —
// used only for fault reporting and debug snapshots, never by opcode
// semantics (which must fault explicitly on underflow).
func (in *Instance) TOS() uint32 {
	if in.SP == 0 {
		return 0
	}
	return in.stack[in.SP-1]
}

// StackSlice returns a read-only view of the live portion of the
// stack, bottom first, for debug snapshots.
func (in *Instance) StackSlice() []uint32 {
	out := make([]uint32, in.SP)
	copy(out, in.stack[:in.SP])
	return out
}

func (in *Instance) fault(kind ErrKind) error {
	in.Error = kind
	in.Halted = true
	return &Fault{Kind: kind, PC: in.PC, TOS: in.TOS()}
}

func (in *Instance) push(v uint32) error {
	if in.SP >= StackMax {
		return in.fault(StackOverflow)
	}
	in.stack[in.SP] = v
	in.SP++
	return nil
}

func (in *Instance) pop() (uint32, error) {
	if in.SP == 0 {
		return 0, in.fault(StackUnderflow)
	}
	in.SP--
	return in.stack[in.SP], nil
}

// peek returns the value n slots below the top without popping
// (n=0 is TOS). It faults on underflow.
func (in *Instance) peek(n uint16) (uint32, error) {
	if int(n)+1 > int(in.SP) {
		return 0, in.fault(StackUnderflow)
	}
	return in.stack[in.SP-1-n], nil
}

func (in *Instance) pushCall(ret uint16) error {
	if in.CSP >= CallMax {
		return in.fault(CallOverflow)
	}
	in.callStack[in.CSP] = ret
	in.CSP++
	return nil
}

func (in *Instance) popCall() (uint16, error) {
	if in.CSP == 0 {
		return 0, in.fault(CallUnderflow)
	}
	in.CSP--
	return in.callStack[in.CSP], nil
}

// checkPC enforces invariant 3: pc in [entry_point, entry_point+code_limit).
func (in *Instance) checkPC() error {
	if in.PC < in.EntryPoint || uint32(in.PC) >= uint32(in.EntryPoint)+uint32(in.CodeLimit) {
		return in.fault(InvalidPC)
	}
	return nil
}
