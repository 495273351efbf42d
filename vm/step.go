package vm

import (
	"fmt"

	"github.com/eduardojvieira/ZPLC-sub003/memory"
)

// HALInterface is the minimal timing seam the VM needs: GET_TICKS
// reads the platform clock in milliseconds (§9 "GET_TICKS precision").
// The scheduler and hal package provide the real implementation; tests
// can substitute any type with a TickMillis method.
type HALInterface interface {
	TickMillis() uint32
}

// Step decodes and executes exactly one instruction, returning the
// resulting state (§4.2 "step(vm)"). Callers must not invoke Step
// again after it returns Halted or Faulted without first calling
// ResetCycle.
func (in *Instance) Step(hal HALInterface) (State, error) {
	if in.Halted {
		return Halted, nil
	}
	if in.Paused {
		return Paused, nil
	}

	if err := in.checkPC(); err != nil {
		return Faulted, err
	}

	opByte, err := in.Mem.ReadU8(memory.CodeBase + uint32(in.PC))
	if err != nil {
		in.Error = MemViolation
		in.Halted = true
		return Faulted, fmt.Errorf("fetch at pc=0x%04X: %w", in.PC, err)
	}
	op := Opcode(opByte)

	width := operandWidth(op)
	if width < 0 {
		return Faulted, in.fault(InvalidOpcode)
	}

	opEnd := uint32(in.PC) + 1 + uint32(width)
	if opEnd > uint32(in.EntryPoint)+uint32(in.CodeLimit) {
		return Faulted, in.fault(InvalidPC)
	}

	var operand uint32
	if width > 0 {
		operandAddr := memory.CodeBase + uint32(in.PC) + 1
		switch width {
		case 1:
			b, err := in.Mem.ReadU8(operandAddr)
			if err != nil {
				in.Error = MemViolation
				in.Halted = true
				return Faulted, err
			}
			operand = uint32(b)
		case 2:
			v, err := in.Mem.ReadU16(operandAddr)
			if err != nil {
				in.Error = MemViolation
				in.Halted = true
				return Faulted, err
			}
			operand = uint32(v)
		case 4:
			v, err := in.Mem.ReadU32(operandAddr)
			if err != nil {
				in.Error = MemViolation
				in.Halted = true
				return Faulted, err
			}
			operand = v
		}
	}
	nextPC := uint16(opEnd)

	in.currentHAL = hal
	state, err := descriptors[op].handler(in, operand, nextPC)
	in.currentHAL = nil
	if err != nil {
		return Faulted, err
	}
	return state, nil
}

// Run steps the instance until it halts, faults, pauses, or the
// instruction budget is exhausted (maxInstructions == 0 means no
// budget). It returns the final state; a budget exhaustion is
// reported through the returned bool, matching §4.2's "run returns
// negative" on fault and the scheduler's overrun accounting on
// budget exhaustion (§7: BUDGET_EXHAUSTED is an overrun, not a
// fault).
func (in *Instance) Run(hal HALInterface, maxInstructions uint32) (state State, overrun bool, err error) {
	var executed uint32
	for {
		if maxInstructions > 0 && executed >= maxInstructions {
			return Running, true, nil
		}
		s, stepErr := in.Step(hal)
		executed++
		switch s {
		case Halted, Paused, Faulted:
			return s, false, stepErr
		case Running:
			continue
		}
	}
}
