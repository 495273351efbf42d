package vm

// Direct memory access and immediate push opcodes. LOAD64 pushes the
// low word then the high word (TOS = high); STORE64 expects the high
// word on TOS (§4.3).

func execLOAD8(in *Instance, operand uint32, nextPC uint16) (State, error) {
	v, err := in.Mem.ReadU8(operand)
	if err != nil {
		return Faulted, in.fault(MemViolation)
	}
	if err := in.push(uint32(v)); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execLOAD16(in *Instance, operand uint32, nextPC uint16) (State, error) {
	v, err := in.Mem.ReadU16(operand)
	if err != nil {
		return Faulted, in.fault(MemViolation)
	}
	if err := in.push(uint32(v)); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execLOAD32(in *Instance, operand uint32, nextPC uint16) (State, error) {
	v, err := in.Mem.ReadU32(operand)
	if err != nil {
		return Faulted, in.fault(MemViolation)
	}
	if err := in.push(v); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execLOAD64(in *Instance, operand uint32, nextPC uint16) (State, error) {
	v, err := in.Mem.ReadU64(operand)
	if err != nil {
		return Faulted, in.fault(MemViolation)
	}
	low := uint32(v)
	high := uint32(v >> 32)
	if err := in.push(low); err != nil {
		return Faulted, err
	}
	if err := in.push(high); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execSTORE8(in *Instance, operand uint32, nextPC uint16) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if merr := in.Mem.WriteU8(operand, uint8(v)); merr != nil {
		return Faulted, in.fault(MemViolation)
	}
	in.PC = nextPC
	return Running, nil
}

func execSTORE16(in *Instance, operand uint32, nextPC uint16) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if merr := in.Mem.WriteU16(operand, uint16(v)); merr != nil {
		return Faulted, in.fault(MemViolation)
	}
	in.PC = nextPC
	return Running, nil
}

func execSTORE32(in *Instance, operand uint32, nextPC uint16) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if merr := in.Mem.WriteU32(operand, v); merr != nil {
		return Faulted, in.fault(MemViolation)
	}
	in.PC = nextPC
	return Running, nil
}

// execSTORE64 pops high then low (TOS holds the high word) and writes
// the 64-bit little-endian value at operand.
func execSTORE64(in *Instance, operand uint32, nextPC uint16) (State, error) {
	high, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	low, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	v := uint64(low) | uint64(high)<<32
	if merr := in.Mem.WriteU64(operand, v); merr != nil {
		return Faulted, in.fault(MemViolation)
	}
	in.PC = nextPC
	return Running, nil
}

func execPUSH8(in *Instance, operand uint32, nextPC uint16) (State, error) {
	// §4.3: "PUSH8 with value >= 0x80 sign-extends to 32 bits."
	v := uint32(int32(int8(uint8(operand))))
	if err := in.push(v); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execPUSH16(in *Instance, operand uint32, nextPC uint16) (State, error) {
	if err := in.push(operand); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execPUSH32(in *Instance, operand uint32, nextPC uint16) (State, error) {
	if err := in.push(operand); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

// execPICK duplicates the value n slots below the top, where n is the
// 1-byte operand (PICK(n), §4.2/§4.3).
func execPICK(in *Instance, operand uint32, nextPC uint16) (State, error) {
	v, err := in.peek(uint16(operand))
	if err != nil {
		return Faulted, err
	}
	if err := in.push(v); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}
