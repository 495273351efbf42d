package vm

// Control transfer opcodes. JMP/JZ/JNZ/CALL take an absolute 16-bit
// address operand; JR/JRZ/JRNZ take a signed 8-bit displacement
// relative to the byte after the operand (§4.3).

func execJMP(in *Instance, operand uint32, _ uint16) (State, error) {
	in.PC = uint16(operand)
	return Running, nil
}

func execJZ(in *Instance, operand uint32, nextPC uint16) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if v == 0 {
		in.PC = uint16(operand)
	} else {
		in.PC = nextPC
	}
	return Running, nil
}

func execJNZ(in *Instance, operand uint32, nextPC uint16) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if v != 0 {
		in.PC = uint16(operand)
	} else {
		in.PC = nextPC
	}
	return Running, nil
}

func execJR(in *Instance, operand uint32, nextPC uint16) (State, error) {
	in.PC = uint16(int32(nextPC) + int32(int8(uint8(operand))))
	return Running, nil
}

func execJRZ(in *Instance, operand uint32, nextPC uint16) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if v == 0 {
		in.PC = uint16(int32(nextPC) + int32(int8(uint8(operand))))
	} else {
		in.PC = nextPC
	}
	return Running, nil
}

func execJRNZ(in *Instance, operand uint32, nextPC uint16) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if v != 0 {
		in.PC = uint16(int32(nextPC) + int32(int8(uint8(operand))))
	} else {
		in.PC = nextPC
	}
	return Running, nil
}

func execCALL(in *Instance, operand uint32, nextPC uint16) (State, error) {
	if err := in.pushCall(nextPC); err != nil {
		return Faulted, err
	}
	in.PC = uint16(operand)
	return Running, nil
}
