package vm

// Compare opcodes push 1 (true) or 0 (false). EQ/NE/LT/LE/GT/GE treat
// operands as signed 32-bit; LTU/GTU treat them as unsigned (§4.3).

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func execEQ(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return signedCompare(in, nextPC, func(a, b int32) bool { return a == b })
}

func execNE(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return signedCompare(in, nextPC, func(a, b int32) bool { return a != b })
}

func execLT(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return signedCompare(in, nextPC, func(a, b int32) bool { return a < b })
}

func execLE(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return signedCompare(in, nextPC, func(a, b int32) bool { return a <= b })
}

func execGT(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return signedCompare(in, nextPC, func(a, b int32) bool { return a > b })
}

func execGE(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return signedCompare(in, nextPC, func(a, b int32) bool { return a >= b })
}

func execLTU(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return unsignedCompare(in, nextPC, func(a, b uint32) bool { return a < b })
}

func execGTU(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return unsignedCompare(in, nextPC, func(a, b uint32) bool { return a > b })
}

// signedCompare pops b then a (stack: [..., a, b] with b on top) and
// pushes f(a, b), matching the left-to-right operand order of all
// binary opcodes in this VM.
func signedCompare(in *Instance, nextPC uint16, f func(a, b int32) bool) (State, error) {
	b, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	a, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if err := in.push(boolU32(f(int32(a), int32(b)))); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func unsignedCompare(in *Instance, nextPC uint16, f func(a, b uint32) bool) (State, error) {
	b, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	a, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if err := in.push(boolU32(f(a, b))); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}
