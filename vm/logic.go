package vm

// Bitwise logic. Shift counts are masked to their low 5 bits (§4.3
// "SHL/SHR/SAR: shift count masked to low 5 bits").

func execAND(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return binaryBitOp(in, nextPC, func(a, b uint32) uint32 { return a & b })
}

func execOR(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return binaryBitOp(in, nextPC, func(a, b uint32) uint32 { return a | b })
}

func execXOR(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return binaryBitOp(in, nextPC, func(a, b uint32) uint32 { return a ^ b })
}

func execNOT(in *Instance, _ uint32, nextPC uint16) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if err := in.push(^v); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execSHL(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return binaryBitOp(in, nextPC, func(a, b uint32) uint32 { return a << (b & 0x1F) })
}

func execSHR(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return binaryBitOp(in, nextPC, func(a, b uint32) uint32 { return a >> (b & 0x1F) })
}

func execSAR(in *Instance, _ uint32, nextPC uint16) (State, error) {
	b, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	a, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	result := int32(a) >> (b & 0x1F)
	if err := in.push(uint32(result)); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func binaryBitOp(in *Instance, nextPC uint16, f func(a, b uint32) uint32) (State, error) {
	b, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	a, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if err := in.push(f(a, b)); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}
