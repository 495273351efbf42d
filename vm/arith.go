package vm

import "math"

// Integer arithmetic: signed 32-bit two's-complement (§4.3). Float
// arithmetic: IEEE-754 binary32, reinterpreted from the u32 cell.

func execADD(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return binaryIntOp(in, nextPC, func(a, b int32) (int32, error) { return a + b, nil })
}

func execSUB(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return binaryIntOp(in, nextPC, func(a, b int32) (int32, error) { return a - b, nil })
}

func execMUL(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return binaryIntOp(in, nextPC, func(a, b int32) (int32, error) { return a * b, nil })
}

func execDIV(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return binaryIntOp(in, nextPC, func(a, b int32) (int32, error) {
		if b == 0 {
			return 0, errDivByZero
		}
		return a / b, nil
	})
}

func execMOD(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return binaryIntOp(in, nextPC, func(a, b int32) (int32, error) {
		if b == 0 {
			return 0, errDivByZero
		}
		return a % b, nil
	})
}

func execNEG(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return unaryIntOp(in, nextPC, func(a int32) int32 { return -a })
}

func execABS(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return unaryIntOp(in, nextPC, func(a int32) int32 {
		if a < 0 {
			return -a
		}
		return a
	})
}

func execADDF(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return binaryFloatOp(in, nextPC, func(a, b float32) float32 { return a + b })
}

func execSUBF(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return binaryFloatOp(in, nextPC, func(a, b float32) float32 { return a - b })
}

func execMULF(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return binaryFloatOp(in, nextPC, func(a, b float32) float32 { return a * b })
}

func execDIVF(in *Instance, _ uint32, nextPC uint16) (State, error) {
	a, b, ok, state, err := popTwoFloat(in)
	if !ok {
		return state, err
	}
	if b == 0.0 {
		return Faulted, in.fault(DivByZero)
	}
	if err := in.push(math.Float32bits(a / b)); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execNEGF(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return unaryFloatOp(in, nextPC, func(a float32) float32 { return -a })
}

func execABSF(in *Instance, _ uint32, nextPC uint16) (State, error) {
	return unaryFloatOp(in, nextPC, func(a float32) float32 {
		if a < 0 {
			return -a
		}
		return a
	})
}

var errDivByZero = &Fault{Kind: DivByZero}

func binaryIntOp(in *Instance, nextPC uint16, f func(a, b int32) (int32, error)) (State, error) {
	b, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	a, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	result, opErr := f(int32(a), int32(b))
	if opErr != nil {
		return Faulted, in.fault(DivByZero)
	}
	if err := in.push(uint32(result)); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func unaryIntOp(in *Instance, nextPC uint16, f func(a int32) int32) (State, error) {
	a, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if err := in.push(uint32(f(int32(a)))); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func popTwoFloat(in *Instance) (a, b float32, ok bool, state State, err error) {
	bv, e := in.pop()
	if e != nil {
		return 0, 0, false, Faulted, e
	}
	av, e := in.pop()
	if e != nil {
		return 0, 0, false, Faulted, e
	}
	return math.Float32frombits(av), math.Float32frombits(bv), true, Running, nil
}

func binaryFloatOp(in *Instance, nextPC uint16, f func(a, b float32) float32) (State, error) {
	a, b, ok, state, err := popTwoFloat(in)
	if !ok {
		return state, err
	}
	if err := in.push(math.Float32bits(f(a, b))); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func unaryFloatOp(in *Instance, nextPC uint16, f func(a float32) float32) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if err := in.push(math.Float32bits(f(math.Float32frombits(v)))); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}
