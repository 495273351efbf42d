package vm

import "math"

// Conversions: I2F, F2I (truncate toward zero), I2B (non-zero -> 1),
// EXT8/EXT16 (sign-extend), ZEXT8/ZEXT16 (zero-extend). §4.3, §8.

func execI2F(in *Instance, _ uint32, nextPC uint16) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	f := float32(int32(v))
	if err := in.push(math.Float32bits(f)); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execF2I(in *Instance, _ uint32, nextPC uint16) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	f := math.Float32frombits(v)
	if err := in.push(uint32(int32(f))); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execI2B(in *Instance, _ uint32, nextPC uint16) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if err := in.push(boolU32(v != 0)); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execEXT8(in *Instance, _ uint32, nextPC uint16) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if err := in.push(uint32(int32(int8(uint8(v))))); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execEXT16(in *Instance, _ uint32, nextPC uint16) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if err := in.push(uint32(int32(int16(uint16(v))))); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execZEXT8(in *Instance, _ uint32, nextPC uint16) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if err := in.push(uint32(uint8(v))); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execZEXT16(in *Instance, _ uint32, nextPC uint16) (State, error) {
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if err := in.push(uint32(uint16(v))); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}
