package vm

import "github.com/eduardojvieira/ZPLC-sub003/memory"

// Stack-shape opcodes: DUP, DROP, SWAP, OVER, ROT, plus the indirect
// memory and string opcodes that share the 0x10-0x1F range because
// none of them carry an instruction operand.

func execDUP(in *Instance, _ uint32, nextPC uint16) (State, error) {
	v, err := in.peek(0)
	if err != nil {
		return Faulted, err
	}
	if err := in.push(v); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execDROP(in *Instance, _ uint32, nextPC uint16) (State, error) {
	if _, err := in.pop(); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execSWAP(in *Instance, _ uint32, nextPC uint16) (State, error) {
	a, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	b, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if err := in.push(a); err != nil {
		return Faulted, err
	}
	if err := in.push(b); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execOVER(in *Instance, _ uint32, nextPC uint16) (State, error) {
	v, err := in.peek(1)
	if err != nil {
		return Faulted, err
	}
	if err := in.push(v); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execROT(in *Instance, _ uint32, nextPC uint16) (State, error) {
	c, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	b, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	a, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if err := in.push(b); err != nil {
		return Faulted, err
	}
	if err := in.push(c); err != nil {
		return Faulted, err
	}
	if err := in.push(a); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execLOADI8(in *Instance, _ uint32, nextPC uint16) (State, error) {
	addr, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	v, merr := in.Mem.ReadU8(addr)
	if merr != nil {
		return Faulted, in.fault(MemViolation)
	}
	if err := in.push(uint32(v)); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execLOADI16(in *Instance, _ uint32, nextPC uint16) (State, error) {
	addr, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	v, merr := in.Mem.ReadU16(addr)
	if merr != nil {
		return Faulted, in.fault(MemViolation)
	}
	if err := in.push(uint32(v)); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execLOADI32(in *Instance, _ uint32, nextPC uint16) (State, error) {
	addr, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	v, merr := in.Mem.ReadU32(addr)
	if merr != nil {
		return Faulted, in.fault(MemViolation)
	}
	if err := in.push(v); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execSTOREI8(in *Instance, _ uint32, nextPC uint16) (State, error) {
	addr, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if merr := in.Mem.WriteU8(addr, uint8(v)); merr != nil {
		return Faulted, in.fault(MemViolation)
	}
	in.PC = nextPC
	return Running, nil
}

func execSTOREI16(in *Instance, _ uint32, nextPC uint16) (State, error) {
	addr, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if merr := in.Mem.WriteU16(addr, uint16(v)); merr != nil {
		return Faulted, in.fault(MemViolation)
	}
	in.PC = nextPC
	return Running, nil
}

func execSTOREI32(in *Instance, _ uint32, nextPC uint16) (State, error) {
	addr, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	v, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if merr := in.Mem.WriteU32(addr, v); merr != nil {
		return Faulted, in.fault(MemViolation)
	}
	in.PC = nextPC
	return Running, nil
}

func execSTRLEN(in *Instance, _ uint32, nextPC uint16) (State, error) {
	addr, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	n, merr := in.Mem.StringLen(addr)
	if merr != nil {
		return Faulted, in.fault(StringBounds)
	}
	if err := in.push(uint32(n)); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

// execSTRCPY pops src then dst addresses (stack: [dst, src] with src
// on top) and copies src's live bytes into dst, truncating to dst's
// capacity.
func execSTRCPY(in *Instance, _ uint32, nextPC uint16) (State, error) {
	src, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	dst, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	bytes, merr := in.Mem.StringBytes(src)
	if merr != nil {
		return Faulted, in.fault(StringBounds)
	}
	if merr := in.Mem.StringCopy(dst, bytes); merr != nil {
		return Faulted, in.fault(StringBounds)
	}
	in.PC = nextPC
	return Running, nil
}

func execSTRCAT(in *Instance, _ uint32, nextPC uint16) (State, error) {
	src, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	dst, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	bytes, merr := in.Mem.StringBytes(src)
	if merr != nil {
		return Faulted, in.fault(StringBounds)
	}
	if merr := in.Mem.StringCat(dst, bytes); merr != nil {
		return Faulted, in.fault(StringBounds)
	}
	in.PC = nextPC
	return Running, nil
}

func execSTRCMP(in *Instance, _ uint32, nextPC uint16) (State, error) {
	b, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	a, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	ab, merr := in.Mem.StringBytes(a)
	if merr != nil {
		return Faulted, in.fault(StringBounds)
	}
	bb, merr := in.Mem.StringBytes(b)
	if merr != nil {
		return Faulted, in.fault(StringBounds)
	}
	cmp := memory.StringCompare(ab, bb)
	if err := in.push(uint32(int32(cmp))); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execSTRCLR(in *Instance, _ uint32, nextPC uint16) (State, error) {
	addr, err := in.pop()
	if err != nil {
		return Faulted, err
	}
	if merr := in.Mem.StringClear(addr); merr != nil {
		return Faulted, in.fault(StringBounds)
	}
	in.PC = nextPC
	return Running, nil
}
