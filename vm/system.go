package vm

// System opcodes: NOP, HALT, BREAK, GET_TICKS, RET.

func execNOP(in *Instance, _ uint32, nextPC uint16) (State, error) {
	in.PC = nextPC
	return Running, nil
}

func execHALT(in *Instance, _ uint32, _ uint16) (State, error) {
	in.Halted = true
	return Halted, nil
}

// execBREAK enters the Paused sub-state observable by the debug
// surface; resumption is an external, dispatcher-level action (§4.3
// state machine, §9 open question on BREAK semantics).
func execBREAK(in *Instance, _ uint32, nextPC uint16) (State, error) {
	in.PC = nextPC
	in.Paused = true
	return Paused, nil
}

func execGETTICKS(in *Instance, _ uint32, nextPC uint16) (State, error) {
	var ms uint32
	if in.currentHAL != nil {
		ms = in.currentHAL.TickMillis()
	}
	if err := in.push(ms); err != nil {
		return Faulted, err
	}
	in.PC = nextPC
	return Running, nil
}

func execRET(in *Instance, _ uint32, _ uint16) (State, error) {
	ret, err := in.popCall()
	if err != nil {
		return Faulted, err
	}
	in.PC = ret
	return Running, nil
}
