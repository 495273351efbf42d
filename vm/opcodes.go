package vm

// Opcode is a single instruction byte. Category ranges follow §4.3:
// the high nibble (mostly) selects operand width and rough intent;
// exact membership is fixed by the table below, not re-derived from
// the opcode value.
type Opcode byte

// System (0x00-0x0F), no operand.
const (
	OpNOP      Opcode = 0x00
	OpHALT     Opcode = 0x01
	OpBREAK    Opcode = 0x02
	OpGETTICKS Opcode = 0x03
	OpRET      Opcode = 0x04
)

// Stack shape and no-operand memory/string ops (0x10-0x1F).
const (
	OpDUP     Opcode = 0x10
	OpDROP    Opcode = 0x11
	OpSWAP    Opcode = 0x12
	OpOVER    Opcode = 0x13
	OpROT     Opcode = 0x14
	OpLOADI8  Opcode = 0x15
	OpLOADI16 Opcode = 0x16
	OpLOADI32 Opcode = 0x17
	OpSTOREI8 Opcode = 0x18
	OpSTOREI16 Opcode = 0x19
	OpSTOREI32 Opcode = 0x1A
	OpSTRLEN  Opcode = 0x1B
	OpSTRCPY  Opcode = 0x1C
	OpSTRCAT  Opcode = 0x1D
	OpSTRCMP  Opcode = 0x1E
	OpSTRCLR  Opcode = 0x1F
)

// Integer and float arithmetic (0x20-0x2F), no operand.
const (
	OpADD  Opcode = 0x20
	OpSUB  Opcode = 0x21
	OpMUL  Opcode = 0x22
	OpDIV  Opcode = 0x23
	OpMOD  Opcode = 0x24
	OpNEG  Opcode = 0x25
	OpABS  Opcode = 0x26
	OpADDF Opcode = 0x27
	OpSUBF Opcode = 0x28
	OpMULF Opcode = 0x29
	OpDIVF Opcode = 0x2A
	OpNEGF Opcode = 0x2B
	OpABSF Opcode = 0x2C
)

// Logic and compare (0x30-0x3F), no operand.
const (
	OpAND Opcode = 0x30
	OpOR  Opcode = 0x31
	OpXOR Opcode = 0x32
	OpNOT Opcode = 0x33
	OpSHL Opcode = 0x34
	OpSHR Opcode = 0x35
	OpSAR Opcode = 0x36
	OpEQ  Opcode = 0x37
	OpNE  Opcode = 0x38
	OpLT  Opcode = 0x39
	OpLE  Opcode = 0x3A
	OpGT  Opcode = 0x3B
	OpGE  Opcode = 0x3C
	OpLTU Opcode = 0x3D
	OpGTU Opcode = 0x3E
)

// Immediate/short (0x40-0x5F), 1-byte operand.
const (
	OpPUSH8 Opcode = 0x40
	OpPICK  Opcode = 0x41
	OpJR    Opcode = 0x42
	OpJRZ   Opcode = 0x43
	OpJRNZ  Opcode = 0x44
)

// Memory/control (0x80-0x9F), 2-byte little-endian operand.
const (
	OpLOAD8   Opcode = 0x80
	OpLOAD16  Opcode = 0x81
	OpLOAD32  Opcode = 0x82
	OpLOAD64  Opcode = 0x83
	OpSTORE8  Opcode = 0x84
	OpSTORE16 Opcode = 0x85
	OpSTORE32 Opcode = 0x86
	OpSTORE64 Opcode = 0x87
	OpPUSH16  Opcode = 0x88
	OpJMP     Opcode = 0x89
	OpJZ      Opcode = 0x8A
	OpJNZ     Opcode = 0x8B
	OpCALL    Opcode = 0x8C
)

// Conversions (0xA0-0xAF), no operand.
const (
	OpI2F   Opcode = 0xA0
	OpF2I   Opcode = 0xA1
	OpI2B   Opcode = 0xA2
	OpEXT8  Opcode = 0xA3
	OpEXT16 Opcode = 0xA4
	OpZEXT8 Opcode = 0xA5
	OpZEXT16 Opcode = 0xA6
)

// Wide immediate (0xC0-0xCF), 4-byte little-endian operand.
const (
	OpPUSH32 Opcode = 0xC0
)

// operandWidth reports how many operand bytes (after the opcode byte
// itself) follow a given opcode, or -1 if the opcode is unknown.
func operandWidth(op Opcode) int {
	if d, ok := descriptors[op]; ok {
		return d.operandWidth
	}
	return -1
}

// handlerFunc executes one decoded instruction. operand is the raw
// little-endian operand value (zero-extended to 32 bits, sign
// interpreted by the handler where relevant). nextPC is the address
// of the byte after the full instruction (opcode + operand); every
// handler is responsible for leaving in.PC at the correct successor
// address — nextPC for fall-through, something else for control
// transfers.
type handlerFunc func(in *Instance, operand uint32, nextPC uint16) (State, error)

type descriptor struct {
	operandWidth int
	handler      handlerFunc
}

// descriptors is the single dispatch table the decoder consults. This
// is the "table of instruction descriptors" pattern called for in
// §9's design notes: adding an opcode is a data change, not a new
// switch arm.
var descriptors map[Opcode]descriptor

func init() {
	descriptors = map[Opcode]descriptor{
		OpNOP:      {0, execNOP},
		OpHALT:     {0, execHALT},
		OpBREAK:    {0, execBREAK},
		OpGETTICKS: {0, execGETTICKS},
		OpRET:      {0, execRET},

		OpDUP:      {0, execDUP},
		OpDROP:     {0, execDROP},
		OpSWAP:     {0, execSWAP},
		OpOVER:     {0, execOVER},
		OpROT:      {0, execROT},
		OpLOADI8:   {0, execLOADI8},
		OpLOADI16:  {0, execLOADI16},
		OpLOADI32:  {0, execLOADI32},
		OpSTOREI8:  {0, execSTOREI8},
		OpSTOREI16: {0, execSTOREI16},
		OpSTOREI32: {0, execSTOREI32},
		OpSTRLEN:   {0, execSTRLEN},
		OpSTRCPY:   {0, execSTRCPY},
		OpSTRCAT:   {0, execSTRCAT},
		OpSTRCMP:   {0, execSTRCMP},
		OpSTRCLR:   {0, execSTRCLR},

		OpADD:  {0, execADD},
		OpSUB:  {0, execSUB},
		OpMUL:  {0, execMUL},
		OpDIV:  {0, execDIV},
		OpMOD:  {0, execMOD},
		OpNEG:  {0, execNEG},
		OpABS:  {0, execABS},
		OpADDF: {0, execADDF},
		OpSUBF: {0, execSUBF},
		OpMULF: {0, execMULF},
		OpDIVF: {0, execDIVF},
		OpNEGF: {0, execNEGF},
		OpABSF: {0, execABSF},

		OpAND: {0, execAND},
		OpOR:  {0, execOR},
		OpXOR: {0, execXOR},
		OpNOT: {0, execNOT},
		OpSHL: {0, execSHL},
		OpSHR: {0, execSHR},
		OpSAR: {0, execSAR},
		OpEQ:  {0, execEQ},
		OpNE:  {0, execNE},
		OpLT:  {0, execLT},
		OpLE:  {0, execLE},
		OpGT:  {0, execGT},
		OpGE:  {0, execGE},
		OpLTU: {0, execLTU},
		OpGTU: {0, execGTU},

		OpPUSH8: {1, execPUSH8},
		OpPICK:  {1, execPICK},
		OpJR:    {1, execJR},
		OpJRZ:   {1, execJRZ},
		OpJRNZ:  {1, execJRNZ},

		OpLOAD8:   {2, execLOAD8},
		OpLOAD16:  {2, execLOAD16},
		OpLOAD32:  {2, execLOAD32},
		OpLOAD64:  {2, execLOAD64},
		OpSTORE8:  {2, execSTORE8},
		OpSTORE16: {2, execSTORE16},
		OpSTORE32: {2, execSTORE32},
		OpSTORE64: {2, execSTORE64},
		OpPUSH16:  {2, execPUSH16},
		OpJMP:     {2, execJMP},
		OpJZ:      {2, execJZ},
		OpJNZ:     {2, execJNZ},
		OpCALL:    {2, execCALL},

		OpI2F:    {0, execI2F},
		OpF2I:    {0, execF2I},
		OpI2B:    {0, execI2B},
		OpEXT8:   {0, execEXT8},
		OpEXT16:  {0, execEXT16},
		OpZEXT8:  {0, execZEXT8},
		OpZEXT16: {0, execZEXT16},

		OpPUSH32: {4, execPUSH32},
	}
}
