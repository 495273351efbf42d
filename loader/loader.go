// Package loader parses the .zplc binary deployment format (§4.4, §6):
// header validation, segment dispatch, task-table extraction, and the
// raw-mode fallback for files that carry no magic. It never executes
// code; it only validates and extracts.
package loader

import (
	"encoding/binary"
	"hash/crc32"
)

// CoreVersionMajor is the loader's own major version, compared against
// a .zplc file's version_major field.
const CoreVersionMajor = 1

// DefaultMaxTasks mirrors the scheduler's default MAX_TASKS (§4.5).
const DefaultMaxTasks = 8

// Options configures one Parse call. The zero value is usable but
// permissive (no task requirement, DefaultMaxTasks task limit, no code
// cap beyond the buffer itself).
type Options struct {
	// RequireTasks makes a missing TASK segment a NoTasks error.
	RequireTasks bool
	// MaxTasks caps the number of task definitions accepted; 0 means
	// DefaultMaxTasks.
	MaxTasks int
	// MaxCodeSize caps accepted code length; 0 means no extra cap
	// beyond the buffer itself (callers typically pass the memory
	// package's CodeSize).
	MaxCodeSize uint32
	// IgnoreCRC downgrades a CRC mismatch to a warning instead of a
	// hard error (§4.4 step 4, "policy flag may downgrade to
	// warning").
	IgnoreCRC bool
	// AllowRaw permits a buffer lacking the magic to be accepted as a
	// single anonymous program (§4.4 "Raw mode").
	AllowRaw bool
}

// Program is the validated result of a successful Parse: the code
// bytes, the ordered task list, and the auxiliary segments the debug
// surface may want (kept verbatim, not interpreted further here).
type Program struct {
	Code       []byte
	EntryPoint uint16
	Tasks      []TaskDef

	Symbols   []byte
	IOMap     []byte
	Debug     []byte
	Tags      []byte
	Signature []byte

	// Raw is true when the buffer was accepted without a magic/header
	// via the raw-mode fallback.
	Raw bool
}

// Parse validates a .zplc buffer and extracts its code and task list
// (§4.4 "Algorithm"). On success it returns the Program and any
// non-fatal warnings (e.g. a CRC mismatch downgraded by
// Options.IgnoreCRC); on failure it returns a *LoadError.
func Parse(data []byte, opts Options) (*Program, []string, error) {
	if len(data) < 4 || data[0] != Magic[0] || data[1] != Magic[1] || data[2] != Magic[2] || data[3] != Magic[3] {
		if opts.AllowRaw {
			return parseRaw(data), nil, nil
		}
		return nil, nil, newErr(BadMagic, "expected %X, got %X", Magic, firstBytes(data, 4))
	}
	return parseFramed(data, opts)
}

func firstBytes(data []byte, n int) []byte {
	if len(data) < n {
		n = len(data)
	}
	return data[:n]
}

// parseRaw treats the whole buffer as code and synthesizes a single
// CYCLIC task at offset 0 with default interval and priority (§4.4
// "Raw mode").
func parseRaw(data []byte) *Program {
	code := append([]byte(nil), data...)
	return &Program{
		Code:       code,
		EntryPoint: 0,
		Raw:        true,
		Tasks: []TaskDef{
			{
				ID:         0,
				Type:       TaskCyclic,
				Priority:   0,
				IntervalUs: 100000,
				EntryPoint: 0,
				StackSize:  uint16(len(code)),
			},
		},
	}
}

func parseFramed(data []byte, opts Options) (*Program, []string, error) {
	if len(data) < HeaderSize {
		return nil, nil, newErr(Truncated, "buffer of %d bytes shorter than header (%d)", len(data), HeaderSize)
	}

	h := header{
		versionMajor: binary.LittleEndian.Uint16(data[4:6]),
		versionMinor: binary.LittleEndian.Uint16(data[6:8]),
		flags:        binary.LittleEndian.Uint32(data[8:12]),
		crc32:        binary.LittleEndian.Uint32(data[12:16]),
		codeSize:     binary.LittleEndian.Uint32(data[16:20]),
		dataSize:     binary.LittleEndian.Uint32(data[20:24]),
		entryPoint:   binary.LittleEndian.Uint16(data[24:26]),
		segmentCount: binary.LittleEndian.Uint16(data[26:28]),
	}

	if h.versionMajor != CoreVersionMajor {
		return nil, nil, newErr(VersionMismatch, "file version_major=%d, core=%d", h.versionMajor, CoreVersionMajor)
	}

	tableEnd := HeaderSize + int(h.segmentCount)*SegmentHeaderSize
	if len(data) < tableEnd {
		return nil, nil, newErr(Truncated, "segment table needs %d bytes, buffer has %d", tableEnd, len(data))
	}

	entries := make([]segmentEntry, h.segmentCount)
	for i := range entries {
		off := HeaderSize + i*SegmentHeaderSize
		entries[i] = segmentEntry{
			typ:   SegmentType(binary.LittleEndian.Uint16(data[off : off+2])),
			flags: binary.LittleEndian.Uint16(data[off+2 : off+4]),
			size:  binary.LittleEndian.Uint32(data[off+4 : off+8]),
		}
	}

	payload := data[tableEnd:]
	var payloadLen int
	for _, e := range entries {
		payloadLen += int(e.size)
	}
	if len(payload) < payloadLen {
		return nil, nil, newErr(Truncated, "payload needs %d bytes, buffer has %d", payloadLen, len(payload))
	}
	payload = payload[:payloadLen]

	var warnings []string
	if h.flags&FlagCRCRequired != 0 {
		sum := crc32.ChecksumIEEE(payload)
		if sum != h.crc32 {
			if opts.IgnoreCRC {
				warnings = append(warnings, newErr(CRCMismatch, "computed 0x%08X, header 0x%08X", sum, h.crc32).Error())
			} else {
				return nil, nil, newErr(CRCMismatch, "computed 0x%08X, header 0x%08X", sum, h.crc32)
			}
		}
	}

	prog := &Program{EntryPoint: h.entryPoint}
	maxTasks := opts.MaxTasks
	if maxTasks == 0 {
		maxTasks = DefaultMaxTasks
	}

	cursor := 0
	haveCode := false
	for _, e := range entries {
		seg := payload[cursor : cursor+int(e.size)]
		cursor += int(e.size)

		switch e.typ {
		case SegCode:
			if opts.MaxCodeSize != 0 && uint32(len(seg)) > opts.MaxCodeSize {
				return nil, nil, newErr(CodeTooLarge, "code segment is %d bytes, limit %d", len(seg), opts.MaxCodeSize)
			}
			prog.Code = append([]byte(nil), seg...)
			haveCode = true

		case SegTask:
			if len(seg)%TaskDefSize != 0 {
				return nil, nil, newErr(Truncated, "TASK segment size %d is not a multiple of %d", len(seg), TaskDefSize)
			}
			count := len(seg) / TaskDefSize
			for i := 0; i < count; i++ {
				if len(prog.Tasks) >= maxTasks {
					return nil, nil, newErr(TaskLimit, "TASK segment defines more than %d tasks", maxTasks)
				}
				t := seg[i*TaskDefSize : (i+1)*TaskDefSize]
				prog.Tasks = append(prog.Tasks, TaskDef{
					ID:         binary.LittleEndian.Uint16(t[0:2]),
					Type:       TaskType(t[2]),
					Priority:   t[3],
					IntervalUs: binary.LittleEndian.Uint32(t[4:8]),
					EntryPoint: binary.LittleEndian.Uint16(t[8:10]),
					StackSize:  binary.LittleEndian.Uint16(t[10:12]),
				})
			}

		case SegSymbol:
			prog.Symbols = append([]byte(nil), seg...)
		case SegIOMap:
			prog.IOMap = append([]byte(nil), seg...)
		case SegDebug:
			prog.Debug = append([]byte(nil), seg...)
		case SegTag:
			prog.Tags = append([]byte(nil), seg...)
		case SegSignature:
			prog.Signature = append([]byte(nil), seg...)
		default:
			// Unknown segment types are forward-compatible: skip.
		}
	}

	if !haveCode {
		return nil, nil, newErr(NoCode, "no CODE segment present")
	}
	if opts.RequireTasks && len(prog.Tasks) == 0 {
		return nil, nil, newErr(NoTasks, "no TASK segment present")
	}

	return prog, warnings, nil
}
