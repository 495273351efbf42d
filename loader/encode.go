package loader

import (
	"encoding/binary"
	"hash/crc32"
)

// EncodeOptions controls Encode's header fields. It exists mainly to
// build test fixtures and to let cmd/zplcd re-frame a restored program
// before handing it to the scheduler.
type EncodeOptions struct {
	VersionMinor uint16
	RequireCRC   bool
}

// Encode serializes code and tasks into a .zplc buffer, the inverse of
// Parse for the framed (non-raw) format. Used by tests to exercise the
// round-trip invariant in §8 ("encoding any valid task table and
// re-parsing yields the identical task list") and by cmd/zplcd, which
// re-frames a program restored from persistence before loading it.
func Encode(code []byte, tasks []TaskDef, entryPoint uint16, opts EncodeOptions) []byte {
	segmentCount := 1
	if len(tasks) > 0 {
		segmentCount++
	}

	taskBytes := make([]byte, len(tasks)*TaskDefSize)
	for i, t := range tasks {
		b := taskBytes[i*TaskDefSize : (i+1)*TaskDefSize]
		binary.LittleEndian.PutUint16(b[0:2], t.ID)
		b[2] = byte(t.Type)
		b[3] = t.Priority
		binary.LittleEndian.PutUint32(b[4:8], t.IntervalUs)
		binary.LittleEndian.PutUint16(b[8:10], t.EntryPoint)
		binary.LittleEndian.PutUint16(b[10:12], t.StackSize)
	}

	payload := append([]byte(nil), code...)
	payload = append(payload, taskBytes...)

	var flags uint32
	var crc uint32
	if opts.RequireCRC {
		flags |= FlagCRCRequired
		crc = crc32.ChecksumIEEE(payload)
	}

	out := make([]byte, HeaderSize)
	copy(out[0:4], Magic[:])
	binary.LittleEndian.PutUint16(out[4:6], CoreVersionMajor)
	binary.LittleEndian.PutUint16(out[6:8], opts.VersionMinor)
	binary.LittleEndian.PutUint32(out[8:12], flags)
	binary.LittleEndian.PutUint32(out[12:16], crc)
	binary.LittleEndian.PutUint32(out[16:20], uint32(len(code)))
	binary.LittleEndian.PutUint32(out[20:24], uint32(len(taskBytes)))
	binary.LittleEndian.PutUint16(out[24:26], entryPoint)
	binary.LittleEndian.PutUint16(out[26:28], uint16(segmentCount))
	// bytes 28:32 (reserved) stay zero.

	codeSeg := make([]byte, SegmentHeaderSize)
	binary.LittleEndian.PutUint16(codeSeg[0:2], uint16(SegCode))
	binary.LittleEndian.PutUint32(codeSeg[4:8], uint32(len(code)))
	out = append(out, codeSeg...)

	if len(tasks) > 0 {
		taskSeg := make([]byte, SegmentHeaderSize)
		binary.LittleEndian.PutUint16(taskSeg[0:2], uint16(SegTask))
		binary.LittleEndian.PutUint32(taskSeg[4:8], uint32(len(taskBytes)))
		out = append(out, taskSeg...)
	}

	out = append(out, payload...)
	return out
}
