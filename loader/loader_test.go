package loader

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseBadMagic(t *testing.T) {
	data := []byte("XPLC" + string(make([]byte, 28)))
	_, _, err := Parse(data, Options{})
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Kind != BadMagic {
		t.Fatalf("expected BAD_MAGIC, got %v", err)
	}
}

func TestParseCodeOnlyNoTasksRequired(t *testing.T) {
	code := []byte{0x01, 0x02, 0x03}
	buf := Encode(code, nil, 0, EncodeOptions{})

	prog, warnings, err := Parse(buf, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if !bytes.Equal(prog.Code, code) {
		t.Fatalf("expected code %v, got %v", code, prog.Code)
	}
	if len(prog.Tasks) != 0 {
		t.Fatalf("expected no tasks, got %v", prog.Tasks)
	}
}

func TestParseNoTasksWhenRequired(t *testing.T) {
	code := []byte{0xAA}
	buf := Encode(code, nil, 0, EncodeOptions{})

	_, _, err := Parse(buf, Options{RequireTasks: true})
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Kind != NoTasks {
		t.Fatalf("expected NO_TASKS, got %v", err)
	}
}

func TestParseCodeAndTwoTasksRoundTrip(t *testing.T) {
	code := bytes.Repeat([]byte{0xEE}, 64)
	tasks := []TaskDef{
		{ID: 0, Type: TaskCyclic, Priority: 0, IntervalUs: 10000, EntryPoint: 0, StackSize: 32},
		{ID: 1, Type: TaskCyclic, Priority: 1, IntervalUs: 100000, EntryPoint: 32, StackSize: 32},
	}
	buf := Encode(code, tasks, 0, EncodeOptions{})

	prog, _, err := Parse(buf, Options{RequireTasks: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(prog.Code, code) {
		t.Fatalf("code mismatch after round trip")
	}
	if len(prog.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(prog.Tasks))
	}
	for i, want := range tasks {
		got := prog.Tasks[i]
		if got != want {
			t.Fatalf("task %d mismatch: want %+v, got %+v", i, want, got)
		}
	}
}

func TestParseNoCodeSegment(t *testing.T) {
	buf := Encode(nil, nil, 0, EncodeOptions{})
	// Retype the sole segment table entry from CODE to SYMBOL so the
	// loader sees no CODE segment at all.
	buf[HeaderSize] = byte(SegSymbol)
	_, _, err := Parse(buf, Options{})
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Kind != NoCode {
		t.Fatalf("expected NO_CODE, got %v", err)
	}
}

func TestParseCRCMismatchHardFailsByDefault(t *testing.T) {
	code := []byte{1, 2, 3, 4}
	buf := Encode(code, nil, 0, EncodeOptions{RequireCRC: true})
	// Corrupt a code byte after the CRC was computed so the check fails.
	buf[len(buf)-1] ^= 0xFF

	_, _, err := Parse(buf, Options{})
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Kind != CRCMismatch {
		t.Fatalf("expected CRC_MISMATCH, got %v", err)
	}
}

func TestParseCRCMismatchDowngradedToWarning(t *testing.T) {
	code := []byte{1, 2, 3, 4}
	buf := Encode(code, nil, 0, EncodeOptions{RequireCRC: true})
	buf[len(buf)-1] ^= 0xFF

	prog, warnings, err := Parse(buf, Options{IgnoreCRC: true})
	if err != nil {
		t.Fatalf("unexpected error with IgnoreCRC: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
	if prog == nil {
		t.Fatalf("expected a program despite the CRC warning")
	}
}

func TestParseCodeTooLarge(t *testing.T) {
	code := bytes.Repeat([]byte{0x00}, 100)
	buf := Encode(code, nil, 0, EncodeOptions{})
	_, _, err := Parse(buf, Options{MaxCodeSize: 50})
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Kind != CodeTooLarge {
		t.Fatalf("expected CODE_TOO_LARGE, got %v", err)
	}
}

func TestParseTaskLimit(t *testing.T) {
	tasks := make([]TaskDef, 3)
	for i := range tasks {
		tasks[i] = TaskDef{ID: uint16(i), Type: TaskCyclic, IntervalUs: 1000}
	}
	buf := Encode([]byte{0}, tasks, 0, EncodeOptions{})

	_, _, err := Parse(buf, Options{MaxTasks: 2})
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Kind != TaskLimit {
		t.Fatalf("expected TASK_LIMIT, got %v", err)
	}
}

func TestParseTruncatedHeader(t *testing.T) {
	_, _, err := Parse([]byte{0x5A, 0x50, 0x4C, 0x43, 0, 0}, Options{})
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Kind != Truncated {
		t.Fatalf("expected TRUNCATED, got %v", err)
	}
}

func TestParseVersionMismatch(t *testing.T) {
	buf := Encode([]byte{1}, nil, 0, EncodeOptions{})
	buf[4] = 99 // version_major
	_, _, err := Parse(buf, Options{})
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Kind != VersionMismatch {
		t.Fatalf("expected VERSION_MISMATCH, got %v", err)
	}
}

func TestParseRawModeWithoutMagic(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	prog, _, err := Parse(data, Options{AllowRaw: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !prog.Raw {
		t.Fatalf("expected Raw=true")
	}
	if !bytes.Equal(prog.Code, data) {
		t.Fatalf("raw mode must treat the whole buffer as code")
	}
	if len(prog.Tasks) != 1 || prog.Tasks[0].Type != TaskCyclic {
		t.Fatalf("expected one synthetic CYCLIC task, got %v", prog.Tasks)
	}
}

func TestParseRawModeRejectedWithoutOption(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}
	_, _, err := Parse(data, Options{})
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Kind != BadMagic {
		t.Fatalf("expected BAD_MAGIC without AllowRaw, got %v", err)
	}
}

// fakeStore is an in-memory Store for persistence tests.
type fakeStore struct {
	values map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string][]byte)}
}

func (f *fakeStore) Get(key string) ([]byte, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeStore) Set(key string, value []byte) error {
	f.values[key] = append([]byte(nil), value...)
	return nil
}

func TestPersistAndRestoreRoundTrip(t *testing.T) {
	store := newFakeStore()
	code := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := Persist(store, code); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	prog, restored, err := RestoreOnBoot(store, Options{})
	if err != nil {
		t.Fatalf("RestoreOnBoot: %v", err)
	}
	if !restored {
		t.Fatalf("expected restored=true")
	}
	if !bytes.Equal(prog.Code, code) {
		t.Fatalf("expected restored code %v, got %v", code, prog.Code)
	}
}

func TestRestoreOnBootNothingPersisted(t *testing.T) {
	store := newFakeStore()
	prog, restored, err := RestoreOnBoot(store, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored || prog != nil {
		t.Fatalf("expected nothing restored on empty store")
	}
}
