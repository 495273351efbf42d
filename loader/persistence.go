package loader

import "fmt"

// Persisted state layout (§6): two opaque key/value pairs via HAL.
// The spec's open question on persistence key schemes is resolved here
// to a single scheme (§9 "Open questions").
const (
	PersistCodeLenKey = "zplc/code_len"
	PersistCodeKey    = "zplc/code"
)

// Store is the minimal persistence contract the loader needs from the
// platform abstraction layer (§1 "the platform abstraction layer...
// the core only consumes its interface"). hal.SimHAL and any real HAL
// adapter satisfy it.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// Persist writes the currently loaded program's code under the fixed
// persistence keys so RestoreOnBoot can replay it (§4.4 "Persistence").
func Persist(store Store, code []byte) error {
	lenBytes := []byte{
		byte(len(code)), byte(len(code) >> 8), byte(len(code) >> 16), byte(len(code) >> 24),
	}
	if err := store.Set(PersistCodeLenKey, lenBytes); err != nil {
		return fmt.Errorf("persist code_len: %w", err)
	}
	if err := store.Set(PersistCodeKey, code); err != nil {
		return fmt.Errorf("persist code: %w", err)
	}
	return nil
}

// RestoreOnBoot reads the persisted code (if any) and parses it,
// accepting raw mode since persisted code was saved without its
// original framing having necessarily been re-validated. It returns
// (nil, false, nil) when nothing was persisted or code_len is 0 —
// not an error, just nothing to restore.
func RestoreOnBoot(store Store, opts Options) (*Program, bool, error) {
	lenBytes, ok, err := store.Get(PersistCodeLenKey)
	if err != nil {
		return nil, false, fmt.Errorf("read code_len: %w", err)
	}
	if !ok || len(lenBytes) < 4 {
		return nil, false, nil
	}
	codeLen := uint32(lenBytes[0]) | uint32(lenBytes[1])<<8 | uint32(lenBytes[2])<<16 | uint32(lenBytes[3])<<24
	if codeLen == 0 {
		return nil, false, nil
	}

	code, ok, err := store.Get(PersistCodeKey)
	if err != nil {
		return nil, false, fmt.Errorf("read code: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	opts.AllowRaw = true
	prog, _, err := Parse(code, opts)
	if err != nil {
		return nil, false, fmt.Errorf("replay persisted program: %w", err)
	}
	return prog, true, nil
}
