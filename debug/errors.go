package debug

import "errors"

var (
	errPokeDisabled   = errors.New("debug: memory_poke disabled by policy")
	errPokeOutsideIPI = errors.New("debug: memory_poke only permitted in the IPI region")
)
