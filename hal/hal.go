// Package hal defines the platform abstraction the core consumes for
// everything that differs between a desktop simulation and a real
// target: monotonic time, persisted key/value storage, and the
// digital/analog I/O points a fieldbus or GPIO backend would latch into
// the process image. The core (memory, vm, loader, scheduler) depends
// only on the narrower interfaces in vm.HALInterface, scheduler.Clock
// and loader.Store; Interface here is the union a real target
// implements, and SimHAL is the reference implementation used by tests,
// cmd/zplcd, and development without hardware attached.
package hal

// Interface is the full platform seam (§1 "the platform abstraction
// layer"). A target-specific build supplies one concrete
// implementation wired into cmd/zplcd; everything else in this module
// depends only on the narrower interfaces it satisfies.
type Interface interface {
	// TickMillis satisfies vm.HALInterface for GET_TICKS.
	TickMillis() uint32

	// NowUs and SleepUntil satisfy scheduler.Clock.
	NowUs() uint64
	SleepUntil(deadlineUs uint64)

	// Get and Set satisfy loader.Store for code persistence.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error

	// ReadInput and WriteOutput are the fieldbus/GPIO seam: the
	// scheduler latches a bounded window of named input points into IPI
	// before each cycle and flushes the matching OPI window out after
	// it (scheduler.IOPort, §2 "latch inputs... flush outputs"). The
	// transport behind these two calls (a real fieldbus/GPIO driver) is
	// out of scope (§1 "I/O drivers... out of scope"); only the seam
	// itself is exercised by the core.
	ReadInput(point string) (bool, error)
	WriteOutput(point string, value bool) error
}
