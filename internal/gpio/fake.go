package gpio

import (
	"sync"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

// FakeWriter is a test double that records relay writes.
type FakeWriter struct {
	mu sync.Mutex

	// Writes contains every Write call in order.
	Writes []Write

	// States holds the last logical value written per pump.
	States map[logic.PumpID]bool

	// WriteError, if set, will be returned by Write (the write is still recorded).
	WriteError error

	// Closed tracks if Close was called
	Closed bool
}

// Write is a single recorded call.
type Write struct {
	Pump logic.PumpID
	On   bool
}

// NewFakeWriter creates an empty FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{States: make(map[logic.PumpID]bool)}
}

// Write records the requested state.
func (f *FakeWriter) Write(pump logic.PumpID, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes = append(f.Writes, Write{Pump: pump, On: on})
	if f.WriteError != nil {
		return f.WriteError
	}
	f.States[pump] = on
	return nil
}

// State returns the last value written for pump.
func (f *FakeWriter) State(pump logic.PumpID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.States[pump]
}

// WriteCount returns the number of Write calls for pump.
func (f *FakeWriter) WriteCount(pump logic.PumpID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.Writes {
		if w.Pump == pump {
			n++
		}
	}
	return n
}

// Close switches every pump off and marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pump := range f.States {
		f.States[pump] = false
	}
	f.Closed = true
	return nil
}

// Reset clears recorded writes.
func (f *FakeWriter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes = nil
	f.States = make(map[logic.PumpID]bool)
	f.WriteError = nil
	f.Closed = false
}
