// Package gpio provides relay output with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/irrigation-controller/internal/logic"

// Writer drives the pump relays.
type Writer interface {
	// Write sets the logical state of a pump: true = energized (running).
	// The relay boards are active-low; implementations invert at the pin.
	Write(pump logic.PumpID, on bool) error

	// Close de-energizes every relay and releases GPIO resources.
	Close() error
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinGarden     = 15
	DefaultPinGreenhouse = 18
)

// DefaultChip is the GPIO character device on Raspberry Pi boards.
const DefaultChip = "gpiochip0"

// Line binds a pump to its GPIO line offset.
type Line struct {
	Pump logic.PumpID
	Pin  int
}

// rawValue converts a logical pump state to the active-low line value.
func rawValue(on bool) int {
	if on {
		return 0
	}
	return 1
}
