//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

// RealWriter drives relays on actual hardware using the Linux GPIO character device.
type RealWriter struct {
	chip  *gpiocdev.Chip
	lines map[logic.PumpID]*gpiocdev.Line
	order []logic.PumpID
}

// NewRealWriter requests every line as an output, de-energized.
func NewRealWriter(chipName string, lines []Line) (*RealWriter, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	w := &RealWriter{
		chip:  chip,
		lines: make(map[logic.PumpID]*gpiocdev.Line, len(lines)),
	}
	for _, l := range lines {
		// Start high so the active-low relay stays off while we initialize.
		line, err := chip.RequestLine(l.Pin, gpiocdev.AsOutput(rawValue(false)),
			gpiocdev.WithConsumer("irrigation-"+string(l.Pump)))
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", l.Pump, l.Pin, err)
		}
		w.lines[l.Pump] = line
		w.order = append(w.order, l.Pump)
	}
	return w, nil
}

// Write sets the relay of the given pump. ON drives the line low.
func (w *RealWriter) Write(pump logic.PumpID, on bool) error {
	line, ok := w.lines[pump]
	if !ok {
		return fmt.Errorf("write %s: %w", pump, logic.ErrUnknownPump)
	}
	if err := line.SetValue(rawValue(on)); err != nil {
		return fmt.Errorf("write %s: %w", pump, err)
	}
	return nil
}

// Close drives every relay off before releasing the lines, so the pumps
// never keep running after the daemon exits.
func (w *RealWriter) Close() error {
	var errs []error

	for _, pump := range w.order {
		line := w.lines[pump]
		if err := line.SetValue(rawValue(false)); err != nil {
			errs = append(errs, fmt.Errorf("switch off %s: %w", pump, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s line: %w", pump, err))
		}
	}
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
