// Package ledgpio drives a status LED over a GPIO character device. An
// application can pass Callback's result from its own SignalLED upcall;
// the core does not install it by itself.
package ledgpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// LED wraps one requested GPIO line driven as an output.
type LED struct {
	line *gpiocdev.Line
}

// Open requests lineOffset on chip (e.g. "gpiochip0") as an active-high
// output, initially off.
func Open(chip string, lineOffset int) (*LED, error) {
	var line, err = gpiocdev.RequestLine(chip, lineOffset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("pnet/ledgpio: request line %d on %s: %w", lineOffset, chip, err)
	}

	return &LED{line: line}, nil
}

// Set drives the line high (on) or low (off).
func (l *LED) Set(on bool) error {
	var v = 0
	if on {
		v = 1
	}

	return l.line.SetValue(v)
}

// Close releases the GPIO line.
func (l *LED) Close() error {
	return l.line.Close()
}

// Callback returns a func(bool) suitable for wiring directly as the
// device's SignalLED callback; errors are swallowed since a failing LED
// must never affect protocol operation (application upcalls are
// best-effort).
func Callback(l *LED) func(bool) {
	return func(on bool) {
		_ = l.Set(on)
	}
}
