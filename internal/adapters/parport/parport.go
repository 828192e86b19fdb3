// Package parport drives EEG trigger codes through a parallel port device
// node. Each pulse holds the code on the data lines for a fixed width and
// returns them to zero so the acquisition system sees a clean edge.
package parport

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Port implements ports.TriggerPort over a character device such as
// /dev/parport0.
type Port struct {
	mu         sync.Mutex
	device     *os.File
	pulseWidth time.Duration
}

// Open opens the device node for writing. pulseWidth is how long each code
// is held before the lines reset.
func Open(path string, pulseWidth time.Duration) (*Port, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open trigger device %s: %w", path, err)
	}
	return &Port{device: f, pulseWidth: pulseWidth}, nil
}

// Pulse writes code to the data lines, holds it for the pulse width, then
// resets to zero. Codes outside 0-255 are rejected before touching the
// device.
func (p *Port) Pulse(code int) error {
	if code < 0 || code > 255 {
		return fmt.Errorf("trigger code %d out of range", code)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.writeByte(byte(code)); err != nil {
		return fmt.Errorf("failed to raise trigger %d: %w", code, err)
	}
	time.Sleep(p.pulseWidth)
	if err := p.writeByte(0); err != nil {
		return fmt.Errorf("failed to reset trigger lines: %w", err)
	}
	return nil
}

// Close releases the device node.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.device.Close()
}

func (p *Port) writeByte(b byte) error {
	_, err := p.device.Write([]byte{b})
	return err
}
