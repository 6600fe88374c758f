// Package sensors implements the polled sensor ingest layer of spec.md §4.4:
// a per-chip driver capability contract, the barometer conversion state
// machine, and the magnetometer orientation remap table.
//
// Grounded on LibrePilot's flight/pios/common/pios_ms56xx.c (barometer FSM)
// and pios_qmc5883.c (orientation remap; a failed I2C transfer is not
// retried but latches an error until Reset), generalized from the
// per-chip C vtables spec.md §9 calls out for redesign ("Express as a small
// capability trait … each chip driver implements it") into a Go interface.
package sensors

import "time"

// Driver is the capability contract every polled chip driver implements,
// spec.md §4.4's `test/poll/fetch/get_scale/reset`.
type Driver interface {
	// Test reports whether the chip responds to a basic self-check.
	Test() bool
	// Poll advances the driver's internal state machine by one tick and
	// reports whether a new sample became available.
	Poll(now time.Time) bool
	// Fetch copies the most recently produced sample into buf.
	Fetch(buf []float64)
	// GetScale copies the chip's raw-to-engineering-unit scale factors
	// into buf.
	GetScale(buf []float64)
	// Reset reinitializes the driver after a detected fault.
	Reset()
}

// Bus models access to a shared I2C bus: one mutex-equivalent serializing
// transactions, since transactions are short and must not nest (spec.md §5
// "I²C buses: one mutex per bus; transactions are short and may not be
// nested").
type Bus struct {
	busy chan struct{}
}

// NewBus returns an I2C bus with a single transaction slot.
func NewBus() *Bus {
	b := &Bus{busy: make(chan struct{}, 1)}
	return b
}

// Transact runs fn with exclusive access to the bus.
func (b *Bus) Transact(fn func() error) error {
	b.busy <- struct{}{}
	defer func() { <-b.busy }()
	return fn()
}
