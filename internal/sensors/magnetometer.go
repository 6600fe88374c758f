package sensors

import "time"

// Orientation selects one of the eight axis permutations a magnetometer can
// be mounted in relative to the airframe, matching
// pios_qmc5883.c's PIOS_QMC5883_ORIENTATION enum and PIOS_QMC5883_Orient.
type Orientation int

const (
	OrientEastNorthUp Orientation = iota
	OrientSouthEastUp
	OrientWestSouthUp
	OrientNorthWestUp
	OrientEastSouthDown
	OrientSouthWestDown
	OrientWestNorthDown
	OrientNorthEastDown
)

// remap applies one orientation's axis permutation/sign flip to a raw
// [x, y, z] reading, transcribed directly from PIOS_QMC5883_Orient's switch.
func remap(o Orientation, in [3]float64) [3]float64 {
	switch o {
	case OrientEastNorthUp:
		return [3]float64{in[2], in[0], -in[1]}
	case OrientSouthEastUp:
		return [3]float64{-in[0], in[2], -in[1]}
	case OrientWestSouthUp:
		return [3]float64{-in[2], -in[0], -in[1]}
	case OrientNorthWestUp:
		return [3]float64{in[0], -in[2], -in[1]}
	case OrientEastSouthDown:
		return [3]float64{in[2], -in[0], in[1]}
	case OrientSouthWestDown:
		return [3]float64{-in[0], -in[2], in[1]}
	case OrientWestNorthDown:
		return [3]float64{-in[2], in[0], in[1]}
	case OrientNorthEastDown:
		return [3]float64{in[0], in[2], in[1]}
	default:
		return in
	}
}

// Magnetometer reads a 3-axis field sample over a serialized I2C bus,
// reorients it per the airframe mounting, and tracks bus-fault state the
// way pios_qmc5883.c tracks dev->hw_error: a failed transfer latches an
// error that Reset must clear before Poll will produce samples again.
type Magnetometer struct {
	bus         *Bus
	orientation Orientation
	hwError     bool

	last [3]float64

	// readRaw performs the chip-specific register read; it returns ok=false
	// on an I2C NACK or transfer error.
	readRaw func() (x, y, z float64, ok bool)
}

// NewMagnetometer constructs a Magnetometer bound to bus, applying
// orientation to every sample, using readRaw for the chip-specific I2C
// transfer.
func NewMagnetometer(bus *Bus, orientation Orientation, readRaw func() (float64, float64, float64, bool)) *Magnetometer {
	return &Magnetometer{bus: bus, orientation: orientation, readRaw: readRaw}
}

// Test confirms the chip responds, clearing any previously latched error on
// success — mirroring PIOS_QMC5883_Init's probe-then-clear-error sequence.
func (m *Magnetometer) Test() bool {
	var ok bool
	_ = m.bus.Transact(func() error {
		_, _, _, ok = m.readRaw()
		return nil
	})
	if ok {
		m.hwError = false
	}
	return ok
}

// Poll issues one serialized bus transaction and reorients the result. A
// transfer failure latches hwError and Poll returns false until Reset runs;
// this matches the firmware's "stop trusting samples after a NACK until the
// device is explicitly reinitialized" behavior.
func (m *Magnetometer) Poll(_ time.Time) bool {
	if m.hwError {
		return false
	}
	var x, y, z float64
	var ok bool
	err := m.bus.Transact(func() error {
		x, y, z, ok = m.readRaw()
		return nil
	})
	if err != nil || !ok {
		m.hwError = true
		return false
	}
	m.last = remap(m.orientation, [3]float64{x, y, z})
	return true
}

// Fetch writes the most recent reoriented [x, y, z] sample into buf.
func (m *Magnetometer) Fetch(buf []float64) {
	if len(buf) < 3 {
		return
	}
	buf[0], buf[1], buf[2] = m.last[0], m.last[1], m.last[2]
}

// GetScale writes unity scale factors into buf; a real chip driver derives
// these from its own sensitivity register.
func (m *Magnetometer) GetScale(buf []float64) {
	for i := range buf {
		buf[i] = 1
	}
}

// Reset clears a latched hardware error, re-arming Poll. The firmware
// re-probes the device here too (PIOS_QMC5883_Init's retry path); callers
// should follow Reset with Test before resuming normal polling.
func (m *Magnetometer) Reset() {
	m.hwError = false
}
