// Package actuator implements the output mixer of spec.md §6: per-bank
// PWM/SinglePulse/DShot channel groups, with DShot's bit-timing formulas and
// the standard DShot payload layout (throttle 1048 encodes to 0x830B).
package actuator

import "fmt"

// BankMode selects one output bank's protocol.
type BankMode int

const (
	BankPWM BankMode = iota
	BankSinglePulse
	BankDShot
)

// DShotTiming is the three cycle counts a DShot bit-bang driver needs,
// computed from the chosen bitrate per spec.md §6:
// T0H = T/2666 - 8, T1H = T/1333 - 8, T = T/1000 - 8 (processor cycles).
type DShotTiming struct {
	T0H, T1H, T int
}

// ComputeDShotTiming derives the bit timings for a DShot variant running at
// rateHz (150_000, 300_000, or 600_000) on a processor clocked at
// processorHz.
func ComputeDShotTiming(rateHz, processorHz int) DShotTiming {
	period := processorHz / rateHz // processor cycles per bit period, "T"
	return DShotTiming{
		T0H: period/2666 - 8,
		T1H: period/1333 - 8,
		T:   period/1000 - 8,
	}
}

// EncodeDShotFrame builds the 16-bit DShot payload for an 11-bit throttle
// command (0-2047) plus a telemetry-request bit: throttle left-shifted 5
// bits with the telemetry-request bit in bit 4 (so bits 4-15 together form
// the 12-bit data field), trailed by a 4-bit checksum in the low nibble —
// the nibble-wise XOR of the data field's own three nibbles.
func EncodeDShotFrame(throttle uint16, telemetryRequest bool) (uint16, error) {
	if throttle > 2047 {
		return 0, fmt.Errorf("actuator: dshot throttle %d exceeds 11-bit range", throttle)
	}
	frame := throttle << 5
	if telemetryRequest {
		frame |= 1 << 4
	}
	data := frame >> 4
	checksum := (data ^ (data >> 4) ^ (data >> 8)) & 0x0F
	return frame | checksum, nil
}

// pwmMinUS/pwmMaxUS are the classic PWM pulse-width bounds.
const (
	pwmMinUS = 1000
	pwmMaxUS = 2000
)

// Bank is one output group's configuration and current command.
type Bank struct {
	Mode   BankMode
	RateHz int // 50-500 for PWM, 150000/300000/600000 for DShot
}

// PulseWidthUS converts a normalized [-1,1] command into a PWM pulse width
// in microseconds, clamped to [1000,2000].
func PulseWidthUS(command float64) int {
	us := pwmMinUS + int((command+1)/2*(pwmMaxUS-pwmMinUS))
	if us < pwmMinUS {
		return pwmMinUS
	}
	if us > pwmMaxUS {
		return pwmMaxUS
	}
	return us
}

// DShotThrottle converts a normalized [-1,1] command into an 11-bit DShot
// throttle value. DShot reserves 0-47 for special commands, so the usable
// throttle range is 48-2047.
func DShotThrottle(command float64) uint16 {
	if command < -1 {
		command = -1
	}
	if command > 1 {
		command = 1
	}
	const minThrottle = 48
	const maxThrottle = 2047
	return uint16(minThrottle + (command+1)/2*(maxThrottle-minThrottle))
}

// Mixer maps normalized per-axis stabilization output plus thrust into
// per-output-channel commands via a fixed mixing matrix, one row per
// output channel: [roll, pitch, yaw, thrust] weights.
type Mixer struct {
	Rows [][4]float64
}

// Mix computes each output channel's normalized [-1,1] command.
func (m *Mixer) Mix(roll, pitch, yaw, thrust float64) []float64 {
	out := make([]float64, len(m.Rows))
	for i, row := range m.Rows {
		v := row[0]*roll + row[1]*pitch + row[2]*yaw + row[3]*thrust
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		out[i] = v
	}
	return out
}
