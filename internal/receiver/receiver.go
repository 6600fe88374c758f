// Package receiver implements the RC receiver protocol layer of spec.md §6:
// per-protocol frame decoding into 1000-2000 channel values, with a
// failsafe timer that serves TIMEOUT once a protocol's window elapses
// without a valid frame.
//
// Grounded on LibrePilot's flight/pios/common/pios_{dsm,sbus,hott,ppm}.c
// framing (frame sizes, CRC choices, failsafe windows as transcribed into
// spec.md §6's table) and on PossumXI-Asgard_Arobi/Valkyrie's
// mavlink_protocol.go for the go.bug.st/serial port-opening idiom this
// package's UART-backed protocols (S.Bus, EX.Bus, HoTT) reuse.
package receiver

import (
	"time"

	"go.bug.st/serial"
)

// Timeout is the sentinel channel value returned once a protocol's failsafe
// window has elapsed without a valid frame — PIOS_RCVR_TIMEOUT.
const Timeout = -1

// Protocol identifies one supported RC link.
type Protocol int

const (
	ProtocolDSM Protocol = iota
	ProtocolSBus
	ProtocolExBus
	ProtocolHoTT
	ProtocolPPM
)

// failsafeWindow returns each protocol's failsafe timeout, from spec.md §6's
// table.
func failsafeWindow(p Protocol) time.Duration {
	switch p {
	case ProtocolPPM:
		return 100 * time.Millisecond
	default:
		return 102400 * time.Microsecond
	}
}

// MaxChannels is the largest channel count any supported protocol frames.
const MaxChannels = 16

// Decoder turns a raw protocol frame into channel values. Each protocol's
// concrete decoder implements this independent of transport.
type Decoder interface {
	// Decode parses one frame (already byte-stuffed/CRC-checked by the
	// caller's framer) into out, returning the number of channels decoded
	// and whether the frame was valid.
	Decode(frame []byte, out []int) (n int, ok bool)
}

// Receiver tracks one protocol's channel state plus its failsafe timer.
type Receiver struct {
	protocol Protocol
	decoder  Decoder
	window   time.Duration

	channels   [MaxChannels]int
	lastFrame  time.Time
	haveFrame  bool
}

// New returns a Receiver for protocol, decoding frames with decoder.
func New(protocol Protocol, decoder Decoder) *Receiver {
	r := &Receiver{protocol: protocol, decoder: decoder, window: failsafeWindow(protocol)}
	for i := range r.channels {
		r.channels[i] = Timeout
	}
	return r
}

// Feed processes one raw frame arriving at now. A decode failure does not
// update channel state or the failsafe clock — matches the firmware's "bad
// frame, keep waiting" behavior rather than faulting instantly.
func (r *Receiver) Feed(now time.Time, frame []byte) {
	var out [MaxChannels]int
	n, ok := r.decoder.Decode(frame, out[:])
	if !ok {
		return
	}
	for i := 0; i < n && i < MaxChannels; i++ {
		r.channels[i] = out[i]
	}
	r.lastFrame = now
	r.haveFrame = true
}

// Get returns channel ch's value as of now: Timeout if no frame has ever
// arrived, or if the failsafe window has elapsed since the last valid
// frame (spec.md §8 invariant 3).
func (r *Receiver) Get(now time.Time, ch int) int {
	if ch < 0 || ch >= MaxChannels {
		return Timeout
	}
	if !r.haveFrame || now.Sub(r.lastFrame) > r.window {
		return Timeout
	}
	return r.channels[ch]
}

// OpenUART opens a serial port for one of the UART-backed protocols
// (S.Bus, EX.Bus, HoTT), matching MAVLinkProtocol.OpenSerialPort's use of
// go.bug.st/serial for configuring baud/parity/stop bits.
func OpenUART(portName string, baudRate int, parity serial.Parity) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   parity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(portName, mode)
}
