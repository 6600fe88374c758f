// Package alarms implements the SystemAlarms taxonomy from spec.md §7: a
// fixed set of subsystem slots, each holding one of five severity levels,
// observable independently of the error returns that raised them.
package alarms

// Level is one of the five alarm severities, ordered from least to most
// severe so callers can compare with plain integer comparisons.
type Level int

const (
	Uninitialised Level = iota
	Ok
	Warning
	Error
	Critical
)

func (l Level) String() string {
	switch l {
	case Uninitialised:
		return "Uninitialised"
	case Ok:
		return "Ok"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// Slot identifies one of the fixed subsystem alarm slots of SystemAlarms.
type Slot string

const (
	Attitude             Slot = "Attitude"
	Stabilization        Slot = "Stabilization"
	Guidance             Slot = "Guidance"
	Receiver             Slot = "Receiver"
	Telemetry            Slot = "Telemetry"
	GPS                  Slot = "GPS"
	I2C                  Slot = "I2C"
	SystemConfiguration  Slot = "SystemConfiguration"
	BootFault            Slot = "BootFault"
)

// allSlots enumerates every slot for iteration (e.g. "anything Critical?").
var allSlots = []Slot{Attitude, Stabilization, Guidance, Receiver, Telemetry, GPS, I2C, SystemConfiguration, BootFault}

// whitelistedForArming lists the slots that may sit at Critical without
// blocking arming (spec.md §7 "User-visible behaviour").
var whitelistedForArming = map[Slot]bool{GPS: true, Telemetry: true}

// Table holds the current level of every slot. The zero value has every
// slot Uninitialised, matching firmware boot state.
type Table struct {
	levels map[Slot]Level
}

// NewTable returns a Table with every slot Uninitialised.
func NewTable() *Table {
	t := &Table{levels: make(map[Slot]Level, len(allSlots))}
	for _, s := range allSlots {
		t.levels[s] = Uninitialised
	}
	return t
}

// Set assigns a slot's level unconditionally.
func (t *Table) Set(slot Slot, level Level) {
	t.levels[slot] = level
}

// Escalate raises a slot to level only if level is more severe than the
// slot's current value — mirrors the firmware rule that AlarmsSet never
// silently demotes an unrelated caller's alarm (spec.md §9 "callers may
// only escalate alarms").
func (t *Table) Escalate(slot Slot, level Level) {
	if level > t.levels[slot] {
		t.levels[slot] = level
	}
}

// Clear sets a slot back to Ok.
func (t *Table) Clear(slot Slot) {
	t.levels[slot] = Ok
}

// Get returns a slot's current level.
func (t *Table) Get(slot Slot) Level {
	return t.levels[slot]
}

// BlocksArming reports whether any non-whitelisted slot is at Critical,
// the gate ok_to_arm() applies per spec.md §4.8/§4.9.
func (t *Table) BlocksArming() bool {
	for _, s := range allSlots {
		if whitelistedForArming[s] {
			continue
		}
		if t.levels[s] >= Critical {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current levels, safe to hand to a reader
// without exposing the live map (bus-object atomicity, spec.md §3/§4.2).
func (t *Table) Snapshot() map[Slot]Level {
	out := make(map[Slot]Level, len(t.levels))
	for k, v := range t.levels {
		out[k] = v
	}
	return out
}
