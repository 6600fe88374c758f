// Package arming implements the arming gesture state machine of spec.md
// §4.8 and the pre-arm sanity check of §4.9.
//
// Grounded on LibrePilot's flight/modules/ManualControl/armhandler.c
// (armHandler, okToArm, forcedDisArm) and flight/libraries/sanitycheck.c.
package arming

import (
	"time"

	"flightcore/internal/alarms"
)

// State is the arming gesture state machine's current state.
type State int

const (
	Disarmed State = iota
	ArmingManual
	Armed
	DisarmingManual
	DisarmingTimeout
)

func (s State) String() string {
	switch s {
	case Disarmed:
		return "Disarmed"
	case ArmingManual:
		return "ArmingManual"
	case Armed:
		return "Armed"
	case DisarmingManual:
		return "DisarmingManual"
	case DisarmingTimeout:
		return "DisarmingTimeout"
	}
	return "Unknown"
}

// Source selects what input the arming gesture is read from, matching
// FlightModeSettings.Arming.
type Source int

const (
	SourceAlwaysDisarmed Source = iota
	SourceAlwaysArmed
	SourceRollLeft
	SourceRollRight
	SourcePitchForward
	SourcePitchAft
	SourceYawLeft
	SourceYawRight
	SourceAccessory0
	SourceAccessory1
	SourceAccessory2
	SourceAccessory3
)

func (s Source) isAccessory() bool {
	return s >= SourceAccessory0 && s <= SourceAccessory3
}

// armedThresholdStick/Switch match ARMED_THRESHOLD_STICK/SWITCH.
const (
	armedThresholdStick  = 0.80
	armedThresholdSwitch = 0.20
	groundLowThrottle    = 0.01
)

// Settings carries the configured gesture source and timing, matching
// FlightModeSettingsData's arming-relevant fields.
type Settings struct {
	Arming               Source
	ArmingSequenceTime   time.Duration
	DisarmingSequenceTime time.Duration
	ArmedTimeout         time.Duration // 0 disables the armed-idle timeout
}

// Command is one tick's manual-control and accessory inputs.
type Command struct {
	Roll, Pitch, Yaw, Throttle float64
	Accessory                  [4]float64
	GroundFrame                bool
	PathFollowerActive         bool
}

// Machine is the arming gesture state machine, one instance per vehicle.
type Machine struct {
	settings Settings
	state    State

	armedDisarmStart      time.Time
	previousSource         Source
	previousInputLevel     float64
	havePreviousSource     bool
}

// New returns a Machine starting Disarmed.
func New(settings Settings) *Machine {
	return &Machine{settings: settings, state: Disarmed, previousSource: -1}
}

// State returns the current arming state.
func (m *Machine) State() State { return m.state }

// SetSettings updates the configured gesture source/timing; a source change
// resets the previous-input-level edge detector, matching armhandler.c's
// previousArmingSettings tracking.
func (m *Machine) SetSettings(s Settings) {
	if s.Arming != m.settings.Arming {
		m.previousInputLevel = 0
	}
	m.settings = s
}

// Step advances the state machine by one tick. okToArm and forcedDisarm are
// the results of the caller's own ok_to_arm()/forced_disarm() evaluation
// (sanity check + alarm table), since those require system-wide state this
// package does not own.
func (m *Machine) Step(now time.Time, cmd Command, okToArm, forcedDisarm bool) {
	if forcedDisarm {
		m.state = Disarmed
		return
	}
	if m.settings.Arming == SourceAlwaysDisarmed {
		m.state = Disarmed
		return
	}

	lowThrottle := cmd.Throttle < 0
	if cmd.GroundFrame {
		lowThrottle = abs(cmd.Throttle) < groundLowThrottle
	}

	armSwitch := m.settings.Arming.isAccessory()
	if armSwitch {
		idx := int(m.settings.Arming - SourceAccessory0)
		if cmd.Accessory[idx] <= -armedThresholdSwitch {
			lowThrottle = true
		}
	}

	if !lowThrottle {
		switch m.state {
		case DisarmingManual, DisarmingTimeout:
			m.state = Armed
		case ArmingManual:
			m.state = Disarmed
		}
		return
	}

	if m.settings.Arming == SourceAlwaysArmed {
		m.state = Armed
		return
	}

	inputLevel := m.armingInputLevel(cmd)

	if !m.havePreviousSource || m.previousSource != m.settings.Arming {
		m.previousSource = m.settings.Arming
		m.previousInputLevel = 0
		m.havePreviousSource = true
	}
	if m.state != Disarmed && m.state != Armed {
		m.previousInputLevel = 0
	}

	threshold := armedThresholdStick
	if armSwitch {
		threshold = armedThresholdSwitch
	}

	manualArm := inputLevel <= -threshold && m.previousInputLevel > -threshold
	manualDisarm := inputLevel >= threshold && m.previousInputLevel < threshold
	m.previousInputLevel = inputLevel

	switch m.state {
	case Disarmed:
		if manualArm && okToArm {
			m.armedDisarmStart = now
			m.state = ArmingManual
		}

	case ArmingManual:
		if manualArm && now.Sub(m.armedDisarmStart) > m.settings.ArmingSequenceTime {
			m.state = Armed
		} else if !manualArm {
			m.state = Disarmed
		}

	case Armed:
		m.armedDisarmStart = now
		m.state = DisarmingTimeout

	case DisarmingTimeout:
		if cmd.PathFollowerActive {
			m.armedDisarmStart = now
		}
		if m.settings.ArmedTimeout != 0 && now.Sub(m.armedDisarmStart) > m.settings.ArmedTimeout {
			m.state = Disarmed
		}
		if manualDisarm {
			m.armedDisarmStart = now
			m.state = DisarmingManual
		}

	case DisarmingManual:
		if manualDisarm && now.Sub(m.armedDisarmStart) > m.settings.DisarmingSequenceTime {
			m.state = Disarmed
		} else if !manualDisarm {
			m.state = Armed
		}
	}
}

func (m *Machine) armingInputLevel(cmd Command) float64 {
	switch m.settings.Arming {
	case SourceRollLeft:
		return cmd.Roll
	case SourceRollRight:
		return -cmd.Roll
	case SourcePitchForward:
		return cmd.Pitch
	case SourcePitchAft:
		return -cmd.Pitch
	case SourceYawLeft:
		return cmd.Yaw
	case SourceYawRight:
		return -cmd.Yaw
	case SourceAccessory0, SourceAccessory1, SourceAccessory2, SourceAccessory3:
		idx := int(m.settings.Arming - SourceAccessory0)
		return -cmd.Accessory[idx]
	}
	return 0
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// OkToArm implements spec.md §4.9's ok_to_arm(): false if any alarm is
// Critical or worse outside the GPS/Telemetry whitelist, if thrust mode is
// an altitude-hold mode, if GPS-assist is selected in a manual flight mode,
// or if AlwaysStabilizeWhenArmed is set in a manual flight mode.
func OkToArm(table *alarms.Table, thrustIsAltitudeHold, gpsAssistInManualMode, alwaysStabilizeInManualMode bool) bool {
	if table.BlocksArming() {
		return false
	}
	if thrustIsAltitudeHold {
		return false
	}
	if gpsAssistInManualMode {
		return false
	}
	if alwaysStabilizeInManualMode {
		return false
	}
	return true
}

// ForcedDisarm implements spec.md §4.8's forced_disarm(): guidance or
// receiver reaching Critical forces an immediate disarm regardless of
// gesture state.
func ForcedDisarm(guidance, receiver alarms.Level) bool {
	return guidance >= alarms.Critical || receiver >= alarms.Critical
}
