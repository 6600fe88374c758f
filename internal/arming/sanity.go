package arming

import "flightcore/internal/alarms"

// Mode is one axis's configured stabilization mode, matching
// FlightModeSettings.Stabilization<N>Settings' enum options. Only the
// handful relevant to sanity checking are named here.
type Mode int

const (
	ModeManual Mode = iota
	ModeAttitude
	ModeRattitude
	ModeAltitudeHold
	ModeAltitudeVario
	ModeCruiseControl
	ModeAcro
	ModeOther
)

// AssistMode is a flight-mode slot's configured position-assist behavior,
// matching FlightModeSettings.Stabilization<N>Settings.FlightModeAssistMap.
type AssistMode int

const (
	AssistNone AssistMode = iota
	AssistCourseLock
	AssistVelocityRoam
	AssistHomeLeash
	AssistAbsolutePosition
	AssistGPSAssist
)

// FlightModeSlot is one flight-mode-switch position's configured axis modes:
// Roll, Pitch, Yaw, Thrust — matching the FlightModeSettingsStabilizationN
// fixed four-element layout — plus its assist mode.
type FlightModeSlot struct {
	Roll, Pitch, Yaw, Thrust Mode
	Assist                   AssistMode
}

// SanityInput is everything configuration_check() reads, collected up
// front so the check itself stays a pure function.
type SanityInput struct {
	Multirotor          bool
	CopterControlBoard  bool
	GPSAssisted          []bool // per flight-mode slot
	FlightModes          []FlightModeSlot
	ThrottleRangeRaw     float64 // max-min raw throttle/collective channel units
	DisableSanityChecks  bool
	CustomHookCritical   bool // any plugin-registered hook raised Critical
}

// SanityResult is configuration_check()'s (severity, status, substatus).
type SanityResult struct {
	Severity  alarms.Level
	SlotIndex int // index into FlightModes of the first offending slot, -1 if none
	Reason    string
}

// CheckConfiguration implements spec.md §4.9's pre-arm sanity check.
func CheckConfiguration(in SanityInput) SanityResult {
	result := SanityResult{Severity: alarms.Ok, SlotIndex: -1}

	raise := func(idx int, reason string) {
		if result.Severity == alarms.Ok {
			result.Severity = alarms.Critical
			result.SlotIndex = idx
			result.Reason = reason
		}
	}

	for i, slot := range in.FlightModes {
		gpsAssisted := i < len(in.GPSAssisted) && in.GPSAssisted[i]

		if in.Multirotor {
			if slot.Roll == ModeManual || slot.Pitch == ModeManual || slot.Yaw == ModeManual {
				raise(i, "manual mode is forbidden on multirotors")
			}
		}
		if gpsAssisted {
			if !in.Multirotor {
				raise(i, "GPS-assisted modes require a multirotor with a nav-capable fusion algorithm")
			}
			for _, m := range []Mode{slot.Roll, slot.Pitch} {
				if m != ModeAttitude && m != ModeRattitude {
					raise(i, "GPS-assisted flight requires Attitude or Rattitude on roll/pitch")
				}
			}
		}
		if in.CopterControlBoard && (slot.Thrust == ModeAltitudeHold || slot.Thrust == ModeAltitudeVario) {
			raise(i, "altitude hold is unavailable on CopterControl-class boards")
		}
		for _, m := range []Mode{slot.Roll, slot.Pitch, slot.Yaw} {
			if m == ModeAltitudeHold || m == ModeAltitudeVario {
				raise(i, "altitude modes are restricted to the thrust axis")
			}
		}
		switch slot.Thrust {
		case ModeManual, ModeAltitudeHold, ModeAltitudeVario, ModeCruiseControl:
		default:
			raise(i, "thrust mode must be Manual, AltitudeHold, AltitudeVario, or CruiseControl")
		}
		if slot.Thrust == ModeCruiseControl {
			if slot.Roll == ModeAcro || slot.Pitch == ModeAcro || slot.Yaw == ModeAcro {
				raise(i, "Acro is forbidden with CruiseControl thrust")
			}
		}

		if slot.Assist != AssistNone {
			if !in.Multirotor {
				raise(i, "position-assist modes are only implemented for multirotor airframes")
			}
			switch slot.Assist {
			case AssistCourseLock, AssistVelocityRoam, AssistHomeLeash, AssistAbsolutePosition, AssistGPSAssist:
				if !gpsAssisted {
					raise(i, "position-assist modes require GPS-assisted position data on this slot")
				}
			default:
				raise(i, "unrecognized assist mode")
			}
		}
	}

	if in.ThrottleRangeRaw <= 300 {
		raise(-1, "throttle/collective channel range must exceed 300 raw units")
	}
	if in.CustomHookCritical {
		raise(-1, "a registered configuration hook reported a critical fault")
	}

	if in.DisableSanityChecks && result.Severity == alarms.Critical {
		result.Severity = alarms.Warning
	}
	return result
}
