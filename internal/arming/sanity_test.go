package arming

import "testing"

func okSlot() FlightModeSlot {
	return FlightModeSlot{Roll: ModeAttitude, Pitch: ModeAttitude, Yaw: ModeRattitude, Thrust: ModeManual}
}

func baseInput() SanityInput {
	return SanityInput{
		Multirotor:       true,
		GPSAssisted:      []bool{false},
		FlightModes:      []FlightModeSlot{okSlot()},
		ThrottleRangeRaw: 800,
	}
}

func TestCheckConfigurationPassesHealthyInput(t *testing.T) {
	r := CheckConfiguration(baseInput())
	if r.Severity != 1 { // alarms.Ok
		t.Fatalf("expected Ok, got %v (%s)", r.Severity, r.Reason)
	}
}

func TestManualModeForbiddenOnMultirotor(t *testing.T) {
	in := baseInput()
	in.FlightModes[0].Roll = ModeManual
	r := CheckConfiguration(in)
	if r.Severity != 4 || r.SlotIndex != 0 { // alarms.Critical
		t.Fatalf("expected Critical at slot 0, got %v slot=%d", r.Severity, r.SlotIndex)
	}
}

func TestGPSAssistRequiresMultirotor(t *testing.T) {
	in := baseInput()
	in.Multirotor = false
	in.FlightModes[0] = FlightModeSlot{Roll: ModeAttitude, Pitch: ModeAttitude, Yaw: ModeAttitude, Thrust: ModeManual}
	in.GPSAssisted[0] = true
	r := CheckConfiguration(in)
	if r.Severity != 4 {
		t.Fatalf("expected Critical, got %v", r.Severity)
	}
}

func TestGPSAssistRequiresAttitudeOrRattitudeOnRollPitch(t *testing.T) {
	in := baseInput()
	in.GPSAssisted[0] = true
	in.FlightModes[0].Roll = ModeAcro
	r := CheckConfiguration(in)
	if r.Severity != 4 {
		t.Fatalf("expected Critical, got %v", r.Severity)
	}
}

func TestAltitudeHoldForbiddenOnCopterControl(t *testing.T) {
	in := baseInput()
	in.CopterControlBoard = true
	in.FlightModes[0].Thrust = ModeAltitudeHold
	r := CheckConfiguration(in)
	if r.Severity != 4 {
		t.Fatalf("expected Critical, got %v", r.Severity)
	}
}

func TestAltitudeModeForbiddenOffThrustAxis(t *testing.T) {
	in := baseInput()
	in.FlightModes[0].Roll = ModeAltitudeHold
	r := CheckConfiguration(in)
	if r.Severity != 4 {
		t.Fatalf("expected Critical, got %v", r.Severity)
	}
}

func TestAcroForbiddenWithCruiseControlThrust(t *testing.T) {
	in := baseInput()
	in.FlightModes[0].Thrust = ModeCruiseControl
	in.FlightModes[0].Yaw = ModeAcro
	r := CheckConfiguration(in)
	if r.Severity != 4 {
		t.Fatalf("expected Critical, got %v", r.Severity)
	}
}

func TestThrustModeRestrictedToAllowedSet(t *testing.T) {
	in := baseInput()
	in.FlightModes[0].Thrust = ModeAcro
	r := CheckConfiguration(in)
	if r.Severity != 4 {
		t.Fatalf("expected Critical, got %v", r.Severity)
	}
}

func TestThrottleRangeTooNarrowRaisesCritical(t *testing.T) {
	in := baseInput()
	in.ThrottleRangeRaw = 200
	r := CheckConfiguration(in)
	if r.Severity != 4 {
		t.Fatalf("expected Critical, got %v", r.Severity)
	}
}

func TestDisableSanityChecksDowngradesToWarning(t *testing.T) {
	in := baseInput()
	in.FlightModes[0].Roll = ModeManual
	in.DisableSanityChecks = true
	r := CheckConfiguration(in)
	if r.Severity != 2 { // alarms.Warning
		t.Fatalf("expected Warning, got %v", r.Severity)
	}
}

func TestCustomHookCanRaiseCritical(t *testing.T) {
	in := baseInput()
	in.CustomHookCritical = true
	r := CheckConfiguration(in)
	if r.Severity != 4 {
		t.Fatalf("expected Critical from custom hook, got %v", r.Severity)
	}
}

func TestFirstOffendingSlotIsStored(t *testing.T) {
	in := baseInput()
	in.FlightModes = append(in.FlightModes, FlightModeSlot{Roll: ModeManual, Pitch: ModeAttitude, Yaw: ModeAttitude, Thrust: ModeManual})
	in.GPSAssisted = append(in.GPSAssisted, false)
	in.FlightModes[0].Roll = ModeManual
	r := CheckConfiguration(in)
	if r.SlotIndex != 0 {
		t.Fatalf("expected first offending slot index 0, got %d", r.SlotIndex)
	}
}

func TestAssistModeRequiresMultirotor(t *testing.T) {
	in := baseInput()
	in.Multirotor = false
	in.FlightModes[0].Assist = AssistCourseLock
	r := CheckConfiguration(in)
	if r.Severity != 4 {
		t.Fatalf("expected Critical for assist mode on non-multirotor, got %v", r.Severity)
	}
}

func TestAssistModeRequiresGPSAssistedSlot(t *testing.T) {
	in := baseInput()
	in.FlightModes[0].Assist = AssistVelocityRoam
	in.GPSAssisted[0] = false
	r := CheckConfiguration(in)
	if r.Severity != 4 {
		t.Fatalf("expected Critical for assist mode without GPS-assisted position data, got %v", r.Severity)
	}
}

func TestAssistModePassesWithGPSAssistedMultirotorSlot(t *testing.T) {
	in := baseInput()
	in.FlightModes[0].Assist = AssistGPSAssist
	in.FlightModes[0].Roll = ModeAttitude
	in.FlightModes[0].Pitch = ModeAttitude
	in.GPSAssisted[0] = true
	r := CheckConfiguration(in)
	if r.Severity != 1 {
		t.Fatalf("expected Ok, got %v (%s)", r.Severity, r.Reason)
	}
}
