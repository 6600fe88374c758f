package pathfollower

import (
	"testing"

	"flightcore/internal/alarms"
)

type fakeController struct {
	activated, deactivated, ticked int
}

func (f *fakeController) Activate()       { f.activated++ }
func (f *fakeController) Deactivate()     { f.deactivated++ }
func (f *fakeController) UpdateAutoPilot() { f.ticked++ }

func newDispatcherWithFakes() (*Dispatcher, map[ControllerKind]*fakeController) {
	fakes := map[ControllerKind]*fakeController{
		ControllerBrake:       {},
		ControllerVelocity:    {},
		ControllerFly:         {},
		ControllerLand:        {},
		ControllerAutoTakeoff: {},
		ControllerGroundDrive: {},
	}
	controllers := make(map[ControllerKind]Controller, len(fakes))
	for k, v := range fakes {
		controllers[k] = v
	}
	return New(alarms.NewTable(), controllers), fakes
}

func TestPathFollowerInactiveClearsControllerAndRaisesUninitialised(t *testing.T) {
	d, fakes := newDispatcherWithFakes()
	d.Tick(true, FrameMultirotor, ModeBrake, [3]float64{})
	if fakes[ControllerBrake].activated != 1 {
		t.Fatalf("expected brake controller activated")
	}
	d.Tick(false, FrameMultirotor, ModeBrake, [3]float64{})
	if fakes[ControllerBrake].deactivated != 1 {
		t.Fatalf("expected brake controller deactivated when path inactive")
	}
	if d.alarms.Get(alarms.Guidance) != alarms.Uninitialised {
		t.Fatalf("expected Guidance=Uninitialised")
	}
}

func TestMultirotorBrakeSelectsBrakeController(t *testing.T) {
	d, fakes := newDispatcherWithFakes()
	d.Tick(true, FrameMultirotor, ModeBrake, [3]float64{})
	if d.Active() != ControllerBrake {
		t.Fatalf("expected ControllerBrake active, got %v", d.Active())
	}
	if fakes[ControllerBrake].ticked != 1 {
		t.Fatalf("expected one UpdateAutoPilot tick")
	}
}

func TestFixedWingDropsBrakeAndVelocity(t *testing.T) {
	d, _ := newDispatcherWithFakes()
	d.Tick(true, FrameFixedWing, ModeBrake, [3]float64{})
	if d.Active() != ControllerNone {
		t.Fatalf("expected no controller selected for fixed-wing Brake mode, got %v", d.Active())
	}
	if d.alarms.Get(alarms.Guidance) != alarms.Error {
		t.Fatalf("expected Guidance=Error for the unmatched default mode, got %v", d.alarms.Get(alarms.Guidance))
	}
}

func TestGroundOnlySupportsTrajectoryModes(t *testing.T) {
	d, fakes := newDispatcherWithFakes()
	d.Tick(true, FrameGround, ModeFollowVector, [3]float64{})
	if d.Active() != ControllerGroundDrive {
		t.Fatalf("expected ControllerGroundDrive, got %v", d.Active())
	}
	if fakes[ControllerGroundDrive].activated != 1 {
		t.Fatalf("expected ground drive controller activated")
	}
}

func TestModeChangeDeactivatesAndReselects(t *testing.T) {
	d, fakes := newDispatcherWithFakes()
	d.Tick(true, FrameMultirotor, ModeBrake, [3]float64{})
	d.Tick(true, FrameMultirotor, ModeVelocity, [3]float64{})
	if fakes[ControllerBrake].deactivated != 1 {
		t.Fatalf("expected brake controller deactivated on mode change")
	}
	if d.Active() != ControllerVelocity {
		t.Fatalf("expected velocity controller active, got %v", d.Active())
	}
}

func TestFrameChangeReinitializesControllersOnce(t *testing.T) {
	d, fakes := newDispatcherWithFakes()
	d.Tick(true, FrameMultirotor, ModeGotoEndpoint, [3]float64{})
	d.Tick(true, FrameFixedWing, ModeGotoEndpoint, [3]float64{})
	if fakes[ControllerFly].deactivated != 1 {
		t.Fatalf("expected fly controller deactivated exactly once on frame change")
	}
	if fakes[ControllerFly].activated != 2 {
		t.Fatalf("expected fly controller reactivated for the new frame, got %d activations", fakes[ControllerFly].activated)
	}
}

func TestFixedAttitudeWritesCannedStabilizationDesired(t *testing.T) {
	d, _ := newDispatcherWithFakes()
	var got [3]float64
	d.WriteFixedAttitude = func(p [3]float64) { got = p }
	d.Tick(true, FrameMultirotor, ModeFixedAttitude, [3]float64{1, 2, 3})
	if got != [3]float64{1, 2, 3} {
		t.Fatalf("expected fixed-attitude params forwarded, got %v", got)
	}
	if d.alarms.Get(alarms.Guidance) != alarms.Ok {
		t.Fatalf("expected Guidance=Ok for FixedAttitude mode")
	}
}

func TestDisarmAlarmModeRaisesCritical(t *testing.T) {
	d, _ := newDispatcherWithFakes()
	d.Tick(true, FrameMultirotor, ModeDisarmAlarm, [3]float64{})
	if d.alarms.Get(alarms.Guidance) != alarms.Critical {
		t.Fatalf("expected Guidance=Critical for DisarmAlarm mode, got %v", d.alarms.Get(alarms.Guidance))
	}
}
