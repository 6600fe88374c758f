package pathfollower

import (
	"testing"
	"time"

	"flightcore/internal/mathkernel"
)

func TestBrakeControllerLeansAgainstVelocity(t *testing.T) {
	var gotRoll, gotPitch, gotYawRate, gotThrust float64
	out := func(roll, pitch, yawRate, thrust float64) {
		gotRoll, gotPitch, gotYawRate, gotThrust = roll, pitch, yawRate, thrust
	}
	pos := func() (mathkernel.Vector3, mathkernel.Vector3) {
		return mathkernel.Vector3{}, mathkernel.Vector3{X: 2, Y: 0}
	}
	c := NewBrakeController(out, pos)
	c.Activate()
	c.UpdateAutoPilot()
	if gotPitch <= 0 {
		t.Fatalf("expected positive pitch lean to brake forward velocity, got %v", gotPitch)
	}
	if gotRoll != 0 || gotYawRate != 0 || gotThrust != hoverThrust {
		t.Fatalf("expected level roll/yaw and hover thrust, got roll=%v yaw=%v thrust=%v", gotRoll, gotYawRate, gotThrust)
	}
}

func TestVelocityControllerChasesDesiredVelocity(t *testing.T) {
	var gotPitch float64
	out := func(roll, pitch, yawRate, thrust float64) { gotPitch = pitch }
	pos := func() (mathkernel.Vector3, mathkernel.Vector3) {
		return mathkernel.Vector3{}, mathkernel.Vector3{}
	}
	desired := func() mathkernel.Vector3 { return mathkernel.Vector3{X: 1} }
	c := NewVelocityController(out, pos, desired)
	c.UpdateAutoPilot()
	if gotPitch >= 0 {
		t.Fatalf("expected negative (forward) pitch lean to accelerate toward desired velocity, got %v", gotPitch)
	}
}

func TestFlyControllerHeadsTowardWaypoint(t *testing.T) {
	var gotPitch, gotYawRate float64
	out := func(roll, pitch, yawRate, thrust float64) { gotPitch, gotYawRate = pitch, yawRate }
	pos := func() (mathkernel.Vector3, mathkernel.Vector3) {
		return mathkernel.Vector3{}, mathkernel.Vector3{}
	}
	waypoint := func() mathkernel.Vector3 { return mathkernel.Vector3{X: 10} }
	c := NewFlyController(out, pos, waypoint)
	c.UpdateAutoPilot()
	if gotPitch >= 0 {
		t.Fatalf("expected negative (forward) pitch toward a waypoint ahead, got %v", gotPitch)
	}
	if gotYawRate != 0 {
		t.Fatalf("expected zero yaw rate when already on bearing, got %v", gotYawRate)
	}
}

func TestLandControllerDescendsOverTime(t *testing.T) {
	var gotThrust float64
	out := func(roll, pitch, yawRate, thrust float64) { gotThrust = thrust }
	start := time.Now()
	now := start
	clock := func() time.Time { return now }
	c := NewLandController(out, clock)
	c.Activate()
	c.UpdateAutoPilot()
	initial := gotThrust
	now = start.Add(2 * time.Second)
	c.UpdateAutoPilot()
	if gotThrust >= initial {
		t.Fatalf("expected thrust to decrease over time, got %v then %v", initial, gotThrust)
	}
}

func TestAutoTakeoffControllerRampsToHover(t *testing.T) {
	var gotThrust float64
	out := func(roll, pitch, yawRate, thrust float64) { gotThrust = thrust }
	start := time.Now()
	now := start
	clock := func() time.Time { return now }
	c := NewAutoTakeoffController(out, clock, 4*time.Second)
	c.Activate()
	c.UpdateAutoPilot()
	if gotThrust >= hoverThrust {
		t.Fatalf("expected partial thrust immediately after takeoff starts, got %v", gotThrust)
	}
	now = start.Add(10 * time.Second)
	c.UpdateAutoPilot()
	if gotThrust != hoverThrust {
		t.Fatalf("expected full hover thrust once climb duration elapses, got %v", gotThrust)
	}
}

func TestGroundDriveControllerSteersTowardWaypoint(t *testing.T) {
	var gotYawRate, gotThrust float64
	out := func(roll, pitch, yawRate, thrust float64) { gotYawRate, gotThrust = yawRate, thrust }
	pos := func() (mathkernel.Vector3, mathkernel.Vector3) {
		return mathkernel.Vector3{}, mathkernel.Vector3{}
	}
	waypoint := func() mathkernel.Vector3 { return mathkernel.Vector3{X: 0, Y: 5} }
	c := NewGroundDriveController(out, pos, waypoint)
	c.UpdateAutoPilot()
	if gotYawRate <= 0 {
		t.Fatalf("expected positive yaw rate steering toward a waypoint to the side, got %v", gotYawRate)
	}
	if gotThrust <= 0 {
		t.Fatalf("expected nonzero drive throttle, got %v", gotThrust)
	}
}
