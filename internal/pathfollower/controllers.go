package pathfollower

import (
	"math"
	"time"

	"flightcore/internal/mathkernel"
)

// hoverThrust is the nominal level-hover throttle fraction the controllers
// below ramp toward or away from.
const hoverThrust = 0.5

// attitudeLeanLimitDeg bounds the lean angle any controller below commands,
// matching pathfollower.cpp's per-controller MaxRollPitch clamp.
const attitudeLeanLimitDeg = 15

// Output receives a controller's computed attitude/thrust setpoint — the
// StabilizationDesired bus object the real firmware writes into each tick.
type Output func(rollDeg, pitchDeg, yawRateDegS, thrust float64)

// PositionSource reports the current earth-frame NED position (meters) and
// velocity (m/s), the fields pathfollower.cpp reads from PositionState.
type PositionSource func() (position, velocity mathkernel.Vector3)

func clampLean(deg float64) float64 {
	if deg > attitudeLeanLimitDeg {
		return attitudeLeanLimitDeg
	}
	if deg < -attitudeLeanLimitDeg {
		return -attitudeLeanLimitDeg
	}
	return deg
}

// BrakeController nulls horizontal velocity by commanding a lean
// proportional to the velocity error against zero, matching
// PathFollower/BrakeController.cpp's velocity-nulling behavior.
type BrakeController struct {
	out Output
	pos PositionSource
	kp  float64
}

// NewBrakeController returns a BrakeController that writes through out.
func NewBrakeController(out Output, pos PositionSource) *BrakeController {
	return &BrakeController{out: out, pos: pos, kp: 4.0}
}

func (c *BrakeController) Activate() {}
func (c *BrakeController) Deactivate() {
	c.out(0, 0, 0, hoverThrust)
}
func (c *BrakeController) UpdateAutoPilot() {
	_, vel := c.pos()
	c.out(clampLean(-c.kp*vel.Y), clampLean(c.kp*vel.X), 0, hoverThrust)
}

// VelocityController commands a lean proportional to the error between a
// desired horizontal velocity and the measured one, matching
// PathFollower/VelocityController.cpp.
type VelocityController struct {
	out     Output
	pos     PositionSource
	desired func() mathkernel.Vector3
	kp      float64
}

// NewVelocityController returns a VelocityController that chases the
// velocity desired reports.
func NewVelocityController(out Output, pos PositionSource, desired func() mathkernel.Vector3) *VelocityController {
	return &VelocityController{out: out, pos: pos, desired: desired, kp: 4.0}
}

func (c *VelocityController) Activate() {}
func (c *VelocityController) Deactivate() {
	c.out(0, 0, 0, hoverThrust)
}
func (c *VelocityController) UpdateAutoPilot() {
	_, vel := c.pos()
	want := c.desired()
	errX, errY := want.X-vel.X, want.Y-vel.Y
	c.out(clampLean(c.kp*errY), clampLean(-c.kp*errX), 0, hoverThrust)
}

// FlyController flies toward a waypoint by commanding forward lean scaled
// to remaining distance and a yaw rate toward the bearing, matching
// PathFollower/FixedWingFlyController.cpp generalized to the multirotor
// case the dispatcher also routes here.
type FlyController struct {
	out      Output
	pos      PositionSource
	waypoint func() mathkernel.Vector3
	kpDist   float64
	kpYaw    float64
}

// NewFlyController returns a FlyController steering toward waypoint.
func NewFlyController(out Output, pos PositionSource, waypoint func() mathkernel.Vector3) *FlyController {
	return &FlyController{out: out, pos: pos, waypoint: waypoint, kpDist: 2.0, kpYaw: 0.5}
}

func (c *FlyController) Activate() {}
func (c *FlyController) Deactivate() {
	c.out(0, 0, 0, hoverThrust)
}
func (c *FlyController) UpdateAutoPilot() {
	position, _ := c.pos()
	target := c.waypoint()
	dx, dy := target.X-position.X, target.Y-position.Y
	distance := math.Hypot(dx, dy)
	bearingDeg := math.Atan2(dy, dx) * 180 / math.Pi

	pitchDeg := clampLean(c.kpDist * math.Min(distance, attitudeLeanLimitDeg/c.kpDist))
	c.out(0, -pitchDeg, bearingDeg*c.kpYaw, hoverThrust)
}

// LandController ramps thrust down at a fixed rate from hover, matching
// PathFollower/LandController.cpp's descent-rate ramp.
type LandController struct {
	out         Output
	now         func() time.Time
	startedAt   time.Time
	descentRate float64 // thrust fraction per second
}

// NewLandController returns a LandController descending from activation.
func NewLandController(out Output, now func() time.Time) *LandController {
	return &LandController{out: out, now: now, descentRate: 0.05}
}

func (c *LandController) Activate() { c.startedAt = c.now() }
func (c *LandController) Deactivate() {
	c.out(0, 0, 0, 0)
}
func (c *LandController) UpdateAutoPilot() {
	elapsed := c.now().Sub(c.startedAt).Seconds()
	thrust := math.Max(0, hoverThrust-c.descentRate*elapsed)
	c.out(0, 0, 0, thrust)
}

// AutoTakeoffController ramps thrust from standstill up to hover over a
// fixed climb window, matching PathFollower/AutoTakeoffController.cpp.
type AutoTakeoffController struct {
	out           Output
	now           func() time.Time
	startedAt     time.Time
	climbDuration time.Duration
}

// NewAutoTakeoffController returns an AutoTakeoffController climbing to
// hover over climbDuration.
func NewAutoTakeoffController(out Output, now func() time.Time, climbDuration time.Duration) *AutoTakeoffController {
	return &AutoTakeoffController{out: out, now: now, climbDuration: climbDuration}
}

func (c *AutoTakeoffController) Activate() { c.startedAt = c.now() }
func (c *AutoTakeoffController) Deactivate() {
	c.out(0, 0, 0, hoverThrust)
}
func (c *AutoTakeoffController) UpdateAutoPilot() {
	frac := 1.0
	if c.climbDuration > 0 {
		frac = math.Min(1, c.now().Sub(c.startedAt).Seconds()/c.climbDuration.Seconds())
	}
	c.out(0, 0, 0, hoverThrust*frac)
}

// GroundDriveController steers a ground vehicle toward a waypoint by
// commanding yaw rate toward the bearing and a fixed drive throttle,
// matching PathFollower/GroundDriveController.cpp.
type GroundDriveController struct {
	out      Output
	pos      PositionSource
	waypoint func() mathkernel.Vector3
	kpYaw    float64
}

// NewGroundDriveController returns a GroundDriveController steering toward
// waypoint.
func NewGroundDriveController(out Output, pos PositionSource, waypoint func() mathkernel.Vector3) *GroundDriveController {
	return &GroundDriveController{out: out, pos: pos, waypoint: waypoint, kpYaw: 2.0}
}

func (c *GroundDriveController) Activate() {}
func (c *GroundDriveController) Deactivate() {
	c.out(0, 0, 0, 0)
}
func (c *GroundDriveController) UpdateAutoPilot() {
	position, _ := c.pos()
	target := c.waypoint()
	dx, dy := target.X-position.X, target.Y-position.Y
	bearingDeg := math.Atan2(dy, dx) * 180 / math.Pi
	c.out(0, 0, clampLean(bearingDeg*c.kpYaw), 0.3)
}
