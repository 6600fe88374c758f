// Package stabilization implements the two-stage stabilization cascade of
// spec.md §4.6: an outer attitude loop producing a rate target per axis, and
// an inner rate loop driving the actuator mixer, with the full per-axis
// outer/inner mode matrix.
//
// Grounded on CameronSima-CAMSim's fcs_components.go component-struct style
// (small typed struct + Execute/Reset methods) and LibrePilot's
// Modules/Stabilization/stabilization.c mode switch semantics, since the
// teacher itself never implements cascaded PID control.
package stabilization

import (
	"math"

	"flightcore/internal/mathkernel"
)

// OuterMode selects one axis's attitude-loop behavior.
type OuterMode int

const (
	OuterDirect OuterMode = iota
	OuterDirectWithLimits
	OuterAttitude
	OuterRattitude
	OuterWeakLeveling
)

// InnerMode selects one axis's rate-loop behavior.
type InnerMode int

const (
	InnerRate InnerMode = iota
	InnerAxisLock
	InnerVirtualFlybar
	InnerAcro
	InnerSystemIdent
	InnerCruiseControl
	InnerDirect
)

// ThrustMode selects the thrust axis's controller.
type ThrustMode int

const (
	ThrustDirect ThrustMode = iota
	ThrustAltitude
	ThrustAltitudeVario
)

// rattitudeCrossover is the stick magnitude at which Rattitude starts
// blending from Attitude toward Rate (pure Rate is reached at full stick),
// spec.md §4.6's fixed 0.618033989 transition value
// (the golden-ratio crossover LibrePilot's stabilization.c hardcodes).
const rattitudeCrossover = 0.618033989

// AxisConfig is one axis's configured gain set and mode-specific limits.
type AxisConfig struct {
	OuterMode OuterMode
	InnerMode InnerMode

	OuterPID mathkernel.PID // attitude-error PI (Kd normally 0)
	InnerPID mathkernel.PID // rate-error PID

	MaxAngleDeg          float64 // DirectWithLimits clamp
	WeakLevelingKp        float64
	MaxWeakLevelingRate   float64
	AttitudeFeedForward   float64
	InsanityFactor        float64 // Acro rate scale
	MaxPowerFactor        float64 // CruiseControl clamp
}

// Axis is one roll/pitch/yaw stabilization channel: its configuration plus
// the state mode-transition hysteresis needs to carry across ticks.
type Axis struct {
	Config AxisConfig

	limitLatched bool // DirectWithLimits hysteresis
	lastOuter    OuterMode
	lastInner    InnerMode

	axisLockTarget float64 // AxisLock heading-hold accumulator
	ffFiltered     float64 // feed-forward low-pass state
}

// NewAxis returns an Axis ready to run, with both PID integrators clear.
func NewAxis(cfg AxisConfig) *Axis {
	a := &Axis{Config: cfg, lastOuter: cfg.OuterMode, lastInner: cfg.InnerMode}
	return a
}

// resetOnModeChange implements spec.md §4.6 "when a per-axis mode changes,
// the PID integrator on that axis is reset to zero."
func (a *Axis) resetOnModeChange() {
	if a.Config.OuterMode != a.lastOuter || a.Config.InnerMode != a.lastInner {
		a.Config.OuterPID.Reset()
		a.Config.InnerPID.Reset()
		a.limitLatched = false
		a.lastOuter = a.Config.OuterMode
		a.lastInner = a.Config.InnerMode
	}
}

// ForceReinit implements the re-arm-on-next-tick rule triggered by an arming
// transition away from Armed, or low throttle with LowThrottleZeroIntegral.
func (a *Axis) ForceReinit() {
	a.Config.OuterPID.Reset()
	a.Config.InnerPID.Reset()
	a.limitLatched = false
}

// OuterStep computes the rate target for this axis given the stick-desired
// angle, the current measured angle, the raw stick input in
// [-1,1] (for Rattitude blending and WeakLeveling's manual-rate pass-
// through), and Δt. filteredGyroDegS is the feed-forward term subtracted
// from the attitude error before the PI step.
func (a *Axis) OuterStep(desiredAngleDeg, measuredAngleDeg, stick, filteredGyroDegS, dt float64) float64 {
	a.resetOnModeChange()

	switch a.Config.OuterMode {
	case OuterDirect:
		return desiredAngleDeg

	case OuterDirectWithLimits:
		limit := a.Config.MaxAngleDeg
		pastLimit := math.Abs(measuredAngleDeg) >= limit
		pushingFurther := (measuredAngleDeg >= limit && stick > 0) || (measuredAngleDeg <= -limit && stick < 0)
		if pastLimit && pushingFurther {
			a.limitLatched = true
		} else if math.Abs(stick) < 1e-6 {
			a.limitLatched = false
		}
		if a.limitLatched {
			return a.attitudeRate(math.Copysign(limit, measuredAngleDeg), measuredAngleDeg, filteredGyroDegS, dt)
		}
		return desiredAngleDeg

	case OuterAttitude:
		return a.attitudeRate(desiredAngleDeg, measuredAngleDeg, filteredGyroDegS, dt)

	case OuterRattitude:
		rateTarget := stick * a.Config.MaxAngleDeg // manual rate pass-through scale
		attitudeTarget := a.attitudeRate(desiredAngleDeg, measuredAngleDeg, filteredGyroDegS, dt)
		m := rattitudeWeight(stick)
		return m*rateTarget + (1-m)*attitudeTarget

	case OuterWeakLeveling:
		attitudeErr := mathkernel.WrapDeg180(desiredAngleDeg - measuredAngleDeg)
		correction := attitudeErr * a.Config.WeakLevelingKp
		correction = clamp(correction, a.Config.MaxWeakLevelingRate)
		return stick + correction
	}
	return 0
}

// attitudeRate runs the Attitude outer mode's PI step, applying feed-forward
// subtraction first (spec.md §4.6: "subtract filtered_gyro *
// AttitudeFeedForward from the attitude error before the PI step").
func (a *Axis) attitudeRate(desiredAngleDeg, measuredAngleDeg, filteredGyroDegS, dt float64) float64 {
	attitudeErr := mathkernel.WrapDeg180(desiredAngleDeg - measuredAngleDeg)
	attitudeErr -= filteredGyroDegS * a.Config.AttitudeFeedForward
	return a.Config.OuterPID.Step(attitudeErr, measuredAngleDeg, dt)
}

// rattitudeWeight maps a stick magnitude in [-1,1] into the Rate/Attitude
// blend weight m in [0,1], piecewise-linear with the crossover at
// rattitudeCrossover so the mode transition feels linear to the pilot,
// matching LibrePilot's stabilization.c rattitude remap.
func rattitudeWeight(stick float64) float64 {
	mag := math.Abs(stick)
	if mag >= rattitudeCrossover {
		frac := (mag - rattitudeCrossover) / (1 - rattitudeCrossover)
		return math.Min(1, frac)
	}
	return 0
}

// InnerStep computes the actuator command for this axis given the rate
// target and the measured rate over Δt. attitudeAngleDeg and thrust are
// accepted but not used by any mode; InnerCruiseControl runs the same rate
// PID as InnerRate and does not scale thrust.
func (a *Axis) InnerStep(rateTarget, measuredRate, attitudeAngleDeg, thrust, dt float64) float64 {
	switch a.Config.InnerMode {
	case InnerRate, InnerSystemIdent:
		rateErr := rateTarget - measuredRate
		return a.Config.InnerPID.Step(rateErr, measuredRate, dt)

	case InnerDirect:
		return rateTarget

	case InnerAxisLock:
		if math.Abs(rateTarget) < 1e-3 {
			a.axisLockTarget += measuredRate * dt
		} else {
			a.axisLockTarget = 0
		}
		rateErr := rateTarget - measuredRate
		if math.Abs(rateTarget) < 1e-3 {
			rateErr = -a.axisLockTarget/dt - measuredRate
		}
		return a.Config.InnerPID.Step(rateErr, measuredRate, dt)

	case InnerVirtualFlybar:
		rateErr := rateTarget - measuredRate
		out := a.Config.InnerPID.Step(rateErr, measuredRate, dt)
		return out

	case InnerAcro:
		insane := a.Config.InsanityFactor
		scaled := rateTarget * (1 + insane*math.Abs(rateTarget))
		rateErr := scaled - measuredRate
		return a.Config.InnerPID.Step(rateErr, measuredRate, dt)

	case InnerCruiseControl:
		rateErr := rateTarget - measuredRate
		return a.Config.InnerPID.Step(rateErr, measuredRate, dt)
	}
	return 0
}

// CruiseControlThrustScale returns the CruiseControl thrust multiplier that
// keeps vertical thrust constant through a banked attitude (InnerStep does
// not apply it; it is a separate call for the thrust path): the
// inverse of the attitude cosine, clamped at MaxPowerFactor so a
// near-90-degree bank doesn't demand unbounded thrust.
func (a *Axis) CruiseControlThrustScale(attitudeAngleDeg float64) float64 {
	cos := math.Cos(attitudeAngleDeg * math.Pi / 180)
	if cos < 0.1 {
		cos = 0.1
	}
	return math.Min(1/cos, a.Config.MaxPowerFactor)
}

func clamp(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
