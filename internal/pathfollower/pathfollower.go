// Package pathfollower implements the path-follower dispatcher of spec.md
// §4.7: a single periodic callback that selects and ticks one airframe- and
// path-mode-specific controller.
//
// Grounded on LibrePilot's flight/modules/PathFollower/pathfollower.cpp
// (pathFollowerSetActiveController, pathFollowerTask).
package pathfollower

import "flightcore/internal/alarms"

// FrameClass selects the airframe family, matching FrameType_t.
type FrameClass int

const (
	FrameMultirotor FrameClass = iota
	FrameHeli
	FrameFixedWing
	FrameGround
)

// PathMode selects the desired path behavior, matching PathDesired.Mode.
type PathMode int

const (
	ModeBrake PathMode = iota
	ModeVelocity
	ModeGotoEndpoint
	ModeFollowVector
	ModeCircleLeft
	ModeCircleRight
	ModeLand
	ModeAutoTakeoff
	ModeFixedAttitude
	ModeDisarmAlarm
)

// ControllerKind names which concrete controller a frame/mode pair selects.
type ControllerKind int

const (
	ControllerNone ControllerKind = iota
	ControllerBrake
	ControllerVelocity
	ControllerFly
	ControllerLand
	ControllerAutoTakeoff
	ControllerGroundDrive
)

// Controller is the capability every path controller implements.
type Controller interface {
	Activate()
	Deactivate()
	UpdateAutoPilot()
}

// Dispatcher owns the currently active controller and the rules for
// swapping it in and out.
type Dispatcher struct {
	controllers map[ControllerKind]Controller

	frame           FrameClass
	haveFrame       bool
	activeKind      ControllerKind
	activeCtl       Controller
	lastDesiredMode PathMode
	haveDesiredMode bool

	alarms *alarms.Table

	// WriteFixedAttitude implements the inline, non-controller
	// PATHDESIRED_MODE_FIXEDATTITUDE handling.
	WriteFixedAttitude func(params [3]float64)
}

// New returns a Dispatcher with no controller active.
func New(alarmTable *alarms.Table, controllers map[ControllerKind]Controller) *Dispatcher {
	return &Dispatcher{controllers: controllers, alarms: alarmTable}
}

// selectKind implements pathFollowerSetActiveController's frame/mode
// lookup table.
func selectKind(frame FrameClass, mode PathMode) ControllerKind {
	switch frame {
	case FrameMultirotor, FrameHeli:
		switch mode {
		case ModeBrake:
			return ControllerBrake
		case ModeVelocity:
			return ControllerVelocity
		case ModeGotoEndpoint, ModeFollowVector, ModeCircleLeft, ModeCircleRight:
			return ControllerFly
		case ModeLand:
			return ControllerLand
		case ModeAutoTakeoff:
			return ControllerAutoTakeoff
		}
	case FrameFixedWing:
		switch mode {
		case ModeGotoEndpoint, ModeFollowVector, ModeCircleLeft, ModeCircleRight:
			return ControllerFly
		case ModeLand:
			return ControllerLand
		case ModeAutoTakeoff:
			return ControllerAutoTakeoff
		}
	case FrameGround:
		switch mode {
		case ModeGotoEndpoint, ModeFollowVector, ModeCircleLeft, ModeCircleRight:
			return ControllerGroundDrive
		}
	}
	return ControllerNone
}

// Tick runs one dispatch iteration, matching pathFollowerTask. pathActive
// is flightStatus.ControlChain.PathFollower; frame/mode are the current
// airframe class and PathDesired.Mode; fixedAttitudeParams feeds the
// FixedAttitude non-controller mode.
func (d *Dispatcher) Tick(pathActive bool, frame FrameClass, mode PathMode, fixedAttitudeParams [3]float64) {
	if !pathActive {
		d.clearController()
		d.alarms.Set(alarms.Guidance, alarms.Uninitialised)
		return
	}

	if d.haveFrame && frame != d.frame {
		d.clearController()
	}
	d.frame = frame
	d.haveFrame = true

	if d.haveDesiredMode && mode != d.lastDesiredMode {
		d.clearController()
	}
	d.lastDesiredMode = mode
	d.haveDesiredMode = true

	if d.activeCtl == nil {
		kind := selectKind(frame, mode)
		if kind == ControllerNone {
			d.alarms.Set(alarms.Guidance, alarms.Uninitialised)
		} else if ctl, ok := d.controllers[kind]; ok {
			d.activeKind = kind
			d.activeCtl = ctl
			d.alarms.Set(alarms.Guidance, alarms.Ok)
			ctl.Activate()
		}
	}

	if d.activeCtl != nil {
		d.activeCtl.UpdateAutoPilot()
		return
	}

	switch mode {
	case ModeFixedAttitude:
		if d.WriteFixedAttitude != nil {
			d.WriteFixedAttitude(fixedAttitudeParams)
		}
		d.alarms.Set(alarms.Guidance, alarms.Ok)
	case ModeDisarmAlarm:
		d.alarms.Set(alarms.Guidance, alarms.Critical)
	default:
		d.alarms.Set(alarms.Guidance, alarms.Error)
	}
}

func (d *Dispatcher) clearController() {
	if d.activeCtl != nil {
		d.activeCtl.Deactivate()
	}
	d.activeKind = ControllerNone
	d.activeCtl = nil
}

// Active returns the currently active controller kind, for tests/telemetry.
func (d *Dispatcher) Active() ControllerKind {
	return d.activeKind
}
