package mathkernel

import "math"

// LowPass is a one-pole IIR low-pass filter, in the same
// output += (dt/(tau+dt)) * (input - output) form as the teacher's
// LagFilterComponent (fcs_components.go), generalized to a stateful value
// type usable from the derivative term of PID and from sensor smoothing.
type LowPass struct {
	TimeConstant float64 // tau, seconds; <= 0 disables filtering
	value        float64
	initialized  bool
}

// Reset clears the filter's internal state.
func (lp *LowPass) Reset() {
	lp.value = 0
	lp.initialized = false
}

// Step advances the filter by dt seconds with the given input and returns
// the filtered value.
func (lp *LowPass) Step(input, dt float64) float64 {
	if lp.TimeConstant <= 0 {
		return input
	}
	if !lp.initialized {
		lp.value = input
		lp.initialized = true
		return lp.value
	}
	alpha := dt / (lp.TimeConstant + dt)
	lp.value += alpha * (input - lp.value)
	return lp.value
}

// PID is one PID instance as described in spec.md §3: parallel form with
// derivative-on-measurement, an optional derivative low-pass, and a clamped
// integrator.
type PID struct {
	Kp, Ki, Kd float64
	ILim       float64 // integrator clamp, |i_acc| <= ILim
	Gamma      float64 // derivative gain on the filtered term (0 disables)

	DerivativeFilter LowPass // cutoff set via DerivativeFilter.TimeConstant

	iAcc        float64
	prevMeasure float64
	haveMeasure bool
}

// Reset zeroes the integrator and derivative history; called whenever the
// owning axis changes stabilization mode (spec.md §4.6, invariant §8.5).
func (p *PID) Reset() {
	p.iAcc = 0
	p.prevMeasure = 0
	p.haveMeasure = false
	p.DerivativeFilter.Reset()
}

// IntegratorValue returns the current clamped integrator accumulator,
// |i_acc| <= ILim (spec.md §8 invariant 2).
func (p *PID) IntegratorValue() float64 {
	return p.iAcc
}

// Step runs one PID update: error is setpoint-measurement, measure is the
// raw process variable used for derivative-on-measurement, dt is the
// elapsed time in seconds. Returns the control output.
func (p *PID) Step(err, measure, dt float64) float64 {
	if dt <= 0 {
		dt = 1e-6
	}

	p.iAcc += err * p.Ki * dt
	if p.ILim > 0 {
		p.iAcc = math.Max(-p.ILim, math.Min(p.ILim, p.iAcc))
	}

	var dMeasure float64
	if p.haveMeasure {
		dMeasure = (measure - p.prevMeasure) / dt
	}
	p.prevMeasure = measure
	p.haveMeasure = true

	filtered := p.DerivativeFilter.Step(dMeasure, dt)

	return p.Kp*err + p.iAcc - p.Kd*p.Gamma*filtered
}
