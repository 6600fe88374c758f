// Package estimator implements the complementary-filter attitude estimate of
// spec.md §4.5: gyro-rate quaternion integration corrected toward gravity by
// the accelerometer vector, with integral gyro-bias learning and a
// startup bootstrap window of aggressive correction gains.
//
// Grounded on LibrePilot's flight/Modules/Attitude/attitude.c
// (updateAttitude, updateSensorsCC3D) and CoordinateConversions.c
// (Quaternion2RPY / CrossProduct), translated from its FreeRTOS task loop
// into a single Step call driven by the scheduler of internal/scheduler.
package estimator

import (
	"math"
	"time"

	"flightcore/internal/alarms"
	"flightcore/internal/mathkernel"
)

// Gains are the complementary filter's correction coefficients, matching
// AttitudeSettings.AccelKp/AccelKi/YawBiasRate.
type Gains struct {
	AccelKp       float64
	AccelKi       float64
	YawBiasRate   float64
	BiasCorrect   bool
	ZeroOnArming  bool
}

// BootstrapGains are the fixed aggressive gains forced during the startup
// window, matching attitude.c's hardcoded accelKp=1, accelKi=0.9,
// yawBiasRate=0.23 while xTaskGetTickCount() < 7000.
var BootstrapGains = Gains{AccelKp: 1, AccelKi: 0.9, YawBiasRate: 0.23, BiasCorrect: true}

// BootstrapWindow is the duration after start during which BootstrapGains
// override the configured gains, matching attitude.c's 7000 ms constant.
const BootstrapWindow = 7 * time.Second

// MaxTrimFlightSamples caps the trim-flight accumulator, matching
// attitude.c's MAX_TRIM_FLIGHT_SAMPLES.
const MaxTrimFlightSamples = 65535

// stdGravity is the magnitude folded into the Z bias on LoadTrim, matching
// attitude.c's assumption that a trimmed, level hover reads (0, 0, -g).
const stdGravity = 9.80665

// AccelCalibration holds the per-chip accelerometer bias (raw units) and
// scale (engineering-units-per-raw-unit) applied before fusion, matching
// the "Accelerometer calibration (bias, scale)" record of spec.md §3.
type AccelCalibration struct {
	Bias  mathkernel.Vector3
	Scale mathkernel.Vector3
}

// Estimator holds the running quaternion estimate and gyro bias integrator.
type Estimator struct {
	gains    Gains
	accelCal AccelCalibration
	q        mathkernel.Quaternion
	biasCorr mathkernel.Vector3 // gyro_correct_int

	startedAt time.Time
	lastStep  time.Time
	started   bool

	// FIFORemaining surfaces the CC3D gyro-FIFO backlog count observed on
	// the most recent sample — the Open Question resolution of spec.md §9:
	// this is a distinct diagnostic field, never conflated with actual
	// sensor temperature. Populated by StepFIFO.
	FIFORemaining int

	trimRequested bool
	trimSum       mathkernel.Vector3
	trimCount     int
}

// New returns an Estimator with the quaternion initialized to identity
// (wings level, nose north), zero accumulated bias, and unity accel scale.
func New(gains Gains) *Estimator {
	return &Estimator{
		gains:    gains,
		q:        mathkernel.Identity,
		accelCal: AccelCalibration{Scale: mathkernel.Vector3{X: 1, Y: 1, Z: 1}},
	}
}

// SetAccelCalibration installs the persisted accelerometer bias/scale,
// matching attitude.c reloading AccelGyroSettings on settings change.
func (e *Estimator) SetAccelCalibration(cal AccelCalibration) {
	e.accelCal = cal
}

// BeginTrim starts (or restarts) trim-flight accumulation: while armed and
// above zero throttle, the caller feeds Step and the corrected accel sample
// is accumulated toward a new bias estimate, matching attitude.c's
// trim_requested path.
func (e *Estimator) BeginTrim() {
	e.trimRequested = true
	e.trimSum = mathkernel.Vector3{}
	e.trimCount = 0
}

// LoadTrim folds the accumulated trim-flight average back into the accel
// bias (Z averages toward -g, since a trimmed level hover should read
// (0, 0, -g)) and stops accumulation, matching attitude.c's TrimFlight=Load
// command.
func (e *Estimator) LoadTrim() {
	e.trimRequested = false
	if e.trimCount == 0 {
		return
	}
	avg := e.trimSum.Scale(1 / float64(e.trimCount))
	e.accelCal.Bias.X += avg.X
	e.accelCal.Bias.Y += avg.Y
	e.accelCal.Bias.Z += avg.Z + stdGravity
	e.trimSum = mathkernel.Vector3{}
	e.trimCount = 0
}

// Attitude returns the current quaternion estimate.
func (e *Estimator) Attitude() mathkernel.Quaternion {
	return e.q
}

// Reset reinitializes the quaternion to identity and clears the bias
// integrator; the next Step restarts the bootstrap window. LoadTrim does not
// call it. Accel calibration survives a Reset; only BeginTrim restarts the
// trim accumulator.
func (e *Estimator) Reset() {
	e.q = mathkernel.Identity
	e.biasCorr = mathkernel.Vector3{}
	e.started = false
}

// activeGains returns BootstrapGains during the startup window or while
// arming with ZeroOnArming set, and the configured gains otherwise —
// attitude.c's accelKp/accelKi/yawBiasRate reload logic.
func (e *Estimator) activeGains(now time.Time, armingInProgress bool) Gains {
	if !e.started {
		return e.gains
	}
	if now.Sub(e.startedAt) < BootstrapWindow {
		return BootstrapGains
	}
	if e.gains.ZeroOnArming && armingInProgress {
		return BootstrapGains
	}
	return e.gains
}

// Step fuses one (gyro deg/s, accel m/s^2) sample pair into the attitude
// estimate. armingInProgress selects the bootstrap gains when the caller's
// arming state machine is mid-ARMING and ZeroOnArming is configured
// (spec.md §9). It returns the severity for the Attitude alarm slot
// (alarms.Ok when nothing is wrong).
func (e *Estimator) Step(now time.Time, gyroDegS, accel mathkernel.Vector3, armingInProgress bool) alarms.Level {
	if !e.started {
		e.started = true
		e.startedAt = now
		e.lastStep = now
		return alarms.Ok
	}

	dt := now.Sub(e.lastStep).Seconds()
	if dt <= 0 {
		dt = 0.001
	}
	e.lastStep = now

	gains := e.activeGains(now, armingInProgress)

	accel = mathkernel.Vector3{
		X: (accel.X - e.accelCal.Bias.X) * e.accelCal.Scale.X,
		Y: (accel.Y - e.accelCal.Bias.Y) * e.accelCal.Scale.Y,
		Z: (accel.Z - e.accelCal.Bias.Z) * e.accelCal.Scale.Z,
	}
	if e.trimRequested && e.trimCount < MaxTrimFlightSamples {
		e.trimSum = e.trimSum.Add(accel)
		e.trimCount++
	}

	accelMag := accel.Norm()
	if accelMag < 1e-6 {
		return alarms.Warning
	}

	// Rotate the body-frame gravity reference through the current estimate
	// and cross it with the measured accel vector — attitude.c's grot/
	// CrossProduct block, expressed via RotateVector on the down unit
	// vector for the same result with named operations.
	down := mathkernel.Vector3{X: 0, Y: 0, Z: -1}
	grot := e.q.Inverse().RotateVector(down)
	accelErr := accel.Cross(grot)
	accelErr = accelErr.Scale(1 / accelMag)

	e.biasCorr.X += accelErr.X * gains.AccelKi
	e.biasCorr.Y += accelErr.Y * gains.AccelKi
	e.biasCorr.Z += -gyroDegS.Z * gains.YawBiasRate

	gyro := gyroDegS
	if gains.BiasCorrect {
		gyro = gyro.Add(e.biasCorr)
	}
	gyro.X += accelErr.X * gains.AccelKp / dt
	gyro.Y += accelErr.Y * gains.AccelKp / dt
	gyro.Z += accelErr.Z * gains.AccelKp / dt

	q := e.q
	rad := math.Pi / 180
	qdot := mathkernel.Quaternion{
		W: (-q.X*gyro.X - q.Y*gyro.Y - q.Z*gyro.Z) * dt * rad / 2,
		X: (q.W*gyro.X - q.Z*gyro.Y + q.Y*gyro.Z) * dt * rad / 2,
		Y: (q.Z*gyro.X + q.W*gyro.Y - q.X*gyro.Z) * dt * rad / 2,
		Z: (-q.Y*gyro.X + q.X*gyro.Y + q.W*gyro.Z) * dt * rad / 2,
	}
	q.W += qdot.W
	q.X += qdot.X
	q.Y += qdot.Y
	q.Z += qdot.Z
	q = q.Canonicalize()

	normalized, ok := q.Normalize()
	if !ok {
		e.q = mathkernel.Identity
		return alarms.Error
	}
	e.q = normalized
	return alarms.Ok
}

// StepFIFO drains one batch of gyro/accel samples as pulled off the CC3D
// sensor FIFO in a single update tick, averaging them before fusing and
// recording how many samples were left unread afterward in FIFORemaining
// — attitude.c's updateSensorsCC3D, which pulls every queued sample pair
// out of the FIFO each tick and averages them rather than fusing only the
// newest one.
func (e *Estimator) StepFIFO(now time.Time, gyroSamples, accelSamples []mathkernel.Vector3, fifoRemaining int, armingInProgress bool) alarms.Level {
	n := len(gyroSamples)
	if len(accelSamples) < n {
		n = len(accelSamples)
	}
	if n == 0 {
		return alarms.Warning
	}

	var gyroSum, accelSum mathkernel.Vector3
	for i := 0; i < n; i++ {
		gyroSum = gyroSum.Add(gyroSamples[i])
		accelSum = accelSum.Add(accelSamples[i])
	}
	e.FIFORemaining = fifoRemaining
	return e.Step(now, gyroSum.Scale(1/float64(n)), accelSum.Scale(1/float64(n)), armingInProgress)
}
