// Command flightcore wires the flight control core's modules together into
// a runnable process: config load, the object bus and alarm table, the
// cooperative scheduler's priority workers, the sensor/estimator/
// stabilization/arming/pathfollower/actuator pipeline, and the telemetry
// WebSocket feed.
//
// Grounded on the teacher's own entrypoint shape (CameronSima-CAMSim's
// main.go: open config, build the pipeline, run it) generalized from a
// one-shot JSBSim parse-and-print into a long-running control loop driven
// by internal/scheduler, the way LibrePilot's pios_board.c/taskmonitor.c
// bring every module's task online during boot.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"flightcore/internal/actuator"
	"flightcore/internal/alarms"
	"flightcore/internal/arming"
	"flightcore/internal/bus"
	"flightcore/internal/config"
	"flightcore/internal/estimator"
	"flightcore/internal/mathkernel"
	"flightcore/internal/pathfollower"
	"flightcore/internal/scheduler"
	"flightcore/internal/sensors"
	"flightcore/internal/stabilization"
	"flightcore/internal/telemetry"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	entry := logrus.NewEntry(log)

	cfgLoader := config.NewLoader(configDir(), entry)
	defaults, err := cfgLoader.Load()
	if err != nil {
		log.WithError(err).Fatal("flightcore: loading configuration")
	}
	log.WithFields(logrus.Fields{
		"accel_kp":          defaults.AccelKp,
		"accel_ki":          defaults.AccelKi,
		"receiver_protocol": defaults.ReceiverProtocol,
	}).Info("flightcore: configuration loaded")

	alarmTable := alarms.NewTable()
	objectBus := bus.New()
	objectBus.Register("SystemAlarms", alarmTable.Snapshot())
	objectBus.SetReadOnly("SystemAlarms", true)

	latency := promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flightcore_callback_latency_seconds",
		Help:    "Per-callback execution latency, by worker and callback name.",
		Buckets: prometheus.DefBuckets,
	}, []string{"worker", "callback"})

	attitudeWorker := scheduler.NewWorker("Attitude", entry, latency)
	stabWorker := scheduler.NewWorker("Stabilization", entry, latency)
	go attitudeWorker.Run()
	go stabWorker.Run()
	defer attitudeWorker.Stop()
	defer stabWorker.Stop()

	est := estimator.New(estimator.Gains{
		AccelKp:     defaults.AccelKp,
		AccelKi:     defaults.AccelKi,
		YawBiasRate: defaults.YawBiasRate,
		BiasCorrect: true,
	})

	baro := sensors.NewBarometer(sensors.DefaultBarometerConfig(), simulatedBaroReader())
	mag := sensors.NewMagnetometer(sensors.NewBus(), sensors.OrientEastNorthUp, simulatedMagReader())

	rollAxis := stabilization.NewAxis(defaultAxisConfig())
	pitchAxis := stabilization.NewAxis(defaultAxisConfig())
	yawAxis := stabilization.NewAxis(defaultAxisConfig())

	armingSettings := arming.Settings{
		Arming:                armingSourceFromName(defaults.ArmingSequence),
		ArmingSequenceTime:    durationFromSeconds(defaults.ArmingSeconds),
		DisarmingSequenceTime: durationFromSeconds(defaults.DisarmingSeconds),
		ArmedTimeout:          durationFromSeconds(defaults.ArmedTimeoutSecs),
	}
	armMachine := arming.New(armingSettings)

	sanityInput := func() arming.SanityInput {
		return arming.SanityInput{
			Multirotor:          true,
			FlightModes:         []arming.FlightModeSlot{{Roll: arming.ModeAttitude, Pitch: arming.ModeAttitude, Yaw: arming.ModeOther, Thrust: arming.ModeManual}},
			GPSAssisted:         []bool{false},
			ThrottleRangeRaw:    820,
			DisableSanityChecks: defaults.DisableSanityChecks,
		}
	}
	sanity := arming.CheckConfiguration(sanityInput())
	alarmTable.Set(alarms.SystemConfiguration, sanity.Severity)
	log.WithField("severity", sanity.Severity).Info("flightcore: pre-arm sanity check complete")

	objectBus.Register("FlightModeSettings", nil)
	objectBus.Register("SystemSettings", nil)
	objectBus.Register("StabilizationSettings", nil)
	rechecker := arming.NewRechecker(sanityInput, func(r arming.SanityResult) {
		alarmTable.Set(alarms.SystemConfiguration, r.Severity)
		log.WithField("severity", r.Severity).Info("flightcore: pre-arm sanity recheck complete")
	})
	rechecker.Watch(objectBus)

	var pathRollDeg, pathPitchDeg, pathYawRateDegS, pathThrust float64
	pathOutput := func(rollDeg, pitchDeg, yawRateDegS, thrust float64) {
		pathRollDeg, pathPitchDeg, pathYawRateDegS, pathThrust = rollDeg, pitchDeg, yawRateDegS, thrust
	}
	posSource := simulatedPositionSource()
	waypoint := func() mathkernel.Vector3 { return mathkernel.Vector3{X: 10} }
	desiredVelocity := func() mathkernel.Vector3 { return mathkernel.Vector3{X: 1} }

	pathDispatcher := pathfollower.New(alarmTable, map[pathfollower.ControllerKind]pathfollower.Controller{
		pathfollower.ControllerBrake:       pathfollower.NewBrakeController(pathOutput, posSource),
		pathfollower.ControllerVelocity:    pathfollower.NewVelocityController(pathOutput, posSource, desiredVelocity),
		pathfollower.ControllerFly:         pathfollower.NewFlyController(pathOutput, posSource, waypoint),
		pathfollower.ControllerLand:        pathfollower.NewLandController(pathOutput, now),
		pathfollower.ControllerAutoTakeoff: pathfollower.NewAutoTakeoffController(pathOutput, now, 5*time.Second),
		pathfollower.ControllerGroundDrive: pathfollower.NewGroundDriveController(pathOutput, posSource, waypoint),
	})

	mixer := &actuator.Mixer{Rows: [][4]float64{
		{1, -1, 1, 1},  // front-right
		{-1, 1, 1, 1},  // rear-left
		{1, 1, -1, 1},  // rear-right
		{-1, -1, -1, 1}, // front-left
	}}

	telemetryStreamer := telemetry.NewStreamer(log)
	httpServer := &http.Server{Addr: ":8780", Handler: http.HandlerFunc(telemetryStreamer.HandleWebSocket)}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("flightcore: telemetry server stopped")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// A scheduled callback runs once per Schedule call, so each periodic
	// callback below reschedules itself at the end of every run.
	var rescheduleAttitude, rescheduleStab func()

	attitudeCB := attitudeWorker.Register("updateAttitude", scheduler.PriorityHigh, func() {
		now := time.Now()
		baro.Poll(now)
		mag.Poll(now)

		gyro := mathkernel.Vector3{}    // zero-rate placeholder: no IMU driver is wired in
		accel := mathkernel.Vector3{Z: -9.81}
		level := est.Step(now, gyro, accel, armMachine.State() != arming.Disarmed)
		alarmTable.Escalate(alarms.Attitude, level)
		rescheduleAttitude()
	})
	rescheduleAttitude = func() { attitudeWorker.Schedule(attitudeCB, 4*time.Millisecond, scheduler.ModeOverride) }
	rescheduleAttitude()

	stabCB := stabWorker.Register("stabilizationTick", scheduler.PriorityHigh, func() {
		pathDispatcher.Tick(true, pathfollower.FrameMultirotor, pathfollower.ModeBrake, [3]float64{})

		rollDeg, pitchDeg, yawDeg := est.Attitude().ToEulerDeg()
		dt := 0.004

		rollRate := rollAxis.OuterStep(pathRollDeg, rollDeg, 0, 0, dt)
		pitchRate := pitchAxis.OuterStep(pathPitchDeg, pitchDeg, 0, 0, dt)

		rollOut := rollAxis.InnerStep(rollRate, 0, rollDeg, pathThrust, dt)
		pitchOut := pitchAxis.InnerStep(pitchRate, 0, pitchDeg, pathThrust, dt)
		yawOut := yawAxis.InnerStep(pathYawRateDegS, 0, yawDeg, pathThrust, dt)

		outputs := mixer.Mix(rollOut, pitchOut, yawOut, pathThrust)
		pulseWidths := make([]int, len(outputs))
		for i, v := range outputs {
			pulseWidths[i] = actuator.PulseWidthUS(v)
		}
		log.WithField("pulse_widths_us", pulseWidths).Trace("flightcore: mixer output")

		telemetryStreamer.Broadcast(telemetry.Snapshot{
			Timestamp:   now(),
			RollDeg:     rollDeg,
			PitchDeg:    pitchDeg,
			YawDeg:      yawDeg,
			ArmingState: armMachine.State().String(),
			Alarms:      snapshotAlarms(alarmTable),
		})
		rescheduleStab()
	})
	rescheduleStab = func() { stabWorker.Schedule(stabCB, 4*time.Millisecond, scheduler.ModeOverride) }
	rescheduleStab()

	log.Info("flightcore: running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info("flightcore: shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

func now() time.Time { return time.Now() }

func configDir() string {
	if dir := os.Getenv("FLIGHTCORE_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "."
}

func durationFromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func armingSourceFromName(name string) arming.Source {
	switch name {
	case "RollLeft":
		return arming.SourceRollLeft
	case "RollRight":
		return arming.SourceRollRight
	case "PitchForward":
		return arming.SourcePitchForward
	case "PitchAft":
		return arming.SourcePitchAft
	case "YawLeft":
		return arming.SourceYawLeft
	case "YawRight":
		return arming.SourceYawRight
	case "AlwaysArmed":
		return arming.SourceAlwaysArmed
	default:
		return arming.SourceAlwaysDisarmed
	}
}

func defaultAxisConfig() stabilization.AxisConfig {
	return stabilization.AxisConfig{
		OuterMode: stabilization.OuterAttitude,
		InnerMode: stabilization.InnerRate,
		OuterPID:  mathkernel.PID{Kp: 4.0, Ki: 0, Kd: 0},
		InnerPID:  mathkernel.PID{Kp: 0.01, Ki: 0.02, Kd: 0.0001, ILim: 0.3},
		MaxAngleDeg: 35,
	}
}

func simulatedBaroReader() func(state sensors.BaroPhase) (float64, bool) {
	return func(state sensors.BaroPhase) (float64, bool) {
		switch state {
		case sensors.BaroTemperature:
			return 2000, true // raw counts, ~20C-ish placeholder
		default:
			return 101325, true // raw counts, sea-level-ish placeholder
		}
	}
}

func simulatedMagReader() func() (float64, float64, float64, bool) {
	return func() (float64, float64, float64, bool) {
		return 0.2, 0.0, -0.45, true
	}
}

// simulatedPositionSource stands in for a PositionState bus read, reporting
// a stationary vehicle at the origin until real navigation is wired in.
func simulatedPositionSource() pathfollower.PositionSource {
	return func() (mathkernel.Vector3, mathkernel.Vector3) {
		return mathkernel.Vector3{}, mathkernel.Vector3{}
	}
}

func snapshotAlarms(t *alarms.Table) map[string]string {
	out := make(map[string]string)
	for slot, level := range t.Snapshot() {
		out[string(slot)] = level.String()
	}
	return out
}
