package main

import (
	"testing"
	"time"

	"flightcore/internal/arming"
	"flightcore/internal/sensors"
	"flightcore/internal/stabilization"
)

func TestDurationFromSecondsConvertsToNanoseconds(t *testing.T) {
	if got := durationFromSeconds(1.5); got != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s, got %v", got)
	}
}

func TestArmingSourceFromNameRecognizesGestures(t *testing.T) {
	cases := map[string]arming.Source{
		"RollLeft":    arming.SourceRollLeft,
		"PitchAft":    arming.SourcePitchAft,
		"AlwaysArmed": arming.SourceAlwaysArmed,
		"bogus":       arming.SourceAlwaysDisarmed,
	}
	for name, want := range cases {
		if got := armingSourceFromName(name); got != want {
			t.Fatalf("%s: expected %v, got %v", name, want, got)
		}
	}
}

func TestDefaultAxisConfigStartsInAttitudeRateCascade(t *testing.T) {
	cfg := defaultAxisConfig()
	if cfg.OuterMode != stabilization.OuterAttitude || cfg.InnerMode != stabilization.InnerRate {
		t.Fatalf("expected Attitude outer / Rate inner cascade, got outer=%v inner=%v", cfg.OuterMode, cfg.InnerMode)
	}
	if cfg.MaxAngleDeg != 35 {
		t.Fatalf("expected MaxAngleDeg 35, got %v", cfg.MaxAngleDeg)
	}
}

func TestSimulatedBaroReaderReturnsDistinctTemperatureAndPressure(t *testing.T) {
	read := simulatedBaroReader()
	temp, ok := read(sensors.BaroTemperature)
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if temp != 2000 {
		t.Fatalf("expected default temperature reading, got %v", temp)
	}
	pressure, ok := read(sensors.BaroPressure)
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if pressure != 101325 {
		t.Fatalf("expected default pressure reading, got %v", pressure)
	}
}
