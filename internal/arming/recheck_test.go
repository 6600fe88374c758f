package arming

import (
	"testing"

	"flightcore/internal/bus"
)

func TestRecheckerRerunsOnWatchedSettingsChange(t *testing.T) {
	b := bus.New()
	b.Register("FlightModeSettings", nil)
	b.Register("SystemSettings", nil)
	b.Register("StabilizationSettings", nil)

	in := baseInput()
	var results []SanityResult
	rechecker := NewRechecker(func() SanityInput { return in }, func(r SanityResult) {
		results = append(results, r)
	})
	rechecker.Watch(b)

	b.Set("FlightModeSettings", "changed")
	if len(results) != 1 || results[0].Severity != 1 { // alarms.Ok
		t.Fatalf("expected one Ok recheck result after FlightModeSettings change, got %+v", results)
	}

	in.FlightModes[0].Roll = ModeManual
	b.Set("StabilizationSettings", "changed")
	if len(results) != 2 || results[1].Severity != 4 { // alarms.Critical
		t.Fatalf("expected second recheck to pick up the new Critical configuration, got %+v", results)
	}

	b.Set("SystemSettings", "changed")
	if len(results) != 3 {
		t.Fatalf("expected SystemSettings change to also trigger a recheck, got %d results", len(results))
	}
}
