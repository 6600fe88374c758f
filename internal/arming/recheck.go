package arming

import "flightcore/internal/bus"

// watchedSettingsObjects are the bus records sanitycheck.c reruns
// configuration_check() on whenever they change, not only on arm request.
var watchedSettingsObjects = []string{"FlightModeSettings", "SystemSettings", "StabilizationSettings"}

// Rechecker reruns CheckConfiguration whenever FlightModeSettings,
// SystemSettings, or StabilizationSettings changes on the bus, so a
// configuration edit made while disarmed is reflected immediately instead
// of only at the next arm attempt.
type Rechecker struct {
	snapshot func() SanityInput
	onResult func(SanityResult)
}

// NewRechecker returns a Rechecker that rebuilds the SanityInput via
// snapshot on every watched settings change and reports the result via
// onResult (typically writing SystemConfiguration into the alarm table).
func NewRechecker(snapshot func() SanityInput, onResult func(SanityResult)) *Rechecker {
	return &Rechecker{snapshot: snapshot, onResult: onResult}
}

// Watch subscribes the recheck to the three settings objects on b.
func (r *Rechecker) Watch(b *bus.Bus) {
	recheck := func(string, any) { r.onResult(CheckConfiguration(r.snapshot())) }
	for _, name := range watchedSettingsObjects {
		b.ConnectCallback(name, recheck)
	}
}
