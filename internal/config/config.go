// Package config loads flightcore's cold-boot defaults: the settings used
// before the flash-backed store (internal/flashsettings) has ever been
// written, plus any operator overrides supplied via a config file or
// environment variables.
//
// Grounded on ChristopherRabotin-smd's config.go (package-level
// *viper.Viper, SetConfigName/AddConfigPath/ReadInConfig, typed Get*
// accessors), adapted from a single global package-level viper instance to
// an explicit *viper.Viper held by Loader so multiple airframes can be
// loaded side by side in tests.
package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Defaults mirrors the handful of settings LibrePilot ships as
// hardcoded/compiled-in defaults until a flash record overrides them:
// the estimator's bootstrap gains, the arming gesture and its timings,
// receiver protocol selection, and the sanity-check override.
type Defaults struct {
	AccelKp           float64
	AccelKi           float64
	YawBiasRate       float64
	ArmingSequence    string // e.g. "RollLeft", "PitchForward"
	ArmingSeconds     float64
	DisarmingSeconds  float64
	ArmedTimeoutSecs  float64
	ReceiverProtocol  string
	DisableSanityChecks bool
}

// DefaultDefaults returns the cold-boot values (the estimator gains equal
// internal/estimator.BootstrapGains; the arming fields feed the
// arming.Settings cmd/flightcore builds), so a config file need only list
// the fields an installation wants to override.
func DefaultDefaults() Defaults {
	return Defaults{
		AccelKp:          1.0,
		AccelKi:          0.9,
		YawBiasRate:      0.23,
		ArmingSequence:   "RollLeft",
		ArmingSeconds:    1.0,
		DisarmingSeconds: 0.5,
		ArmedTimeoutSecs: 30.0,
		ReceiverProtocol: "SBus",
	}
}

// Loader wraps a *viper.Viper so callers can read either the cold-boot
// defaults file or environment-variable overrides through one typed view.
type Loader struct {
	v      *viper.Viper
	log    *logrus.Entry
}

// NewLoader builds a Loader rooted at configPath (a directory to search
// for a "flightcore.yaml"/"flightcore.json" file) with FLIGHTCORE_-prefixed
// environment variable overrides enabled.
func NewLoader(configPath string, log *logrus.Entry) *Loader {
	v := viper.New()
	v.SetConfigName("flightcore")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("FLIGHTCORE")
	v.AutomaticEnv()

	d := DefaultDefaults()
	v.SetDefault("accel_kp", d.AccelKp)
	v.SetDefault("accel_ki", d.AccelKi)
	v.SetDefault("yaw_bias_rate", d.YawBiasRate)
	v.SetDefault("arming_sequence", d.ArmingSequence)
	v.SetDefault("arming_seconds", d.ArmingSeconds)
	v.SetDefault("disarming_seconds", d.DisarmingSeconds)
	v.SetDefault("armed_timeout_secs", d.ArmedTimeoutSecs)
	v.SetDefault("receiver_protocol", d.ReceiverProtocol)
	v.SetDefault("disable_sanity_checks", d.DisableSanityChecks)

	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Loader{v: v, log: log}
}

// Load reads the config file if present, falling back silently to
// defaults-plus-environment when no file is found (matching spec.md §6's
// "a mismatch forces full format" philosophy: missing config is not an
// error, it just means cold-boot defaults apply).
func (l *Loader) Load() (Defaults, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Defaults{}, fmt.Errorf("config: reading flightcore config: %w", err)
		}
		l.log.Debug("no config file found, using compiled-in defaults")
	}
	return Defaults{
		AccelKp:             l.v.GetFloat64("accel_kp"),
		AccelKi:             l.v.GetFloat64("accel_ki"),
		YawBiasRate:         l.v.GetFloat64("yaw_bias_rate"),
		ArmingSequence:      l.v.GetString("arming_sequence"),
		ArmingSeconds:       l.v.GetFloat64("arming_seconds"),
		DisarmingSeconds:    l.v.GetFloat64("disarming_seconds"),
		ArmedTimeoutSecs:    l.v.GetFloat64("armed_timeout_secs"),
		ReceiverProtocol:    l.v.GetString("receiver_protocol"),
		DisableSanityChecks: l.v.GetBool("disable_sanity_checks"),
	}, nil
}
