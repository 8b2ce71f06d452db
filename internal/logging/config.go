// Package logging configures the diagnostic logger shared by the updater.
//
// Progress meant for the user goes through internal.Writer. This logger
// carries the details that help when an update misbehaves (retries,
// reconnects, ignored errors) and is quiet unless asked otherwise.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel   = "MT32PI_UPDATER_LOG_LEVEL"
	EnvLogNoColor = "MT32PI_UPDATER_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var configureOnce sync.Once

func ConfigureRuntime() {
	Configure(ProfileRuntime, os.Stderr)
}

func ConfigureTests() {
	Configure(ProfileTest, io.Discard)
}

// Configure installs the global logger. Only the first call has an effect.
func Configure(profile Profile, out io.Writer) {
	configureOnce.Do(func() {
		level, noColor := defaults(profile)
		if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
			level = lvl
		}
		if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
			noColor = v
		}

		zerolog.SetGlobalLevel(level)
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    noColor,
			TimeFormat: "15:04:05",
		}).With().Timestamp().Logger()
	})
}

// For returns the global logger tagged with a component name.
func For(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

func defaults(profile Profile) (zerolog.Level, bool) {
	switch profile {
	case ProfileTest:
		return zerolog.DebugLevel, true
	default:
		return zerolog.WarnLevel, false
	}
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.WarnLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.WarnLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
