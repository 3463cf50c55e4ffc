package constants

import (
	"os"
	"time"
)

const (
	// MIDI default tempo, microseconds per quarter note (120 BPM)
	DefaultMicrosPerQuarter = 500000
	DefaultBPM              = 120.0

	// control loop period of the scroll engine
	PollPeriod = 3 * time.Millisecond

	// seconds before a note is due during which a key press counts as a hit
	EarlyKeyTime = 1.0

	// seconds of lead-in before the first note when a song is loaded
	LeadIn = 3.0

	// notes closer than this (seconds) are considered simultaneous
	SimultaneousTolerance = 0.010

	// follow mode keeps key presses this long
	RecentKeyWindow = 5 * time.Second

	// quarter notes stolen by a grace note without explicit timing
	DefaultGraceSteal = 0.25

	// buffered key presses between the input driver and the engine
	KeyQueueSize = 256

	// commands queued for the engine goroutine
	CommandQueueSize = 64
)

func getenv(name, fallback string) string {
	v := os.Getenv(name)
	if v != "" {
		return v
	}
	return fallback
}

func GetLogLevel() string {
	return getenv("PIANOFALLS_LOG_LEVEL", "info")
}

func GetMidiIn() string {
	return getenv("PIANOFALLS_MIDI_IN", "")
}

func GetMidiOut() string {
	return getenv("PIANOFALLS_MIDI_OUT", "")
}

func GetSoundFont() string {
	return getenv("PIANOFALLS_SOUNDFONT", "")
}

func GetSentryDSN() string {
	return os.Getenv("SENTRY_DSN")
}

func GetListenAddr() string {
	return getenv("PIANOFALLS_ADDR", ":8080")
}
