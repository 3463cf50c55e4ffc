package scroll

import (
	"fmt"
	"math"
	"time"

	"github.com/jsphweid/pianofalls/constants"
)

// TrackMode decides how the engine treats the notes of one track.
type TrackMode int

const (
	// Player notes are performed live and gate wait mode.
	Player TrackMode = iota
	// Autoplay notes are sent to the output sink.
	Autoplay
	// VisualOnly notes are shown but neither waited on nor played.
	VisualOnly
	// Hidden notes are neither shown, waited on nor played.
	Hidden
)

var trackModeNames = map[TrackMode]string{
	Player:     "player",
	Autoplay:   "autoplay",
	VisualOnly: "visual-only",
	Hidden:     "hidden",
}

func (m TrackMode) String() string {
	if name, ok := trackModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("TrackMode(%d)", int(m))
}

func ParseTrackMode(s string) (TrackMode, error) {
	for m, name := range trackModeNames {
		if name == s {
			return m, nil
		}
	}
	return Player, fmt.Errorf("unknown track mode %q", s)
}

func (m TrackMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *TrackMode) UnmarshalText(text []byte) error {
	parsed, err := ParseTrackMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ModeKind selects how playback time advances.
type ModeKind int

const (
	Tempo ModeKind = iota
	Wait
	Follow
)

var modeKindNames = map[ModeKind]string{
	Tempo:  "tempo",
	Wait:   "wait",
	Follow: "follow",
}

func (k ModeKind) String() string {
	if name, ok := modeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ModeKind(%d)", int(k))
}

func ParseModeKind(s string) (ModeKind, error) {
	for k, name := range modeKindNames {
		if name == s {
			return k, nil
		}
	}
	return Wait, fmt.Errorf("unknown scroll mode %q", s)
}

func (k ModeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ModeKind) UnmarshalText(text []byte) error {
	parsed, err := ParseModeKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// KeyEvent is a key press or release from the performer's instrument.
type KeyEvent struct {
	Note      uint8
	Velocity  uint8
	On        bool
	Timestamp time.Time
}

// scrollMode is implemented only by the modes in this file.
type scrollMode interface {
	kind() ModeKind
	// advance returns the new target time.
	advance(s *Scroller, keys []KeyEvent, dt float64) float64
	// seek drops any state tied to the previous position.
	seek()
}

func newMode(k ModeKind) scrollMode {
	switch k {
	case Tempo:
		return &tempoMode{}
	case Follow:
		return &followMode{}
	default:
		return &waitMode{}
	}
}

// tempoMode scrolls at constant speed and counts every note it passes as
// played.
type tempoMode struct{}

func (m *tempoMode) kind() ModeKind { return Tempo }
func (m *tempoMode) seek()          {}

func (m *tempoMode) advance(s *Scroller, keys []KeyEvent, dt float64) float64 {
	t := s.current + dt*s.speed
	s.markReached(t)
	return t
}

// followMode keeps a window of recent key presses for position prediction.
// Until prediction exists it advances like tempoMode.
type followMode struct {
	recent []KeyEvent
}

func (m *followMode) kind() ModeKind { return Follow }
func (m *followMode) seek()          { m.recent = nil }

func (m *followMode) advance(s *Scroller, keys []KeyEvent, dt float64) float64 {
	for _, k := range keys {
		if k.On {
			m.recent = append(m.recent, k)
		}
	}
	cutoff := s.now().Add(-constants.RecentKeyWindow)
	kept := m.recent[:0]
	for _, k := range m.recent {
		if k.Timestamp.After(cutoff) {
			kept = append(kept, k)
		}
	}
	m.recent = kept

	t := s.current + dt*s.speed
	s.markReached(t)
	return t
}

// waitMode lets time drift forward at the nominal speed but never past the
// next note the performer still has to play.
type waitMode struct {
	hasChord  bool
	chordTime float64
}

func (m *waitMode) kind() ModeKind { return Wait }

func (m *waitMode) seek() {
	m.hasChord = false
	m.chordTime = 0
}

func (m *waitMode) advance(s *Scroller, keys []KeyEvent, dt float64) float64 {
	for _, k := range keys {
		if k.On {
			m.press(s, k.Note)
		}
	}
	s.skipPlayed()

	maxTime := s.song.EndTime()
	if notes := s.song.Notes(); s.nextNoteIndex < len(notes) {
		maxTime = notes[s.nextNoteIndex].StartTime
	}
	return math.Min(s.current+dt*s.speed, maxTime)
}

// press marks a matching note at the start time of the first unplayed player
// note, provided that start time lies inside the look-ahead window. Once a
// chord is partially played it stays the only one that matches until it is
// complete. A press that matches nothing is dropped.
func (m *waitMode) press(s *Scroller, key uint8) {
	if m.hasChord && m.chordComplete(s) {
		m.hasChord = false
	}

	notes := s.song.Notes()
	due, found := m.chordTime, m.hasChord
	for i := s.nextNoteIndex; i < len(notes); i++ {
		n := notes[i]
		pending := !s.played[i] && s.modeOf(n) == Player
		if !found {
			if !pending {
				continue
			}
			if n.StartTime > s.current+s.earlyKeyTime {
				return
			}
			due, found = n.StartTime, true
		}
		if n.StartTime > due {
			return
		}
		if n.StartTime < due || !pending || n.Pitch.MidiNote != int(key) {
			continue
		}
		s.played[i] = true
		m.hasChord = true
		m.chordTime = due
		if m.chordComplete(s) {
			m.hasChord = false
		}
		return
	}
}

func (m *waitMode) chordComplete(s *Scroller) bool {
	notes := s.song.Notes()
	for i := s.nextNoteIndex; i < len(notes) && notes[i].StartTime <= m.chordTime; i++ {
		if notes[i].StartTime == m.chordTime && !s.played[i] {
			return false
		}
	}
	return true
}
