package model

import "fmt"

// Event is anything placed on the song timeline. The set of implementations
// is closed: Note, Rest, TempoChange, KeySignatureChange, TimeSignatureChange
// and Barline.
type Event interface {
	Start() float64
	Duration() float64
	Part() *Part
	Line() int
	Base() *EventBase
	isEvent()
}

// EventBase holds the fields shared by every event kind. Times are absolute
// seconds relative to the start of the song.
type EventBase struct {
	StartTime  float64
	Length     float64
	Owner      *Part
	LineNumber int
}

func (e *EventBase) Start() float64    { return e.StartTime }
func (e *EventBase) Duration() float64 { return e.Length }
func (e *EventBase) Part() *Part       { return e.Owner }
func (e *EventBase) Line() int         { return e.LineNumber }
func (e *EventBase) Base() *EventBase  { return e }
func (e *EventBase) isEvent()          {}

// End is the time at which the event stops sounding.
func (e *EventBase) End() float64 { return e.StartTime + e.Length }

// DefaultVelocity is used for notes whose source carries no dynamics.
const DefaultVelocity = 64

// Note is a pitched, voiced event. Performance state (whether it has been
// played) is deliberately not stored here; see scroll.Scroller.
type Note struct {
	EventBase
	Pitch    Pitch
	Staff    int
	Voice    int
	IsChord  bool
	Velocity uint8
	Channel  uint8
}

func (n *Note) String() string {
	return fmt.Sprintf("<Note staff=%d voice=%d start=%.4f pitch=%s duration=%.4f>",
		n.Staff, n.Voice, n.StartTime, n.Pitch.Name(), n.Length)
}

// Rest only exists while importing; Song never keeps rests.
type Rest struct {
	EventBase
	Staff int
	Voice int
}

type TempoChange struct {
	EventBase
	BPM float64
}

type KeySignatureChange struct {
	EventBase
	Fifths int
}

type TimeSignatureChange struct {
	EventBase
	Numerator   int
	Denominator int
}

type Barline struct {
	EventBase
	Measure int
}

// Kind names the concrete event type, mostly for logs and JSON.
func Kind(e Event) string {
	switch e.(type) {
	case *Note:
		return "note"
	case *Rest:
		return "rest"
	case *TempoChange:
		return "tempo"
	case *KeySignatureChange:
		return "key"
	case *TimeSignatureChange:
		return "time"
	case *Barline:
		return "barline"
	}
	return "unknown"
}
