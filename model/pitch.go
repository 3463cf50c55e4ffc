package model

import "fmt"

// KeyboardKeys is the number of keys on the keyboard a Pitch maps onto.
const KeyboardKeys = 88

// lowest key on the keyboard (A0)
const lowestMidiNote = 21

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Pitch is an immutable MIDI note number. Two pitches are equal iff their
// MidiNote matches, so plain == comparison is the intended equality.
type Pitch struct {
	MidiNote int
}

func NewPitch(midiNote int) Pitch {
	return Pitch{MidiNote: midiNote}
}

// Key is the index into an 88-key keyboard, 0 being A0.
func (p Pitch) Key() int {
	return p.MidiNote - lowestMidiNote
}

func (p Pitch) InKeyboardRange() bool {
	k := p.Key()
	return k >= 0 && k < KeyboardKeys
}

// midi note 24 is C1, so 23 is B0
func (p Pitch) NoteName() string {
	return noteNames[floorMod(p.MidiNote-24, 12)]
}

func (p Pitch) Octave() int {
	return 1 + floorDiv(p.MidiNote-24, 12)
}

func (p Pitch) Name() string {
	return fmt.Sprintf("%s%d", p.NoteName(), p.Octave())
}

func (p Pitch) String() string {
	return fmt.Sprintf("%s (%d)", p.Name(), p.MidiNote)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
