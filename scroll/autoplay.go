package scroll

import (
	"math"

	"github.com/jsphweid/pianofalls/chord"
	"github.com/jsphweid/pianofalls/constants"
	"github.com/jsphweid/pianofalls/model"
	"github.com/jsphweid/pianofalls/util"
)

func (s *Scroller) velocity(n *model.Note) uint8 {
	v := math.Round(float64(n.Velocity) * s.volume)
	return uint8(util.Clamp(v, 1, 127))
}

// suppressed reports whether a player note simultaneous with notes[i] is
// still waiting to be played.
func (s *Scroller) suppressed(i int) bool {
	notes := s.song.Notes()
	res := false
	chord.Simultaneous(notes, i, constants.SimultaneousTolerance, func(j int) bool {
		if s.modeOf(notes[j]) == Player && !s.played[j] {
			res = true
			return false
		}
		return true
	})
	return res
}

// autoplay releases finished notes and starts the autoplay notes that the
// current time has reached. The scan stops at a suppressed note so that
// nothing after it fires early.
func (s *Scroller) autoplay() {
	notes := s.song.Notes()

	for _, i := range util.GetKeys(s.active) {
		n := notes[i]
		if n.End() > s.current {
			continue
		}
		delete(s.active, i)
		if s.sounding(n.Pitch) {
			continue
		}
		if err := s.sink.NoteOff(uint8(n.Pitch.MidiNote)); err != nil {
			s.sinkError("note off", err)
		}
	}

	for s.nextAutoplayCheck < len(notes) {
		i := s.nextAutoplayCheck
		n := notes[i]
		if n.StartTime > s.current {
			break
		}
		if s.modeOf(n) == Autoplay {
			if s.suppressed(i) {
				break
			}
			if err := s.sink.NoteOn(uint8(n.Pitch.MidiNote), s.velocity(n)); err != nil {
				s.sinkError("note on", err)
			}
			s.active[i] = struct{}{}
			s.played[i] = true
		}
		s.nextAutoplayCheck++
	}
}

// sounding reports whether an active autoplay note has pitch p.
func (s *Scroller) sounding(p model.Pitch) bool {
	notes := s.song.Notes()
	for i := range s.active {
		if notes[i].Pitch == p {
			return true
		}
	}
	return false
}

// flushActive releases every sounding autoplay note.
func (s *Scroller) flushActive() {
	if s.song == nil {
		return
	}
	notes := s.song.Notes()
	for _, i := range util.GetKeys(s.active) {
		if err := s.sink.NoteOff(uint8(notes[i].Pitch.MidiNote)); err != nil {
			s.sinkError("note off", err)
		}
	}
	s.active = make(map[int]struct{})
}

func (s *Scroller) sinkError(op string, err error) {
	if s.errLimit.Allow() {
		s.logger.Error("autoplay output failed", "op", op, "err", err)
	}
}
