// Package song holds the flat, absolute-time event timeline produced by the
// importers together with the indices used to query it.
//
// A Song is immutable once built. Per-note performance state (which notes
// the performer has played) is owned by the scroll engine, not by the song,
// so a renderer and the engine can share one Song safely.
package song

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/jsphweid/pianofalls/bucket"
	"github.com/jsphweid/pianofalls/model"
)

type Song struct {
	ID       string
	Filename string

	events     []model.Event
	notes      []*model.Note
	noteStarts []float64
	index      bucket.Index
	tracks     []model.TrackKey
	endTime    float64
}

func sortPitch(e model.Event) int {
	if n, ok := e.(*model.Note); ok {
		return n.Pitch.MidiNote
	}
	return -1
}

// New sorts events by start time (ties broken by MIDI note, markers first)
// and builds the lookup tables. Rests are dropped.
func New(events []model.Event) *Song {
	s := &Song{ID: uuid.New().String()}

	for _, e := range events {
		if e == nil {
			continue
		}
		if _, ok := e.(*model.Rest); ok {
			continue
		}
		s.events = append(s.events, e)
	}

	sort.SliceStable(s.events, func(i, j int) bool {
		a, b := s.events[i], s.events[j]
		if a.Start() != b.Start() {
			return a.Start() < b.Start()
		}
		return sortPitch(a) < sortPitch(b)
	})

	spans := make([]bucket.Span, len(s.events))
	seen := make(map[model.TrackKey]bool)
	for i, e := range s.events {
		spans[i] = bucket.Span{Start: e.Start(), End: e.Start() + e.Duration()}

		n, ok := e.(*model.Note)
		if !ok || !n.Pitch.InKeyboardRange() {
			continue
		}
		s.notes = append(s.notes, n)
		s.noteStarts = append(s.noteStarts, n.StartTime)
		s.endTime = math.Max(s.endTime, n.End())

		track := model.TrackOf(n)
		if !seen[track] {
			seen[track] = true
			s.tracks = append(s.tracks, track)
		}
	}
	s.index = bucket.Build(spans)

	return s
}

func (s *Song) Events() []model.Event {
	return s.events
}

// Notes returns the playable notes (pitch on the 88-key keyboard) in
// timeline order. Notes outside the keyboard stay in Events only.
func (s *Song) Notes() []*model.Note {
	return s.notes
}

func (s *Song) Len() int {
	return len(s.notes)
}

func (s *Song) Tracks() []model.TrackKey {
	return s.tracks
}

// EndTime is the time the last note stops sounding.
func (s *Song) EndTime() float64 {
	return s.endTime
}

// IndexAtTime returns the index of the first note starting at or after t.
func (s *Song) IndexAtTime(t float64) (int, bool) {
	if t < 0 {
		t = 0
	}
	i := sort.SearchFloat64s(s.noteStarts, t)
	if i >= len(s.noteStarts) {
		return 0, false
	}
	return i, true
}

func hidden(e model.Event) bool {
	n, ok := e.(*model.Note)
	return ok && !n.Pitch.InKeyboardRange()
}

// EventsActiveInRange returns the events sounding at any point in [t0, t1],
// in timeline order.
func (s *Song) EventsActiveInRange(t0, t1 float64) []model.Event {
	lo, hi, ok := bucket.Touched(s.index.Playing, t0, t1)
	if !ok {
		return nil
	}
	var res []model.Event
	for _, e := range s.events[lo : hi+1] {
		if e.Start() > t1 || e.Start()+e.Duration() < t0 || hidden(e) {
			continue
		}
		res = append(res, e)
	}
	return res
}

// EventsStartingInRange returns the events whose start lies in [t0, t1].
func (s *Song) EventsStartingInRange(t0, t1 float64) []model.Event {
	lo, hi, ok := bucket.Touched(s.index.Start, t0, t1)
	if !ok {
		return nil
	}
	var res []model.Event
	for _, e := range s.events[lo : hi+1] {
		if e.Start() < t0 || e.Start() > t1 || hidden(e) {
			continue
		}
		res = append(res, e)
	}
	return res
}

// Normalize shifts events so the earliest note starts at 0. Markers that
// would land before it are clamped to 0.
func Normalize(events []model.Event) {
	offset := math.Inf(1)
	for _, e := range events {
		if _, ok := e.(*model.Note); ok {
			offset = math.Min(offset, e.Start())
		}
	}
	if math.IsInf(offset, 1) {
		offset = 0
	}
	for _, e := range events {
		b := e.Base()
		b.StartTime = math.Max(0, b.StartTime-offset)
	}
}
