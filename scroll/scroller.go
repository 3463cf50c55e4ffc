// Package scroll advances playback time through a Song, either at a fixed
// tempo or by waiting for the performer, and drives autoplay output.
package scroll

import (
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/pianofalls/constants"
	"github.com/jsphweid/pianofalls/model"
	"github.com/jsphweid/pianofalls/song"
	"github.com/jsphweid/pianofalls/util"
	"golang.org/x/time/rate"
)

// Sink receives autoplay output.
type Sink interface {
	NoteOn(note, velocity uint8) error
	NoteOff(note uint8) error
	StopAll() error
}

type nopSink struct{}

func (nopSink) NoteOn(note, velocity uint8) error { return nil }
func (nopSink) NoteOff(note uint8) error          { return nil }
func (nopSink) StopAll() error                    { return nil }

// Scroller holds the playback state for one song. It is not safe for
// concurrent use; Engine owns one from a single goroutine.
type Scroller struct {
	song   *song.Song
	played []bool

	current   float64
	target    float64
	tau       float64
	speed     float64
	scrolling bool
	mode      scrollMode

	trackModes   map[model.TrackKey]TrackMode
	volume       float64
	sink         Sink
	earlyKeyTime float64

	nextNoteIndex     int
	nextAutoplayCheck int
	active            map[int]struct{}

	logger   *log.Logger
	errLimit *rate.Limiter
	now      func() time.Time
}

func NewScroller(logger *log.Logger) *Scroller {
	if logger == nil {
		logger = log.Default()
	}
	return &Scroller{
		speed:        1,
		mode:         newMode(Wait),
		trackModes:   make(map[model.TrackKey]TrackMode),
		volume:       1,
		sink:         nopSink{},
		earlyKeyTime: constants.EarlyKeyTime,
		active:       make(map[int]struct{}),
		logger:       logger,
		errLimit:     rate.NewLimiter(rate.Every(time.Second), 3),
		now:          time.Now,
	}
}

// SetSong silences any autoplay notes, loads s and rewinds to the lead-in.
// Track modes are reset since they refer to the previous song's parts.
func (s *Scroller) SetSong(sng *song.Song) {
	s.flushActive()
	s.song = sng
	s.played = make([]bool, sng.Len())
	s.trackModes = make(map[model.TrackKey]TrackMode)
	s.scrolling = false
	s.SetTime(-constants.LeadIn)
}

func (s *Scroller) Song() *song.Song {
	return s.song
}

// SetMode switches scroll mode. Autoplay notes are silenced and the played
// state is re-evaluated at the current time. Volume and sink carry over.
func (s *Scroller) SetMode(k ModeKind) {
	s.flushActive()
	s.mode = newMode(k)
	if s.song != nil {
		s.SetTime(s.current)
	}
}

func (s *Scroller) Mode() ModeKind {
	return s.mode.kind()
}

// SetTime jumps to t. Notes before t count as played; notes from t on are
// played only if nobody has to perform them.
func (s *Scroller) SetTime(t float64) {
	s.flushActive()
	s.current = t
	s.target = t
	s.mode.seek()
	if s.song == nil {
		return
	}
	for i, n := range s.song.Notes() {
		if n.StartTime < t {
			s.played[i] = true
		} else {
			s.played[i] = s.modeOf(n) != Player
		}
	}
	s.resetIndices()
}

func (s *Scroller) resetIndices() {
	s.nextNoteIndex = 0
	s.skipPlayed()
	s.nextAutoplayCheck = s.song.Len()
	if i, ok := s.song.IndexAtTime(s.current); ok {
		s.nextAutoplayCheck = i
	}
}

func (s *Scroller) SetTargetTime(t float64) {
	s.target = t
}

func (s *Scroller) ScrollBy(delta float64) {
	s.target += delta
}

func (s *Scroller) Time() float64   { return s.current }
func (s *Scroller) Target() float64 { return s.target }

func (s *Scroller) SetScrolling(scrolling bool) {
	s.scrolling = scrolling
}

func (s *Scroller) ToggleScrolling() {
	s.scrolling = !s.scrolling
}

func (s *Scroller) Scrolling() bool {
	return s.scrolling
}

// SetScrollSpeed sets song seconds per real second.
func (s *Scroller) SetScrollSpeed(speed float64) {
	s.speed = speed
}

func (s *Scroller) Speed() float64 {
	return s.speed
}

// SetScrollTau sets the easing time constant in seconds; 0 snaps.
func (s *Scroller) SetScrollTau(tau float64) {
	s.tau = tau
}

func (s *Scroller) SetEarlyKeyTime(seconds float64) {
	s.earlyKeyTime = seconds
}

func (s *Scroller) modeOf(n *model.Note) TrackMode {
	if m, ok := s.trackModes[model.TrackOf(n)]; ok {
		return m
	}
	return Player
}

// TrackMode returns the mode of a track; Player unless set otherwise.
func (s *Scroller) TrackMode(key model.TrackKey) TrackMode {
	if m, ok := s.trackModes[key]; ok {
		return m
	}
	return Player
}

func (s *Scroller) TrackModes() map[model.TrackKey]TrackMode {
	res := make(map[model.TrackKey]TrackMode, len(s.trackModes))
	for k, v := range s.trackModes {
		res[k] = v
	}
	return res
}

// SetTrackModes replaces all track modes. Output is stopped, the played
// state of every note from the current time on is re-evaluated and a chord
// the performer was part way through is forgotten.
func (s *Scroller) SetTrackModes(modes map[model.TrackKey]TrackMode) {
	s.mode.seek()
	s.trackModes = make(map[model.TrackKey]TrackMode, len(modes))
	for k, v := range modes {
		s.trackModes[k] = v
	}

	if err := s.sink.StopAll(); err != nil {
		s.sinkError("stop all", err)
	}
	s.active = make(map[int]struct{})

	if s.song == nil {
		return
	}
	for i, n := range s.song.Notes() {
		if n.StartTime >= s.current {
			s.played[i] = s.modeOf(n) != Player
		}
	}
	s.resetIndices()
}

func (s *Scroller) SetTrackMode(key model.TrackKey, mode TrackMode) {
	modes := s.TrackModes()
	modes[key] = mode
	s.SetTrackModes(modes)
}

// SetAutoplayVolume scales autoplay velocities; v is clamped to [0, 1].
func (s *Scroller) SetAutoplayVolume(v float64) {
	s.volume = util.Clamp(v, 0, 1)
}

func (s *Scroller) Volume() float64 {
	return s.volume
}

// SetSink replaces the autoplay output. Notes sounding on the old sink are
// released first. A nil sink disables output.
func (s *Scroller) SetSink(sink Sink) {
	s.flushActive()
	if sink == nil {
		sink = nopSink{}
	}
	s.sink = sink
}

func (s *Scroller) Played(i int) bool {
	return i >= 0 && i < len(s.played) && s.played[i]
}

func (s *Scroller) NextNoteIndex() int {
	return s.nextNoteIndex
}

// Active returns the indices of the autoplay notes currently sounding.
func (s *Scroller) Active() []int {
	return util.GetKeys(s.active)
}

// Tick advances the state by dt seconds of wall time. keys are the key
// events received since the previous tick.
func (s *Scroller) Tick(dt float64, keys []KeyEvent) {
	if s.song == nil {
		return
	}
	if s.scrolling {
		s.target = s.mode.advance(s, keys, dt)
	}

	if s.tau > 0 {
		s.current += (s.target - s.current) * (1 - math.Exp(-dt/s.tau))
	} else {
		s.current = s.target
	}

	s.autoplay()

	if s.current > s.song.EndTime() {
		s.scrolling = false
	}
}

func (s *Scroller) skipPlayed() {
	for s.nextNoteIndex < len(s.played) && s.played[s.nextNoteIndex] {
		s.nextNoteIndex++
	}
}

// markReached marks every note starting at or before t as played.
func (s *Scroller) markReached(t float64) {
	notes := s.song.Notes()
	for i := s.nextNoteIndex; i < len(notes) && notes[i].StartTime <= t; i++ {
		s.played[i] = true
	}
	s.skipPlayed()
}

// Snapshot copies the state a renderer needs.
func (s *Scroller) Snapshot() Snapshot {
	snap := Snapshot{
		Time:          s.current,
		Target:        s.target,
		Scrolling:     s.scrolling,
		Mode:          s.Mode(),
		Speed:         s.speed,
		Volume:        s.volume,
		NextNoteIndex: s.nextNoteIndex,
		Played:        append([]bool(nil), s.played...),
	}
	if s.song != nil {
		snap.SongID = s.song.ID
	}
	return snap
}

type Snapshot struct {
	SongID        string   `json:"song_id"`
	Time          float64  `json:"time"`
	Target        float64  `json:"target"`
	Scrolling     bool     `json:"scrolling"`
	Mode          ModeKind `json:"mode"`
	Speed         float64  `json:"speed"`
	Volume        float64  `json:"volume"`
	NextNoteIndex int      `json:"next_note_index"`
	Played        []bool   `json:"-"`
}
