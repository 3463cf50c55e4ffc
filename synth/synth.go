// Package synth renders autoplay notes with a SoundFont so the engine can
// play accompaniment without an external MIDI device.
package synth

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/jsphweid/pianofalls/util"
	"github.com/pkg/errors"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

const SampleRate = 44100

// synthesizer is the subset of meltysynth.Synthesizer the sink uses.
type synthesizer interface {
	NoteOn(channel, key, velocity int32)
	NoteOff(channel, key int32)
	NoteOffAll(immediate bool)
	Render(left, right []float32)
}

// Synth is a scroll.Sink that also reads as a 16-bit little endian stereo
// PCM stream.
type Synth struct {
	mu      sync.Mutex
	syn     synthesizer
	channel int32
	left    []float32
	right   []float32
}

// New loads a SoundFont (.sf2) and builds a synthesizer on channel 0.
func New(soundFont io.Reader) (*Synth, error) {
	sf, err := meltysynth.NewSoundFont(soundFont)
	if err != nil {
		return nil, errors.Wrap(err, "loading soundfont")
	}
	syn, err := meltysynth.NewSynthesizer(sf, meltysynth.NewSynthesizerSettings(SampleRate))
	if err != nil {
		return nil, errors.Wrap(err, "creating synthesizer")
	}
	return newSynth(syn), nil
}

func newSynth(syn synthesizer) *Synth {
	return &Synth{syn: syn}
}

func (s *Synth) NoteOn(note, velocity uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syn.NoteOn(s.channel, int32(note), int32(velocity))
	return nil
}

func (s *Synth) NoteOff(note uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syn.NoteOff(s.channel, int32(note))
	return nil
}

func (s *Synth) StopAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syn.NoteOffAll(false)
	return nil
}

func toPCM(v float32) uint16 {
	return uint16(int16(util.Clamp(v, -1, 1) * 32767))
}

// Read renders len(p)/4 stereo frames. It never returns io.EOF.
func (s *Synth) Read(p []byte) (int, error) {
	frames := len(p) / 4
	if frames == 0 {
		return 0, nil
	}

	s.mu.Lock()
	if cap(s.left) < frames {
		s.left = make([]float32, frames)
		s.right = make([]float32, frames)
	}
	left, right := s.left[:frames], s.right[:frames]
	s.syn.Render(left, right)
	s.mu.Unlock()

	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(p[i*4:], toPCM(left[i]))
		binary.LittleEndian.PutUint16(p[i*4+2:], toPCM(right[i]))
	}
	return frames * 4, nil
}

var (
	audioContext     *audio.Context
	audioContextOnce sync.Once
)

// Play starts streaming s to the default audio device. Ebiten allows only
// one audio context per process, so it is shared.
func Play(s *Synth) (*audio.Player, error) {
	audioContextOnce.Do(func() {
		audioContext = audio.NewContext(SampleRate)
	})
	player, err := audioContext.NewPlayer(s)
	if err != nil {
		return nil, errors.Wrap(err, "creating audio player")
	}
	player.Play()
	return player, nil
}
