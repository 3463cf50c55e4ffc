package synth

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/jsphweid/pianofalls/scroll"
	"github.com/stretchr/testify/assert"
)

type fakeSynth struct {
	calls []string
	level float32
}

func (f *fakeSynth) NoteOn(channel, key, velocity int32) {
	f.calls = append(f.calls, fmt.Sprintf("on %d %d %d", channel, key, velocity))
}

func (f *fakeSynth) NoteOff(channel, key int32) {
	f.calls = append(f.calls, fmt.Sprintf("off %d %d", channel, key))
}

func (f *fakeSynth) NoteOffAll(immediate bool) {
	f.calls = append(f.calls, fmt.Sprintf("off all %v", immediate))
}

func (f *fakeSynth) Render(left, right []float32) {
	for i := range left {
		left[i] = f.level
		right[i] = -f.level
	}
}

func TestSinkForwardsNotes(t *testing.T) {
	fake := &fakeSynth{}
	var sink scroll.Sink = newSynth(fake)

	assert := assert.New(t)
	assert.NoError(sink.NoteOn(60, 100))
	assert.NoError(sink.NoteOff(60))
	assert.NoError(sink.StopAll())
	assert.Equal([]string{"on 0 60 100", "off 0 60", "off all false"}, fake.calls)
}

func TestReadRendersPCM(t *testing.T) {
	s := newSynth(&fakeSynth{level: 0.5})

	buf := make([]byte, 4*8+3)
	n, err := s.Read(buf)

	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal(32, n)
	for i := 0; i < 8; i++ {
		assert.Equal(int16(16383), int16(binary.LittleEndian.Uint16(buf[i*4:])))
		assert.Equal(int16(-16383), int16(binary.LittleEndian.Uint16(buf[i*4+2:])))
	}
}

func TestReadClipsLoudSamples(t *testing.T) {
	s := newSynth(&fakeSynth{level: 3})

	buf := make([]byte, 4)
	_, err := s.Read(buf)
	assert.NoError(t, err)
	assert.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(buf)))
	assert.Equal(t, int16(-32767), int16(binary.LittleEndian.Uint16(buf[2:])))
}

func TestReadShortBuffer(t *testing.T) {
	s := newSynth(&fakeSynth{})
	n, err := s.Read(make([]byte, 3))
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNewRejectsBadSoundFont(t *testing.T) {
	_, err := New(bytes.NewReader([]byte("not a soundfont")))
	assert.Error(t, err)
}
