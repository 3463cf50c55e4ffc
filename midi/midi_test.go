package midi

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jsphweid/pianofalls/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// 480 ticks per quarter at 120 BPM: 960 ticks is one second
const tpq = 480

func encode(t *testing.T, tracks ...smf.Track) []byte {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(tpq)
	for _, tr := range tracks {
		tr.Close(0)
		require.NoError(t, s.Add(tr))
	}
	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestTwoTracksSameStart(t *testing.T) {
	var a, b smf.Track
	a.Add(0, smf.MetaTrackSequenceName("Right"))
	a.Add(0, midi.NoteOn(0, 60, 100))
	a.Add(960, midi.NoteOff(0, 60))
	b.Add(0, midi.NoteOn(1, 64, 80))
	b.Add(960, midi.NoteOff(1, 64))

	s, err := Import(encode(t, a, b), "two.mid")
	require.NoError(t, err)

	assert := assert.New(t)
	notes := s.Notes()
	require.Len(t, notes, 2)
	assert.Equal(60, notes[0].Pitch.MidiNote)
	assert.Equal(64, notes[1].Pitch.MidiNote)
	for _, n := range notes {
		assert.Equal(0.0, n.StartTime)
		assert.InDelta(1.0, n.Length, 1e-9)
	}
	assert.Equal("Right", notes[0].Owner.Name)
	assert.Equal("Track 2", notes[1].Owner.Name)
	assert.Equal(uint8(100), notes[0].Velocity)
	assert.Equal(uint8(1), notes[1].Channel)
	assert.Len(s.Tracks(), 2)
	assert.Equal("two.mid", s.Filename)
}

func TestTempoChangeOnlyAffectsLaterTime(t *testing.T) {
	var conductor, piano smf.Track
	conductor.Add(0, smf.MetaTempo(120))
	conductor.Add(960, smf.MetaTempo(60))

	piano.Add(0, midi.NoteOn(0, 60, 90))
	piano.Add(0, midi.NoteOn(0, 62, 90))
	piano.Add(480, midi.NoteOff(0, 62))
	piano.Add(960, midi.NoteOn(0, 64, 90)) // tick 1440
	piano.Add(480, midi.NoteOff(0, 60))   // tick 1920
	piano.Add(0, midi.NoteOff(0, 64))

	s, err := Import(encode(t, conductor, piano), "tempo.mid")
	require.NoError(t, err)

	assert := assert.New(t)
	byPitch := map[int]*model.Note{}
	for _, n := range s.Notes() {
		byPitch[n.Pitch.MidiNote] = n
	}
	require.Len(t, byPitch, 3)

	assert.InDelta(0.5, byPitch[62].Length, 1e-6)
	// one second at 120 BPM, then 960 ticks at 60 BPM
	assert.InDelta(3.0, byPitch[60].Length, 1e-6)
	assert.InDelta(2.0, byPitch[64].StartTime, 1e-6)
	assert.InDelta(1.0, byPitch[64].Length, 1e-6)

	var tempos []float64
	for _, e := range s.Events() {
		if tc, ok := e.(*model.TempoChange); ok {
			tempos = append(tempos, tc.BPM)
		}
	}
	assert.Equal(2, len(tempos))
	assert.InDelta(60.0, tempos[1], 1e-6)
}

func TestRetriggerClosesSoundingNote(t *testing.T) {
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 90))
	tr.Add(480, midi.NoteOn(0, 60, 90))
	tr.Add(480, midi.NoteOff(0, 60))

	s, err := Import(encode(t, tr), "retrigger.mid")
	require.NoError(t, err)

	notes := s.Notes()
	require.Len(t, notes, 2)
	assert := assert.New(t)
	assert.InDelta(0.0, notes[0].StartTime, 1e-9)
	assert.InDelta(0.5, notes[0].Length, 1e-9)
	assert.InDelta(0.5, notes[1].StartTime, 1e-9)
	assert.InDelta(0.5, notes[1].Length, 1e-9)
}

func TestZeroVelocityNoteOnEndsNote(t *testing.T) {
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 90))
	tr.Add(960, midi.NoteOn(0, 60, 0))

	s, err := Import(encode(t, tr), "running.mid")
	require.NoError(t, err)

	require.Len(t, s.Notes(), 1)
	assert.InDelta(t, 1.0, s.Notes()[0].Length, 1e-9)
}

func TestOpenAndEmptyNotesAreDropped(t *testing.T) {
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 90))
	tr.Add(0, midi.NoteOff(0, 60))
	tr.Add(0, midi.NoteOn(0, 62, 90))
	tr.Add(960, midi.NoteOff(0, 62))
	tr.Add(0, midi.NoteOn(0, 64, 90))

	s, err := Import(encode(t, tr), "open.mid")
	require.NoError(t, err)

	require.Len(t, s.Notes(), 1)
	assert.Equal(t, 62, s.Notes()[0].Pitch.MidiNote)
}

func TestLeadingSilenceIsRemoved(t *testing.T) {
	var tr smf.Track
	tr.Add(0, smf.MetaMeter(3, 4))
	tr.Add(1920, midi.NoteOn(0, 60, 90))
	tr.Add(480, midi.NoteOff(0, 60))

	s, err := Import(encode(t, tr), "silence.mid")
	require.NoError(t, err)

	assert := assert.New(t)
	require.Len(t, s.Notes(), 1)
	assert.Equal(0.0, s.Notes()[0].StartTime)
	for _, e := range s.Events() {
		assert.GreaterOrEqual(e.Start(), 0.0)
		if ts, ok := e.(*model.TimeSignatureChange); ok {
			assert.Equal(3, ts.Numerator)
			assert.Equal(4, ts.Denominator)
		}
	}
}

func TestImportIsDeterministic(t *testing.T) {
	var a, b smf.Track
	a.Add(0, midi.NoteOn(0, 60, 90))
	a.Add(240, midi.NoteOn(0, 67, 90))
	a.Add(240, midi.NoteOff(0, 60))
	a.Add(0, midi.NoteOff(0, 67))
	b.Add(120, midi.NoteOn(1, 48, 70))
	b.Add(600, midi.NoteOff(1, 48))
	data := encode(t, a, b)

	first, err := Import(data, "x.mid")
	require.NoError(t, err)
	second, err := Import(data, "x.mid")
	require.NoError(t, err)

	require.Equal(t, first.Len(), second.Len())
	for i := range first.Notes() {
		x, y := first.Notes()[i], second.Notes()[i]
		assert.Equal(t, x.StartTime, y.StartTime)
		assert.Equal(t, x.Length, y.Length)
		assert.Equal(t, x.Pitch, y.Pitch)
		assert.Equal(t, x.Owner.Name, y.Owner.Name)
	}
}

func TestMultiSongFileIsRejected(t *testing.T) {
	data := []byte{
		'M', 'T', 'h', 'd', 0, 0, 0, 6, 0, 2, 0, 1, 0x01, 0xE0,
		'M', 'T', 'r', 'k', 0, 0, 0, 4, 0x00, 0xFF, 0x2F, 0x00,
	}
	_, err := Import(data, "type2.mid")

	var fe *model.FormatError
	assert.True(t, errors.As(err, &fe))
}

func TestGarbageIsFormatError(t *testing.T) {
	_, err := Import([]byte("definitely not a midi file"), "junk.mid")

	var fe *model.FormatError
	assert.True(t, errors.As(err, &fe))
}

func TestMissingFileIsIoError(t *testing.T) {
	_, err := ReadMidiFile("testdata/does-not-exist.mid")

	var ioe *model.IoError
	assert.True(t, errors.As(err, &ioe))
}
