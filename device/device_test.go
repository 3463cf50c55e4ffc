package device

import (
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/pianofalls/scroll"
	"github.com/stretchr/testify/assert"
	"gitlab.com/gomidi/midi/v2"
)

func TestTranslate(t *testing.T) {
	at := time.Now()
	assert := assert.New(t)

	k, ok := Translate(midi.NoteOn(0, 60, 90), at)
	assert.True(ok)
	assert.Equal(scroll.KeyEvent{Note: 60, Velocity: 90, On: true, Timestamp: at}, k)

	k, ok = Translate(midi.NoteOff(3, 61), at)
	assert.True(ok)
	assert.False(k.On)
	assert.Equal(uint8(61), k.Note)

	// note on with zero velocity is a release
	k, ok = Translate(midi.NoteOn(0, 62, 0), at)
	assert.True(ok)
	assert.False(k.On)

	_, ok = Translate(midi.ControlChange(0, 64, 127), at)
	assert.False(ok)
}

type queue struct {
	keys []scroll.KeyEvent
	full bool
}

func (q *queue) PushKey(k scroll.KeyEvent) bool {
	if q.full {
		return false
	}
	q.keys = append(q.keys, k)
	return true
}

func TestReceiverPushesNotes(t *testing.T) {
	q := &queue{}
	recv := receiver(q, log.Default())

	recv(midi.NoteOn(0, 60, 90), 0)
	recv(midi.ProgramChange(0, 1), 1)
	recv(midi.NoteOff(0, 60), 2)

	assert.Len(t, q.keys, 2)
	assert.True(t, q.keys[0].On)
	assert.False(t, q.keys[1].On)

	q.full = true
	recv(midi.NoteOn(0, 62, 90), 3)
	assert.Len(t, q.keys, 2)
}

func TestPortSinkMessages(t *testing.T) {
	var sent []midi.Message
	sink := NewSendSink(func(msg midi.Message) error {
		sent = append(sent, msg)
		return nil
	}, 2)

	assert := assert.New(t)
	assert.NoError(sink.NoteOn(60, 100))
	assert.NoError(sink.NoteOff(60))
	assert.NoError(sink.StopAll())

	assert.Equal([]midi.Message{
		midi.NoteOn(2, 60, 100),
		midi.NoteOff(2, 60),
		midi.ControlChange(2, 123, 0),
	}, sent)
}

func TestPortSinkErrors(t *testing.T) {
	sink := NewSendSink(func(msg midi.Message) error {
		return errors.New("port closed")
	}, 0)

	var s scroll.Sink = sink
	assert.Error(t, s.NoteOn(60, 1))
}
