// Package device connects the scroll engine to MIDI hardware: key presses
// come in from an input port and autoplay notes go out to an output port.
package device

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/pianofalls/scroll"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// all notes off
const allNotesOff = 123

// Translate turns a note start or end into a key event.
func Translate(msg midi.Message, at time.Time) (scroll.KeyEvent, bool) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return scroll.KeyEvent{Note: key, Velocity: vel, On: true, Timestamp: at}, true
	case msg.GetNoteEnd(&ch, &key):
		return scroll.KeyEvent{Note: key, Timestamp: at}, true
	}
	return scroll.KeyEvent{}, false
}

type KeyPusher interface {
	PushKey(k scroll.KeyEvent) bool
}

func receiver(dst KeyPusher, logger *log.Logger) func(msg midi.Message, timestampms int32) {
	return func(msg midi.Message, timestampms int32) {
		k, ok := Translate(msg, time.Now())
		if !ok {
			return
		}
		if !dst.PushKey(k) {
			logger.Warn("key queue full, dropping event", "note", k.Note, "on", k.On)
		}
	}
}

// Listen forwards key events from in to dst until stop is called.
func Listen(in drivers.In, dst KeyPusher, logger *log.Logger) (stop func(), err error) {
	stop, err = midi.ListenTo(in, receiver(dst, logger), midi.HandleError(func(err error) {
		logger.Warn("MIDI listener error, device likely disconnected", "device", in.String(), "err", err)
	}))
	if err != nil {
		return nil, errors.Wrapf(err, "listening to %s", in.String())
	}
	logger.Info("listening for key presses", "device", in.String())
	return stop, nil
}

// FindIn returns the input port called name, or the first port when name is
// empty.
func FindIn(name string) (drivers.In, error) {
	if name == "" {
		in, err := midi.InPort(0)
		return in, errors.Wrap(err, "no MIDI input available")
	}
	in, err := midi.FindInPort(name)
	return in, errors.Wrapf(err, "can't find MIDI input %q", name)
}

// FindOut returns the output port called name, or the first port when name
// is empty.
func FindOut(name string) (drivers.Out, error) {
	if name == "" {
		out, err := midi.OutPort(0)
		return out, errors.Wrap(err, "no MIDI output available")
	}
	out, err := midi.FindOutPort(name)
	return out, errors.Wrapf(err, "can't find MIDI output %q", name)
}

// PortSink plays autoplay notes on one MIDI channel.
type PortSink struct {
	send    func(msg midi.Message) error
	channel uint8
}

func NewPortSink(out drivers.Out, channel uint8) (*PortSink, error) {
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", out.String())
	}
	return NewSendSink(send, channel), nil
}

// NewSendSink wraps any send function, e.g. one returned by midi.SendTo.
func NewSendSink(send func(msg midi.Message) error, channel uint8) *PortSink {
	return &PortSink{send: send, channel: channel}
}

func (p *PortSink) NoteOn(note, velocity uint8) error {
	return p.send(midi.NoteOn(p.channel, note, velocity))
}

func (p *PortSink) NoteOff(note uint8) error {
	return p.send(midi.NoteOff(p.channel, note))
}

func (p *PortSink) StopAll() error {
	return p.send(midi.ControlChange(p.channel, allNotesOff, 0))
}
