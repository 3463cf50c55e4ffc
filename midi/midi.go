package midi

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/pianofalls/constants"
	"github.com/jsphweid/pianofalls/model"
	"github.com/jsphweid/pianofalls/song"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ReadMidiFile reads the standard MIDI file at path and imports it.
func ReadMidiFile(path string) (*song.Song, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.IoError{Filename: path, Err: err}
	}
	return Import(dat, path)
}

func parse(data []byte, filename string) (s *smf.SMF, e error) {
	// handle panics
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			s = nil
			e = &model.FormatError{Filename: filename, Reason: fmt.Sprintf("corrupt MIDI data: %v", r)}
		}
	}()

	res, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, &model.FormatError{Filename: filename, Reason: "error parsing midi file: " + err.Error()}
	}
	return res, nil
}

type message struct {
	ticks uint64
	track int
	msg   smf.Message
}

type noteKey struct {
	note    uint8
	channel uint8
}

type pendingNote struct {
	note   *model.Note
	closed bool
}

// Import converts raw SMF bytes (type 0 or 1) into a Song. Tempo changes
// apply from the tick they occur at, across all tracks.
func Import(data []byte, filename string) (*song.Song, error) {
	mf, err := parse(data, filename)
	if err != nil {
		return nil, err
	}
	if mf.Format() > 1 {
		return nil, &model.FormatError{Filename: filename, Reason: fmt.Sprintf("MIDI type %d is not supported", mf.Format())}
	}
	ticksPerBeat, ok := mf.TimeFormat.(smf.MetricTicks)
	if !ok || ticksPerBeat == 0 {
		return nil, &model.FormatError{Filename: filename, Reason: "SMPTE time code is not supported"}
	}

	parts := make([]*model.Part, len(mf.Tracks))
	var messages []message
	for i, track := range mf.Tracks {
		parts[i] = &model.Part{ID: fmt.Sprintf("track-%d", i), Name: fmt.Sprintf("Track %d", i+1)}
		var ticks uint64
		for _, ev := range track {
			ticks += uint64(ev.Delta)
			messages = append(messages, message{ticks: ticks, track: i, msg: ev.Message})

			var name string
			if ev.Message.GetMetaTrackName(&name) && name != "" {
				parts[i].Name = name
			}
		}
	}

	// one global, tick-ordered walk; stable so same-tick messages keep
	// their track order
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].ticks < messages[j].ticks
	})

	tempo := float64(constants.DefaultMicrosPerQuarter)
	tpb := float64(ticksPerBeat)
	var absTime float64
	var lastTicks uint64

	sounding := make(map[noteKey]*pendingNote)
	var pending []*pendingNote
	var markers []model.Event

	closeNote := func(p *pendingNote, at float64) {
		p.note.Length = at - p.note.StartTime
		p.closed = true
	}

	for _, m := range messages {
		absTime += float64(m.ticks-lastTicks) * (tempo / tpb) / 1e6
		lastTicks = m.ticks

		var ch, key, vel uint8
		var bpm float64
		var num, denom uint8

		switch {
		case m.msg.GetNoteOn(&ch, &key, &vel):
			k := noteKey{note: key, channel: ch}
			if vel == 0 {
				if p, ok := sounding[k]; ok {
					closeNote(p, absTime)
					delete(sounding, k)
				}
				continue
			}
			if p, ok := sounding[k]; ok {
				// retrigger ends the sounding note
				closeNote(p, absTime)
			}
			n := &model.Note{Pitch: model.NewPitch(int(key)), Staff: 1, Voice: 1, Velocity: vel, Channel: ch}
			n.StartTime = absTime
			n.Owner = parts[m.track]
			p := &pendingNote{note: n}
			pending = append(pending, p)
			sounding[k] = p

		case m.msg.GetNoteOff(&ch, &key, &vel):
			k := noteKey{note: key, channel: ch}
			if p, ok := sounding[k]; ok {
				closeNote(p, absTime)
				delete(sounding, k)
			}

		case m.msg.GetMetaTempo(&bpm):
			if bpm > 0 {
				tempo = math.Round(60000000 / bpm)
			}
			tc := &model.TempoChange{BPM: 60000000 / tempo}
			tc.StartTime = absTime
			tc.Owner = parts[m.track]
			markers = append(markers, tc)

		case m.msg.GetMetaMeter(&num, &denom):
			ts := &model.TimeSignatureChange{Numerator: int(num), Denominator: int(denom)}
			ts.StartTime = absTime
			ts.Owner = parts[m.track]
			markers = append(markers, ts)
		}
	}

	if len(sounding) > 0 {
		log.Debug("dropping notes left open at end of file", "file", filename, "count", len(sounding))
	}

	var events []model.Event
	for _, p := range pending {
		if !p.closed || p.note.Length <= 0 {
			continue
		}
		events = append(events, p.note)
	}
	events = append(events, markers...)
	song.Normalize(events)

	s := song.New(events)
	s.Filename = filename
	log.Debug("imported midi file", "file", filename, "notes", s.Len(), "tracks", len(s.Tracks()))
	return s, nil
}
