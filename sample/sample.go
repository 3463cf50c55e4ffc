// Package sample exports an excerpt of a Song as a standard MIDI file, e.g.
// to share a practice loop.
package sample

import (
	"bytes"
	"math"
	"sort"

	"github.com/jsphweid/pianofalls/constants"
	"github.com/jsphweid/pianofalls/model"
	"github.com/jsphweid/pianofalls/song"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type tickEvent struct {
	ticks uint32
	off   bool
	msg   midi.Message
}

// Create writes the notes starting in [from, to) to a type 1 file at
// 120 BPM: a tempo track followed by one track per part. Times are shifted
// so that from becomes 0.
func Create(s *song.Song, from, to float64, ticksPerQuarter uint16) *smf.SMF {
	res := smf.New()
	res.TimeFormat = smf.MetricTicks(ticksPerQuarter)
	ticksPerSecond := float64(ticksPerQuarter) * constants.DefaultBPM / 60
	toTicks := func(t float64) uint32 {
		return uint32(math.Round(math.Max(0, t) * ticksPerSecond))
	}

	var conductor smf.Track
	conductor.Add(0, smf.MetaMeter(4, 4))
	conductor.Add(0, smf.MetaTempo(constants.DefaultBPM))
	conductor.Close(0)
	res.Add(conductor)

	var parts []*model.Part
	byPart := make(map[*model.Part][]tickEvent)
	for _, n := range s.Notes() {
		if n.StartTime < from || n.StartTime >= to {
			continue
		}
		if _, ok := byPart[n.Owner]; !ok {
			parts = append(parts, n.Owner)
		}
		vel := n.Velocity
		if vel == 0 {
			vel = model.DefaultVelocity
		}
		key := uint8(n.Pitch.MidiNote)
		byPart[n.Owner] = append(byPart[n.Owner],
			tickEvent{ticks: toTicks(n.StartTime - from), msg: midi.NoteOn(n.Channel, key, vel)},
			tickEvent{ticks: toTicks(n.End() - from), off: true, msg: midi.NoteOff(n.Channel, key)},
		)
	}

	for _, p := range parts {
		events := byPart[p]
		// releases first so a repeated pitch is not cut off
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].ticks != events[j].ticks {
				return events[i].ticks < events[j].ticks
			}
			return events[i].off && !events[j].off
		})

		var track smf.Track
		if p != nil && p.Name != "" {
			track.Add(0, smf.MetaTrackSequenceName(p.Name))
		}
		var last uint32
		for _, ev := range events {
			track.Add(ev.ticks-last, ev.msg)
			last = ev.ticks
		}
		track.Close(0)
		res.Add(track)
	}
	return res
}

func Bytes(sm *smf.SMF) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := sm.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "writing midi file")
	}
	return buf.Bytes(), nil
}
