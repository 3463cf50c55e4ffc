package musicxml

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/pianofalls/constants"
	"github.com/jsphweid/pianofalls/model"
	"github.com/jsphweid/pianofalls/util"
)

// MeasureParseContext carries the attributes that persist from one measure
// to the next within a part. It is reset at the start of every part.
type MeasureParseContext struct {
	Divisions   float64
	Fifths      int
	Numerator   int
	Denominator int
	Tempo       float64
	Velocity    uint8
}

func NewMeasureParseContext() *MeasureParseContext {
	return &MeasureParseContext{
		Divisions:   1,
		Numerator:   4,
		Denominator: 4,
		Tempo:       constants.DefaultBPM,
		Velocity:    model.DefaultVelocity,
	}
}

func (c *MeasureParseContext) quarters(divisions float64) float64 {
	return divisions / c.Divisions
}

type graceKind int

const (
	notGrace graceKind = iota
	graceDefault
	graceMakeTime
	graceFollowing
	gracePrevious
)

type tieSet struct {
	start bool
	stop  bool
}

// item is an event positioned in quarter notes relative to the start of its
// measure. Real times are filled in by calculateEventTimes.
type item struct {
	event     model.Event
	startQ    float64
	durationQ float64

	// original duration, before any grace note stole from it
	origDurationQ float64
	grace         graceKind
	steal         float64
	ties          tieSet
}

func (it *item) note() (*model.Note, bool) {
	n, ok := it.event.(*model.Note)
	return n, ok
}

type measure struct {
	number int
	items  []*item
	// furthest clock position reached while parsing
	lengthQ float64
}

var stepSemitones = map[string]int{"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11}

var accidentalAlters = map[string]int{
	"flat":         -1,
	"sharp":        1,
	"natural":      0,
	"double-flat":  -2,
	"double-sharp": 2,
	"flat-flat":    -2,
	"sharp-sharp":  2,
}

// order in which sharps (positive fifths) and flats (negative) are added
const (
	sharpOrder = "FCGDAEB"
	flatOrder  = "BEADGCF"
)

// keyAlter is the alteration a key signature applies to a step.
func keyAlter(fifths int, step string) int {
	switch {
	case fifths > 0:
		if strings.Contains(sharpOrder[:util.Min(fifths, 7)], step) {
			return 1
		}
	case fifths < 0:
		if strings.Contains(flatOrder[:util.Min(-fifths, 7)], step) {
			return -1
		}
	}
	return 0
}

func midiNote(p *Pitch, accidental string, fifths int) (int, bool) {
	semitone, ok := stepSemitones[strings.TrimSpace(p.Step)]
	if !ok {
		return 0, false
	}
	alter := 0
	if p.Alter != nil {
		alter = int(math.Round(*p.Alter))
	}
	accidental = strings.TrimSpace(accidental)
	if a, ok := accidentalAlters[accidental]; ok {
		alter = a
	}
	if p.Alter == nil && accidental == "" {
		alter = keyAlter(fifths, strings.TrimSpace(p.Step))
	}
	return (p.Octave+1)*12 + semitone + alter, true
}

// dynamicsVelocity converts a MusicXML dynamics value (percent of a forte
// velocity of 90) to a MIDI velocity.
func dynamicsVelocity(percent float64) uint8 {
	return uint8(util.Clamp(math.Round(90*percent/100), 1, 127))
}

func parseTies(n *Note) tieSet {
	var ts tieSet
	for _, t := range append(append([]Tie{}, n.Ties...), n.Tied...) {
		switch t.Type {
		case "start":
			ts.start = true
		case "stop":
			ts.stop = true
		}
	}
	return ts
}

func (c *MeasureParseContext) parseAttributes(a *Attributes) []model.Event {
	var res []model.Event
	if a.Divisions != nil && *a.Divisions > 0 {
		c.Divisions = *a.Divisions
	}
	if a.Key != nil {
		c.Fifths = a.Key.Fifths
		res = append(res, &model.KeySignatureChange{Fifths: a.Key.Fifths})
	}
	if a.Time != nil {
		if num := a.Time.Numerator(); num > 0 && a.Time.BeatType > 0 {
			c.Numerator, c.Denominator = num, a.Time.BeatType
			res = append(res, &model.TimeSignatureChange{Numerator: num, Denominator: a.Time.BeatType})
		}
	}
	return res
}

func (c *MeasureParseContext) parseDirection(d *Direction) []model.Event {
	var res []model.Event
	for _, s := range d.Sounds {
		if s.Dynamics != nil {
			c.Velocity = dynamicsVelocity(*s.Dynamics)
		}
		if s.Tempo != nil && *s.Tempo > 0 {
			c.Tempo = *s.Tempo
			tc := &model.TempoChange{BPM: *s.Tempo}
			tc.LineNumber = d.Line
			res = append(res, tc)
		}
	}
	return res
}

func (c *MeasureParseContext) parseNote(n *Note, part *model.Part) *item {
	it := &item{durationQ: c.quarters(n.Duration)}
	if n.TimeMod != nil && n.TimeMod.ActualNotes > 0 && n.TimeMod.NormalNotes > 0 {
		it.durationQ = it.durationQ * float64(n.TimeMod.NormalNotes) / float64(n.TimeMod.ActualNotes)
	}

	if g := n.Grace; g != nil {
		switch {
		case g.MakeTime != nil:
			it.grace = graceMakeTime
			it.durationQ = c.quarters(*g.MakeTime)
		case g.StealTimeFollowing != nil:
			it.grace = graceFollowing
			it.steal = *g.StealTimeFollowing
			it.durationQ = 0
		case g.StealTimePrevious != nil:
			it.grace = gracePrevious
			it.steal = *g.StealTimePrevious
			it.durationQ = 0
		default:
			it.grace = graceDefault
			it.durationQ = 0
		}
	}
	it.origDurationQ = it.durationQ

	staff, voice := util.Max(n.Staff, 1), util.Max(n.Voice, 1)

	var key int
	pitched := false
	if n.Rest == nil && n.Pitch != nil {
		key, pitched = midiNote(n.Pitch, n.Accidental, c.Fifths)
		if !pitched {
			log.Warn("note has an unknown step; treating as rest", "step", n.Pitch.Step, "line", n.Line)
		}
	}
	if !pitched {
		r := &model.Rest{Staff: staff, Voice: voice}
		r.Owner = part
		r.LineNumber = n.Line
		it.event = r
		it.grace = notGrace
		return it
	}

	velocity := c.Velocity
	if n.Dynamics != nil {
		velocity = dynamicsVelocity(*n.Dynamics)
	}
	note := &model.Note{
		Pitch:    model.NewPitch(key),
		Staff:    staff,
		Voice:    voice,
		IsChord:  n.Chord != nil,
		Velocity: velocity,
	}
	note.Owner = part
	note.LineNumber = n.Line
	it.event = note
	it.ties = parseTies(n)
	return it
}

func (c *MeasureParseContext) parseMeasure(m *Measure, part *model.Part) *measure {
	res := &measure{}
	res.number, _ = strconv.Atoi(strings.TrimSpace(m.Number))

	var clock float64
	var lastStart float64
	add := func(e model.Event, line int) {
		if e.Line() == 0 {
			e.Base().LineNumber = line
		}
		e.Base().Owner = part
		res.items = append(res.items, &item{event: e, startQ: clock})
	}

	for _, raw := range m.Items {
		switch v := raw.(type) {
		case *Attributes:
			for _, e := range c.parseAttributes(v) {
				add(e, m.Line)
			}
		case *Direction:
			for _, e := range c.parseDirection(v) {
				add(e, v.Line)
			}
		case *Note:
			it := c.parseNote(v, part)
			if v.Chord != nil {
				// chord members share the start of the preceding note
				it.startQ = lastStart
			} else {
				it.startQ = clock
				lastStart = clock
				if it.grace == notGrace {
					clock += it.durationQ
				}
			}
			res.items = append(res.items, it)
		case *Move:
			q := c.quarters(v.Duration)
			if v.Forward {
				clock += q
			} else {
				clock -= q
			}
		}
		res.lengthQ = math.Max(res.lengthQ, clock)
	}
	return res
}

func parsePart(p *Part, info *model.Part) []*measure {
	ctx := NewMeasureParseContext()
	measures := make([]*measure, 0, len(p.Measures))
	for i := range p.Measures {
		measures = append(measures, ctx.parseMeasure(&p.Measures[i], info))
	}
	handleStolenTime(measures, info)
	return measures
}
