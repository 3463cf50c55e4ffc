package musicxml

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html/charset"
)

// Score holds the parts of a score-partwise document.
type Score struct {
	Title    string      `xml:"movement-title"`
	PartList []ScorePart `xml:"part-list>score-part"`
	Parts    []Part      `xml:"part"`
}

type ScorePart struct {
	ID         string `xml:"id,attr"`
	Name       string `xml:"part-name"`
	Instrument string `xml:"score-instrument>instrument-name"`
}

type Part struct {
	ID       string    `xml:"id,attr"`
	Measures []Measure `xml:"measure"`
}

// Measure keeps its children in document order since backup and forward
// move the clock relative to whatever came before them.
type Measure struct {
	Number string
	Line   int
	Items  []interface{}
}

func (m *Measure) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "number" {
			m.Number = attr.Value
		}
	}
	m.Line, _ = d.InputPos()

	for {
		token, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if _, ok := token.(xml.EndElement); ok {
			break
		}
		t, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		line, _ := d.InputPos()
		switch t.Name.Local {
		case "attributes":
			var a Attributes
			if err := d.DecodeElement(&a, &t); err != nil {
				return err
			}
			m.Items = append(m.Items, &a)
		case "direction":
			var dir Direction
			if err := d.DecodeElement(&dir, &t); err != nil {
				return err
			}
			dir.Line = line
			m.Items = append(m.Items, &dir)
		case "sound":
			var snd Sound
			if err := d.DecodeElement(&snd, &t); err != nil {
				return err
			}
			m.Items = append(m.Items, &Direction{Line: line, Sounds: []Sound{snd}})
		case "note":
			var n Note
			if err := d.DecodeElement(&n, &t); err != nil {
				return err
			}
			n.Line = line
			m.Items = append(m.Items, &n)
		case "backup", "forward":
			var mv Move
			if err := d.DecodeElement(&mv, &t); err != nil {
				return err
			}
			mv.Forward = t.Name.Local == "forward"
			m.Items = append(m.Items, &mv)
		default:
			log.Debug("ignoring unsupported measure element", "element", t.Name.Local, "line", line)
			if err := d.Skip(); err != nil {
				return err
			}
		}
	}
	return nil
}

type Attributes struct {
	Divisions *float64 `xml:"divisions"`
	Key       *Key     `xml:"key"`
	Time      *Time    `xml:"time"`
}

type Key struct {
	Fifths int    `xml:"fifths"`
	Mode   string `xml:"mode"`
}

type Time struct {
	Beats    string `xml:"beats"`
	BeatType int    `xml:"beat-type"`
}

// Numerator sums composite signatures such as "3+2".
func (t *Time) Numerator() int {
	var total int
	for _, s := range strings.Split(t.Beats, "+") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0
		}
		total += n
	}
	return total
}

type Direction struct {
	Line   int     `xml:"-"`
	Sounds []Sound `xml:"sound"`
}

type Sound struct {
	Tempo    *float64 `xml:"tempo,attr"`
	Dynamics *float64 `xml:"dynamics,attr"`
}

type Move struct {
	Duration float64 `xml:"duration"`
	Forward  bool    `xml:"-"`
}

type Note struct {
	Line       int           `xml:"-"`
	Dynamics   *float64      `xml:"dynamics,attr"`
	Grace      *Grace        `xml:"grace"`
	Chord      *struct{}     `xml:"chord"`
	Pitch      *Pitch        `xml:"pitch"`
	Unpitched  *struct{}     `xml:"unpitched"`
	Rest       *struct{}     `xml:"rest"`
	Duration   float64       `xml:"duration"`
	Ties       []Tie         `xml:"tie"`
	Tied       []Tie         `xml:"notations>tied"`
	Voice      int           `xml:"voice"`
	Staff      int           `xml:"staff"`
	Accidental string        `xml:"accidental"`
	TimeMod    *TimeModifier `xml:"time-modification"`
}

type Grace struct {
	MakeTime           *float64 `xml:"make-time,attr"`
	StealTimeFollowing *float64 `xml:"steal-time-following,attr"`
	StealTimePrevious  *float64 `xml:"steal-time-previous,attr"`
}

type Pitch struct {
	Step   string   `xml:"step"`
	Alter  *float64 `xml:"alter"`
	Octave int      `xml:"octave"`
}

type Tie struct {
	Type string `xml:"type,attr"`
}

type TimeModifier struct {
	ActualNotes int `xml:"actual-notes"`
	NormalNotes int `xml:"normal-notes"`
}

// Decode reads a score-partwise document. Non UTF-8 encodings declared in
// the prolog are converted on the fly.
func Decode(r io.Reader) (*Score, error) {
	var score Score
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&score); err != nil {
		return nil, err
	}
	return &score, nil
}
