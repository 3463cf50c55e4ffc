package musicxml

import (
	"sort"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/pianofalls/constants"
	"github.com/jsphweid/pianofalls/model"
)

type mark struct {
	q    float64
	it   *item
	stop bool
}

// calculateEventTimes walks measures index by index across all parts and
// converts quarter positions to seconds. Tempo is global: a tempo change in
// any part applies to every part from that point on.
func calculateEventTimes(parts [][]*measure) []*item {
	var res []*item
	var now float64
	tempo := float64(constants.DefaultBPM)

	var count int
	for _, p := range parts {
		if len(p) > count {
			count = len(p)
		}
	}

	for i := 0; i < count; i++ {
		var marks []mark
		var endQ float64
		number := i + 1
		for _, p := range parts {
			if i >= len(p) {
				continue
			}
			m := p[i]
			if m.number > 0 {
				number = m.number
			}
			if m.lengthQ > endQ {
				endQ = m.lengthQ
			}
			for _, it := range m.items {
				marks = append(marks, mark{q: it.startQ, it: it})
			}
		}
		// stops go after all starts so that equal positions keep starts first
		starts := len(marks)
		for k := 0; k < starts; k++ {
			if mk := marks[k]; mk.it.durationQ > 0 {
				end := mk.it.startQ + mk.it.durationQ
				marks = append(marks, mark{q: end, it: mk.it, stop: true})
				if end > endQ {
					endQ = end
				}
			}
		}
		bar := &model.Barline{Measure: number}
		marks = append(marks, mark{q: endQ, it: &item{event: bar, startQ: endQ}})

		sort.SliceStable(marks, func(a, b int) bool {
			return marks[a].q < marks[b].q
		})

		var lastQ float64
		var active []*item
		for _, mk := range marks {
			dt := (mk.q - lastQ) * 60 / tempo
			now += dt
			lastQ = mk.q
			for _, a := range active {
				a.event.Base().Length += dt
			}

			if mk.stop {
				for k, a := range active {
					if a == mk.it {
						active = append(active[:k], active[k+1:]...)
						break
					}
				}
				continue
			}

			b := mk.it.event.Base()
			b.StartTime = now
			b.Length = 0
			if tc, ok := mk.it.event.(*model.TempoChange); ok {
				tempo = tc.BPM
			}
			if mk.it.durationQ > 0 {
				active = append(active, mk.it)
			}
			res = append(res, mk.it)
		}
	}
	return res
}

type tieKey struct {
	part  *model.Part
	staff int
	midi  int
}

// resolveTies merges tied continuations into the note that opened the tie.
// The original note is stretched to the continuation's end and the
// continuation is dropped.
func resolveTies(items []*item, filename string) []model.Event {
	open := make(map[tieKey]*model.Note)
	res := make([]model.Event, 0, len(items))
	for _, it := range items {
		n, ok := it.note()
		if !ok {
			res = append(res, it.event)
			continue
		}
		k := tieKey{part: n.Owner, staff: n.Staff, midi: n.Pitch.MidiNote}

		if it.ties.stop {
			if orig, ok := open[k]; ok {
				orig.Length = n.End() - orig.StartTime
				if !it.ties.start {
					delete(open, k)
				}
				continue
			}
			log.Warn("tie stop without a matching start", "file", filename, "note", n.Pitch.Name(), "line", n.LineNumber)
		}
		if it.ties.start {
			open[k] = n
		}
		res = append(res, n)
	}
	return res
}
