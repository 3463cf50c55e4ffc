package musicxml

import (
	"github.com/charmbracelet/log"
	"github.com/jsphweid/pianofalls/constants"
	"github.com/jsphweid/pianofalls/model"
)

// chordAt returns the note at i together with the chord members directly
// following it.
func chordAt(notes []*item, i int) []*item {
	j := i + 1
	for j < len(notes) && notes[j].grace == notGrace {
		if n, _ := notes[j].note(); !n.IsChord {
			break
		}
		j++
	}
	return notes[i:j]
}

// handleStolenTime gives grace notes a duration and position. Grace notes
// are parsed with no duration; here they take time from the main note that
// follows (or precedes) them and are laid out back to back.
func handleStolenTime(measures []*measure, part *model.Part) {
	var notes []*item
	for _, m := range measures {
		for _, it := range m.items {
			if _, ok := it.note(); ok {
				notes = append(notes, it)
			}
		}
	}

	var prev []*item
	for i := 0; i < len(notes); {
		if notes[i].grace == notGrace {
			prev = chordAt(notes, i)
			i += len(prev)
			continue
		}
		j := i
		for j < len(notes) && notes[j].grace != notGrace {
			j++
		}
		var next []*item
		if j < len(notes) {
			next = chordAt(notes, j)
		}
		layoutGraceNotes(notes[i:j], prev, next, part)
		i = j
	}
}

func layoutGraceNotes(graces, prev, next []*item, part *model.Part) {
	anchor := graces[0].startQ
	var stealNext, stealPrev float64

	var last *item
	for _, g := range graces {
		if n, _ := g.note(); n.IsChord && last != nil {
			continue
		}
		last = g

		switch g.grace {
		case graceMakeTime:
			// keeps the duration it was given
		case graceDefault, graceFollowing:
			if next == nil {
				log.Warn("grace note has no following note to steal time from", "part", part.ID, "line", g.event.Line())
				g.durationQ = constants.DefaultGraceSteal
				continue
			}
			g.durationQ = constants.DefaultGraceSteal
			if g.grace == graceFollowing {
				g.durationQ = next[0].origDurationQ * g.steal / 100
			}
			stealNext += g.durationQ
		case gracePrevious:
			if prev == nil {
				log.Warn("grace note has no previous note to steal time from", "part", part.ID, "line", g.event.Line())
				g.durationQ = constants.DefaultGraceSteal
				continue
			}
			g.durationQ = prev[0].origDurationQ * g.steal / 100
			stealPrev += g.durationQ
		}
	}

	if next != nil && stealNext > 0 {
		if stealNext >= next[0].durationQ {
			log.Warn("grace notes steal more than the following note's duration", "part", part.ID, "line", next[0].event.Line())
		} else {
			for _, n := range next {
				n.startQ += stealNext
				n.durationQ -= stealNext
			}
		}
	}
	if prev != nil && stealPrev > 0 {
		if stealPrev >= prev[0].durationQ {
			log.Warn("grace notes steal more than the previous note's duration", "part", part.ID, "line", prev[0].event.Line())
		} else {
			for _, p := range prev {
				p.durationQ -= stealPrev
			}
		}
	}

	start := anchor - stealPrev
	last = nil
	for _, g := range graces {
		if n, _ := g.note(); n.IsChord && last != nil {
			g.startQ = last.startQ
			g.durationQ = last.durationQ
			continue
		}
		g.startQ = start
		start += g.durationQ
		last = g
	}
}
