package chord

import (
	"fmt"
	"sort"

	"github.com/jsphweid/pianofalls/model"
)

// CreateChordKey renders notes as a sorted, dash separated key ("60-64-67").
func CreateChordKey(notes []uint8) string {
	sorted := append([]uint8(nil), notes...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})
	var res string
	for i, note := range sorted {
		res += fmt.Sprintf("%v", note)
		if i < len(sorted)-1 {
			res += "-"
		}
	}
	return res
}

// Group clusters notes (in timeline order) whose start lies within tolerance
// of the first note of the cluster.
func Group(notes []*model.Note, tolerance float64) []model.Chord {
	var chords []model.Chord
	for i, n := range notes {
		if len(chords) > 0 {
			c := &chords[len(chords)-1]
			if n.StartTime-c.Start < tolerance {
				c.Notes = append(c.Notes, uint8(n.Pitch.MidiNote))
				c.Indices = append(c.Indices, i)
				continue
			}
		}
		chords = append(chords, model.Chord{
			Start:   n.StartTime,
			Notes:   model.Notes{uint8(n.Pitch.MidiNote)},
			Indices: []int{i},
		})
	}
	return chords
}

// Simultaneous calls fn with the index of every other note starting within
// tolerance of notes[i], nearest first on each side. Returning false from fn
// stops the walk.
func Simultaneous(notes []*model.Note, i int, tolerance float64, fn func(j int) bool) {
	start := notes[i].StartTime
	for j := i - 1; j >= 0 && start-notes[j].StartTime < tolerance; j-- {
		if !fn(j) {
			return
		}
	}
	for j := i + 1; j < len(notes) && notes[j].StartTime-start < tolerance; j++ {
		if !fn(j) {
			return
		}
	}
}
