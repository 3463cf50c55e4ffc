package model

type Notes = []uint8

// Chord is a group of notes starting together.
type Chord struct {
	Start float64
	Notes Notes

	// indices into Song.Notes
	Indices []int
}
