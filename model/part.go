package model

import "fmt"

// Part is owned by the importer that produced it; events only reference it.
type Part struct {
	ID         string
	Name       string
	Instrument string
}

// TrackKey identifies a track for synchronization purposes. A single part
// may carry more than one staff (e.g. a grand staff), so the key is the pair.
type TrackKey struct {
	Part  *Part
	Staff int
}

func TrackOf(n *Note) TrackKey {
	return TrackKey{Part: n.Owner, Staff: n.Staff}
}

func (t TrackKey) String() string {
	name := "<none>"
	if t.Part != nil {
		name = t.Part.Name
		if name == "" {
			name = t.Part.ID
		}
	}
	return fmt.Sprintf("%s staff %d", name, t.Staff)
}
