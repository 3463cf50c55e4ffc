package model

type SongSummary struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	NumNotes int      `json:"num_notes"`
	Duration float64  `json:"duration"`
	Tracks   []string `json:"tracks"`
}

type EventView struct {
	Kind     string  `json:"kind"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Track    string  `json:"track,omitempty"`
	Note     int     `json:"note,omitempty"`
	Key      int     `json:"key,omitempty"`
	Name     string  `json:"name,omitempty"`
	BPM      float64 `json:"bpm,omitempty"`
}

type TimeSnapshotView struct {
	Time          float64 `json:"time"`
	Target        float64 `json:"target"`
	Scrolling     bool    `json:"scrolling"`
	Mode          string  `json:"mode"`
	Speed         float64 `json:"speed"`
	NextNoteIndex int     `json:"next_note_index"`
	NumPlayed     int     `json:"num_played"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}

type SeekRequestBody struct {
	Time float64 `json:"time"`
}

type ScrollingRequestBody struct {
	Scrolling bool `json:"scrolling"`
}

type ModeRequestBody struct {
	Mode string `json:"mode"`
}

type TrackModeRequestBody struct {
	Track string `json:"track"`
	Mode  string `json:"mode"`
}

type VolumeRequestBody struct {
	Volume float64 `json:"volume"`
}
