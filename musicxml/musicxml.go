// Package musicxml imports MusicXML scores (plain or compressed) into a Song.
package musicxml

import (
	"bytes"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/pianofalls/model"
	"github.com/jsphweid/pianofalls/song"
)

// ReadFile reads and imports the MusicXML (.xml, .musicxml, .mxl) file at path.
func ReadFile(path string) (*song.Song, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.IoError{Filename: path, Err: err}
	}
	return Import(dat, path)
}

func Import(data []byte, filename string) (*song.Song, error) {
	if isArchive(data) {
		score, err := extractScore(data)
		if err != nil {
			return nil, &model.FormatError{Filename: filename, Reason: err.Error()}
		}
		data = score
	}

	score, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &model.FormatError{Filename: filename, Reason: "error parsing MusicXML: " + err.Error()}
	}
	if len(score.Parts) == 0 {
		return nil, &model.FormatError{Filename: filename, Reason: "no parts found in score"}
	}

	info := make(map[string]ScorePart, len(score.PartList))
	for _, sp := range score.PartList {
		info[sp.ID] = sp
	}

	parsed := make([][]*measure, 0, len(score.Parts))
	for i := range score.Parts {
		p := &score.Parts[i]
		part := &model.Part{ID: p.ID, Name: info[p.ID].Name, Instrument: info[p.ID].Instrument}
		if part.Name == "" {
			part.Name = fmt.Sprintf("Part %d", i+1)
		}
		parsed = append(parsed, parsePart(p, part))
	}

	events := resolveTies(calculateEventTimes(parsed), filename)
	song.Normalize(events)

	s := song.New(events)
	s.Filename = filename
	log.Debug("imported musicxml file", "file", filename, "parts", len(parsed), "notes", s.Len())
	return s, nil
}
