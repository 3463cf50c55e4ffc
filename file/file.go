// Package file loads scores from disk, picking the importer by extension.
package file

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/jsphweid/pianofalls/midi"
	"github.com/jsphweid/pianofalls/model"
	"github.com/jsphweid/pianofalls/musicxml"
	"github.com/jsphweid/pianofalls/song"
	"github.com/pkg/errors"
)

type reader func(path string) (*song.Song, error)

var readers = map[string]reader{
	".mid":      midi.ReadMidiFile,
	".midi":     midi.ReadMidiFile,
	".xml":      musicxml.ReadFile,
	".musicxml": musicxml.ReadFile,
	".mxl":      musicxml.ReadFile,
}

func IsScore(path string) bool {
	_, ok := readers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load reads the score at path.
func Load(path string) (*song.Song, error) {
	read, ok := readers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, &model.FormatError{Filename: path, Reason: "unknown file extension"}
	}
	return read(path)
}

// GatherScorePaths walks root for loadable scores. maxNum of 0 means no
// limit.
func GatherScorePaths(root string, maxNum int) ([]string, error) {
	var res []string
	walk := func(s string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsScore(s) {
			return nil
		}
		if maxNum > 0 && len(res) >= maxNum {
			return fs.SkipAll
		}
		res = append(res, s)
		return nil
	}
	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, errors.Wrapf(err, "walking %s", root)
	}
	return res, nil
}
