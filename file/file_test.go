package file

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jsphweid/pianofalls/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tinyScore = `<?xml version="1.0"?>
<score-partwise>
  <part-list><score-part id="P1"><part-name>Piano</part-name></score-part></part-list>
  <part id="P1">
    <measure number="1">
      <attributes><divisions>1</divisions></attributes>
      <note><pitch><step>C</step><octave>4</octave></pitch><duration>4</duration></note>
    </measure>
  </part>
</score-partwise>
`

func write(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDispatchesByExtension(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "song.MusicXML", tinyScore)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, path, s.Filename)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	txt := write(t, dir, "notes.txt", "hello")

	_, err := Load(txt)
	var fe *model.FormatError
	assert.True(t, errors.As(err, &fe))

	_, err = Load(filepath.Join(dir, "missing.mid"))
	var ioe *model.IoError
	assert.True(t, errors.As(err, &ioe))

	bad := write(t, dir, "bad.mid", "not midi")
	_, err = Load(bad)
	assert.True(t, errors.As(err, &fe))
}

func TestGatherScorePaths(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.mid", "")
	write(t, dir, "b.txt", "")
	write(t, dir, "nested/c.mxl", "")
	write(t, dir, "nested/d.musicxml", "")

	paths, err := GatherScorePaths(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.mid"),
		filepath.Join(dir, "nested/c.mxl"),
		filepath.Join(dir, "nested/d.musicxml"),
	}, paths)

	limited, err := GatherScorePaths(dir, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = GatherScorePaths(filepath.Join(dir, "nope"), 0)
	assert.Error(t, err)
}
