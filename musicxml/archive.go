package musicxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
)

var zipMagic = []byte("PK\x03\x04")

type container struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

func isArchive(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// extractScore returns the score document of a compressed (.mxl) archive.
// The rootfile named in META-INF/container.xml wins; otherwise the first
// top level .xml or .musicxml entry is used.
func extractScore(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "unreadable archive")
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	if f, ok := files["META-INF/container.xml"]; ok {
		if raw, err := readEntry(f); err == nil {
			var c container
			if err := xml.Unmarshal(raw, &c); err == nil {
				for _, rf := range c.Rootfiles {
					if score, ok := files[rf.FullPath]; ok {
						return readEntry(score)
					}
				}
			}
		}
	}

	for _, f := range zr.File {
		if strings.Contains(f.Name, "/") {
			continue
		}
		switch strings.ToLower(path.Ext(f.Name)) {
		case ".xml", ".musicxml":
			return readEntry(f)
		}
	}
	return nil, errors.New("no score found in archive")
}
