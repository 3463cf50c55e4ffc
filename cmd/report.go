package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/pianofalls/chord"
	"github.com/jsphweid/pianofalls/constants"
	"github.com/jsphweid/pianofalls/file"
	"github.com/jsphweid/pianofalls/model"
	"github.com/jsphweid/pianofalls/song"
	"github.com/jsphweid/pianofalls/util"
	"github.com/spf13/cobra"
)

var reportMax int

func init() {
	reportCmd.Flags().IntVar(&reportMax, "max", 0, "stop after this many files (0 means all)")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report <file|dir>",
	Short: "Summarises one score or every score under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := []string{args[0]}
		info, err := os.Stat(args[0])
		if err != nil {
			return &model.IoError{Filename: args[0], Err: err}
		}
		if info.IsDir() {
			if paths, err = file.GatherScorePaths(args[0], reportMax); err != nil {
				return err
			}
		}
		report(cmd.OutOrStdout(), paths)
		return nil
	},
}

type songReport struct {
	filename     string
	numNotes     int
	numTracks    int
	numTempos    int
	numChords    int
	duration     float64
	chordCounts  map[string]int
	topChord     string
	topChordSeen int
}

func analyze(s *song.Song) songReport {
	r := songReport{
		filename:    s.Filename,
		numNotes:    s.Len(),
		numTracks:   len(s.Tracks()),
		duration:    s.EndTime(),
		chordCounts: make(map[string]int),
	}
	for _, e := range s.Events() {
		if _, ok := e.(*model.TempoChange); ok {
			r.numTempos++
		}
	}

	chords := chord.Group(s.Notes(), constants.SimultaneousTolerance)
	r.numChords = len(chords)
	for _, c := range chords {
		if len(c.Notes) < 2 {
			continue
		}
		r.chordCounts[chord.CreateChordKey(c.Notes)]++
	}
	for _, key := range util.GetKeys(r.chordCounts) {
		if r.chordCounts[key] > r.topChordSeen {
			r.topChord, r.topChordSeen = key, r.chordCounts[key]
		}
	}
	return r
}

func report(w io.Writer, paths []string) {
	var notes, durations []float64
	for _, path := range paths {
		s, err := file.Load(path)
		if err != nil {
			log.Warn("skipping", "file", path, "err", err)
			continue
		}
		r := analyze(s)
		notes = append(notes, float64(r.numNotes))
		durations = append(durations, r.duration)

		fmt.Fprintf(w, "%s\n", r.filename)
		fmt.Fprintf(w, "  notes: %d  tracks: %d  chords: %d  tempo changes: %d\n",
			r.numNotes, r.numTracks, r.numChords, r.numTempos)
		fmt.Fprintf(w, "  duration: %.2fs\n", r.duration)
		if r.topChordSeen > 0 {
			fmt.Fprintf(w, "  most common chord: %s (%d times)\n", r.topChord, r.topChordSeen)
		}
	}
	if len(paths) > 1 {
		fmt.Fprintf(w, "total: %d files, %.0f notes, %.2fs\n", len(notes), util.Sum(notes), util.Sum(durations))
	}
}
