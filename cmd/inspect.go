package cmd

import (
	"fmt"
	"io"

	"github.com/jsphweid/pianofalls/file"
	"github.com/jsphweid/pianofalls/model"
	"github.com/jsphweid/pianofalls/song"
	"github.com/spf13/cobra"
)

var inspectFrom, inspectTo float64

func init() {
	inspectCmd.Flags().Float64Var(&inspectFrom, "from", 0, "start of the window in seconds")
	inspectCmd.Flags().Float64Var(&inspectTo, "to", -1, "end of the window in seconds (default: end of song)")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Lists the events sounding in a time window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := file.Load(args[0])
		if err != nil {
			return err
		}
		inspect(cmd.OutOrStdout(), s, inspectFrom, inspectTo)
		return nil
	},
}

func describe(e model.Event) string {
	switch v := e.(type) {
	case *model.Note:
		return fmt.Sprintf("%s %s vel=%d", v.Pitch.Name(), model.TrackOf(v), v.Velocity)
	case *model.TempoChange:
		return fmt.Sprintf("%.2f bpm", v.BPM)
	case *model.KeySignatureChange:
		return fmt.Sprintf("fifths=%d", v.Fifths)
	case *model.TimeSignatureChange:
		return fmt.Sprintf("%d/%d", v.Numerator, v.Denominator)
	case *model.Barline:
		return fmt.Sprintf("measure %d", v.Measure)
	}
	return ""
}

func inspect(w io.Writer, s *song.Song, from, to float64) {
	if to < 0 {
		to = s.EndTime()
	}
	for _, e := range s.EventsActiveInRange(from, to) {
		fmt.Fprintf(w, "%9.3f %8.3f %-8s %s\n", e.Start(), e.Duration(), model.Kind(e), describe(e))
	}
}
