package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/pianofalls/file"
	"github.com/jsphweid/pianofalls/model"
	"github.com/jsphweid/pianofalls/sample"
	"github.com/spf13/cobra"
)

var (
	sampleFrom, sampleTo float64
	sampleTPQ            uint16
)

func init() {
	sampleCmd.Flags().Float64Var(&sampleFrom, "from", 0, "start of the excerpt in seconds")
	sampleCmd.Flags().Float64Var(&sampleTo, "to", 10, "end of the excerpt in seconds")
	sampleCmd.Flags().Uint16Var(&sampleTPQ, "tpq", 960, "ticks per quarter note in the output")
	rootCmd.AddCommand(sampleCmd)
}

var sampleCmd = &cobra.Command{
	Use:   "sample <file> <out.mid>",
	Short: "Writes an excerpt of a score as a standard MIDI file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := file.Load(args[0])
		if err != nil {
			return err
		}
		dat, err := sample.Bytes(sample.Create(s, sampleFrom, sampleTo, sampleTPQ))
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], dat, 0o644); err != nil {
			return &model.IoError{Filename: args[1], Err: err}
		}
		log.Info("wrote sample", "file", args[1], "from", sampleFrom, "to", sampleTo)
		return nil
	},
}
