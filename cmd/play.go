package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/pianofalls/file"
	"github.com/jsphweid/pianofalls/scroll"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver
)

var playOpts engineOptions

func addEngineFlags(cmd *cobra.Command, o *engineOptions) {
	o.defaults()
	cmd.Flags().StringVar(&o.mode, "mode", "wait", "tempo, wait or follow")
	cmd.Flags().Float64Var(&o.speed, "speed", 1, "scroll speed multiplier")
	cmd.Flags().Float64Var(&o.volume, "volume", 1, "autoplay velocity scale")
	cmd.Flags().Float64Var(&o.earlyKey, "early-key-time", o.earlyKey, "seconds before a note that a press still counts")
	cmd.Flags().StringVar(&o.midiIn, "in", o.midiIn, "MIDI input port (default: first port)")
	cmd.Flags().StringVar(&o.midiOut, "out", o.midiOut, "MIDI output port for autoplay (default: first port)")
	cmd.Flags().StringVar(&o.soundFont, "soundfont", o.soundFont, "render autoplay with this .sf2 instead of a MIDI port")
	cmd.Flags().StringSliceVar(&o.autoplay, "autoplay", nil, "tracks the computer plays, e.g. \"Piano staff 2\"")
}

func init() {
	addEngineFlags(playCmd, &playOpts)
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Plays along with a score on a MIDI keyboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := file.Load(args[0])
		if err != nil {
			return err
		}
		defer midi.CloseDriver()

		sink, closeSink, err := openSink(playOpts)
		if err != nil {
			return err
		}
		defer closeSink()

		playOpts.scrolling = true
		e, err := newEngine(s, sink, playOpts)
		if err != nil {
			return err
		}
		stop := listenKeys(e, playOpts)
		defer stop()

		ctx, cancel := signalContext()
		defer cancel()

		go logProgress(ctx, e)
		log.Info("playing", "file", s.Filename, "notes", s.Len(), "mode", playOpts.mode)
		return e.Run(ctx)
	},
}

func logProgress(ctx context.Context, e *scroll.Engine) {
	updates, unsubscribe := e.Subscribe()
	defer unsubscribe()
	lastIndex := -1
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if snap.NextNoteIndex != lastIndex {
				lastIndex = snap.NextNoteIndex
				log.Debug("progress", "time", snap.Time, "next", snap.NextNoteIndex)
			}
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
