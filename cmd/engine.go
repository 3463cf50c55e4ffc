package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/pianofalls/constants"
	"github.com/jsphweid/pianofalls/device"
	"github.com/jsphweid/pianofalls/scroll"
	"github.com/jsphweid/pianofalls/song"
	"github.com/jsphweid/pianofalls/synth"
	"github.com/pkg/errors"
)

type engineOptions struct {
	mode      string
	speed     float64
	volume    float64
	midiIn    string
	midiOut   string
	soundFont string
	autoplay  []string
	scrolling bool
	earlyKey  float64
}

func (o *engineOptions) defaults() {
	o.midiIn = constants.GetMidiIn()
	o.midiOut = constants.GetMidiOut()
	o.soundFont = constants.GetSoundFont()
	o.earlyKey = constants.EarlyKeyTime
}

// newEngine configures a scroller for s. Call it before Run; afterwards the
// scroller may only be touched through Engine.Do.
func newEngine(s *song.Song, sink scroll.Sink, opts engineOptions) (*scroll.Engine, error) {
	mode, err := scroll.ParseModeKind(opts.mode)
	if err != nil {
		return nil, err
	}

	scroller := scroll.NewScroller(log.Default())
	scroller.SetSong(s)
	scroller.SetMode(mode)
	scroller.SetScrollSpeed(opts.speed)
	scroller.SetAutoplayVolume(opts.volume)
	scroller.SetEarlyKeyTime(opts.earlyKey)
	scroller.SetSink(sink)
	scroller.SetScrolling(opts.scrolling)

	for _, name := range opts.autoplay {
		key, ok := findTrack(s, name)
		if !ok {
			return nil, errors.Errorf("no track named %q", name)
		}
		scroller.SetTrackMode(key, scroll.Autoplay)
	}
	return scroll.NewEngine(scroller), nil
}

// openSink picks where autoplay notes go: a SoundFont if one is configured,
// otherwise a MIDI output port. It returns nil when neither is available.
func openSink(opts engineOptions) (scroll.Sink, func(), error) {
	if opts.soundFont != "" {
		f, err := os.Open(opts.soundFont)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening soundfont")
		}
		defer f.Close()
		syn, err := synth.New(f)
		if err != nil {
			return nil, nil, err
		}
		player, err := synth.Play(syn)
		if err != nil {
			return nil, nil, err
		}
		return syn, func() { player.Close() }, nil
	}

	out, err := device.FindOut(opts.midiOut)
	if err != nil {
		log.Warn("autoplay disabled", "err", err)
		return nil, func() {}, nil
	}
	sink, err := device.NewPortSink(out, 0)
	if err != nil {
		return nil, nil, err
	}
	return sink, func() { out.Close() }, nil
}

// listenKeys connects the configured MIDI input to e. Running without a
// keyboard is allowed; only tempo mode is useful then.
func listenKeys(e *scroll.Engine, opts engineOptions) func() {
	in, err := device.FindIn(opts.midiIn)
	if err != nil {
		log.Warn("no keyboard connected", "err", err)
		return func() {}
	}
	stop, err := device.Listen(in, e, log.Default())
	if err != nil {
		log.Warn("no keyboard connected", "err", err)
		return func() {}
	}
	return stop
}
