package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/jsphweid/pianofalls/constants"
	"github.com/jsphweid/pianofalls/file"
	"github.com/jsphweid/pianofalls/model"
	"github.com/jsphweid/pianofalls/scroll"
	"github.com/jsphweid/pianofalls/song"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	"golang.org/x/sync/errgroup"
)

// seeks arriving faster than this (a dragged scrollbar) collapse into one
const seekDebounce = 30 * time.Millisecond

var (
	serveOpts engineOptions
	serveAddr string
)

func init() {
	addEngineFlags(serveCmd, &serveOpts)
	serveCmd.Flags().StringVar(&serveAddr, "addr", constants.GetListenAddr(), "listen address")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve <file>",
	Short: "Runs the engine and exposes it over HTTP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := file.Load(args[0])
		if err != nil {
			return err
		}
		defer midi.CloseDriver()

		sink, closeSink, err := openSink(serveOpts)
		if err != nil {
			return err
		}
		defer closeSink()

		e, err := newEngine(s, sink, serveOpts)
		if err != nil {
			return err
		}
		stop := listenKeys(e, serveOpts)
		defer stop()

		ctx, cancel := signalContext()
		defer cancel()
		return serve(ctx, serveAddr, s, e)
	},
}

func serve(ctx context.Context, addr string, s *song.Song, e *scroll.Engine) error {
	g, ctx := errgroup.WithContext(ctx)
	srv := &http.Server{Addr: addr, Handler: NewHandler(ctx, s, e)}

	g.Go(func() error { return e.Run(ctx) })
	g.Go(func() error {
		log.Info("serving", "addr", addr, "file", s.Filename)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type server struct {
	// work started by a request but finished after it, like debounced
	// seeks, stops with ctx
	ctx    context.Context
	song   *song.Song
	engine *scroll.Engine
	seek   func(f func())
}

// NewHandler exposes s and e as a JSON API. ctx should end when e stops
// running.
func NewHandler(ctx context.Context, s *song.Song, e *scroll.Engine) http.Handler {
	return newServer(ctx, s, e).router()
}

func newServer(ctx context.Context, s *song.Song, e *scroll.Engine) *server {
	return &server{ctx: ctx, song: s, engine: e, seek: debounce.New(seekDebounce)}
}

func (srv *server) router() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/song", srv.handleSong).Methods(http.MethodGet)
	router.HandleFunc("/events", srv.handleEvents).Methods(http.MethodGet)
	router.HandleFunc("/time", srv.handleTime).Methods(http.MethodGet)
	router.HandleFunc("/seek", srv.handleSeek).Methods(http.MethodPost)
	router.HandleFunc("/scrolling", srv.handleScrolling).Methods(http.MethodPost)
	router.HandleFunc("/mode", srv.handleMode).Methods(http.MethodPost)
	router.HandleFunc("/tracks", srv.handleTracks).Methods(http.MethodPost)
	router.HandleFunc("/volume", srv.handleVolume).Methods(http.MethodPost)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(router)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("could not write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, model.ErrorResponse{Error: err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid request body"))
		return false
	}
	return true
}

// apply runs cmd on the engine and answers with the resulting state.
func (srv *server) apply(w http.ResponseWriter, r *http.Request, cmd scroll.Command) {
	if err := srv.engine.Do(r.Context(), cmd); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, timeView(srv.engine.Snapshot()))
}

func findTrack(s *song.Song, name string) (model.TrackKey, bool) {
	for _, t := range s.Tracks() {
		if t.String() == name {
			return t, true
		}
	}
	return model.TrackKey{}, false
}

func songView(s *song.Song) model.SongSummary {
	tracks := make([]string, 0, len(s.Tracks()))
	for _, t := range s.Tracks() {
		tracks = append(tracks, t.String())
	}
	return model.SongSummary{
		ID:       s.ID,
		Filename: s.Filename,
		NumNotes: s.Len(),
		Duration: s.EndTime(),
		Tracks:   tracks,
	}
}

func eventView(e model.Event) model.EventView {
	v := model.EventView{Kind: model.Kind(e), Start: e.Start(), Duration: e.Duration()}
	switch ev := e.(type) {
	case *model.Note:
		v.Track = model.TrackOf(ev).String()
		v.Note = ev.Pitch.MidiNote
		v.Key = ev.Pitch.Key()
		v.Name = ev.Pitch.Name()
	case *model.TempoChange:
		v.BPM = ev.BPM
	}
	return v
}

func timeView(snap scroll.Snapshot) model.TimeSnapshotView {
	played := 0
	for _, p := range snap.Played {
		if p {
			played++
		}
	}
	return model.TimeSnapshotView{
		Time:          snap.Time,
		Target:        snap.Target,
		Scrolling:     snap.Scrolling,
		Mode:          snap.Mode.String(),
		Speed:         snap.Speed,
		NextNoteIndex: snap.NextNoteIndex,
		NumPlayed:     played,
	}
}

func (srv *server) handleSong(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, songView(srv.song))
}

func queryFloat(r *http.Request, name string, fallback float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	return v, errors.Wrapf(err, "bad %s", name)
}

func (srv *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	from, err := queryFloat(r, "from", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := queryFloat(r, "to", srv.song.EndTime())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res := make([]model.EventView, 0)
	for _, e := range srv.song.EventsActiveInRange(from, to) {
		res = append(res, eventView(e))
	}
	writeJSON(w, http.StatusOK, res)
}

func (srv *server) handleTime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, timeView(srv.engine.Snapshot()))
}

func (srv *server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var input model.SeekRequestBody
	if !decode(w, r, &input) {
		return
	}
	srv.seek(func() {
		err := srv.engine.Do(srv.ctx, func(s *scroll.Scroller) { s.SetTime(input.Time) })
		if err != nil {
			log.Warn("seek failed", "time", input.Time, "err", err)
		}
	})
	writeJSON(w, http.StatusAccepted, timeView(srv.engine.Snapshot()))
}

func (srv *server) handleScrolling(w http.ResponseWriter, r *http.Request) {
	var input model.ScrollingRequestBody
	if !decode(w, r, &input) {
		return
	}
	srv.apply(w, r, func(s *scroll.Scroller) { s.SetScrolling(input.Scrolling) })
}

func (srv *server) handleMode(w http.ResponseWriter, r *http.Request) {
	var input model.ModeRequestBody
	if !decode(w, r, &input) {
		return
	}
	mode, err := scroll.ParseModeKind(input.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	srv.apply(w, r, func(s *scroll.Scroller) { s.SetMode(mode) })
}

func (srv *server) handleTracks(w http.ResponseWriter, r *http.Request) {
	var input model.TrackModeRequestBody
	if !decode(w, r, &input) {
		return
	}
	key, ok := findTrack(srv.song, input.Track)
	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("no track named %q", input.Track))
		return
	}
	mode, err := scroll.ParseTrackMode(input.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	srv.apply(w, r, func(s *scroll.Scroller) { s.SetTrackMode(key, mode) })
}

func (srv *server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var input model.VolumeRequestBody
	if !decode(w, r, &input) {
		return
	}
	srv.apply(w, r, func(s *scroll.Scroller) { s.SetAutoplayVolume(input.Volume) })
}
