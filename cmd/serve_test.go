package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jsphweid/pianofalls/model"
	"github.com/jsphweid/pianofalls/scroll"
	"github.com/jsphweid/pianofalls/song"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var piano = &model.Part{ID: "P1", Name: "Piano"}

func note(start, length float64, midi, staff int) *model.Note {
	return &model.Note{
		EventBase: model.EventBase{StartTime: start, Length: length, Owner: piano},
		Pitch:     model.NewPitch(midi),
		Staff:     staff,
		Velocity:  model.DefaultVelocity,
	}
}

func newTestServer(t *testing.T) (http.Handler, *song.Song, *scroll.Engine) {
	s := song.New([]model.Event{
		note(0, 1, 60, 1),
		note(1, 1, 64, 1),
		note(0, 2, 48, 2),
	})
	s.Filename = "test.musicxml"

	e := scroll.NewEngine(scroll.NewScroller(log.Default()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.NoError(t, e.Do(ctx, func(sc *scroll.Scroller) { sc.SetSong(s) }))
	return NewHandler(ctx, s, e), s, e
}

func do(h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetSong(t *testing.T) {
	h, s, _ := newTestServer(t)
	assert := assert.New(t)

	w := do(h, http.MethodGet, "/song", nil)
	assert.Equal(http.StatusOK, w.Code)
	assert.Equal("*", w.Header().Get("Access-Control-Allow-Origin"))

	var res model.SongSummary
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(s.ID, res.ID)
	assert.Equal(3, res.NumNotes)
	assert.Equal(2.0, res.Duration)
	assert.Equal([]string{"Piano staff 2", "Piano staff 1"}, res.Tracks)
}

func TestGetEvents(t *testing.T) {
	h, _, _ := newTestServer(t)
	assert := assert.New(t)

	w := do(h, http.MethodGet, "/events?from=0&to=0.5", nil)
	assert.Equal(http.StatusOK, w.Code)
	var res []model.EventView
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &res))
	if assert.Len(res, 2) {
		assert.Equal("note", res[0].Kind)
		assert.Equal(48, res[0].Note)
		assert.Equal(60, res[1].Note)
		assert.Equal("Piano staff 1", res[1].Track)
	}

	w = do(h, http.MethodGet, "/events?from=soon", nil)
	assert.Equal(http.StatusBadRequest, w.Code)
	var e model.ErrorResponse
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &e))
	assert.Contains(e.Error, "bad from")
}

func TestPostMode(t *testing.T) {
	h, _, e := newTestServer(t)
	assert := assert.New(t)

	w := do(h, http.MethodPost, "/mode", model.ModeRequestBody{Mode: "tempo"})
	assert.Equal(http.StatusOK, w.Code)
	var res model.TimeSnapshotView
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal("tempo", res.Mode)
	assert.Equal(scroll.Tempo, e.Snapshot().Mode)

	w = do(h, http.MethodPost, "/mode", model.ModeRequestBody{Mode: "jazz"})
	assert.Equal(http.StatusBadRequest, w.Code)

	w = do(h, http.MethodPost, "/mode", "{not json")
	assert.Equal(http.StatusBadRequest, w.Code)
}

func TestPostTracks(t *testing.T) {
	h, s, e := newTestServer(t)
	assert := assert.New(t)

	w := do(h, http.MethodPost, "/tracks", model.TrackModeRequestBody{Track: "Piano staff 2", Mode: "autoplay"})
	assert.Equal(http.StatusOK, w.Code)

	var mode scroll.TrackMode
	assert.NoError(e.Do(context.Background(), func(sc *scroll.Scroller) {
		mode = sc.TrackMode(s.Tracks()[0])
	}))
	assert.Equal(scroll.Autoplay, mode)

	w = do(h, http.MethodPost, "/tracks", model.TrackModeRequestBody{Track: "Violin staff 1", Mode: "autoplay"})
	assert.Equal(http.StatusNotFound, w.Code)

	w = do(h, http.MethodPost, "/tracks", model.TrackModeRequestBody{Track: "Piano staff 1", Mode: "loud"})
	assert.Equal(http.StatusBadRequest, w.Code)
}

func TestPostSeekIsDebounced(t *testing.T) {
	h, _, e := newTestServer(t)
	assert := assert.New(t)

	for _, at := range []float64{1.5, 0.25, 0.5} {
		w := do(h, http.MethodPost, "/seek", model.SeekRequestBody{Time: at})
		assert.Equal(http.StatusAccepted, w.Code)
	}
	assert.Eventually(func() bool {
		return e.Snapshot().Time == 0.5
	}, time.Second, 5*time.Millisecond)
	assert.Equal(2, e.Snapshot().NextNoteIndex)
}

func TestPostScrollingAndVolume(t *testing.T) {
	h, _, e := newTestServer(t)
	assert := assert.New(t)

	w := do(h, http.MethodPost, "/volume", model.VolumeRequestBody{Volume: 0.5})
	assert.Equal(http.StatusOK, w.Code)
	assert.Equal(0.5, e.Snapshot().Volume)

	w = do(h, http.MethodPost, "/scrolling", model.ScrollingRequestBody{Scrolling: true})
	assert.Equal(http.StatusOK, w.Code)
	var res model.TimeSnapshotView
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(res.Scrolling)

	w = do(h, http.MethodGet, "/time", nil)
	assert.Equal(http.StatusOK, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	h, _, _ := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/search", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(h, http.MethodGet, "/seek", nil).Code)
}

func TestSeekAfterShutdownDoesNotBlock(t *testing.T) {
	s := song.New([]model.Event{note(0, 1, 60, 1)})
	e := scroll.NewEngine(scroll.NewScroller(log.Default()))

	// the engine is not running and the server is already shutting down
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srv := newServer(ctx, s, e)
	srv.seek = func(f func()) { f() }

	done := make(chan struct{})
	go func() {
		defer close(done)
		do(srv.router(), http.MethodPost, "/seek", model.SeekRequestBody{Time: 0.5})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("seek blocked on a stopped engine")
	}
}
