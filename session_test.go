package viscor

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/viscor/imageutil"
)

func testComposer(t *testing.T, panelWidth int) *Composer {
	t.Helper()
	a := imageutil.NewRGBAImage(32, 32)
	a.Fill(imageutil.RGB{R: 200, G: 10, B: 10})
	b := imageutil.NewRGBAImage(32, 32)
	b.Fill(imageutil.RGB{R: 10, G: 10, B: 200})
	return NewComposer(a, b, panelWidth)
}

func TestSessionRun(t *testing.T) {
	src := newCountingSource(10, 10, 4, 4)
	in := NewInspector(src)
	var out bytes.Buffer
	s := NewSession(in, testComposer(t, 48), &out, WithColumns(40))

	err := s.Run(context.Background(), strings.NewReader("0.1 0.1\n0.1 0.1\nexp\nquit\n0.9 0.9\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, in.Computations())
	assert.Equal(t, 4, s.Frames())
	assert.Contains(t, out.String(), ESC+"[38;2;")
	assert.Contains(t, out.String(), "cell (1, 1)  exp on")
	assert.True(t, in.Current().Exp)
}

func TestSessionReportsBadInput(t *testing.T) {
	in := NewInspector(newCountingSource(4, 4, 2, 2))
	var out, logs bytes.Buffer
	s := NewSession(in, testComposer(t, 48), &out, WithColumns(20),
		WithSessionLogger(NewTextLogger(&logs, slog.LevelDebug)))

	require.NoError(t, s.Run(context.Background(), strings.NewReader("teleport\n")))
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), `unknown command \"teleport\"`)
	assert.NotContains(t, out.String(), "teleport", "frames stream carries no diagnostics")
	assert.Equal(t, 1, s.Frames())
}

func TestSessionSavesFrame(t *testing.T) {
	in := NewInspector(newCountingSource(4, 4, 2, 2))
	path := filepath.Join(t.TempDir(), "frame.png")
	var out bytes.Buffer
	s := NewSession(in, testComposer(t, 48), &out, WithColumns(20))

	require.NoError(t, s.Run(context.Background(), strings.NewReader("save "+path+"\n")))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 2*48+DefaultColorBarWidth, cfg.Width)
	assert.Equal(t, 48, cfg.Height)
}

func TestSessionAbsorbsSourceErrors(t *testing.T) {
	src := newCountingSource(4, 4, 2, 2)
	src.err = errors.New("disk on fire")
	in := NewInspector(src)
	var out bytes.Buffer
	s := NewSession(in, testComposer(t, 48), &out)

	require.NoError(t, s.Run(context.Background(), strings.NewReader("0.9 0.9\n")))
	assert.Zero(t, s.Frames())
	assert.Equal(t, 3, in.Current().I, "the query is committed even without a frame")
}

func TestSessionVolumeSelection(t *testing.T) {
	in := NewInspector(newCountingSource(4, 4, 2, 2))
	var out bytes.Buffer
	s := NewSession(in, testComposer(t, 48), &out, WithVolumeNames([]string{"a", "b"}))

	s.Apply(Event{Kind: EventVolume, Volume: 7})
	assert.Equal(t, 1, in.Proposed().Volume)
	s.Apply(Event{Kind: EventVolume, Volume: -3})
	assert.Equal(t, 0, in.Proposed().Volume)

	s.Apply(Event{Kind: EventAlpha, Alpha: 0.129})
	assert.InDelta(t, 0.13, in.Proposed().Alpha, 1e-12)
}

func TestSessionCancelled(t *testing.T) {
	in := NewInspector(newCountingSource(4, 4, 2, 2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	s := NewSession(in, testComposer(t, 48), &out)
	err := s.Run(ctx, strings.NewReader("0.1 0.1\n"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, s.Frames())
}

func TestSessionCancelledWhileWaiting(t *testing.T) {
	in := NewInspector(newCountingSource(4, 4, 2, 2))
	ctx, cancel := context.WithCancel(context.Background())
	events, w := io.Pipe()
	defer w.Close()

	var out bytes.Buffer
	s := NewSession(in, testComposer(t, 48), &out)
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx, events) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run kept waiting for input after cancel")
	}
	assert.Equal(t, 1, s.Frames())
}

func TestSessionNegativeVolumeWithoutNames(t *testing.T) {
	in := NewInspector(newCountingSource(4, 4, 2, 2))
	var out bytes.Buffer
	s := NewSession(in, testComposer(t, 48), &out)

	require.NotPanics(t, func() {
		require.NoError(t, s.Run(context.Background(), strings.NewReader("volume -1\n")))
	})
	assert.Equal(t, 0, in.Current().Volume)
	assert.Equal(t, 2, s.Frames())
	assert.NotContains(t, out.String(), "volume ")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestSessionStopsOnOutputError(t *testing.T) {
	in := NewInspector(newCountingSource(4, 4, 2, 2))
	s := NewSession(in, testComposer(t, 48), failingWriter{})
	err := s.Run(context.Background(), strings.NewReader(""))
	assert.EqualError(t, err, "closed")
}
