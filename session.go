package viscor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wbrown/viscor/imageutil"
)

// DefaultColumns is the terminal width a session renders at.
const DefaultColumns = 120

// Session is the interactive frame loop of an inspector. It reads one
// event per line, applies it to the proposed query, renders the frame
// and commits. Frames and query edits run on the calling goroutine; only
// reading the event stream happens elsewhere.
type Session struct {
	inspector *Inspector
	composer  *Composer
	out       io.Writer
	cols      int
	logger    *Logger
	volumes   []string

	pendingSave string
	frames      int
}

// SessionOption is a functional option for configuring a Session.
type SessionOption func(*Session)

// WithColumns sets the terminal width in characters.
func WithColumns(cols int) SessionOption {
	return func(s *Session) {
		s.cols = cols
	}
}

// WithSessionLogger sets the logger for absorbed runtime problems.
func WithSessionLogger(l *Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// WithVolumeNames names the volumes of a multi-volume source and bounds
// the volume selector.
func WithVolumeNames(names []string) SessionOption {
	return func(s *Session) {
		s.volumes = names
	}
}

// NewSession creates a session writing frames to out.
func NewSession(in *Inspector, composer *Composer, out io.Writer, opts ...SessionOption) *Session {
	s := &Session{
		inspector: in,
		composer:  composer,
		out:       out,
		cols:      DefaultColumns,
		logger:    NoopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Frames returns how many frames have been drawn.
func (s *Session) Frames() int { return s.frames }

// Run draws an initial frame, then one frame per event line until quit,
// end of input or cancellation. Cancellation is seen even while waiting
// for input; frames are never interrupted. Lines that fail to parse are
// logged and skipped.
func (s *Session) Run(ctx context.Context, events io.Reader) error {
	if err := s.frame(); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	lines, errc := scanLines(events, done)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return <-errc
			}
			line = l
		}

		ev, err := ParseEvent(line)
		if err != nil {
			s.logger.Warn("ignoring input", "line", line, "error", err)
			continue
		}
		if ev.Kind == EventQuit {
			return nil
		}
		s.Apply(ev)
		if err := s.frame(); err != nil {
			return err
		}
	}
}

// scanLines feeds the lines of r to a channel until r ends or done is
// closed. A reader blocked in Read keeps its goroutine until Read returns.
func scanLines(r io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				errc <- nil
				return
			}
		}
		errc <- sc.Err()
	}()
	return lines, errc
}

// Apply edits the proposed query according to ev.
func (s *Session) Apply(ev Event) {
	in := s.inspector
	switch ev.Kind {
	case EventCursor:
		in.SetCursor(ev.U, ev.V)
	case EventExp:
		if ev.Toggle {
			in.SetExp(!in.Proposed().Exp)
		} else {
			in.SetExp(ev.On)
		}
	case EventAlpha:
		in.SetAlpha(ev.Alpha)
	case EventVolume:
		v := max(0, ev.Volume)
		if n := len(s.volumes); n > 0 {
			v = min(v, n-1)
		}
		in.SetVolume(v)
	case EventSave:
		s.pendingSave = ev.Path
	}
}

// frame runs one inspector frame. Source failures are logged and the
// previous frame stays on screen; only output failures end the session.
func (s *Session) frame() error {
	err := s.inspector.Frame(s.render)
	if err == nil {
		return nil
	}
	var oerr *outputError
	if errors.As(err, &oerr) {
		return err
	}
	q := s.inspector.Proposed()
	s.logger.WithCell(q.I, q.J).Error("frame failed", "error", err)
	s.inspector.Commit()
	return nil
}

type outputError struct{ err error }

func (e *outputError) Error() string { return e.err.Error() }
func (e *outputError) Unwrap() error { return e.err }

func (s *Session) render(h Heatmap) error {
	img, err := s.composer.Compose(h)
	if err != nil {
		return &outputError{err}
	}
	if path := s.pendingSave; path != "" {
		s.pendingSave = ""
		if err := imageutil.SavePNG(img, path); err != nil {
			s.logger.Error("saving frame failed", "path", path, "error", err)
		}
	}
	if _, err := io.WriteString(s.out, RenderANSI(img, s.cols)); err != nil {
		return &outputError{err}
	}
	if _, err := fmt.Fprintln(s.out, s.status(h)); err != nil {
		return &outputError{err}
	}
	s.frames++
	return nil
}

func (s *Session) status(h Heatmap) string {
	q := h.Query
	exp := "off"
	if q.Exp {
		exp = "on"
	}
	line := fmt.Sprintf("query (%.3f, %.3f) cell (%d, %d)  exp %s  alpha %.2f  range [%s, %s]",
		q.U, q.V, q.I, q.J, exp, q.Alpha, FormatBound(h.Min), FormatBound(h.Max))
	if q.Volume >= 0 && q.Volume < len(s.volumes) {
		line += "  volume " + s.volumes[q.Volume]
	}
	return line
}
