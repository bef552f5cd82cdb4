// Package status renders the one-line session status to a terminal.
package status

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"codeberg.org/mutker/clickctl/internal/state"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const appName = "clickctl"

// SnapshotSource is anything that can report the current session state.
type SnapshotSource interface {
	Snapshot() state.Snapshot
	Done() <-chan struct{}
}

type Option func(*Reporter)

// WithColorProfile forces a color profile instead of detecting it from the
// output.
func WithColorProfile(p termenv.Profile) Option {
	return func(r *Reporter) {
		r.renderer.SetColorProfile(p)
	}
}

type styles struct {
	name   lipgloss.Style
	label  lipgloss.Style
	on     lipgloss.Style
	off    lipgloss.Style
	paused lipgloss.Style
	rate   lipgloss.Style
	sep    lipgloss.Style
}

// Reporter periodically redraws the status line in place.
type Reporter struct {
	src      SnapshotSource
	out      io.Writer
	interval time.Duration
	renderer *lipgloss.Renderer
	styles   styles

	lastWidth int
}

func New(src SnapshotSource, out io.Writer, interval time.Duration, opts ...Option) *Reporter {
	if interval <= 0 {
		interval = time.Second
	}

	r := &Reporter{
		src:      src,
		out:      out,
		interval: interval,
		renderer: lipgloss.NewRenderer(out),
	}
	for _, opt := range opts {
		opt(r)
	}

	re := r.renderer
	r.styles = styles{
		name:   re.NewStyle().Bold(true),
		label:  re.NewStyle().Faint(true),
		on:     re.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		off:    re.NewStyle().Foreground(lipgloss.Color("8")),
		paused: re.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		rate:   re.NewStyle().Foreground(lipgloss.Color("14")),
		sep:    re.NewStyle().Faint(true),
	}

	return r
}

// Render formats s as a single line.
func (r *Reporter) Render(s state.Snapshot) string {
	st := r.styles

	field := func(label, value string) string {
		return st.label.Render(label+":") + " " + value
	}
	engaged := func(ch state.Channel) string {
		if s.Channels[ch].Engaged {
			return st.on.Render("ON")
		}
		return st.off.Render("off")
	}

	paused := st.off.Render("No")
	if s.Paused {
		paused = st.paused.Render("Yes")
	}

	parts := []string{
		st.name.Render(appName),
		field("Mode", strings.ToUpper(s.Mode.String())),
		field("Paused", paused),
		field("Left", engaged(state.Left)),
		field("Right", engaged(state.Right)),
		field("Avg CPS", st.rate.Render(fmt.Sprintf("%.1f", s.AverageRate))),
	}

	return strings.Join(parts, st.sep.Render(" | "))
}

// Run redraws the line every interval until ctx is canceled or the state
// stops, then terminates the line.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.draw(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return r.finish()
		case <-r.src.Done():
			return r.finish()
		case <-ticker.C:
			if err := r.draw(); err != nil {
				return err
			}
		}
	}
}

func (r *Reporter) draw() error {
	line := r.Render(r.src.Snapshot())

	// Pad so a shorter line fully overwrites the previous one.
	width := lipgloss.Width(line)
	pad := ""
	if width < r.lastWidth {
		pad = strings.Repeat(" ", r.lastWidth-width)
	}
	r.lastWidth = width

	_, err := io.WriteString(r.out, "\r"+line+pad)
	return err
}

func (r *Reporter) finish() error {
	if err := r.draw(); err != nil {
		return err
	}
	_, err := io.WriteString(r.out, "\n")
	return err
}
