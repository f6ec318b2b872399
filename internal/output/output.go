// Package output renders command results for the terminal.
package output

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jvlcode/screen-recorder/internal/domain"
)

type Formatter struct {
	w io.Writer
	s styles
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w, s: newStyles(lipgloss.NewRenderer(w))}
}

func (f *Formatter) RecordingStarted(file string) {
	fmt.Fprintf(f.w, "%s Recording: %s\n", f.s.recording.Render("●"), file)
}

func (f *Formatter) RecordingStopped(file string, duration time.Duration) {
	if duration > 0 {
		fmt.Fprintf(f.w, "%s Recording stopped (%s): %s\n", f.s.idle.Render("■"), formatDuration(duration), file)
		return
	}
	fmt.Fprintf(f.w, "%s Recording stopped: %s\n", f.s.idle.Render("■"), file)
}

func (f *Formatter) Trimmed(file string, start, end float64) {
	fmt.Fprintf(f.w, "%s Trimmed %s to %.3fs-%.3fs\n", f.s.success.Render("✓"), file, start, end)
}

func (f *Formatter) Discarded(file string) {
	fmt.Fprintf(f.w, "%s Discarded %s\n", f.s.success.Render("✓"), file)
}

func (f *Formatter) Finalized(c domain.Compilation) {
	fmt.Fprintf(f.w, "%s Compilation %d: %s\n", f.s.success.Render("✓"), c.Number, c.Path)
	fmt.Fprintf(f.w, "  %s %d segments archived in %s\n", f.s.dim.Render("└"), len(c.Segments), c.ArchiveDir)
}

// Status prints the recording state reported by the daemon.
func (f *Formatter) Status(state, file string, startedAt *time.Time, pid int, now time.Time) {
	if state != "Recording" {
		fmt.Fprintf(f.w, "%s %s\n", f.s.idle.Render("○"), state)
		return
	}
	line := fmt.Sprintf("%s %s %s", f.s.recording.Render("●"), state, file)
	if startedAt != nil {
		line += f.s.dim.Render(fmt.Sprintf(" (%s, pid %d)", formatDuration(now.Sub(*startedAt)), pid))
	}
	fmt.Fprintln(f.w, line)
}

func (f *Formatter) SegmentList(segs []domain.SegmentInfo) {
	if len(segs) == 0 {
		f.Info("No pending segments")
		return
	}
	fmt.Fprintf(f.w, "%s\n\n", f.s.title.Render("Segments"))
	for _, s := range segs {
		meta := ""
		if !s.HasMeta {
			meta = f.s.warning.Render(" (no meta)")
		}
		fmt.Fprintf(f.w, "  %s  %s  %s%s\n",
			f.s.dim.Render(s.ModTime.Format("2006-01-02 15:04:05")),
			formatBytes(s.Size),
			filepath.Base(s.Path),
			meta,
		)
	}
}

func (f *Formatter) CompilationList(comps []domain.Compilation) {
	if len(comps) == 0 {
		f.Info("No compilations yet")
		return
	}
	fmt.Fprintf(f.w, "%s\n\n", f.s.title.Render("Compilations"))
	for _, c := range comps {
		fmt.Fprintf(f.w, "  #%-4d %s  %s %s\n",
			c.Number,
			f.s.dim.Render(c.CreatedAt.Local().Format("2006-01-02 15:04")),
			c.Path,
			f.s.dim.Render(fmt.Sprintf("(%d segments)", len(c.Segments))),
		)
	}
}

func (f *Formatter) Devices(devices []string) {
	if len(devices) == 0 {
		f.Warning("No audio capture devices found")
		return
	}
	fmt.Fprintf(f.w, "%s\n\n", f.s.title.Render("Audio devices"))
	for i, d := range devices {
		marker := " "
		if i == 0 {
			marker = f.s.success.Render("*")
		}
		fmt.Fprintf(f.w, "  %s %s\n", marker, d)
	}
}

func (f *Formatter) Duration(file string, seconds float64) {
	fmt.Fprintf(f.w, "%s %.3fs\n", f.s.label.Render(filepath.Base(file)), seconds)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	mark := f.s.success.Render("✓")
	if !ok {
		mark = f.s.err.Render("✗")
	}
	fmt.Fprintf(f.w, "  %s %s %s\n", mark, f.s.label.Render(name), detail)
}

// Error prints err. Process failures show the encoder's last stderr lines.
func (f *Formatter) Error(err error) {
	var exitErr *domain.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(f.w, "%s %s\n", f.s.err.Render("✗"), firstLine(err.Error()))
		return
	}
	headline := &domain.ExitError{Kind: exitErr.Kind, Op: exitErr.Op, Code: exitErr.Code}
	fmt.Fprintf(f.w, "%s %s\n", f.s.err.Render("✗"), headline.Error())
	if tail := strings.TrimSpace(exitErr.Stderr); tail != "" {
		for _, line := range strings.Split(tail, "\n") {
			fmt.Fprintf(f.w, "  %s\n", f.s.dim.Render(line))
		}
	}
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "%s %s\n", f.s.dim.Render("i"), msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "%s %s\n", f.s.success.Render("✓"), msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "%s %s\n", f.s.warning.Render("!"), msg)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%6d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%5.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
