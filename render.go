package fitintervals

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/lucasjlepore/fit-intervals/session"
	"github.com/lucasjlepore/fit-intervals/summary"
)

// Render writes the view in the given format: text, yaml or json.
func Render(w io.Writer, format string, sess *session.Session, v summary.View) error {
	switch strings.ToLower(format) {
	case "", "text":
		RenderText(w, sess, v)
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported format %q (want text, yaml or json)", format)
	}
}

// RenderText writes a coloured summary of the view.
func RenderText(w io.Writer, sess *session.Session, v summary.View) {
	header := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	if sess != nil {
		header.Fprintf(w, "Session: %s", sess.Name)
		if sess.Sport != "" {
			fmt.Fprintf(w, " (%s)", sess.Sport)
		}
		fmt.Fprintln(w)
		if !sess.StartTime.IsZero() {
			fmt.Fprintf(w, "Start: %s\n", sess.StartTime.Format("2006-01-02 15:04:05"))
		}
		dim.Fprintf(w, "Channels: %s\n", sess.Channels())
	}

	if v.Placeholder != "" {
		dim.Fprintln(w, v.Placeholder)
		return
	}

	label := color.New(color.Bold)
	approx := color.New(color.FgYellow)
	for _, g := range v.Groups {
		fmt.Fprintln(w)
		label.Fprintln(w, g.Label)
		if g.NoData {
			dim.Fprintf(w, "- %s\n", g.Message)
			continue
		}
		for _, m := range g.Metrics {
			fmt.Fprintf(w, "- %-28s %s", m.Name, m.Value)
			if unit := m.DisplayUnit(); unit != "" {
				fmt.Fprintf(w, " %s", unit)
			}
			if m.Approximate {
				approx.Fprint(w, " ~")
			}
			fmt.Fprintln(w)
		}
	}
}

// RenderLaps lists the session's intervals with their bounds.
func RenderLaps(w io.Writer, sess *session.Session) {
	if sess == nil || len(sess.Intervals) == 0 {
		return
	}
	fmt.Fprintln(w)
	color.New(color.Bold).Fprintln(w, "Intervals")
	for i, iv := range sess.Intervals {
		fmt.Fprintf(w, "- %02d | %-12s | %8.1fs - %8.1fs\n", i+1, iv.Name, iv.StartS, iv.StopS)
	}
}
