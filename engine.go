// Package fitintervals wires FIT sessions, the metric registry and the
// summary assembler into one engine shared by the CLIs and the server.
package fitintervals

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lucasjlepore/fit-intervals/config"
	"github.com/lucasjlepore/fit-intervals/merge"
	"github.com/lucasjlepore/fit-intervals/metric"
	"github.com/lucasjlepore/fit-intervals/session"
	"github.com/lucasjlepore/fit-intervals/store"
	"github.com/lucasjlepore/fit-intervals/summary"
)

type Engine struct {
	Workspace *session.Workspace
	Config    *config.Source
	Registry  *metric.Registry
	Assembler *summary.Assembler
	Logger    *zap.Logger

	closers []func() error
}

// NewEngine builds an engine from cfg. Metric results are cached in SQLite
// when cfg.CachePath is set and in memory otherwise.
func NewEngine(cfg config.Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	src, err := config.NewSource(cfg)
	if err != nil {
		return nil, err
	}
	reg, err := metric.Default()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		Workspace: session.NewWorkspace(),
		Config:    src,
		Registry:  reg,
		Logger:    logger,
	}

	var cache summary.Cache = summary.NewMemoryCache()
	if cfg.CachePath != "" {
		mc, err := store.Open(cfg.CachePath, logger.Named("store"))
		if err != nil {
			return nil, err
		}
		cache = mc
		e.closers = append(e.closers, mc.Close)
	}

	e.Assembler = summary.New(e.Workspace, src, reg,
		summary.WithCache(cache),
		summary.WithLogger(logger.Named("summary")),
	)
	return e, nil
}

// LoadFile decodes a FIT file and adds it to the workspace.
func (e *Engine) LoadFile(path string) (*session.Session, error) {
	s, err := session.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	e.Workspace.Add(s)
	e.Logger.Info("session loaded",
		zap.String("session", s.ID),
		zap.String("name", s.Name),
		zap.Int("samples", s.Stream.Len()),
		zap.Int("laps", len(s.Intervals)),
		zap.Stringer("channels", s.Channels()),
	)
	return s, nil
}

// SelectionStream returns the synthetic stream built from the session's
// current selection.
func (e *Engine) SelectionStream(sessionID string) (*session.Stream, merge.Stats, error) {
	sess, ok := e.Workspace.Session(sessionID)
	if !ok {
		return nil, merge.Stats{}, fmt.Errorf("%w: %s", session.ErrUnknownSession, sessionID)
	}
	stream, stats := merge.Build(sess.Stream, e.Workspace.Selection(sessionID), merge.Options{
		Derived: e.Config.Settings().Derived,
	})
	return stream, stats, nil
}

// Close stops the assembler and releases the metric cache.
func (e *Engine) Close() error {
	e.Assembler.Close()
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// ParseLaps parses a comma separated list of 1-based lap numbers.
func ParseLaps(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid lap %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

// ParseRange parses "start-stop" in seconds, e.g. "100-200" or "12.5-40".
func ParseRange(s string) (startS, stopS float64, err error) {
	a, b, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid range %q (want start-stop)", s)
	}
	startS, err = strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range start %q: %w", a, err)
	}
	stopS, err = strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range stop %q: %w", b, err)
	}
	return startS, stopS, nil
}

// SelectLapsAndRanges selects the given laps of the session plus one new
// interval per range.
func (e *Engine) SelectLapsAndRanges(sessionID string, laps []int, ranges []string) error {
	sess, ok := e.Workspace.Session(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", session.ErrUnknownSession, sessionID)
	}
	var ids []string
	for _, n := range laps {
		if n > len(sess.Intervals) {
			return fmt.Errorf("%w: lap %d (session has %d)", session.ErrUnknownInterval, n, len(sess.Intervals))
		}
		ids = append(ids, sess.Intervals[n-1].ID)
	}
	for _, r := range ranges {
		start, stop, err := ParseRange(r)
		if err != nil {
			return err
		}
		iv, err := e.Workspace.AddInterval(sessionID, "", start, stop)
		if err != nil {
			return err
		}
		ids = append(ids, iv.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	return e.Workspace.Select(sessionID, ids...)
}
