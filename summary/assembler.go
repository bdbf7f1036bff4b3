// Package summary turns selection and hover events into the metric summary
// shown for a session.
package summary

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/lucasjlepore/fit-intervals/merge"
	"github.com/lucasjlepore/fit-intervals/metric"
	"github.com/lucasjlepore/fit-intervals/session"
)

// State is what the summary currently displays.
type State int

const (
	NoSelection State = iota
	SingleInterval
	MultiInterval
	HoverPreview
)

func (s State) String() string {
	switch s {
	case NoSelection:
		return "no_selection"
	case SingleInterval:
		return "single_interval"
	case MultiInterval:
		return "multi_interval"
	case HoverPreview:
		return "hover_preview"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Mode selects how a multi-interval selection is summarised.
type Mode int

const (
	// Aggregate computes one group over the union of the selection.
	Aggregate Mode = iota
	// PerInterval shows one group per selected interval.
	PerInterval
)

func (m Mode) String() string {
	if m == PerInterval {
		return "per_interval"
	}
	return "aggregate"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "aggregate":
		return Aggregate, nil
	case "per_interval":
		return PerInterval, nil
	default:
		return Aggregate, fmt.Errorf("unsupported multi-interval mode %q", s)
	}
}

// Settings are the display preferences read on every event.
type Settings struct {
	Symbols  []metric.Symbol
	Units    metric.UnitSystem
	Mode     Mode
	Derived  merge.DerivedPolicy
	Language language.Tag
	Zones    metric.Zones
}

// DefaultSettings shows the default metric list in metric units.
func DefaultSettings() Settings {
	return Settings{
		Symbols:  metric.ParseSymbols(metric.DefaultSymbols),
		Language: language.English,
		Zones:    metric.DefaultZones(),
	}
}

// Provider supplies the current session and its selection.
type Provider interface {
	Current() *session.Session
	Selection(sessionID string) []session.Interval
	Subscribe(fn func(session.Event)) func()
}

// ConfigSource supplies settings and announces changes.
type ConfigSource interface {
	Settings() Settings
	Subscribe(fn func()) func()
}

// StaticSettings is a ConfigSource that never changes.
type StaticSettings Settings

func (s StaticSettings) Settings() Settings { return Settings(s) }

func (s StaticSettings) Subscribe(func()) func() { return func() {} }

// Group is one block of results: a single interval or an aggregate.
type Group struct {
	Label      string          `json:"label" yaml:"label"`
	IntervalID string          `json:"interval_id,omitempty" yaml:"interval_id,omitempty"`
	Aggregate  bool            `json:"aggregate,omitempty" yaml:"aggregate,omitempty"`
	NoData     bool            `json:"no_data,omitempty" yaml:"no_data,omitempty"`
	Message    string          `json:"message,omitempty" yaml:"message,omitempty"`
	Metrics    []metric.Result `json:"metrics" yaml:"metrics"`
}

// View is the published summary.
type View struct {
	SessionID   string  `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	State       State   `json:"state" yaml:"state"`
	Placeholder string  `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Groups      []Group `json:"groups" yaml:"groups"`
	Generation  uint64  `json:"generation" yaml:"generation"`
}

// Assembler reacts to selection, hover and configuration events. Each
// event gets a generation number and only the newest one is kept.
type Assembler struct {
	provider Provider
	config   ConfigSource
	registry *metric.Registry
	pipeline *metric.Pipeline
	cache    Cache
	logger   *zap.Logger
	publish  func(View)

	gen    atomic.Uint64
	mu     sync.Mutex
	view   View
	hover  *session.Interval
	unsubs []func()
}

type Option func(*Assembler)

func WithCache(c Cache) Option {
	return func(a *Assembler) { a.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

// WithPublisher registers a sink called with every committed view.
func WithPublisher(fn func(View)) Option {
	return func(a *Assembler) { a.publish = fn }
}

// New builds an assembler and subscribes it to the provider and the
// configuration source.
func New(provider Provider, config ConfigSource, registry *metric.Registry, opts ...Option) *Assembler {
	a := &Assembler{
		provider: provider,
		config:   config,
		registry: registry,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cache == nil {
		a.cache = NewMemoryCache()
	}
	a.pipeline = metric.NewPipeline(registry, a.logger)

	a.unsubs = append(a.unsubs,
		provider.Subscribe(a.handleEvent),
		config.Subscribe(func() { a.OnConfigChanged() }),
	)
	a.OnSelectionChanged()
	return a
}

// Close detaches the assembler from its sources.
func (a *Assembler) Close() {
	a.mu.Lock()
	unsubs := a.unsubs
	a.unsubs = nil
	a.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

// Current returns the last committed view.
func (a *Assembler) Current() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

func (a *Assembler) handleEvent(ev session.Event) {
	if cur := a.provider.Current(); cur == nil || cur.ID != ev.SessionID {
		return
	}
	switch ev.Kind {
	case session.SelectionChanged, session.IntervalsChanged:
		a.OnSelectionChanged()
	case session.HoverStarted:
		a.OnHover(ev.Interval)
	case session.HoverCleared:
		a.OnHover(nil)
	}
}

// OnSelectionChanged recomputes the view from the current selection. An
// active hover previews again once nothing is selected.
func (a *Assembler) OnSelectionChanged() View {
	gen := a.gen.Add(1)
	a.mu.Lock()
	hover := a.hover
	a.mu.Unlock()
	return a.commit(gen, a.build(a.config.Settings(), hover))
}

// OnHover previews iv while nothing is selected. Passing nil clears the
// hover and restores the selection's view or the placeholder.
func (a *Assembler) OnHover(iv *session.Interval) View {
	gen := a.gen.Add(1)
	var hover *session.Interval
	if iv != nil {
		cp := *iv
		hover = &cp
	}
	a.mu.Lock()
	a.hover = hover
	a.mu.Unlock()

	if hover != nil {
		if sess := a.provider.Current(); sess != nil && len(a.provider.Selection(sess.ID)) > 0 {
			a.logger.Debug("hover ignored while a selection is active", zap.String("interval", hover.ID))
			return a.Current()
		}
	}
	return a.commit(gen, a.build(a.config.Settings(), hover))
}

// OnConfigChanged drops cached results and recomputes the view.
func (a *Assembler) OnConfigChanged() View {
	gen := a.gen.Add(1)
	if err := a.cache.Reset(); err != nil {
		a.logger.Warn("reset metric cache", zap.Error(err))
	}
	a.mu.Lock()
	hover := a.hover
	a.mu.Unlock()
	return a.commit(gen, a.build(a.config.Settings(), hover))
}

func (a *Assembler) commit(gen uint64, v View) View {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen < a.view.Generation {
		return a.view
	}
	v.Generation = gen
	a.view = v
	a.logger.Debug("summary updated",
		zap.Uint64("generation", gen),
		zap.Stringer("state", v.State),
		zap.Int("groups", len(v.Groups)),
	)
	if a.publish != nil {
		a.publish(v)
	}
	return v
}

func (a *Assembler) build(settings Settings, hover *session.Interval) View {
	p := Printer(settings.Language)
	sess := a.provider.Current()
	if sess == nil {
		return View{State: NoSelection, Placeholder: p.Sprintf(msgNoSession)}
	}
	view := View{SessionID: sess.ID}
	sel := a.provider.Selection(sess.ID)

	switch {
	case len(sel) == 1:
		view.State = SingleInterval
		view.Groups = []Group{a.SummaryFor(sess, sel[0], settings)}
	case len(sel) > 1:
		view.State = MultiInterval
		if settings.Mode == PerInterval {
			for _, iv := range sel {
				view.Groups = append(view.Groups, a.SummaryFor(sess, iv, settings))
			}
		} else {
			view.Groups = []Group{a.Aggregate(sess, sel, settings)}
		}
	case hover != nil && (hover.SessionID == "" || hover.SessionID == sess.ID):
		view.State = HoverPreview
		view.Groups = []Group{a.SummaryFor(sess, *hover, settings)}
	default:
		view.State = NoSelection
		view.Placeholder = p.Sprintf(msgSelectInterval)
	}
	return view
}

// SummaryFor computes the configured metrics over one interval, reading
// and filling the cache.
func (a *Assembler) SummaryFor(sess *session.Session, iv session.Interval, settings Settings) Group {
	p := Printer(settings.Language)
	group := Group{Label: iv.Name, IntervalID: iv.ID}

	rng := sess.Stream.Range(iv.StartS, iv.StopS)
	if rng.Empty() {
		if iv.Validate() != nil {
			a.logger.Debug("malformed interval", zap.String("interval", iv.ID),
				zap.Float64("start_s", iv.StartS), zap.Float64("stop_s", iv.StopS))
		}
		return noData(group, p)
	}

	defs := a.registry.Resolve(settings.Symbols, sess.Channels())
	results := make([]*metric.Result, len(defs))
	var missing []metric.Symbol
	for i, def := range defs {
		key := cacheKey(iv, def.Symbol, settings)
		res, ok, err := a.cache.Get(key)
		if err != nil {
			a.logger.Warn("read metric cache", zap.String("symbol", string(def.Symbol)), zap.Error(err))
		}
		if ok {
			results[i] = &res
			continue
		}
		missing = append(missing, def.Symbol)
	}

	if len(missing) > 0 {
		comp := a.pipeline.Compute(rng, settings.Zones, missing)
		for i, def := range defs {
			if results[i] != nil {
				continue
			}
			v, ok := comp.Values[def.Symbol]
			if !ok {
				continue
			}
			res := metric.Format(def, v, settings.Units, p)
			key := cacheKey(iv, def.Symbol, settings)
			if err := a.cache.Put(key, res); err != nil {
				a.logger.Warn("write metric cache", zap.String("symbol", string(def.Symbol)), zap.Error(err))
			}
			results[i] = &res
		}
	}

	for _, r := range results {
		if r != nil {
			group.Metrics = append(group.Metrics, *r)
		}
	}
	return group
}

// Aggregate computes the configured metrics once over the union of the
// intervals.
func (a *Assembler) Aggregate(sess *session.Session, ivs []session.Interval, settings Settings) Group {
	p := Printer(settings.Language)
	group := Group{Label: p.Sprintf(msgIntervals, len(ivs)), Aggregate: true}

	stream, stats := merge.Build(sess.Stream, ivs, merge.Options{Derived: settings.Derived})
	a.logger.Debug("built union stream",
		zap.Int("intervals", stats.Intervals),
		zap.Int("degenerate", stats.Degenerate),
		zap.Int("spans", len(stats.Spans)),
		zap.Int("samples", stats.Included),
		zap.Int("boundaries", stats.Boundaries),
	)
	if stream.Empty() {
		return noData(group, p)
	}

	defs := a.registry.Resolve(settings.Symbols, stream.Channels)
	symbols := make([]metric.Symbol, len(defs))
	for i, d := range defs {
		symbols[i] = d.Symbol
	}
	comp := a.pipeline.Compute(stream, settings.Zones, symbols)
	for _, def := range defs {
		if v, ok := comp.Values[def.Symbol]; ok {
			group.Metrics = append(group.Metrics, metric.Format(def, v, settings.Units, p))
		}
	}
	return group
}

func cacheKey(iv session.Interval, sym metric.Symbol, settings Settings) CacheKey {
	return CacheKey{
		IntervalID: iv.ID,
		Span:       iv.Span(),
		Symbol:     sym,
		Units:      settings.Units,
		Language:   settings.Language.String(),
		Zones:      settings.Zones.Fingerprint(),
	}
}

func noData(g Group, p *message.Printer) Group {
	g.NoData = true
	g.Message = p.Sprintf(msgNoData)
	return g
}
