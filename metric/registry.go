package metric

import (
	"fmt"
	"sort"

	"github.com/lucasjlepore/fit-intervals/session"
)

// Registry maps symbols to definitions. It is immutable once built.
type Registry struct {
	defs  map[Symbol]Definition
	order []Symbol
}

// NewRegistry validates the definitions and rejects duplicate symbols.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[Symbol]Definition, len(defs))}
	for _, d := range defs {
		if d.Symbol == "" {
			return nil, fmt.Errorf("metric definition %q has no symbol", d.Name)
		}
		if d.Compute == nil {
			return nil, fmt.Errorf("metric %s has no compute function", d.Symbol)
		}
		if _, exists := r.defs[d.Symbol]; exists {
			return nil, fmt.Errorf("metric %s already registered", d.Symbol)
		}
		if d.Name == "" {
			d.Name = string(d.Symbol)
		}
		r.defs[d.Symbol] = d
		r.order = append(r.order, d.Symbol)
	}
	return r, nil
}

func (r *Registry) Lookup(sym Symbol) (Definition, bool) {
	d, ok := r.defs[sym]
	return d, ok
}

// Symbols returns every registered symbol in registration order.
func (r *Registry) Symbols() []Symbol {
	return append([]Symbol(nil), r.order...)
}

// Sorted returns the definitions ordered by symbol.
func (r *Registry) Sorted() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Relevant reports whether a session with the given channels can produce
// the metric.
func (r *Registry) Relevant(d Definition, channels session.Channels) bool {
	return channels.Has(d.Requires)
}

// Definition returns the definition for sym, or ErrUnknownMetric or
// ErrIrrelevantMetric.
func (r *Registry) Definition(sym Symbol, channels session.Channels) (Definition, error) {
	d, ok := r.defs[sym]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownMetric, sym)
	}
	if !r.Relevant(d, channels) {
		return Definition{}, fmt.Errorf("%w: %s needs %s", ErrIrrelevantMetric, sym, d.Requires)
	}
	return d, nil
}

// Resolve returns the relevant definitions for the requested symbols in
// request order. Unknown, irrelevant and repeated symbols are skipped.
func (r *Registry) Resolve(symbols []Symbol, channels session.Channels) []Definition {
	seen := make(map[Symbol]bool, len(symbols))
	out := make([]Definition, 0, len(symbols))
	for _, sym := range symbols {
		if seen[sym] {
			continue
		}
		seen[sym] = true
		d, err := r.Definition(sym, channels)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}
