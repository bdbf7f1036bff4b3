package metric

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/lucasjlepore/fit-intervals/session"
)

// NoDataText is the value shown for a metric that has nothing to report.
const NoDataText = "-"

// Computation holds the outcome of one Compute call. Symbols that failed
// appear only in Failed.
type Computation struct {
	Values map[Symbol]Value
	Failed map[Symbol]error
}

// Pipeline computes registered metrics over any stream, raw range or
// synthetic.
type Pipeline struct {
	registry *Registry
	logger   *zap.Logger
}

func NewPipeline(registry *Registry, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{registry: registry, logger: logger}
}

func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Compute evaluates symbols over stream. An empty stream yields NoData for
// every known symbol without running any computation. Metrics that need
// derived fields are left out when the stream carries none.
func (p *Pipeline) Compute(stream *session.Stream, zones Zones, symbols []Symbol) Computation {
	out := Computation{
		Values: make(map[Symbol]Value, len(symbols)),
		Failed: make(map[Symbol]error),
	}
	approximate := stream != nil && stream.Synthetic && len(stream.Boundaries) > 0

	for _, sym := range symbols {
		def, ok := p.registry.Lookup(sym)
		if !ok {
			continue
		}
		if stream.Empty() {
			out.Values[sym] = NoData()
			continue
		}
		if def.RequiresDerived && !stream.HasDerived {
			continue
		}

		v, err := p.computeOne(def, stream, zones)
		if err != nil {
			out.Failed[sym] = err
			p.logger.Warn("metric computation failed",
				zap.String("symbol", string(sym)),
				zap.Int("samples", stream.Len()),
				zap.Error(err),
			)
			continue
		}
		if def.RequiresDerived && approximate {
			v.Approximate = true
		}
		out.Values[sym] = v
	}
	return out
}

func (p *Pipeline) computeOne(def Definition, stream *session.Stream, zones Zones) (v Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("metric %s panicked: %v", def.Symbol, r)
		}
	}()

	v, err = def.Compute(stream, zones)
	if err != nil {
		return Value{}, fmt.Errorf("metric %s: %w", def.Symbol, err)
	}
	if !v.NoData && v.Text == "" && !isFinite(v.Number) {
		return Value{}, fmt.Errorf("metric %s: non-finite result %v", def.Symbol, v.Number)
	}
	return v, nil
}

// Format renders a value in the requested unit system. A nil printer
// formats for English.
func (p *Pipeline) Format(def Definition, v Value, units UnitSystem, printer *message.Printer) Result {
	return Format(def, v, units, printer)
}

// Format renders a value in the requested unit system.
func Format(def Definition, v Value, units UnitSystem, printer *message.Printer) Result {
	res := Result{
		Symbol:      def.Symbol,
		Name:        def.Name,
		Unit:        def.Units(units),
		Approximate: v.Approximate,
	}
	switch {
	case v.NoData:
		res.Value = NoDataText
	case v.Text != "":
		res.Value = v.Text
	case def.Duration:
		res.Value = Clock(v.Number)
	default:
		res.Value = formatNumber(def.Convert(v.Number, units), def.Precision, printer)
	}
	return res
}

func formatNumber(v float64, precision int, printer *message.Printer) string {
	if precision < 0 {
		precision = 0
	}
	if printer == nil {
		return fmt.Sprintf("%.*f", precision, v)
	}
	return printer.Sprint(number.Decimal(v,
		number.MinFractionDigits(precision),
		number.MaxFractionDigits(precision),
	))
}

// Clock renders seconds as h:mm:ss, or m:ss below an hour.
func Clock(seconds float64) string {
	total := int64(math.Round(seconds))
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
