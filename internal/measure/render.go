package measure

import (
	"errors"
	"fmt"

	"github.com/ironsheep/measurement-maps/internal/imaging"
	"github.com/ironsheep/measurement-maps/internal/regions"
)

// Output holds the maps and measurements produced by one render pass.
type Output struct {
	// Kinds lists the rendered statistics, in request order.
	Kinds []Kind

	// Maps holds one 32-bit float map per kind, aligned with Kinds. Each has
	// the source's width, height and plane count; pixels outside every region
	// are 0.
	Maps []*imaging.Buffer

	// Table has one record per region in input order and one column per kind.
	Table *Table

	// Conditions lists the recoverable per-region problems met while
	// measuring, in the order they occurred.
	Conditions []*Condition
}

// Map returns the map rendered for k, or nil if k was not requested.
func (o *Output) Map(k Kind) *imaging.Buffer {
	for i, kk := range o.Kinds {
		if kk == k {
			return o.Maps[i]
		}
	}
	return nil
}

// Render is RenderAll for a single statistic.
func (e *Engine) Render(src *imaging.Buffer, regs []regions.Region, k Kind) (*Output, error) {
	return e.RenderAll(src, regs, []Kind{k})
}

// RenderAll measures every region once per kind and paints each region's
// pixels with its value.
//
// Regions are processed in the given order; where regions overlap, the later
// region's value wins. Recoverable conditions are collected in the Output and
// their values painted as usual. A region that cannot be placed on src
// (wrong plane, out of bounds) fails the whole call.
func (e *Engine) RenderAll(src *imaging.Buffer, regs []regions.Region, kinds []Kind) (*Output, error) {
	if src == nil {
		return nil, errors.New("nil source channel")
	}
	if len(kinds) == 0 {
		return nil, errors.New("no statistics requested")
	}
	for _, k := range kinds {
		if !k.Valid() {
			return nil, fmt.Errorf("invalid statistic %d", int(k))
		}
	}

	out := &Output{
		Kinds: append([]Kind(nil), kinds...),
		Maps:  make([]*imaging.Buffer, len(kinds)),
		Table: NewTable(kinds),
	}
	for i := range out.Maps {
		out.Maps[i] = imaging.NewBuffer(src.Width, src.Height, src.Planes, imaging.Depth32F)
	}

	for _, r := range regs {
		s, err := e.newSample(r, src)
		if err != nil {
			return nil, err
		}

		rec := Record{Label: r.Label, Name: r.Name, Plane: r.Plane, Values: make([]float64, len(kinds))}
		for i, k := range kinds {
			v, err := handlers[k](s)
			if err != nil {
				if !Recoverable(err) {
					return nil, fmt.Errorf("region %d %s: %w", r.Label, k, err)
				}
				out.Conditions = append(out.Conditions, &Condition{Label: r.Label, Name: r.Name, Kind: k, Err: err})
			}
			rec.Values[i] = v

			m := out.Maps[i]
			for _, p := range r.Pixels {
				m.Set(p.X, p.Y, s.plane, v)
			}
		}
		out.Table.Records = append(out.Table.Records, rec)
	}
	return out, nil
}

// Render measures regs on src with a default engine, see Engine.RenderAll.
func Render(src *imaging.Buffer, regs []regions.Region, k Kind) (*Output, error) {
	return NewEngine().Render(src, regs, k)
}

// RenderAll renders several statistics with a default engine.
func RenderAll(src *imaging.Buffer, regs []regions.Region, kinds []Kind) (*Output, error) {
	return NewEngine().RenderAll(src, regs, kinds)
}
