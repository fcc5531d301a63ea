package measure

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/measurement-maps/internal/imaging"
	"github.com/ironsheep/measurement-maps/internal/regions"
)

// DefaultLabelPattern extracts the track number from names such as
// "Track-0007:Frame-0003". The first capture group must hold the number.
const DefaultLabelPattern = `Track-(\d+):.*`

var (
	// ErrLabelParseFailure reports that a region name did not contain a
	// parsable number. The statistic value is 0.
	ErrLabelParseFailure = errors.New("region name does not encode a label")

	// ErrUndefinedRatio reports a shape ratio with a zero denominator. The
	// statistic value is +Inf.
	ErrUndefinedRatio = errors.New("ratio undefined for degenerate shape")
)

// Recoverable reports whether err is a per-region condition whose value
// should still be used.
func Recoverable(err error) bool {
	return errors.Is(err, ErrLabelParseFailure) || errors.Is(err, ErrUndefinedRatio)
}

// Condition is a recoverable problem met while measuring one region.
type Condition struct {
	Label int
	Name  string
	Kind  Kind
	Err   error
}

func (c *Condition) Error() string {
	return fmt.Sprintf("region %d (%s) %s: %v", c.Label, c.Name, c.Kind, c.Err)
}

func (c *Condition) Unwrap() error {
	return c.Err
}

// Engine computes statistics of regions over a source channel.
//
// An Engine holds no per-call state and is safe for concurrent use.
type Engine struct {
	labelPattern *regexp.Regexp
}

// NewEngine returns an engine using DefaultLabelPattern.
func NewEngine() *Engine {
	return &Engine{labelPattern: regexp.MustCompile(DefaultLabelPattern)}
}

// NewEngineWithPattern returns an engine that parses NameEncodedLabel with a
// custom expression. The expression needs at least one capture group.
func NewEngineWithPattern(pattern string) (*Engine, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid label pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("label pattern %q has no capture group", pattern)
	}
	return &Engine{labelPattern: re}, nil
}

// sample gives handlers access to one region and the plane it is measured
// on. Intensity values are gathered on first use.
type sample struct {
	engine *Engine
	region regions.Region
	src    *imaging.Buffer
	plane  int
	values []float64
}

func (s *sample) Values() []float64 {
	if s.values == nil {
		s.values = make([]float64, len(s.region.Pixels))
		for i, p := range s.region.Pixels {
			s.values[i] = s.src.At(p.X, p.Y, s.plane)
		}
	}
	return s.values
}

type handler func(s *sample) (float64, error)

// handlers is indexed by Kind; every declared kind has an entry.
var handlers = [numKinds]handler{
	Area:              func(s *sample) (float64, error) { return float64(s.region.Area), nil },
	Angle:             func(s *sample) (float64, error) { return s.region.Angle, nil },
	AngleVertical:     func(s *sample) (float64, error) { return s.region.Angle - 90, nil },
	AspectRatio:       aspectRatio,
	Circularity:       circularity,
	MajorAxis:         func(s *sample) (float64, error) { return s.region.Major, nil },
	MinorAxis:         func(s *sample) (float64, error) { return s.region.Minor, nil },
	Mean:              func(s *sample) (float64, error) { return stat.Mean(s.Values(), nil), nil },
	Median:            median,
	Mode:              mode,
	Min:               minimum,
	Max:               maximum,
	Perimeter:         func(s *sample) (float64, error) { return s.region.Perimeter, nil },
	NameEncodedLabel:  func(s *sample) (float64, error) { return s.engine.parseLabel(s.region.Name) },
	CentroidX:         func(s *sample) (float64, error) { return s.region.CentroidX, nil },
	CentroidY:         func(s *sample) (float64, error) { return s.region.CentroidY, nil },
	CenterOfMassX:     func(s *sample) (float64, error) { return centerOfMass(s, true), nil },
	CenterOfMassY:     func(s *sample) (float64, error) { return centerOfMass(s, false), nil },
	StdDev:            stdDev,
	IntegratedDensity: func(s *sample) (float64, error) { return stat.Mean(s.Values(), nil) * float64(s.region.Area), nil },
}

// Compute returns statistic k of region r measured on src.
//
// Intensity statistics read the region's own plane of src, or plane 0 when
// src is a single plane. Recoverable problems are returned as a *Condition
// wrapping ErrLabelParseFailure or ErrUndefinedRatio, together with a usable
// value (0 and +Inf respectively); any other error means nothing could be
// measured.
func (e *Engine) Compute(r regions.Region, src *imaging.Buffer, k Kind) (float64, error) {
	if !k.Valid() {
		return 0, fmt.Errorf("invalid statistic %d", int(k))
	}
	s, err := e.newSample(r, src)
	if err != nil {
		return 0, err
	}
	v, err := handlers[k](s)
	if err != nil && Recoverable(err) {
		return v, &Condition{Label: r.Label, Name: r.Name, Kind: k, Err: err}
	}
	return v, err
}

func (e *Engine) newSample(r regions.Region, src *imaging.Buffer) (*sample, error) {
	if src == nil {
		return nil, errors.New("nil source channel")
	}
	if len(r.Pixels) == 0 {
		return nil, fmt.Errorf("region %d has no pixels", r.Label)
	}
	plane, err := targetPlane(r, src)
	if err != nil {
		return nil, err
	}
	for _, p := range r.Pixels {
		if !src.InBounds(p.X, p.Y, plane) {
			return nil, fmt.Errorf("region %d pixel %v lies outside %dx%d channel",
				r.Label, p, src.Width, src.Height)
		}
	}
	return &sample{engine: e, region: r, src: src, plane: plane}, nil
}

// targetPlane resolves the plane a region is measured on and painted into.
func targetPlane(r regions.Region, b *imaging.Buffer) (int, error) {
	if b.Planes == 1 {
		return 0, nil
	}
	if r.Plane < 0 || r.Plane >= b.Planes {
		return 0, fmt.Errorf("region %d on plane %d outside stack of %d planes", r.Label, r.Plane, b.Planes)
	}
	return r.Plane, nil
}

func (e *Engine) parseLabel(name string) (float64, error) {
	m := e.labelPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrLabelParseFailure, name)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrLabelParseFailure, name)
	}
	return v, nil
}

func aspectRatio(s *sample) (float64, error) {
	if s.region.Minor == 0 {
		return math.Inf(1), fmt.Errorf("aspect ratio: %w", ErrUndefinedRatio)
	}
	return s.region.Major / s.region.Minor, nil
}

func circularity(s *sample) (float64, error) {
	p := s.region.Perimeter
	if p == 0 {
		return math.Inf(1), fmt.Errorf("circularity: %w", ErrUndefinedRatio)
	}
	return 4 * math.Pi * float64(s.region.Area) / (p * p), nil
}

func sorted(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// median returns the lower median for even counts.
func median(s *sample) (float64, error) {
	return stat.Quantile(0.5, stat.Empirical, sorted(s.Values()), nil), nil
}

func minimum(s *sample) (float64, error) {
	v := s.Values()
	m := v[0]
	for _, x := range v[1:] {
		m = math.Min(m, x)
	}
	return m, nil
}

func maximum(s *sample) (float64, error) {
	v := s.Values()
	m := v[0]
	for _, x := range v[1:] {
		m = math.Max(m, x)
	}
	return m, nil
}

func stdDev(s *sample) (float64, error) {
	v := s.Values()
	if len(v) < 2 {
		return 0, nil
	}
	return stat.StdDev(v, nil), nil
}

// mode returns the most frequent value. Integral depths count exact values;
// float data is binned into 256 bins over its range and the centre of the
// fullest bin is returned. Ties go to the lowest value.
func mode(s *sample) (float64, error) {
	v := sorted(s.Values())
	if s.src.Depth.Integral() {
		best, bestCount := v[0], 0
		for i := 0; i < len(v); {
			j := i
			for j < len(v) && v[j] == v[i] {
				j++
			}
			if j-i > bestCount {
				best, bestCount = v[i], j-i
			}
			i = j
		}
		return best, nil
	}

	lo, hi := v[0], v[len(v)-1]
	if hi == lo {
		return lo, nil
	}
	const bins = 256
	width := (hi - lo) / bins
	var counts [bins]int
	for _, x := range v {
		b := int((x - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		counts[b]++
	}
	best := 0
	for b := 1; b < bins; b++ {
		if counts[b] > counts[best] {
			best = b
		}
	}
	return lo + (float64(best)+0.5)*width, nil
}

// centerOfMass returns the intensity-weighted centre along x or y using the
// pixel-centre convention, or the centroid if the intensities sum to 0.
func centerOfMass(s *sample, xAxis bool) float64 {
	var sum, weighted float64
	for i, v := range s.Values() {
		p := s.region.Pixels[i]
		c := float64(p.Y) + 0.5
		if xAxis {
			c = float64(p.X) + 0.5
		}
		sum += v
		weighted += v * c
	}
	if sum == 0 {
		if xAxis {
			return s.region.CentroidX
		}
		return s.region.CentroidY
	}
	return weighted / sum
}
