// Package coords turns coordinate text into output positions.
//
// A Pipeline receives the coordinate events of one geometry at a time: the
// nested array boundaries below the "coordinates" level and text chunks such as
// "10 50, 11 51". Each chunk is parsed into tuples, then in fixed order
//
//  1. reprojected as one batch, with an optional axis swap,
//  2. simplified per line or ring (Douglas-Peucker), when a tolerance is set,
//  3. rounded to the configured precision,
//
// and handed to a Terminal: JSONTerminal writes GeoJSON coordinate arrays,
// GeometryBuilder accumulates an orb geometry.
package coords

import (
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"

	"github.com/arloliu/geostream/errs"
	"github.com/arloliu/geostream/format"
	"github.com/arloliu/geostream/internal/pool"
)

// NoPrecision disables rounding.
const NoPrecision = -1

// Terminal receives the processed coordinate structure.
type Terminal interface {
	StartArray()
	EndArray()
	// Position receives one tuple. The slice is only valid during the call.
	Position(tuple []float64)
}

// Config holds the pipeline settings shared by all geometries of a document.
type Config struct {
	// Transformer reprojects coordinates, nil for none.
	Transformer Transformer
	// SwapAxes exchanges the first two axes after reprojection.
	SwapAxes bool
	// Tolerance enables line and ring simplification when positive. It is
	// given in units of the target CRS.
	Tolerance float64
	// Precision is the number of fractional digits to keep, or NoPrecision.
	Precision int
}

// Pipeline processes the coordinates of one geometry at a time.
//
// Pipeline is NOT thread-safe and belongs to one encoding session.
type Pipeline struct {
	cfg   Config
	scale float64
	term  Terminal

	geometryType format.GeometryType
	dim          int
	depth        int
	level        int
	simplifying  bool
	positions    int

	pending []float64
	batch   []float64
	line    []float64
	tuple   []float64
	release []func()
}

// NewPipeline creates a pipeline writing to term.
func NewPipeline(cfg Config, term Terminal) *Pipeline {
	p := &Pipeline{cfg: cfg, term: term}
	if cfg.Precision >= 0 {
		p.scale = math.Pow10(cfg.Precision)
	}

	var cleanup func()
	p.batch, cleanup = pool.GetFloat64Slice(64)
	p.release = append(p.release, cleanup)
	p.line, cleanup = pool.GetFloat64Slice(256)
	p.release = append(p.release, cleanup)

	return p
}

// SetTerminal replaces the terminal, e.g. to follow a swapped sink.
func (p *Pipeline) SetTerminal(term Terminal) {
	p.term = term
}

// Begin starts a geometry of the given type and coordinate dimension.
func (p *Pipeline) Begin(geometryType format.GeometryType, dim int) error {
	if dim != 2 && dim != 3 {
		return fmt.Errorf("%w: %d", errs.ErrInvalidDimension, dim)
	}

	p.geometryType = geometryType
	p.dim = dim
	p.depth = geometryType.NestingDepth()
	p.level = 0
	p.positions = 0
	p.pending = p.pending[:0]
	p.batch = p.batch[:0]
	p.line = p.line[:0]
	p.simplifying = p.cfg.Tolerance > 0 && simplifiable(geometryType)

	return nil
}

func simplifiable(g format.GeometryType) bool {
	switch g {
	case format.GeometryLineString, format.GeometryMultiLineString, format.GeometryPolygon, format.GeometryMultiPolygon:
		return true
	default:
		return false
	}
}

// StartArray opens a nesting level below "coordinates".
func (p *Pipeline) StartArray() {
	p.level++
	p.term.StartArray()
}

// EndArray closes a nesting level. Closing a line or ring completes its
// simplification.
func (p *Pipeline) EndArray() error {
	if len(p.pending) > 0 {
		return p.incomplete()
	}
	if p.simplifying && p.level == p.depth {
		p.flushLine()
	}
	p.level--
	p.term.EndArray()

	return nil
}

// Push parses one chunk of coordinate text.
func (p *Pipeline) Push(text string) error {
	p.batch = p.batch[:0]
	if err := p.tokenize(text); err != nil {
		return err
	}
	if len(p.batch) == 0 {
		return nil
	}
	if p.geometryType == format.GeometryPoint && p.positions+len(p.batch)/p.dim > 1 {
		return &MalformedCoordinateError{Reason: "point with more than one position"}
	}

	if p.cfg.Transformer != nil {
		if err := p.cfg.Transformer.Transform(p.batch, p.dim); err != nil {
			return err
		}
	}
	if p.cfg.SwapAxes {
		for i := 0; i+1 < len(p.batch); i += p.dim {
			p.batch[i], p.batch[i+1] = p.batch[i+1], p.batch[i]
		}
	}

	if p.simplifying {
		p.line = append(p.line, p.batch...)
		return nil
	}

	p.emit(p.batch)

	return nil
}

// End completes the geometry. It fails if the last tuple is incomplete.
func (p *Pipeline) End() error {
	if len(p.pending) > 0 {
		return p.incomplete()
	}
	if p.simplifying && p.depth == 0 {
		p.flushLine()
	}

	return nil
}

// Positions returns the number of positions handed to the terminal for the
// current geometry.
func (p *Pipeline) Positions() int {
	return p.positions
}

// Close returns pooled memory. The pipeline must not be used afterwards.
func (p *Pipeline) Close() {
	for _, fn := range p.release {
		fn()
	}
	p.release = nil
}

func (p *Pipeline) incomplete() error {
	err := &MalformedCoordinateError{
		Reason: fmt.Sprintf("incomplete tuple of %d values, dimension %d", len(p.pending), p.dim),
	}
	p.pending = p.pending[:0]

	return err
}

func isSeparator(c byte) bool {
	return c == ' ' || c == ',' || c == '\t' || c == '\n' || c == '\r'
}

// tokenize appends the complete tuples of text to the batch. A partial tuple
// is kept in pending for the next chunk.
func (p *Pipeline) tokenize(text string) error {
	i := 0
	for i < len(text) {
		for i < len(text) && isSeparator(text[i]) {
			i++
		}
		start := i
		for i < len(text) && !isSeparator(text[i]) {
			i++
		}
		if start == i {
			break
		}

		tok := text[start:i]
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			p.pending = p.pending[:0]
			return &MalformedCoordinateError{Token: tok, Offset: start, Reason: "not a finite number"}
		}

		p.pending = append(p.pending, v)
		if len(p.pending) == p.dim {
			p.batch = append(p.batch, p.pending...)
			p.pending = p.pending[:0]
		}
	}

	return nil
}

func (p *Pipeline) emit(coords []float64) {
	for i := 0; i+p.dim <= len(coords); i += p.dim {
		p.tuple = append(p.tuple[:0], coords[i:i+p.dim]...)
		for j := range p.tuple {
			if p.scale > 0 {
				p.tuple[j] = math.Round(p.tuple[j]*p.scale) / p.scale
			}
			// no negative zero in the output
			if p.tuple[j] == 0 {
				p.tuple[j] = 0
			}
		}
		p.term.Position(p.tuple)
		p.positions++
	}
}

// flushLine simplifies the buffered line or ring and emits it.
func (p *Pipeline) flushLine() {
	defer func() { p.line = p.line[:0] }()

	n := len(p.line) / p.dim
	minPoints := 2
	if p.geometryType.HasRings() {
		minPoints = 4
	}
	if n <= minPoints {
		p.emit(p.line)
		return
	}

	ls := make(orb.LineString, n)
	for i := range ls {
		ls[i] = orb.Point{p.line[i*p.dim], p.line[i*p.dim+1]}
	}

	simplified := simplify.DouglasPeucker(p.cfg.Tolerance).LineString(ls.Clone())
	if len(simplified) < minPoints {
		p.emit(p.line)
		return
	}

	// Map the kept points back onto the original tuples to keep z values.
	kept := p.line[:0]
	j := 0
	for i := 0; i < n && j < len(simplified); i++ {
		if ls[i] == simplified[j] {
			kept = append(kept, p.line[i*p.dim:(i+1)*p.dim]...)
			j++
		}
	}
	p.emit(kept)
}
