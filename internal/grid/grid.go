// Package grid models the sampling grid over the complex plane and runs the
// adaptive multi-pass computation over a worker pool.
package grid

import (
	"math/big"

	errs "github.com/Iron-Ham/mandelgrid/internal/errors"
	"github.com/Iron-Ham/mandelgrid/internal/numeric"
)

// MinPrecision is the floor for working precision in bits.
const MinPrecision = 64

// precisionMargin absorbs rounding error accumulated over iteration.
const precisionMargin = 32

// boundsParsePrec is the scouting precision used to size the grid before the
// working precision is known. 256 bits covers any bounds literal a user
// plausibly types.
const boundsParsePrec = 256

// Bounds is the sampled rectangle of the complex plane.
type Bounds struct {
	MinRe, MinIm *big.Float
	MaxRe, MaxIm *big.Float
}

// ParseBounds reads four base-32 corner literals.
func ParseBounds(minRe, minIm, maxRe, maxIm string) (Bounds, error) {
	var b Bounds
	var err error
	if b.MinRe, err = numeric.Parse(minRe, boundsParsePrec); err != nil {
		return Bounds{}, errs.Wrap(err, "min real bound")
	}
	if b.MinIm, err = numeric.Parse(minIm, boundsParsePrec); err != nil {
		return Bounds{}, errs.Wrap(err, "min imaginary bound")
	}
	if b.MaxRe, err = numeric.Parse(maxRe, boundsParsePrec); err != nil {
		return Bounds{}, errs.Wrap(err, "max real bound")
	}
	if b.MaxIm, err = numeric.Parse(maxIm, boundsParsePrec); err != nil {
		return Bounds{}, errs.Wrap(err, "max imaginary bound")
	}
	if b.MinRe.Cmp(b.MaxRe) > 0 || b.MinIm.Cmp(b.MaxIm) > 0 {
		return Bounds{}, errs.NewDomainError("bounds", "min > max", errs.ErrMalformedLiteral)
	}
	return b, nil
}

// spacing returns the per-axis step at the given precision. A degenerate
// axis (min == max, or a single-sample grid) has zero spacing.
func (b Bounds) spacing(res int, prec uint) (dRe, dIm *big.Float) {
	dRe = new(big.Float).SetPrec(prec).Sub(b.MaxRe, b.MinRe)
	dIm = new(big.Float).SetPrec(prec).Sub(b.MaxIm, b.MinIm)
	if res > 1 {
		den := new(big.Float).SetPrec(prec).SetInt64(int64(res - 1))
		dRe.Quo(dRe, den)
		dIm.Quo(dIm, den)
	} else {
		dRe.SetInt64(0)
		dIm.SetInt64(0)
	}
	return dRe, dIm
}

// Precision picks the working precision in bits for a res×res grid over b:
// enough bits to distinguish adjacent samples on the finer axis, plus a
// 32-bit margin, rounded up to a 64-bit boundary.
func Precision(b Bounds, res int) uint {
	dRe, dIm := b.spacing(res, boundsParsePrec)
	step := dRe
	if dIm.Sign() != 0 && (step.Sign() == 0 || dIm.Cmp(step) < 0) {
		step = dIm
	}
	if step.Sign() == 0 {
		return MinPrecision
	}

	// For step = m * 2^exp with m in [0.5, 1), ceil(log2(1/step)) = 1 - exp.
	exp := step.MantExp(nil)
	required := 1 - exp + precisionMargin
	if required < MinPrecision {
		return MinPrecision
	}
	rounded := (required + 63) / 64 * 64
	return uint(rounded)
}

// Point is one grid sample with its continuation state. CRe/CIm hold the
// parameter in input literal form; ZRe/ZIm hold the current orbit position
// and advance across passes.
type Point struct {
	X, Y       int
	CRe, CIm   string
	ZRe, ZIm   string
	Escaped    bool
	Iterations int
}

// Grid is the full res×res sample set at one working precision.
type Grid struct {
	Res       int
	Precision uint
	Bounds    Bounds
	Points    []Point
}

// Generate lays out a res×res grid over b, every point starting at z = 0
// with zero iterations.
func Generate(b Bounds, res int) (*Grid, error) {
	if res < 1 {
		return nil, errs.NewDomainError("resolution", res, errs.ErrIterationRange)
	}

	prec := Precision(b, res)
	dRe, dIm := b.spacing(res, prec)
	minRe := new(big.Float).SetPrec(prec).Set(b.MinRe)
	minIm := new(big.Float).SetPrec(prec).Set(b.MinIm)

	g := &Grid{
		Res:       res,
		Precision: prec,
		Bounds:    b,
		Points:    make([]Point, res*res),
	}

	step := new(big.Float).SetPrec(prec)
	c := new(big.Float).SetPrec(prec)
	reLits := make([]string, res)
	imLits := make([]string, res)
	for i := 0; i < res; i++ {
		step.SetInt64(int64(i)).Mul(step, dRe)
		c.Add(minRe, step)
		reLits[i] = numeric.FormatScientific(c)

		step.SetInt64(int64(i)).Mul(step, dIm)
		c.Add(minIm, step)
		imLits[i] = numeric.FormatScientific(c)
	}

	for y := 0; y < res; y++ {
		for x := 0; x < res; x++ {
			g.Points[y*res+x] = Point{
				X: x, Y: y,
				CRe: reLits[x], CIm: imLits[y],
				ZRe: "0", ZIm: "0",
			}
		}
	}
	return g, nil
}

// At returns the point at grid coordinate (x, y), or nil when out of range.
func (g *Grid) At(x, y int) *Point {
	if x < 0 || y < 0 || x >= g.Res || y >= g.Res {
		return nil
	}
	return &g.Points[y*g.Res+x]
}

// Unescaped counts the points not yet observed to escape.
func (g *Grid) Unescaped() int {
	n := 0
	for i := range g.Points {
		if !g.Points[i].Escaped {
			n++
		}
	}
	return n
}
