// Package region picks the next zoom window from a finished grid: the most
// "interesting" escaped point by a boundary-gradient score, with the window
// shrunk around it.
package region

import (
	"fmt"
	"math"
	"math/big"
	"math/rand"
	"sort"

	errs "github.com/Iron-Ham/mandelgrid/internal/errors"
	"github.com/Iron-Ham/mandelgrid/internal/grid"
	"github.com/Iron-Ham/mandelgrid/internal/numeric"
)

// topFraction is the share of ranked boundary points eligible for random
// selection.
const topFraction = 0.01

// Suggestion is a proposed zoom window with its iteration budget.
type Suggestion struct {
	MinRe, MinIm *big.Float
	MaxRe, MaxIm *big.Float
	Budget       int

	// Chosen is the grid coordinate the window centers on.
	Chosen grid.Point
}

// Line renders the five-token output form: the four new corner literals and
// the new budget.
func (s Suggestion) Line() string {
	return fmt.Sprintf("%s %s %s %s %d",
		numeric.Format(s.MinRe), numeric.Format(s.MinIm),
		numeric.Format(s.MaxRe), numeric.Format(s.MaxIm),
		s.Budget)
}

// scored pairs a boundary point with its complexity score.
type scored struct {
	p     *grid.Point
	score int64
}

// Suggest picks the next window: boundary points (escaped with more than one
// iteration) are ranked by iterations times the absolute iteration gradient
// against their up-to-8 neighbors, one of the top 1% is drawn from rng, and
// the current window is shrunk by mag around it. The new budget is the
// highest observed iteration count scaled by sqrt(mag).
//
// rng is injected so selection is reproducible under a seeded source.
func Suggest(g *grid.Grid, b grid.Bounds, mag float64, rng *rand.Rand) (Suggestion, error) {
	if mag <= 1 {
		return Suggestion{}, errs.NewDomainError("magnification", mag, errs.ErrMagnificationRange)
	}

	var boundary []scored
	for i := range g.Points {
		p := &g.Points[i]
		if !p.Escaped || p.Iterations <= 1 {
			continue
		}
		boundary = append(boundary, scored{p: p, score: score(g, p)})
	}
	if len(boundary) == 0 {
		return Suggestion{}, errs.ErrNoBoundary
	}

	sort.Slice(boundary, func(i, j int) bool {
		if boundary[i].score != boundary[j].score {
			return boundary[i].score > boundary[j].score
		}
		// Deterministic order under ties keeps seeded runs stable.
		if boundary[i].p.Y != boundary[j].p.Y {
			return boundary[i].p.Y < boundary[j].p.Y
		}
		return boundary[i].p.X < boundary[j].p.X
	})

	tier := int(float64(len(boundary)) * topFraction)
	if tier < 1 {
		tier = 1
	}
	chosen := boundary[rng.Intn(tier)].p

	prec := g.Precision + 64
	cRe, err := numeric.Parse(chosen.CRe, prec)
	if err != nil {
		return Suggestion{}, errs.Wrap(err, "chosen point real part")
	}
	cIm, err := numeric.Parse(chosen.CIm, prec)
	if err != nil {
		return Suggestion{}, errs.Wrap(err, "chosen point imaginary part")
	}

	m := new(big.Float).SetPrec(prec).SetFloat64(mag)
	two := new(big.Float).SetPrec(prec).SetInt64(2)

	halfW := new(big.Float).SetPrec(prec).Sub(b.MaxRe, b.MinRe)
	halfW.Quo(halfW, m).Quo(halfW, two)
	halfH := new(big.Float).SetPrec(prec).Sub(b.MaxIm, b.MinIm)
	halfH.Quo(halfH, m).Quo(halfH, two)

	s := Suggestion{
		MinRe:  new(big.Float).SetPrec(prec).Sub(cRe, halfW),
		MinIm:  new(big.Float).SetPrec(prec).Sub(cIm, halfH),
		MaxRe:  new(big.Float).SetPrec(prec).Add(cRe, halfW),
		MaxIm:  new(big.Float).SetPrec(prec).Add(cIm, halfH),
		Budget: nextBudget(g, mag),
		Chosen: *chosen,
	}
	return s, nil
}

// score weighs a boundary point by its own depth times how sharply the
// iteration count changes around it.
func score(g *grid.Grid, p *grid.Point) int64 {
	var gradient int64
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := g.At(p.X+dx, p.Y+dy)
			if n == nil {
				continue
			}
			d := int64(p.Iterations - n.Iterations)
			if d < 0 {
				d = -d
			}
			gradient += d
		}
	}
	return int64(p.Iterations) * gradient
}

// nextBudget scales the deepest observed iteration count by sqrt(mag),
// rounded to nearest.
func nextBudget(g *grid.Grid, mag float64) int {
	max := 0
	for i := range g.Points {
		if g.Points[i].Iterations > max {
			max = g.Points[i].Iterations
		}
	}
	return int(math.Round(float64(max) * math.Sqrt(mag)))
}
