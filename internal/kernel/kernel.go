// Package kernel implements the escape-time recurrence z -> z² + c over
// arbitrary-precision complex values. All functions are pure: they allocate
// their results and never mutate their arguments, so a caller can resume an
// iteration from any intermediate z it kept.
package kernel

import "math/big"

// Complex is an ordered pair of arbitrary-precision reals sharing one
// precision.
type Complex struct {
	Re *big.Float
	Im *big.Float
}

// NewComplex returns the complex zero at the given precision in bits.
func NewComplex(prec uint) Complex {
	return Complex{
		Re: new(big.Float).SetPrec(prec),
		Im: new(big.Float).SetPrec(prec),
	}
}

// Prec returns the precision of z's components.
func (z Complex) Prec() uint { return z.Re.Prec() }

// Clone returns an independent copy of z.
func (z Complex) Clone() Complex {
	return Complex{
		Re: new(big.Float).Copy(z.Re),
		Im: new(big.Float).Copy(z.Im),
	}
}

// Square returns z²: (a² − b², 2ab).
func Square(z Complex) Complex {
	prec := z.Prec()

	a2 := new(big.Float).SetPrec(prec).Mul(z.Re, z.Re)
	b2 := new(big.Float).SetPrec(prec).Mul(z.Im, z.Im)

	re := new(big.Float).SetPrec(prec).Sub(a2, b2)

	im := new(big.Float).SetPrec(prec).Mul(z.Re, z.Im)
	im.Add(im, im)

	return Complex{Re: re, Im: im}
}

// Magnitude returns |z| = sqrt(a² + b²).
func Magnitude(z Complex) *big.Float {
	prec := z.Prec()

	a2 := new(big.Float).SetPrec(prec).Mul(z.Re, z.Re)
	b2 := new(big.Float).SetPrec(prec).Mul(z.Im, z.Im)
	a2.Add(a2, b2)

	return a2.Sqrt(a2)
}

// Step advances the recurrence once: z² + c.
func Step(z, c Complex) Complex {
	sq := Square(z)
	sq.Re.Add(sq.Re, c.Re)
	sq.Im.Add(sq.Im, c.Im)
	return sq
}

// Result is the outcome of an iteration run.
type Result struct {
	// Escaped reports whether |z| exceeded the radius within the budget.
	Escaped bool
	// Z is the final value of the recurrence.
	Z Complex
	// Iterations is the number of steps actually performed: the escaping
	// step's 1-indexed number on escape, the full budget otherwise.
	Iterations int
}

// Iterate advances the recurrence from z0 for at most budget steps,
// returning at the first step whose result exceeds radius in magnitude.
//
// The escape test runs strictly after each step and is strict (> radius;
// equality does not escape). This ordering is load-bearing: testing before
// stepping reclassifies points on the boundary.
func Iterate(z0, c Complex, budget int, radius *big.Float) Result {
	return IterateSteps(z0, c, budget, radius, nil)
}

// IterateSteps is Iterate with an observer invoked after every step with the
// new z and the 1-indexed step number. A nil observer is allowed.
//
// Because the recurrence depends only on the current (z, c) pair, splitting
// a budget across calls and resuming from the returned Z is exactly
// equivalent to one larger call.
func IterateSteps(z0, c Complex, budget int, radius *big.Float, observe func(z Complex, i int)) Result {
	z := z0.Clone()

	for i := 0; i < budget; i++ {
		z = Step(z, c)
		if observe != nil {
			observe(z, i+1)
		}
		if Magnitude(z).Cmp(radius) > 0 {
			return Result{Escaped: true, Z: z, Iterations: i + 1}
		}
	}
	return Result{Escaped: false, Z: z, Iterations: budget}
}
