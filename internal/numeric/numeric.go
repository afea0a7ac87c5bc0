// Package numeric implements the base-32 positional codec used for all
// cross-boundary numeric exchange. Values are arbitrary-precision reals
// (math/big Floats); the text form is the MPFR-style base-32 grammar:
//
//	['-'] digits ['.' digits]     positional notation
//	['-'] digits '@' exponent     mantissa times 32^exponent
//
// with digits drawn from 0-9a-v and the exponent written in decimal. The
// reserved tokens @NaN@, @Inf@ and -@Inf@ are recognized but rejected as
// non-finite: the iteration kernel has no use for them.
//
// Format emits enough digits that re-parsing its output at the same or
// higher precision reproduces the value exactly.
package numeric

import (
	"math/big"
	"strconv"
	"strings"

	errs "github.com/Iron-Ham/mandelgrid/internal/errors"
)

// alphabet is the base-32 digit set, index = digit value.
const alphabet = "0123456789abcdefghijklmnopqrstuv"

// bitsPerDigit is log2(32): each base-32 digit carries exactly 5 bits.
const bitsPerDigit = 5

// nonFinite lists the reserved tokens the codec recognizes but the kernel
// rejects.
var nonFinite = map[string]bool{
	"@NaN@":  true,
	"@Inf@":  true,
	"-@Inf@": true,
}

// digitValue returns the value of a base-32 digit, or -1 if c is not one.
func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'v':
		return int(c-'a') + 10
	default:
		return -1
	}
}

// parseDigits accumulates a base-32 digit string into acc. Returns false on
// the first non-digit byte or an empty string.
func parseDigits(s string, acc *big.Int) bool {
	if s == "" {
		return false
	}
	base := big.NewInt(32)
	d := new(big.Int)
	for i := 0; i < len(s); i++ {
		v := digitValue(s[i])
		if v < 0 {
			return false
		}
		acc.Mul(acc, base)
		acc.Add(acc, d.SetInt64(int64(v)))
	}
	return true
}

// Parse interprets text as a base-32 literal at the given precision in bits.
// Malformed text yields a ParseError wrapping ErrMalformedLiteral; the
// reserved non-finite tokens yield a ParseError wrapping ErrNonFinite. All
// spellings of zero parse to the unique +0.
func Parse(text string, prec uint) (*big.Float, error) {
	if nonFinite[text] {
		return nil, errs.NewParseError(text, errs.ErrNonFinite)
	}
	if text == "" || prec == 0 {
		return nil, errs.NewParseError(text, errs.ErrMalformedLiteral)
	}

	s := text
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}

	// Significand digits accumulate into mant; scale is the power of 32 the
	// accumulated integer must be multiplied by to recover the value.
	mant := new(big.Int)
	scale := 0

	if at := strings.IndexByte(s, '@'); at >= 0 {
		exp, err := strconv.Atoi(s[at+1:])
		if err != nil {
			return nil, errs.NewParseError(text, errs.ErrMalformedLiteral)
		}
		if !parseDigits(s[:at], mant) {
			return nil, errs.NewParseError(text, errs.ErrMalformedLiteral)
		}
		scale = exp
	} else if dot := strings.IndexByte(s, '.'); dot >= 0 {
		if !parseDigits(s[:dot], mant) || !parseDigits(s[dot+1:], mant) {
			return nil, errs.NewParseError(text, errs.ErrMalformedLiteral)
		}
		scale = -(len(s) - dot - 1)
	} else {
		if !parseDigits(s, mant) {
			return nil, errs.NewParseError(text, errs.ErrMalformedLiteral)
		}
	}

	f := new(big.Float).SetPrec(prec).SetInt(mant)
	if f.Sign() == 0 {
		return f, nil // unique zero, sign dropped
	}
	// Multiplying by 32^scale is a pure exponent shift, no rounding.
	f.SetMantExp(f, bitsPerDigit*scale)
	if neg {
		f.Neg(f)
	}
	return f, nil
}

// digits32 converts |v| to a normalized base-32 digit string: v =
// sign · 0.digits × 32^exp with no trailing zeros and a non-zero leading
// digit. The number of digits generated covers v's precision plus a guard
// digit, which is what makes the Format round-trip lossless.
func digits32(v *big.Float) (neg bool, digits string, exp int) {
	neg = v.Sign() < 0

	n := int(v.Prec())/bitsPerDigit + 2 // ceil(prec/5) + guard
	exp2 := v.MantExp(nil)              // |v| in [2^(exp2-1), 2^exp2)

	// est overshoots the base-32 exponent by at most one; the digit count of
	// the scaled integer absorbs the difference below.
	est := exp2 / bitsPerDigit
	if exp2 > 0 && exp2%bitsPerDigit != 0 {
		est++
	}

	t := new(big.Float).SetPrec(v.Prec() + 64)
	t.SetMantExp(v, bitsPerDigit*(n-est))
	t.Abs(t)
	t.Add(t, big.NewFloat(0.5))
	scaled, _ := t.Int(nil)

	digits = scaled.Text(32)
	exp = est - n + len(digits)
	digits = strings.TrimRight(digits, "0")
	return neg, digits, exp
}

// Format renders v in canonical decimal-point notation: trailing fractional
// zeros trimmed, no trailing point, zero as "0".
func Format(v *big.Float) string {
	if v.Sign() == 0 {
		return "0"
	}
	if v.IsInf() {
		if v.Sign() < 0 {
			return "-@Inf@"
		}
		return "@Inf@"
	}

	neg, digits, exp := digits32(v)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	switch {
	case exp >= len(digits):
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", exp-len(digits)))
	case exp > 0:
		b.WriteString(digits[:exp])
		b.WriteByte('.')
		b.WriteString(digits[exp:])
	default:
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -exp))
		b.WriteString(digits)
	}
	return b.String()
}

// FormatScientific renders v as an integer mantissa with a base-32 exponent
// ("digits@exp"), the form the grid generator historically emitted for c
// literals. Parse accepts its output.
func FormatScientific(v *big.Float) string {
	if v.Sign() == 0 {
		return "0"
	}

	neg, digits, exp := digits32(v)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(digits)
	b.WriteByte('@')
	b.WriteString(strconv.Itoa(exp - len(digits)))
	return b.String()
}
