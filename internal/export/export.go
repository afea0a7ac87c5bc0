// Package export serializes a finished grid to and from its CSV record
// form, the interchange format between the compute and zoom stages.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	errs "github.com/Iron-Ham/mandelgrid/internal/errors"
	"github.com/Iron-Ham/mandelgrid/internal/grid"
)

// header is the fixed column set. CA/CB keep the input literal form of c;
// FINAL_ZA/FINAL_ZB carry the final orbit position in canonical form.
var header = []string{"X", "Y", "CA", "CB", "ESCAPED", "ITERATIONS", "FINAL_ZA", "FINAL_ZB"}

// Write renders g as CSV records, one row per grid point.
func Write(w io.Writer, g *grid.Grid) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errs.Wrap(err, "writing csv header")
	}
	for i := range g.Points {
		p := &g.Points[i]
		escaped := "N"
		if p.Escaped {
			escaped = "Y"
		}
		row := []string{
			strconv.Itoa(p.X), strconv.Itoa(p.Y),
			p.CRe, p.CIm,
			escaped,
			strconv.Itoa(p.Iterations),
			p.ZRe, p.ZIm,
		}
		if err := cw.Write(row); err != nil {
			return errs.Wrap(err, "writing csv row")
		}
	}
	cw.Flush()
	return errs.Wrap(cw.Error(), "flushing csv")
}

// Read reconstructs a grid from its CSV record form. The grid must be
// square and fully populated; the working precision is re-derived from the
// longest c literal so the zoom stage can parse the coordinates losslessly.
func Read(r io.Reader) (*grid.Grid, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errs.Wrap(err, "reading csv")
	}
	if len(rows) < 2 {
		return nil, errs.NewParseError("csv", errs.ErrMalformedLine)
	}
	for i, col := range header {
		if rows[0][i] != col {
			return nil, errs.NewParseError(rows[0][i], errs.ErrMalformedLine)
		}
	}
	rows = rows[1:]

	points := make([]grid.Point, 0, len(rows))
	res := 0
	maxDigits := 0
	for _, row := range rows {
		x, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, errs.NewParseError(row[0], errs.ErrMalformedLine)
		}
		y, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, errs.NewParseError(row[1], errs.ErrMalformedLine)
		}
		if x < 0 || y < 0 {
			return nil, errs.NewParseError(row[0]+","+row[1], errs.ErrMalformedLine)
		}
		iters, err := strconv.Atoi(row[5])
		if err != nil || iters < 0 {
			return nil, errs.NewParseError(row[5], errs.ErrMalformedLine)
		}
		if row[4] != "Y" && row[4] != "N" {
			return nil, errs.NewParseError(row[4], errs.ErrMalformedLine)
		}

		points = append(points, grid.Point{
			X: x, Y: y,
			CRe: row[2], CIm: row[3],
			ZRe: row[6], ZIm: row[7],
			Escaped:    row[4] == "Y",
			Iterations: iters,
		})
		if x >= res {
			res = x + 1
		}
		if y >= res {
			res = y + 1
		}
		if n := len(row[2]); n > maxDigits {
			maxDigits = n
		}
		if n := len(row[3]); n > maxDigits {
			maxDigits = n
		}
	}
	if len(points) != res*res {
		return nil, errs.NewParseError("csv", errs.ErrMalformedLine)
	}

	g := &grid.Grid{
		Res:       res,
		Precision: literalPrecision(maxDigits),
		Points:    make([]grid.Point, res*res),
	}
	seen := make([]bool, res*res)
	for _, p := range points {
		idx := p.Y*res + p.X
		if seen[idx] {
			return nil, errs.NewParseError("csv", errs.ErrMalformedLine)
		}
		seen[idx] = true
		g.Points[idx] = p
	}
	return g, nil
}

// literalPrecision sizes working precision to cover a base-32 literal of n
// characters: 5 bits per digit, rounded up to a 64-bit boundary.
func literalPrecision(n int) uint {
	bits := n * 5
	if bits < grid.MinPrecision {
		return grid.MinPrecision
	}
	return uint((bits + 63) / 64 * 64)
}
