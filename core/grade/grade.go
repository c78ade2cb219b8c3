// Package grade implements the grade-average engine: a small ledger of subject entries and the
// credit-weighted average (SGPA) computed over it.
//
// A Table is owned by a single actor and is not safe for concurrent use; callers sharing one
// across goroutines must serialize access themselves.
package grade

import "strings"

// Symbol is a letter grade. The zero value means "no grade selected".
type Symbol string

const (
	APlus Symbol = "A+"
	A     Symbol = "A"
	BPlus Symbol = "B+"
	B     Symbol = "B"
	CPlus Symbol = "C+"
	C     Symbol = "C"
	D     Symbol = "D"
	F     Symbol = "F"
)

// MaxPoints is the highest value of the point table.
const MaxPoints = 10

// Point is one row of the grade point table.
type Point struct {
	Grade  Symbol `json:"grade"`
	Points int    `json:"points"`
}

// pointTable is kept in display order, best grade first.
var pointTable = []Point{
	{Grade: APlus, Points: 10},
	{Grade: A, Points: 9},
	{Grade: BPlus, Points: 8},
	{Grade: B, Points: 7},
	{Grade: CPlus, Points: 6},
	{Grade: C, Points: 5},
	{Grade: D, Points: 4},
	{Grade: F, Points: 0},
}

// Scale returns a copy of the grade point table in display order.
func Scale() []Point {
	scale := make([]Point, len(pointTable))
	copy(scale, pointTable)
	return scale
}

// Points looks up the point value of g.
func Points(g Symbol) (int, bool) {
	for _, p := range pointTable {
		if p.Grade == g {
			return p.Points, true
		}
	}
	return 0, false
}

// Valid reports whether g is one of the point table's grades. The empty symbol is not valid.
func (g Symbol) Valid() bool {
	_, ok := Points(g)
	return ok
}

// NormalizeSymbol is the input policy for grades typed by people: surrounding space is dropped
// and letters are upper-cased, so " b+ " reads as B+. The result may still be invalid.
func NormalizeSymbol(s string) Symbol {
	return Symbol(strings.ToUpper(strings.TrimSpace(s)))
}

// Band is the qualitative classification of an average.
type Band string

const (
	Excellent    Band = "Excellent"
	VeryGood     Band = "Very Good"
	Good         Band = "Good"
	Satisfactory Band = "Satisfactory"
	Pass         Band = "Pass"
	Fail         Band = "Fail"
)

var bands = []struct {
	min   float64
	band  Band
	color string
}{
	{min: 9, band: Excellent, color: "green"},
	{min: 8, band: VeryGood, color: "blue"},
	{min: 7, band: Good, color: "yellow"},
	{min: 6, band: Satisfactory, color: "orange"},
	{min: 5, band: Pass, color: "red"},
}

// Classify maps an average onto its band. Bands are half-open: [9, 10] Excellent, [8, 9) Very Good, etc.
func Classify(avg float64) Band {
	for _, b := range bands {
		if avg >= b.min {
			return b.band
		}
	}
	return Fail
}

// Color is the display hint used by the front end for the band.
func (b Band) Color() string {
	for _, bb := range bands {
		if bb.band == b {
			return bb.color
		}
	}
	return "red"
}
