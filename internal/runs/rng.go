package runs

import (
	"math"
	"strconv"
)

const (
	lcgMultiplier uint32 = 1664525
	lcgIncrement  uint32 = 1013904223
)

// lcg is the Numerical Recipes 32-bit linear congruential generator.
// Output parity with previously generated fixtures depends on these exact
// constants and the draw order in Generate.
type lcg struct {
	state uint32
}

func newLCG(seed int64) *lcg {
	return &lcg{state: uint32(seed)}
}

// next advances the state and returns a value in [0, 1].
func (g *lcg) next() float64 {
	g.state = lcgMultiplier*g.state + lcgIncrement
	return float64(g.state) / float64(math.MaxUint32)
}

// below reports whether the next draw is under p.
func (g *lcg) below(p float64) bool {
	return g.next() < p
}

// index draws a uniform index in [0, n). A draw of exactly 1 maps to n-1.
func (g *lcg) index(n int) int {
	i := int(math.Floor(g.next() * float64(n)))
	if i >= n {
		i = n - 1
	}
	return i
}

// formatTenths formats v with one decimal place, rounding exact ties up.
// The only exactly representable ties are odd multiples of 0.25.
func formatTenths(v float64) string {
	q := v * 4
	if q == math.Trunc(q) && math.Mod(q, 2) != 0 {
		v = math.Ceil(v*10) / 10
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
