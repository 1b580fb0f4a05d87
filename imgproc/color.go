package imgproc

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Channel domains of OpenCV's 8-bit HSV representation
const (
	MaxHue        = 180
	MaxSaturation = 255
	MaxValue      = 255
)

type HSV struct {
	H int // 0 <= H <= 180
	S int // 0 <= S <= 255
	V int // 0 <= V <= 255
}

// Checks that every channel lies inside its domain
func (col HSV) Validate() error {
	switch {
	case col.H < 0 || col.H > MaxHue:
		return fmt.Errorf("hue %d outside [0,%d]", col.H, MaxHue)
	case col.S < 0 || col.S > MaxSaturation:
		return fmt.Errorf("saturation %d outside [0,%d]", col.S, MaxSaturation)
	case col.V < 0 || col.V > MaxValue:
		return fmt.Errorf("value %d outside [0,%d]", col.V, MaxValue)
	}
	return nil
}

// Returns the color as a gocv Scalar usable as an InRange bound
func (col HSV) Scalar() gocv.Scalar {
	return gocv.NewScalar(float64(col.H), float64(col.S), float64(col.V), 0)
}

// ColorRange is a pair of inclusive HSV bounds
type ColorRange struct {
	Lower HSV
	Upper HSV
}

func (r ColorRange) Validate() error {
	if err := r.Lower.Validate(); err != nil {
		return fmt.Errorf("lower bound: %w", err)
	}
	if err := r.Upper.Validate(); err != nil {
		return fmt.Errorf("upper bound: %w", err)
	}
	return nil
}

// Reports whether `col` lies within the closed bounds on all three channels
func (r ColorRange) Contains(col HSV) bool {
	return col.H >= r.Lower.H && col.H <= r.Upper.H &&
		col.S >= r.Lower.S && col.S <= r.Upper.S &&
		col.V >= r.Lower.V && col.V <= r.Upper.V
}

// Wraps reports whether the hue band crosses the 180 -> 0 seam
func (r ColorRange) Wraps() bool {
	return r.Lower.H > r.Upper.H
}

// Splits a wrapping range into its high and low hue bands.
// A range that does not wrap is returned unchanged.
func (r ColorRange) SplitWrap() []ColorRange {
	if !r.Wraps() {
		return []ColorRange{r}
	}
	high := r
	high.Upper.H = MaxHue
	low := r
	low.Lower.H = 0
	return []ColorRange{low, high}
}

func (r ColorRange) String() string {
	return fmt.Sprintf("lower=[%d %d %d] upper=[%d %d %d]",
		r.Lower.H, r.Lower.S, r.Lower.V, r.Upper.H, r.Upper.S, r.Upper.V)
}

// RangeSet is an immutable ordered union of ColorRanges
type RangeSet struct {
	ranges []ColorRange
}

func NewRangeSet(ranges ...ColorRange) RangeSet {
	return RangeSet{ranges: append([]ColorRange(nil), ranges...)}
}

// Two ranges approximating red across the hue seam
func DefaultRedRanges() RangeSet {
	return NewRangeSet(
		ColorRange{Lower: HSV{0, 120, 70}, Upper: HSV{10, 255, 255}},
		ColorRange{Lower: HSV{170, 120, 70}, Upper: HSV{180, 255, 255}},
	)
}

func (s RangeSet) Len() int {
	return len(s.ranges)
}

// Returns a copy of the member ranges in order
func (s RangeSet) Ranges() []ColorRange {
	return append([]ColorRange(nil), s.ranges...)
}

// Reports whether `col` matches any member range
func (s RangeSet) Contains(col HSV) bool {
	for _, r := range s.ranges {
		if r.Contains(col) {
			return true
		}
	}
	return false
}

func (s RangeSet) Validate() error {
	for i, r := range s.ranges {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("range %d: %w", i, err)
		}
	}
	return nil
}

// Returns a set where every wrapping member is replaced by its two bands
func (s RangeSet) SplitWrapped() RangeSet {
	var out []ColorRange
	for _, r := range s.ranges {
		out = append(out, r.SplitWrap()...)
	}
	return RangeSet{ranges: out}
}
