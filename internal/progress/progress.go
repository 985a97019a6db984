// Package progress defines progress events and the mapping of stage-local
// progress into overall job percentages.
package progress

import "math"

// Event is an immutable progress report.
type Event struct {
	Text     string
	Percent  float64
	Terminal bool
}

// Span is the share [Lo, Hi] of overall job progress allotted to a stage.
type Span struct {
	Lo, Hi float64
}

// Stage spans of a job. Selection sits between scan and pack.
var (
	FetchSpan  = Span{Lo: 0, Hi: 40}
	ScanSpan   = Span{Lo: 40, Hi: 45}
	SelectSpan = Span{Lo: 45, Hi: 50}
	PackSpan   = Span{Lo: 50, Hi: 99}
)

// Complete is the percentage carried by terminal messages.
const Complete = 100.0

// DefaultSteepness is the logistic constant used for pack progress.
const DefaultSteepness = 0.05

// Scale maps frac in [0, 1] onto the span. Out-of-range fractions are clamped.
func (s Span) Scale(frac float64) float64 {
	if math.IsNaN(frac) || frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return s.Lo + (s.Hi-s.Lo)*frac
}

// Percent maps a 0..100 stage percentage onto the span.
func (s Span) Percent(p float64) float64 {
	return s.Scale(p / 100)
}

// Logistic maps an unbounded callback count onto the span. The result
// increases strictly with count and never reaches Hi.
func (s Span) Logistic(count int, k float64) float64 {
	if count <= 0 {
		return s.Lo
	}
	if k <= 0 {
		k = DefaultSteepness
	}
	frac := 2/(1+math.Exp(-k*float64(count))) - 1
	v := s.Lo + (s.Hi-s.Lo)*frac
	if v >= s.Hi {
		v = math.Nextafter(s.Hi, s.Lo)
	}
	return v
}

// Tracker keeps emitted percentages non-decreasing.
type Tracker struct {
	last    float64
	started bool
}

// Advance returns p, or the previous value if p would go backwards.
func (t *Tracker) Advance(p float64) float64 {
	if t.started && p < t.last {
		return t.last
	}
	t.last = p
	t.started = true
	return p
}

// Last returns the most recent value returned by Advance.
func (t *Tracker) Last() float64 {
	return t.last
}
