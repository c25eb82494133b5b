// Package param holds the control-facing parameter surface of the transposer:
// host-visible parameters with lock-free values, the immutable Transposition
// value the engine consumes, and the snapshot cell that publishes it from the
// control context to the audio context.
package param

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

// Parameter is one host-visible parameter. The normalized value lives in an
// atomic word so the audio context can read it without locking while the
// control context writes it.
type Parameter struct {
	ID           uint32
	Name         string
	Unit         string
	Min          float64
	Max          float64
	DefaultValue float64
	StepCount    int32

	value atomic.Uint64

	formatFunc func(float64) string
	parseFunc  func(string) (float64, error)
}

// Value returns the current normalized value (0..1).
func (p *Parameter) Value() float64 {
	return math.Float64frombits(p.value.Load())
}

// SetValue stores a normalized value, clamped to 0..1. Out-of-range writes
// are clamped here, never propagated as a fault into the audio path.
func (p *Parameter) SetValue(normalized float64) {
	if normalized < 0 {
		normalized = 0
	} else if normalized > 1 {
		normalized = 1
	}
	p.value.Store(math.Float64bits(normalized))
}

// Plain returns the current value in the parameter's plain range.
func (p *Parameter) Plain() float64 {
	return p.Denormalize(p.Value())
}

// SetPlain stores a plain-range value.
func (p *Parameter) SetPlain(plain float64) {
	p.SetValue(p.Normalize(plain))
}

// Normalize converts a plain value to 0..1, clamping at the range edges.
func (p *Parameter) Normalize(plain float64) float64 {
	if p.Max <= p.Min {
		return 0
	}
	n := (plain - p.Min) / (p.Max - p.Min)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

// Denormalize converts a normalized value to the plain range. Stepped
// parameters snap to the nearest step.
func (p *Parameter) Denormalize(normalized float64) float64 {
	plain := p.Min + normalized*(p.Max-p.Min)
	if p.StepCount > 0 {
		plain = math.Round(plain)
	}
	return plain
}

// Format renders a normalized value for display.
func (p *Parameter) Format(normalized float64) string {
	plain := p.Denormalize(normalized)
	if p.formatFunc != nil {
		return p.formatFunc(plain)
	}
	if p.StepCount > 0 {
		return fmt.Sprintf("%.0f", plain)
	}
	return fmt.Sprintf("%.2f", plain)
}

// Parse converts display text back to a normalized value.
func (p *Parameter) Parse(text string) (float64, error) {
	if p.parseFunc != nil {
		plain, err := p.parseFunc(text)
		if err != nil {
			return 0, err
		}
		return p.Normalize(plain), nil
	}
	plain, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	return p.Normalize(plain), nil
}
