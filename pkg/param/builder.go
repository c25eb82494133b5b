package param

import (
	"fmt"
	"strings"
)

// Builder provides a fluent API for declaring parameters.
type Builder struct {
	param *Parameter
}

// New starts a parameter declaration.
func New(id uint32, name string) *Builder {
	return &Builder{
		param: &Parameter{
			ID:   id,
			Name: name,
			Min:  0,
			Max:  1,
		},
	}
}

// Range sets the plain value range.
func (b *Builder) Range(min, max float64) *Builder {
	b.param.Min = min
	b.param.Max = max
	return b
}

// Default sets the default plain value.
func (b *Builder) Default(plain float64) *Builder {
	if b.param.Max > b.param.Min {
		b.param.DefaultValue = (plain - b.param.Min) / (b.param.Max - b.param.Min)
	}
	return b
}

// Steps sets the number of discrete steps between Min and Max.
func (b *Builder) Steps(count int32) *Builder {
	b.param.StepCount = count
	return b
}

// Unit sets the display unit.
func (b *Builder) Unit(unit string) *Builder {
	b.param.Unit = unit
	return b
}

// Toggle declares a boolean parameter.
func (b *Builder) Toggle() *Builder {
	b.param.Min = 0
	b.param.Max = 1
	b.param.StepCount = 1
	return b
}

// Formatter sets custom display formatting and parsing.
func (b *Builder) Formatter(format func(float64) string, parse func(string) (float64, error)) *Builder {
	b.param.formatFunc = format
	b.param.parseFunc = parse
	return b
}

// Build finalizes the parameter, initialized to its default value.
func (b *Builder) Build() *Parameter {
	b.param.SetValue(b.param.DefaultValue)
	return b.param
}

// Choice declares a stepped parameter whose values map to named options.
func Choice(id uint32, name string, names []string) *Builder {
	format := func(plain float64) string {
		idx := int(plain)
		if idx >= 0 && idx < len(names) {
			return names[idx]
		}
		return "Unknown"
	}
	parse := func(text string) (float64, error) {
		for i, n := range names {
			if strings.EqualFold(strings.TrimSpace(text), n) {
				return float64(i), nil
			}
		}
		return 0, fmt.Errorf("unknown option: %s", text)
	}
	return New(id, name).
		Range(0, float64(len(names)-1)).
		Steps(int32(len(names) - 1)).
		Formatter(format, parse)
}
