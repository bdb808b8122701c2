package mtlx

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// Unit types with stock definitions.
const (
	UnitTypeDistance = "distance"
	UnitTypeAngle    = "angle"
)

// ErrUnknownUnit is returned when a unit is not defined for a unit type.
var ErrUnknownUnit = errors.New("unknown unit")

// UnitConverter converts values between the units of one unit type.
type UnitConverter interface {
	UnitType() string
	Units() []string
	Convert(v float64, from, to string) (float64, error)
}

// LinearUnitConverter converts between units that differ by a scale factor,
// such as distances. Each unit's scale is expressed in a common base unit.
type LinearUnitConverter struct {
	unitType string
	scales   map[string]float64
	units    []string
}

// NewLinearUnitConverter builds a converter from a unitdef element and its
// unit children.
func NewLinearUnitConverter(unitdef *Element) (*LinearUnitConverter, error) {
	c := &LinearUnitConverter{
		unitType: unitdef.Attr(AttrUnitType),
		scales:   make(map[string]float64),
	}
	for _, u := range unitdef.ChildrenOf(CategoryUnit) {
		s, err := strconv.ParseFloat(u.Attr(AttrScale), 64)
		if err != nil || s == 0 {
			return nil, fmt.Errorf("%s: invalid scale %q", u.NamePath(), u.Attr(AttrScale))
		}
		c.scales[u.name] = s
		c.units = append(c.units, u.name)
	}
	return c, nil
}

// UnitType returns the unit type the converter serves.
func (c *LinearUnitConverter) UnitType() string { return c.unitType }

// Units returns the defined unit names in declaration order.
func (c *LinearUnitConverter) Units() []string { return slices.Clone(c.units) }

// Convert scales v from one unit to another.
func (c *LinearUnitConverter) Convert(v float64, from, to string) (float64, error) {
	fs, ok := c.scales[from]
	if !ok {
		return 0, fmt.Errorf("%w %q for %s", ErrUnknownUnit, from, c.unitType)
	}
	ts, ok := c.scales[to]
	if !ok {
		return 0, fmt.Errorf("%w %q for %s", ErrUnknownUnit, to, c.unitType)
	}
	return v * fs / ts, nil
}

// UnitConverterRegistry maps unit types to converters.
type UnitConverterRegistry struct {
	converters map[string]UnitConverter
}

// NewUnitConverterRegistry returns an empty registry.
func NewUnitConverterRegistry() *UnitConverterRegistry {
	return &UnitConverterRegistry{converters: make(map[string]UnitConverter)}
}

// LoadUnitConverters builds a registry from the unitdef elements of d.
// Invalid definitions are skipped.
func LoadUnitConverters(d *Document) *UnitConverterRegistry {
	r := NewUnitConverterRegistry()
	for _, ud := range d.root.ChildrenOf(CategoryUnitDef) {
		if c, err := NewLinearUnitConverter(ud); err == nil && c.unitType != "" {
			if r.converters[c.unitType] == nil {
				r.Register(c)
			}
		}
	}
	return r
}

// Register adds or replaces the converter for c's unit type.
func (r *UnitConverterRegistry) Register(c UnitConverter) {
	r.converters[c.UnitType()] = c
}

// Converter returns the converter for unitType, or nil.
func (r *UnitConverterRegistry) Converter(unitType string) UnitConverter {
	return r.converters[unitType]
}

// UnitTypeOf returns the unit type that defines unit, or "".
func (r *UnitConverterRegistry) UnitTypeOf(unit string) string {
	for t, c := range r.converters {
		if slices.Contains(c.Units(), unit) {
			return t
		}
	}
	return ""
}

// ConvertValue converts every numeric component of v. Values of unit types
// without a converter are returned unchanged.
func (r *UnitConverterRegistry) ConvertValue(v Value, unitType, from, to string) (Value, error) {
	c := r.converters[unitType]
	if c == nil || from == to || len(v.Data) == 0 {
		return v, nil
	}
	factor, err := c.Convert(1, from, to)
	if err != nil {
		return v, err
	}
	return v.Scale(factor), nil
}
