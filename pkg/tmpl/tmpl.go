// Package tmpl defines the compiled template representation shared between the
// weft compiler and the weft runtime renderer. A compiled template is a static
// skeleton string containing placeholder markers plus an ordered list of parts,
// one per dynamic point. The runtime walks the skeleton once, locates the
// markers, and pairs them positionally with the value list supplied at each
// call site. The marker formats and the part ordering defined here are a wire
// contract: changing either breaks every runtime that consumes compiled output.
package tmpl

import "strconv"

// PartKind identifies what a dynamic point does when its value is applied
type PartKind uint8

const (
	// PartAttr sets a plain string attribute
	PartAttr PartKind = iota
	// PartBoolAttr toggles an attribute's presence from a truthy value
	PartBoolAttr
	// PartProp assigns a property directly on the element object
	PartProp
	// PartEvent subscribes a listener for the named event
	PartEvent
	// PartChild inserts rendered content at a child position
	PartChild
	// PartSpread applies a whole bag of attributes to the element at once
	PartSpread
	// PartTagName supplies the tag name for a dynamically-named element;
	// the open and close markers of that element share one part
	PartTagName
)

// partKindNames is indexed by PartKind
var partKindNames = [...]string{
	PartAttr:     "attr",
	PartBoolAttr: "bool-attr",
	PartProp:     "prop",
	PartEvent:    "event",
	PartChild:    "child",
	PartSpread:   "spread",
	PartTagName:  "tag-name",
}

// String returns the wire name of the kind
func (k PartKind) String() string {
	if int(k) < len(partKindNames) {
		return partKindNames[k]
	}
	return "unknown"
}

// Dialect selects the emission form for a markup root
type Dialect uint8

const (
	// DialectGeneral is ordinary markup, emitted as a skeleton/parts table
	DialectGeneral Dialect = iota
	// DialectSVG is vector graphics, emitted as a single constructor call
	DialectSVG
	// DialectMath is math markup, emitted as a single constructor call
	DialectMath
)

// String returns the dialect name
func (d Dialect) String() string {
	switch d {
	case DialectSVG:
		return "svg"
	case DialectMath:
		return "math"
	default:
		return "general"
	}
}

// Part describes one dynamic point inside a template skeleton
type Part struct {
	// Kind determines how the runtime applies the paired value
	Kind PartKind

	// Index is the placeholder ordinal this part binds to; it equals the
	// part's position in the template's Parts sequence
	Index int

	// Name is the attribute, property, or event name with its sigil
	// stripped. Empty for PartChild, PartSpread, and PartTagName.
	Name string

	// Strings holds the literal fragments straddling the values of a
	// multi-interpolation attribute (len = number of values + 1).
	// Nil for single-value parts.
	Strings []string
}

// NValues reports how many call-site values this part consumes
func (p Part) NValues() int {
	if len(p.Strings) > 1 {
		return len(p.Strings) - 1
	}
	return 1
}

// Template is the compiled form of one markup subtree
type Template struct {
	// Skeleton is the static scaffold with placeholder markers inlined
	Skeleton string

	// Parts lists every dynamic point in left-to-right depth-first
	// source order; the runtime depends on this order to pair values
	Parts []Part
}

// NValues reports the length of the value list a call site must supply
func (t *Template) NValues() int {
	n := 0
	for _, p := range t.Parts {
		n += p.NValues()
	}
	return n
}

// IsStatic reports whether the template has no dynamic points at all
func (t *Template) IsStatic() bool {
	return len(t.Parts) == 0
}

// markerPrefix and markerSuffix delimit the ordinal inside attribute and
// child markers. The dynamic-tag marker uses tagMarkerPrefix instead since
// '$' is not legal in a tag name.
const (
	markerPrefix    = "$w"
	markerSuffix    = "$"
	tagMarkerPrefix = "w-dyn"
)

// AttrMarker returns the placeholder written in attribute-value position
// for the part with the given index
func AttrMarker(index int) string {
	return markerPrefix + strconv.Itoa(index) + markerSuffix
}

// ChildMarker returns the placeholder written in child position for the
// part with the given index
func ChildMarker(index int) string {
	return "<!--" + markerPrefix + strconv.Itoa(index) + markerSuffix + "-->"
}

// TagMarker returns the placeholder tag name used by both the open and the
// close tag of a dynamically-named element
func TagMarker(index int) string {
	return tagMarkerPrefix + strconv.Itoa(index)
}

// ShapeKey returns a string that is equal for two templates exactly when
// they are interchangeable: identical skeletons and identically-shaped
// parts. Value expressions are not part of the shape.
func (t *Template) ShapeKey() string {
	n := len(t.Skeleton) + 1
	for _, p := range t.Parts {
		n += len(p.Name) + 8
		for _, s := range p.Strings {
			n += len(s) + 1
		}
	}
	b := make([]byte, 0, n)
	b = append(b, t.Skeleton...)
	for _, p := range t.Parts {
		b = append(b, 0)
		b = append(b, byte(p.Kind))
		b = append(b, p.Name...)
		for _, s := range p.Strings {
			b = append(b, 1)
			b = append(b, s...)
		}
	}
	return string(b)
}
