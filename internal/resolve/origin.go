// Package resolve traces tag identifiers back to what created them:
// a component factory call, an element factory call, a plain function,
// or nothing the compiler can see through. Results are memoized per
// (file, symbol) in a Cache that callers inject.
package resolve

import "github.com/weftlabs/weft/internal/syntax"

// OriginKind is the closed set of resolution outcomes.
type OriginKind uint8

const (
	// OriginUnknown means the name could not be traced to a factory or
	// function; the Cause says whether that was failure or intent
	OriginUnknown OriginKind = iota
	// OriginComponent means the name is a component: a defineComponent
	// result, a function declaration, or an alias of either
	OriginComponent
	// OriginElement means the name is a defineElement result, a custom
	// element constructor the runtime mounts by tag
	OriginElement

	// factory references are internal terminals of the walk: the name
	// IS defineComponent or defineElement, not a result of calling one
	originFactoryComponent
	originFactoryElement
)

var originKindNames = [...]string{
	"unknown", "component", "element", "factory-component", "factory-element",
}

func (k OriginKind) String() string {
	if int(k) < len(originKindNames) {
		return originKindNames[k]
	}
	return "invalid"
}

// Cause explains an Unknown (or degraded) origin.
type Cause uint8

const (
	// CauseNone: the origin resolved cleanly
	CauseNone Cause = iota
	// CauseOpaque: the binding exists but is deliberately dynamic, like
	// a parameter or an expression the compiler does not evaluate
	CauseOpaque
	// CauseUndeclared: no binding with the name is in scope
	CauseUndeclared
	// CauseCycle: resolution revisited a (file, symbol) pair
	CauseCycle
	// CauseMissingModule: the import specifier did not resolve to a
	// readable module
	CauseMissingModule
	// CauseMissingExport: the target module does not export the name
	CauseMissingExport
	// CauseMalformed: a factory call without usable arguments
	CauseMalformed
)

var causeNames = [...]string{
	"", "opaque", "undeclared", "cycle",
	"missing-module", "missing-export", "malformed-factory",
}

func (c Cause) String() string {
	if int(c) < len(causeNames) {
		return causeNames[c]
	}
	return "invalid"
}

// Deliberate reports whether an unknown origin reflects a conservative
// choice rather than a failed lookup
func (c Cause) Deliberate() bool {
	return c == CauseNone || c == CauseOpaque
}

// Origin is the result of resolving one name.
type Origin struct {
	Kind  OriginKind
	Cause Cause

	// File and Pos locate the defining declaration when known
	File string
	Pos  syntax.Pos

	// Tag is the custom element name when an element factory was called
	// with a literal first argument
	Tag string
}

// Unknown builds an unresolved origin with the given cause
func Unknown(cause Cause) Origin {
	return Origin{Kind: OriginUnknown, Cause: cause}
}

// Resolved reports whether the origin carries a usable kind
func (o Origin) Resolved() bool {
	return o.Kind == OriginComponent || o.Kind == OriginElement
}
