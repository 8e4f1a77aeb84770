package syntax

import "unicode"

// File is one parsed module. The compiler reads structure from it and
// patches the underlying source, so spans are kept for everything that may
// be rewritten or reported on.
type File struct {
	// Path is the absolute path the file was parsed under
	Path string

	// Src is the raw module source
	Src string

	// Imports in source order
	Imports []*Import

	// Exports covers named export lists, re-exports, and export-alls
	Exports []*Export

	// Default is the shape of `export default <expr>`, nil if absent
	Default *Expr

	// Markups lists every markup root in the file, including roots nested
	// inside interpolation expressions of other roots
	Markups []*MarkupExpr

	// Scope is the module's top-level scope
	Scope *Scope

	// ImportEnd is the byte offset just past the final import statement;
	// generated declarations are inserted here
	ImportEnd int

	lines *lineTable
}

// PosAt converts a byte offset into a line/column position
func (f *File) PosAt(offset int) Pos {
	return f.lines.pos(offset)
}

// Slice returns the source text covered by a span
func (f *File) Slice(s Span) string {
	return f.Src[s.Start:s.End]
}

// Import is one import statement
type Import struct {
	Span      Span
	Specifier string // module specifier as written
	SpecSpan  Span   // span of the specifier string contents, for rewriting
	Default   string // local name bound to the default export, "" if none
	Namespace string // local name of a `* as ns` import, "" if none
	Named     []ImportName
}

// ImportName is one entry of a named import list
type ImportName struct {
	Local    string // name bound in this file
	Imported string // name exported by the target module
	Offset   int
}

// Export is one export statement that the resolver may need to follow
type Export struct {
	Span     Span
	All      bool   // export * from "m"
	From     string // source module specifier, "" for plain export lists
	SpecSpan Span   // span of the specifier contents when From != ""
	Named    []ExportName
}

// ExportName is one entry of a named export list
type ExportName struct {
	Local    string // name in the source module (this file, or From)
	Exported string // name visible to importers
	Offset   int
}

// MarkupExpr is one markup root together with the lexical scope it
// appeared in
type MarkupExpr struct {
	Root  *Element
	Scope *Scope
}

// BindingKind says how a name came to be in scope
type BindingKind uint8

const (
	// BindImport is a name introduced by an import statement
	BindImport BindingKind = iota
	// BindLocal is a top-level or function-body declaration
	BindLocal
	// BindParam is a function or arrow parameter
	BindParam
	// BindFunc is a function declaration
	BindFunc
)

// Binding is one resolved name in a lexical scope
type Binding struct {
	Kind   BindingKind
	Name   string
	Offset int

	// Module and Imported are set for BindImport: the specifier as
	// written and the name inside the target module ("default" for a
	// default import, "*" for a namespace import)
	Module   string
	Imported string

	// Init is the declaration initializer's shape for BindLocal.
	// Nil when the initializer is absent or not a recognizable form.
	Init *Expr

	// Owner is the scope the binding was declared in, so initializer
	// references resolve from the right place
	Owner *Scope
}

// Scope is a chain of name tables: module scope at the root, one child
// per function or arrow body
type Scope struct {
	Parent *Scope
	names  map[string]*Binding
}

// NewScope creates a scope chained to parent (nil for the module scope)
func NewScope(parent *Scope) *Scope {
	return &Scope{Parent: parent, names: make(map[string]*Binding)}
}

// Declare adds a binding; the first declaration of a name wins
func (s *Scope) Declare(b *Binding) {
	if _, exists := s.names[b.Name]; !exists {
		b.Owner = s
		s.names[b.Name] = b
	}
}

// Lookup resolves a name through the scope chain
func (s *Scope) Lookup(name string) *Binding {
	for sc := s; sc != nil; sc = sc.Parent {
		if b, ok := sc.names[name]; ok {
			return b
		}
	}
	return nil
}

// LookupLocal resolves a name in this scope only
func (s *Scope) LookupLocal(name string) *Binding {
	return s.names[name]
}

// ExprKind classifies the shapes the resolver can see through
type ExprKind uint8

const (
	// ExprOpaque is an expression the compiler passes through unexamined
	ExprOpaque ExprKind = iota
	// ExprIdent is a bare identifier reference
	ExprIdent
	// ExprCall is a call with an identifier or dotted-path callee
	ExprCall
	// ExprMarkup is an inline markup element
	ExprMarkup
)

// Arg is one call argument
type Arg struct {
	Span   Span
	Text   string
	Spread bool
}

// Expr is a lightweight expression shape. Text always carries the exact
// source slice; the remaining fields are filled per Kind.
type Expr struct {
	Span   Span
	Text   string
	Kind   ExprKind
	Ident  string // ExprIdent
	Callee string // ExprCall: dotted path as written
	Args   []Arg  // ExprCall
	Markup *Element
}

// Node is implemented by every markup tree node
type Node interface {
	Span() Span
}

// Element is a markup element, host or component alike
type Element struct {
	Tag      string
	TagOff   int // byte offset of the tag name, for diagnostics
	Loc      Span
	Attrs    []*Attr
	Children []Node
	// SelfClosing distinguishes <br/> from <br></br> in the source
	SelfClosing bool
}

func (e *Element) Span() Span { return e.Loc }

// IsComponentName reports whether a tag name is a component candidate
// rather than a plain host tag
func IsComponentName(tag string) bool {
	if tag == "" {
		return false
	}
	return unicode.IsUpper([]rune(tag)[0])
}

// Text is literal character data between tags
type Text struct {
	Value string
	Loc   Span
}

func (t *Text) Span() Span { return t.Loc }

// Interp is an embedded {expression} child
type Interp struct {
	Expr Expr
	Loc  Span
}

func (i *Interp) Span() Span { return i.Loc }

// AttrForm describes the syntactic shape of one attribute
type AttrForm uint8

const (
	// AttrStatic is name="literal" or a bare name
	AttrStatic AttrForm = iota
	// AttrExpr is name={expr}
	AttrExpr
	// AttrInterp is name="text {expr} text" with at least one hole
	AttrInterp
	// AttrSpreadForm is {...expr}
	AttrSpreadForm
)

// Attr is one element attribute. Sigil is '?', '.', '@', or zero; Name has
// the sigil stripped.
type Attr struct {
	Name   string
	Sigil  byte
	Offset int
	Form   AttrForm

	// Static is the literal value for AttrStatic ("" for bare names)
	Static string

	// Chunks alternates literal and expression pieces for AttrInterp;
	// for AttrExpr it holds the single expression chunk
	Chunks []Chunk

	// Spread is the expression of an AttrSpreadForm attribute
	Spread *Expr
}

// Dynamic reports whether the attribute contributes a dynamic point
func (a *Attr) Dynamic() bool {
	return a.Form != AttrStatic
}

// Chunk is one piece of an interpolated attribute value
type Chunk struct {
	IsExpr bool
	Text   string // literal piece when !IsExpr
	Expr   Expr   // expression piece when IsExpr
}
