package parser

import (
	"fmt"
	"strings"
)

// Variable is one entry in the variable namespace. Names are
// case-insensitive; the canonical form is uppercase. A name has exactly
// one type for the whole program, fixed by the suffix of its first
// reference (no suffix defaults to real); a later use with a suffix of a
// different type is a type error.
type Variable struct {
	Name       string // canonical uppercase spelling of the first reference
	Type       ValueType
	Label      string // storage-area label in the emitted assembly
	Pos        Position
	IsArray    bool
	Bound      int16 // array upper bound when IsArray
	Referenced bool  // set during code generation; only live variables get reservations
}

// LineTarget is one entry in the line-number namespace
type LineTarget struct {
	Number     uint16
	Label      string // emitted assembly label
	Pos        Position
	Referenced bool
}

// SymbolTable tracks the two disjoint namespaces of a BASIC program:
// variables and line targets (with their textual LABEL aliases). It is
// populated during parsing and frozen before code generation.
type SymbolTable struct {
	vars     map[string]*Variable // keyed by uppercase base name, suffix stripped
	varOrder []string             // base names in first-reference order

	lines   map[uint16]*LineTarget
	aliases map[string]uint16 // LABEL name -> line number
}

// NewSymbolTable creates an empty symbol table
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		vars:    make(map[string]*Variable),
		lines:   make(map[uint16]*LineTarget),
		aliases: make(map[string]uint16),
	}
}

// CanonicalName folds a variable spelling to its canonical uppercase form
func CanonicalName(name string) string {
	return strings.ToUpper(name)
}

// baseName strips the type suffix from a canonical name
func baseName(canon string) string {
	if n := len(canon); n > 0 {
		switch canon[n-1] {
		case '%', '!', '$':
			return canon[:n-1]
		}
	}
	return canon
}

// storageLabel derives the assembly label for a variable. Suffix
// characters are not valid in assembler labels and map to a type tag.
func storageLabel(base string, vtype ValueType) string {
	tag := ""
	switch vtype {
	case TypeInteger:
		tag = "i"
	case TypeString:
		tag = "s"
	}
	base = strings.ReplaceAll(base, ".", "_")
	return "var_" + strings.ToLower(base) + tag
}

// TouchVariable records a reference to a variable, fixing its type on
// first use. A later use with a suffix of a conflicting type is a type
// error.
func (st *SymbolTable) TouchVariable(name string, pos Position) (*Variable, *Error) {
	canon := CanonicalName(name)
	base := baseName(canon)
	vtype := SuffixType(canon)

	if v, ok := st.vars[base]; ok {
		if v.Type != vtype {
			return nil, NewError(pos, ErrorType,
				fmt.Sprintf("%s is %s (first used at %s), referenced here as %s",
					v.Name, v.Type, v.Pos, vtype))
		}
		return v, nil
	}

	v := &Variable{
		Name:  canon,
		Type:  vtype,
		Label: storageLabel(base, vtype),
		Pos:   pos,
	}
	st.vars[base] = v
	st.varOrder = append(st.varOrder, base)

	return v, nil
}

// DeclareArray marks a variable as a DIMmed array. The scalar and array
// form of one name cannot coexist.
func (st *SymbolTable) DeclareArray(name string, bound int16, pos Position) *Error {
	canon := CanonicalName(name)
	base := baseName(canon)

	if v, ok := st.vars[base]; ok {
		if v.IsArray {
			return NewError(pos, ErrorType, fmt.Sprintf("array %s already dimensioned at %s", v.Name, v.Pos))
		}
		return NewError(pos, ErrorType, fmt.Sprintf("%s already used as a scalar at %s", v.Name, v.Pos))
	}

	vtype := SuffixType(canon)
	v := &Variable{
		Name:    canon,
		Type:    vtype,
		Label:   storageLabel(base, vtype),
		Pos:     pos,
		IsArray: true,
		Bound:   bound,
	}
	st.vars[base] = v
	st.varOrder = append(st.varOrder, base)

	return nil
}

// Variable looks up a variable by any spelling
func (st *SymbolTable) Variable(name string) (*Variable, bool) {
	v, ok := st.vars[baseName(CanonicalName(name))]
	return v, ok
}

// Variables returns all variables in first-reference order
func (st *SymbolTable) Variables() []*Variable {
	out := make([]*Variable, 0, len(st.varOrder))
	for _, name := range st.varOrder {
		out = append(out, st.vars[name])
	}
	return out
}

// DefineLine registers a numbered source line. Line numbers must be
// strictly increasing in source order; the parser enforces that before
// calling here.
func (st *SymbolTable) DefineLine(number uint16, pos Position) *LineTarget {
	if t, ok := st.lines[number]; ok {
		return t
	}
	t := &LineTarget{
		Number: number,
		Label:  fmt.Sprintf("__label_line_%d", number),
		Pos:    pos,
	}
	st.lines[number] = t
	return t
}

// Line looks up a line target by number
func (st *SymbolTable) Line(number uint16) (*LineTarget, bool) {
	t, ok := st.lines[number]
	return t, ok
}

// DefineAlias binds a LABEL name to a line number
func (st *SymbolTable) DefineAlias(name string, number uint16, pos Position) *Error {
	canon := CanonicalName(name)
	if prev, ok := st.aliases[canon]; ok {
		return NewError(pos, ErrorSyntax, fmt.Sprintf("label %s already bound to line %d", canon, prev))
	}
	st.aliases[canon] = number
	return nil
}

// Alias resolves a LABEL name to its line target
func (st *SymbolTable) Alias(name string) (*LineTarget, bool) {
	number, ok := st.aliases[CanonicalName(name)]
	if !ok {
		return nil, false
	}
	t, ok := st.lines[number]
	return t, ok
}

// Aliases returns the LABEL alias map from name to target line number;
// its iteration order is not defined
func (st *SymbolTable) Aliases() map[string]uint16 {
	return st.aliases
}
