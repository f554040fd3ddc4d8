// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

// A Program is a parsed Wire HDL source unit. Programs are immutable once
// parsed; elaboration and behavioral compilation only read them.
type Program struct {
	Modules []*Module

	index map[string]*Module
}

// Module returns the module with the given name, or nil.
func (p *Program) Module(name string) *Module {
	return p.index[name]
}

// Merge returns a new Program containing the modules of p followed by those
// of q. Duplicate module names resolve to the later definition.
func (p *Program) Merge(q *Program) *Program {
	m := &Program{Modules: make([]*Module, 0, len(p.Modules)+len(q.Modules))}
	m.Modules = append(m.Modules, p.Modules...)
	m.Modules = append(m.Modules, q.Modules...)
	m.index = make(map[string]*Module, len(m.Modules))
	for _, mod := range m.Modules {
		m.index[mod.Name] = mod
	}
	return m
}

// A Port declares a named parameter or output with a bit width (1 if not
// given in the source).
type Port struct {
	Name  string
	Width int
	Line  int
	Col   int
}

// A Module is a single module declaration. At least one of Structure and
// Behavior is non-nil. Hybrid modules carry both: elaboration flattens
// Structure to gates while the behavioral compiler uses Behavior.
type Module struct {
	Name      string
	Params    []Port
	Outputs   []Port
	Structure []*Wire
	Behavior  []Stmt
	Line      int
	Col       int
}

// Output returns the declared output with the given name, or nil.
func (m *Module) Output(name string) *Port {
	for i := range m.Outputs {
		if m.Outputs[i].Name == name {
			return &m.Outputs[i]
		}
	}
	return nil
}

// Param returns the declared parameter with the given name, or nil.
func (m *Module) Param(name string) *Port {
	for i := range m.Params {
		if m.Params[i].Name == name {
			return &m.Params[i]
		}
	}
	return nil
}

// A Wire is a structural statement: either an instantiation
// "t0, t1 = mod(args)" (Call != nil) or an alias "t0 = sigexpr" binding a
// name to an existing signal group (Alias != nil).
type Wire struct {
	Targets []string
	Call    *Call
	Alias   Expr
	Line    int
	Col     int
}

// Expressions. The same expression types serve structural arguments (where
// only signal-group expressions are legal) and behavioral code (where the
// full operator set is evaluated over integers).
type Expr interface {
	exprNode()
	Pos() (line, col int)
}

type pos struct {
	Line int
	Col  int
}

func (p pos) Pos() (int, int) { return p.Line, p.Col }

// A Ref names a signal or variable.
type Ref struct {
	pos
	Name string
}

// An IntLit is an integer literal.
type IntLit struct {
	pos
	Val uint64
}

// An Index is a single-bit selection x[i].
type Index struct {
	pos
	X Expr
	I Expr
}

// A Slice is an inclusive bit range x[hi:lo], LSB numbered 0.
type Slice struct {
	pos
	X  Expr
	Hi Expr
	Lo Expr
}

// A Concat is {msb, ..., lsb}.
type Concat struct {
	pos
	Parts []Expr
}

// A Call invokes a module (or the nand/dff primitives, in structural
// position).
type Call struct {
	pos
	Name string
	Args []Expr
}

// A Unary is ~x, !x or -x.
type Unary struct {
	pos
	Op Kind
	X  Expr
}

// A Binary is a binary operator application.
type Binary struct {
	pos
	Op Kind
	X  Expr
	Y  Expr
}

// A Cond is the ternary c ? a : b.
type Cond struct {
	pos
	C Expr
	T Expr
	F Expr
}

func (*Ref) exprNode()    {}
func (*IntLit) exprNode() {}
func (*Index) exprNode()  {}
func (*Slice) exprNode()  {}
func (*Concat) exprNode() {}
func (*Call) exprNode()   {}
func (*Unary) exprNode()  {}
func (*Binary) exprNode() {}
func (*Cond) exprNode()   {}

// Behavioral statements.
type Stmt interface {
	stmtNode()
	Pos() (line, col int)
}

// A Let declares a variable with an explicit width.
type Let struct {
	pos
	Name  string
	Width int
	Value Expr
}

// An Assign assigns to one variable, or binds the outputs of a module call
// to several.
type Assign struct {
	pos
	Targets []string
	Value   Expr
}

// An If branches on a non-zero condition. Else holds either the else-block
// statements or a single nested If for else-if chains.
type If struct {
	pos
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// A Match selects the first case whose pattern list matches the subject.
type Match struct {
	pos
	Subject Expr
	Cases   []MatchCase
}

// A MatchCase is one "pat, pat: { body }" arm.
type MatchCase struct {
	Patterns []Pattern
	Body     []Stmt
	Line     int
	Col      int
}

// A Pattern matches a literal (Lo == Hi), an inclusive range, or anything
// (Wild).
type Pattern struct {
	Wild bool
	Lo   uint64
	Hi   uint64
}

// Matches reports whether v matches the pattern.
func (p Pattern) Matches(v uint64) bool {
	return p.Wild || p.Lo <= v && v <= p.Hi
}

func (*Let) stmtNode()    {}
func (*Assign) stmtNode() {}
func (*If) stmtNode()     {}
func (*Match) stmtNode()  {}
