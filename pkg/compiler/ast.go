package compiler

import (
	"fmt"
	"strings"
)

// Pos carries the source position of a tree node, embedded anonymously so
// every node exposes Line/Col directly. Every variant carries one, per the
// diagnostics contract: any node can be pointed back at source.
type Pos struct {
	Line int
	Col  int
}

// Param is a single TYPE NAME pair: a function parameter or a struct member.
type Param struct {
	Type string
	Name string
}

func (p Param) String() string { return p.Type + " " + p.Name }

//  Top-level items

// TopLevel is implemented by every node that can appear at file scope or
// inside a header block.
type TopLevel interface {
	topLevelNode()
	String() string
}

// Program is the whole translation unit: the root of the tree.
type Program struct {
	Items []TopLevel
}

func (p *Program) String() string {
	var b strings.Builder
	for _, it := range p.Items {
		b.WriteString(it.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// HeaderBlock is a declaration-only region: header { item* } ;
type HeaderBlock struct {
	Pos
	Items []TopLevel
}

func (*HeaderBlock) topLevelNode() {}
func (h *HeaderBlock) String() string {
	return fmt.Sprintf("header { %s }", joinTopLevel(h.Items))
}

// FunctionProto is a header-only prototype: function NAME(params) -> RET ;
type FunctionProto struct {
	Pos
	Name       string
	ReturnType string
	Params     []Param
}

func (*FunctionProto) topLevelNode() {}
func (f *FunctionProto) String() string {
	return fmt.Sprintf("function %s(%s) -> %s;", f.Name, joinParams(f.Params), f.ReturnType)
}

// FunctionDecl is a full function definition with a body.
type FunctionDecl struct {
	Pos
	Name       string
	ReturnType string
	Params     []Param
	Body       *BlockStmt
}

func (*FunctionDecl) topLevelNode() {}
func (f *FunctionDecl) String() string {
	return fmt.Sprintf("function %s(%s) -> %s %s;", f.Name, joinParams(f.Params), f.ReturnType, f.Body)
}

// StructBody is the member list of an inline struct definition, used only
// as the payload of a TypedefDecl (typedef struct { ... } Name;).
type StructBody struct {
	Pos
	Members []Param
}

func (s *StructBody) String() string {
	var parts []string
	for _, m := range s.Members {
		parts = append(parts, m.String()+";")
	}
	return "struct { " + strings.Join(parts, " ") + " }"
}

// TypedefDecl is  typedef OLDTYPE NEWTYPE ;  or  typedef struct { ... } NEWTYPE ;
// Exactly one of OldType / Struct is set.
type TypedefDecl struct {
	Pos
	NewName string
	OldType string // set when this is a type alias
	Struct  *StructBody // set when this introduces a struct
}

func (*TypedefDecl) topLevelNode() {}
func (t *TypedefDecl) String() string {
	if t.Struct != nil {
		return fmt.Sprintf("typedef %s %s;", t.Struct, t.NewName)
	}
	return fmt.Sprintf("typedef %s %s;", t.OldType, t.NewName)
}

// GlobalVarDecl is a file-scope variable; it may never carry an initializer.
type GlobalVarDecl struct {
	Pos
	Type        string
	Name        string
	AddressInit bool // true for  TYPE [name];
}

func (*GlobalVarDecl) topLevelNode() {}
func (g *GlobalVarDecl) String() string {
	if g.AddressInit {
		return fmt.Sprintf("%s [%s];", g.Type, g.Name)
	}
	return fmt.Sprintf("%s %s;", g.Type, g.Name)
}

// InlineAsmItem references a verbatim assembly block captured by the
// preprocessor, by its index in the asm-block list.
type InlineAsmItem struct {
	Pos
	BlockIndex int
}

func (*InlineAsmItem) topLevelNode() {}
func (a *InlineAsmItem) String() string {
	return fmt.Sprintf("asm /* block %d */;", a.BlockIndex)
}

func joinTopLevel(items []TopLevel) string {
	var parts []string
	for _, it := range items {
		parts = append(parts, it.String())
	}
	return strings.Join(parts, " ")
}

func joinParams(params []Param) string {
	var parts []string
	for _, p := range params {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, ", ")
}

//  Statements

// Stmt is implemented by every node that does not produce a value.
type Stmt interface {
	stmtNode()
	String() string
}

// BlockStmt is { stmt* }.
type BlockStmt struct {
	Pos
	Stmts []Stmt
}

func (*BlockStmt) stmtNode() {}
func (b *BlockStmt) String() string {
	var parts []string
	for _, s := range b.Stmts {
		parts = append(parts, s.String())
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

// VarDecl is  TYPE name;  or  TYPE [name];  (no initializer).
type VarDecl struct {
	Pos
	Type        string
	Name        string
	AddressInit bool
}

func (*VarDecl) stmtNode() {}
func (d *VarDecl) String() string {
	if d.AddressInit {
		return fmt.Sprintf("%s [%s];", d.Type, d.Name)
	}
	return fmt.Sprintf("%s %s;", d.Type, d.Name)
}

// VarDeclAssign is  TYPE name = expr;  or  TYPE [name] = expr;
type VarDeclAssign struct {
	Pos
	Type        string
	Name        string
	Init        Expr
	AddressInit bool
}

func (*VarDeclAssign) stmtNode() {}
func (d *VarDeclAssign) String() string {
	if d.AddressInit {
		return fmt.Sprintf("%s [%s] = %s;", d.Type, d.Name, d.Init)
	}
	return fmt.Sprintf("%s %s = %s;", d.Type, d.Name, d.Init)
}

// AssignStmt is  name = expr;
type AssignStmt struct {
	Pos
	Name  string
	Value Expr
}

func (*AssignStmt) stmtNode() {}
func (a *AssignStmt) String() string { return fmt.Sprintf("%s = %s;", a.Name, a.Value) }

// IndexAssignStmt is  name[index] = expr;
type IndexAssignStmt struct {
	Pos
	Name  string
	Index Expr
	Value Expr
}

func (*IndexAssignStmt) stmtNode() {}
func (a *IndexAssignStmt) String() string {
	return fmt.Sprintf("%s[%s] = %s;", a.Name, a.Index, a.Value)
}

// MemoryAssignStmt is  [name] = expr;  — a write to the address held in name.
type MemoryAssignStmt struct {
	Pos
	Name  string
	Value Expr
}

func (*MemoryAssignStmt) stmtNode() {}
func (a *MemoryAssignStmt) String() string {
	return fmt.Sprintf("[%s] = %s;", a.Name, a.Value)
}

// StructMemberAssignStmt is  name->m1[->m2...] = expr;
type StructMemberAssignStmt struct {
	Pos
	Base  *MemberAccess
	Value Expr
}

func (*StructMemberAssignStmt) stmtNode() {}
func (a *StructMemberAssignStmt) String() string {
	return fmt.Sprintf("%s = %s;", a.Base, a.Value)
}

// IfStmt is  if (cond) { then } [else ...] ;  Else may be *BlockStmt,
// *IfStmt (an else-if chain link), or nil.
type IfStmt struct {
	Pos
	Cond Expr
	Then *BlockStmt
	Else Stmt
}

func (*IfStmt) stmtNode() {}
func (i *IfStmt) String() string {
	if i.Else != nil {
		return fmt.Sprintf("if (%s) %s else %s", i.Cond, i.Then, i.Else)
	}
	return fmt.Sprintf("if (%s) %s", i.Cond, i.Then)
}

// WhileStmt is  while (cond) { body } ;
type WhileStmt struct {
	Pos
	Cond Expr
	Body *BlockStmt
}

func (*WhileStmt) stmtNode() {}
func (w *WhileStmt) String() string { return fmt.Sprintf("while (%s) %s", w.Cond, w.Body) }

// CaseClause is  case (value) { body } ;
type CaseClause struct {
	Pos
	Value Expr
	Body  *BlockStmt
}

func (c *CaseClause) String() string { return fmt.Sprintf("case (%s) %s;", c.Value, c.Body) }

// DefaultClause is  default { body } ;
type DefaultClause struct {
	Pos
	Body *BlockStmt
}

func (d *DefaultClause) String() string { return fmt.Sprintf("default %s;", d.Body) }

// SwitchStmt is  switch (cond) { case* default? } ;
type SwitchStmt struct {
	Pos
	Cond    Expr
	Cases   []*CaseClause
	Default *DefaultClause // nil if absent
}

func (*SwitchStmt) stmtNode() {}
func (s *SwitchStmt) String() string {
	var parts []string
	for _, c := range s.Cases {
		parts = append(parts, c.String())
	}
	if s.Default != nil {
		parts = append(parts, s.Default.String())
	}
	return fmt.Sprintf("switch (%s) { %s }", s.Cond, strings.Join(parts, " "))
}

// ReturnStmt is  return expr? ;  Expr is nil for a bare return.
type ReturnStmt struct {
	Pos
	Expr Expr
}

func (*ReturnStmt) stmtNode() {}
func (r *ReturnStmt) String() string {
	if r.Expr == nil {
		return "return;"
	}
	return fmt.Sprintf("return %s;", r.Expr)
}

// BreakStmt is  break;
type BreakStmt struct{ Pos }

func (*BreakStmt) stmtNode()        {}
func (*BreakStmt) String() string { return "break;" }

// ContinueStmt is  continue;
type ContinueStmt struct{ Pos }

func (*ContinueStmt) stmtNode()        {}
func (*ContinueStmt) String() string { return "continue;" }

// IncDecStmt is  name++;  or  name--;
type IncDecStmt struct {
	Pos
	Name string
	Op   TokenType // PLUS_PLUS or MINUS_MINUS
}

func (*IncDecStmt) stmtNode() {}
func (s *IncDecStmt) String() string { return fmt.Sprintf("%s%s;", s.Name, tokenSymbol(s.Op)) }

// CallStmt is  name(args);  — a call used as a statement for side effects.
type CallStmt struct {
	Pos
	Name string
	Args []Expr
}

func (*CallStmt) stmtNode() {}
func (c *CallStmt) String() string {
	return fmt.Sprintf("%s(%s);", c.Name, joinExprs(c.Args))
}

//  Expressions

// Expr is implemented by every node that produces a value. The code
// generator always leaves the result of visiting an Expr in rax.
type Expr interface {
	exprNode()
	String() string
}

// BinOp is  Left Op Right.
type BinOp struct {
	Pos
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*BinOp) exprNode() {}
func (b *BinOp) String() string { return fmt.Sprintf("(%s %s %s)", b.Left, tokenSymbol(b.Op), b.Right) }

// UnaryOp is  Op Operand  (! or - with no left operand).
type UnaryOp struct {
	Pos
	Op      TokenType
	Operand Expr
}

func (*UnaryOp) exprNode() {}
func (u *UnaryOp) String() string { return fmt.Sprintf("(%s%s)", tokenSymbol(u.Op), u.Operand) }

// Literal is a numeric literal, kept as source text (no constant folding,
// no width inference beyond what the codegen's target-type context gives).
type Literal struct {
	Pos
	Text string
}

func (*Literal) exprNode()        {}
func (l *Literal) String() string { return l.Text }

// StringLit is a string literal, quotes already stripped by the lexer.
type StringLit struct {
	Pos
	Text string
}

func (*StringLit) exprNode()        {}
func (s *StringLit) String() string { return fmt.Sprintf("%q", s.Text) }

// Identifier is a bare name reference: a variable read or a bare function
// reference in an expression position.
type Identifier struct {
	Pos
	Name string
}

func (*Identifier) exprNode()        {}
func (i *Identifier) String() string { return i.Name }

// IndexExpr is  name[index].
type IndexExpr struct {
	Pos
	Name  string
	Index Expr
}

func (*IndexExpr) exprNode()        {}
func (e *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", e.Name, e.Index) }

// MemoryAddress is  [name]  — reads the value at the address held in name.
type MemoryAddress struct {
	Pos
	Name string
}

func (*MemoryAddress) exprNode()        {}
func (m *MemoryAddress) String() string { return fmt.Sprintf("[%s]", m.Name) }

// MemberAccess is  Base->Member, left-associative across a chain:
// p->a->b parses as MemberAccess{Base: MemberAccess{Base: Identifier(p), Member: "a"}, Member: "b"}.
type MemberAccess struct {
	Pos
	Base   Expr
	Member string
}

func (*MemberAccess) exprNode()        {}
func (m *MemberAccess) String() string { return fmt.Sprintf("%s->%s", m.Base, m.Member) }

// CallExpr is  name(args)  used as a value-producing expression (e.g. nested
// inside another expression's argument list).
type CallExpr struct {
	Pos
	Name string
	Args []Expr
}

func (*CallExpr) exprNode() {}
func (c *CallExpr) String() string { return fmt.Sprintf("%s(%s)", c.Name, joinExprs(c.Args)) }

func joinExprs(exprs []Expr) string {
	var parts []string
	for _, e := range exprs {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, ", ")
}

// tokenSymbol renders an operator TokenType as its source symbol, for use in
// the textual dump (e.g. "+" rather than "PLUS").
func tokenSymbol(tt TokenType) string {
	switch tt {
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case STAR:
		return "*"
	case SLASH:
		return "/"
	case PERCENT:
		return "%"
	case AND:
		return "&"
	case PIPE:
		return "|"
	case AND_LOGICAL:
		return "&&"
	case OR_LOGICAL:
		return "||"
	case NOT:
		return "!"
	case EQUALS:
		return "=="
	case NOT_EQ:
		return "!="
	case LESS:
		return "<"
	case LESS_EQ:
		return "<="
	case GREATER:
		return ">"
	case GREATER_EQ:
		return ">="
	case PLUS_PLUS:
		return "++"
	case MINUS_MINUS:
		return "--"
	default:
		return tt.String()
	}
}
