package compiler

// structSentinel is the canonical resolution target for any typedef that
// bottoms out at an inline struct body rather than another type name.
const structSentinel = "struct"

// StructDef is the ordered member list registered for a struct-backed type
// name. Member order is declaration order and defines storage offsets.
type StructDef struct {
	Name    string
	Members []Param
}

// MemberIndex returns the position of member name within the struct, or -1.
func (d *StructDef) MemberIndex(name string) int {
	for i, m := range d.Members {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// SymbolTable holds the parser-owned side tables of §3: existingTypes,
// typedefs, structs, existingFunctions, prototypes, and the lexical scope
// stack. It is built up during parsing and handed to the code generator
// read-only once parsing completes.
type SymbolTable struct {
	existingTypes []string
	typeSet       map[string]bool
	typedefs      map[string]string // new type name -> canonical old type, or structSentinel
	structs       map[string]*StructDef

	existingFunctions map[string]bool
	prototypes        map[string]bool

	globals map[string]string // file-scope variable name -> declared type, visible from any function body

	scopes []map[string]string // stack of declared variable name -> declared type; non-empty only inside a function body
}

// NewSymbolTable returns a table seeded with the twelve built-in type names.
func NewSymbolTable() *SymbolTable {
	t := &SymbolTable{
		typeSet:           make(map[string]bool, len(builtinTypeNames)),
		typedefs:          make(map[string]string),
		structs:           make(map[string]*StructDef),
		existingFunctions: make(map[string]bool),
		prototypes:        make(map[string]bool),
		globals:           make(map[string]string),
	}
	for _, name := range builtinTypeNames {
		t.existingTypes = append(t.existingTypes, name)
		t.typeSet[name] = true
	}
	return t
}

// IsType reports whether name is a known type (built-in or typedef'd).
func (t *SymbolTable) IsType(name string) bool { return t.typeSet[name] }

// DeclareType registers a new type name. It returns false if the name was
// already known (the caller must treat that as fatal: "typedef redeclares
// an existing type name").
func (t *SymbolTable) DeclareType(name string) bool {
	if t.typeSet[name] {
		return false
	}
	t.typeSet[name] = true
	t.existingTypes = append(t.existingTypes, name)
	return true
}

// AddTypedef records newName's canonical form: either another type name
// (already resolved via Resolve) or structSentinel.
func (t *SymbolTable) AddTypedef(newName, canonical string) {
	t.typedefs[newName] = canonical
}

// AddStruct registers the ordered member list for a struct-backed type name.
func (t *SymbolTable) AddStruct(name string, members []Param) {
	t.structs[name] = &StructDef{Name: name, Members: members}
}

// GetStruct looks up the member list for a struct-backed type name.
func (t *SymbolTable) GetStruct(name string) (*StructDef, bool) {
	d, ok := t.structs[name]
	return d, ok
}

// Resolve follows typedefs transitively to a built-in type name or to
// structSentinel. An unknown type name is returned unresolved (the caller
// is expected to have already validated it with IsType).
func (t *SymbolTable) Resolve(typeName string) string {
	seen := make(map[string]bool)
	cur := typeName
	for {
		if seen[cur] {
			return cur // cyclic typedef chain; not constructible via the parser, guarded defensively
		}
		seen[cur] = true
		next, ok := t.typedefs[cur]
		if !ok {
			return cur
		}
		cur = next
	}
}

// DeclareFunction registers name as a known function. A full definition
// (isProto == false) is only allowed to reuse a name already present when
// that name is in prototypes (i.e., introduced by a header). Returns false
// when this would be an illegal redeclaration.
func (t *SymbolTable) DeclareFunction(name string, isProto bool) bool {
	if t.existingFunctions[name] {
		if isProto {
			return false // re-declaring the same prototype twice
		}
		if !t.prototypes[name] {
			return false // full definition collides with an earlier full definition
		}
		delete(t.prototypes, name) // definition satisfies the prototype
		return true
	}
	t.existingFunctions[name] = true
	if isProto {
		t.prototypes[name] = true
	}
	return true
}

// IsFunction reports whether name has been declared (prototype or definition).
func (t *SymbolTable) IsFunction(name string) bool { return t.existingFunctions[name] }

// DeclareGlobal registers a file-scope variable name with its declared type.
// Returns false if a global by that name already exists.
func (t *SymbolTable) DeclareGlobal(name, typeName string) bool {
	if _, ok := t.globals[name]; ok {
		return false
	}
	t.globals[name] = typeName
	return true
}

// IsGlobal reports whether name is a registered file-scope variable.
func (t *SymbolTable) IsGlobal(name string) bool { _, ok := t.globals[name]; return ok }

// EnterScope pushes a new, empty variable scope.
func (t *SymbolTable) EnterScope() {
	t.scopes = append(t.scopes, make(map[string]string))
}

// ExitScope pops the innermost variable scope.
func (t *SymbolTable) ExitScope() {
	if len(t.scopes) > 0 {
		t.scopes = t.scopes[:len(t.scopes)-1]
	}
}

// Declare adds name to the innermost scope with its declared type. Returns
// false if name was already declared in that same scope (shadowing an outer
// scope is fine; redeclaring in the same scope is not).
func (t *SymbolTable) Declare(name, typeName string) bool {
	if len(t.scopes) == 0 {
		return false
	}
	top := t.scopes[len(t.scopes)-1]
	if _, ok := top[name]; ok {
		return false
	}
	top[name] = typeName
	return true
}

// IsDeclared reports whether name is visible from the innermost scope
// outward, falling back to the file-scope globals.
func (t *SymbolTable) IsDeclared(name string) bool {
	_, ok := t.VarType(name)
	return ok
}

// VarType returns the declared type of name, resolved from the innermost
// scope outward and falling back to the file-scope globals. ok is false if
// name is not a known variable at all (e.g. it is a function or undeclared).
func (t *SymbolTable) VarType(name string) (typeName string, ok bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if typ, found := t.scopes[i][name]; found {
			return typ, true
		}
	}
	typ, found := t.globals[name]
	return typ, found
}

// InFunction reports whether the scope stack is currently non-empty.
func (t *SymbolTable) InFunction() bool { return len(t.scopes) > 0 }
