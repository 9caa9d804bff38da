package compiler

// Parser is a recursive-descent parser with small, fixed lookahead. It owns
// the symbol table it builds up while walking the token stream, and consumes
// the preprocessor's asm-block list in file order as it encounters `asm;`
// placeholders.
type Parser struct {
	tokens []Token
	pos    int

	syms      *SymbolTable
	asmBlocks []AsmBlock
	asmNext   int
}

// Parse builds the tree for one translation unit. asmBlocks is the ordered
// list produced by Preprocess; the parser resolves each `asm;` placeholder
// to the next unused entry in file order.
func Parse(tokens []Token, asmBlocks []AsmBlock) (*Program, *SymbolTable, error) {
	p := &Parser{
		tokens:    tokens,
		syms:      NewSymbolTable(),
		asmBlocks: asmBlocks,
	}
	prog := &Program{}
	for !p.atEOF() {
		item, err := p.parseTopLevel(false)
		if err != nil {
			return nil, nil, err
		}
		prog.Items = append(prog.Items, item)
	}
	return prog, p.syms, nil
}

//  Token cursor helpers

func (p *Parser) peek() Token { return p.tokens[p.pos] }

func (p *Parser) peekAt(offset int) Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		idx = len(p.tokens) - 1
	}
	return p.tokens[idx]
}

func (p *Parser) advance() Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(tt TokenType) bool { return p.peek().Type == tt }

func (p *Parser) atEOF() bool { return p.peek().Type == EOF }

func (p *Parser) expect(tt TokenType) (Token, error) {
	if p.peek().Type != tt {
		return Token{}, p.fatalf(p.peek(), CategorySyntactic, "expected %s, found %s", tt, p.peek().Type)
	}
	return p.advance(), nil
}

func (p *Parser) fatalf(tok Token, cat Category, format string, args ...any) error {
	return fatalf(cat, tok.Line, tok.Column, tok.Text, format, args...)
}

func posOf(t Token) Pos { return Pos{Line: t.Line, Col: t.Column} }

// typeTokenName reports whether tok names a known type (a built-in type
// keyword, or an identifier already registered via typedef/struct) and
// returns its textual name.
func (p *Parser) typeTokenName(tok Token) (string, bool) {
	switch tok.Type {
	case VOID, BOOL, CHAR, FLOAT, INT8, INT16, INT32, INT64, UINT8, UINT16, UINT32, UINT64:
		return tok.Text, true
	case IDENTIFIER:
		if p.syms.IsType(tok.Text) {
			return tok.Text, true
		}
	}
	return "", false
}

func (p *Parser) atTypeName() bool {
	_, ok := p.typeTokenName(p.peek())
	return ok
}

//  Top-level dispatch

func (p *Parser) parseTopLevel(inHeader bool) (TopLevel, error) {
	tok := p.peek()
	switch tok.Type {
	case HEADER:
		if inHeader {
			return nil, p.fatalf(tok, CategorySemantic, "header blocks cannot nest")
		}
		return p.parseHeaderBlock()
	case FUNCTION:
		return p.parseFunction(inHeader)
	case TYPEDEF:
		return p.parseTypedef()
	case ASM:
		if inHeader {
			return nil, p.fatalf(tok, CategorySemantic, "inline assembly is not allowed inside a header block")
		}
		return p.parseInlineAsm()
	default:
		if p.atTypeName() {
			return p.parseGlobalVarDecl(inHeader)
		}
		return nil, p.fatalf(tok, CategorySyntactic, "unexpected token %s at top level", tok.Type)
	}
}

func (p *Parser) parseHeaderBlock() (TopLevel, error) {
	start := p.peek()
	p.advance() // 'header'
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	var items []TopLevel
	for !p.check(RBRACE) {
		if p.atEOF() {
			return nil, p.fatalf(p.peek(), CategorySyntactic, "unterminated header block")
		}
		item, err := p.parseTopLevel(true)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &HeaderBlock{Pos: posOf(start), Items: items}, nil
}

func (p *Parser) parseParamList() ([]Param, error) {
	var params []Param
	if p.check(RPAREN) {
		return params, nil
	}
	if p.check(VOID) && p.peekAt(1).Type == RPAREN {
		p.advance()
		return params, nil
	}
	for {
		typTok := p.peek()
		typ, ok := p.typeTokenName(typTok)
		if !ok {
			return nil, p.fatalf(typTok, CategorySyntactic, "expected parameter type, found %s", typTok.Type)
		}
		p.advance()
		nameTok, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		params = append(params, Param{Type: typ, Name: nameTok.Text})
		if p.check(COMMA) {
			p.advance()
			continue
		}
		break
	}
	return params, nil
}

func (p *Parser) parseFunction(inHeader bool) (TopLevel, error) {
	start := p.peek()
	p.advance() // 'function'
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(MINUS); err != nil {
		return nil, err
	}
	if _, err := p.expect(GREATER); err != nil {
		return nil, err
	}
	retTok := p.peek()
	retType, ok := p.typeTokenName(retTok)
	if !ok {
		return nil, p.fatalf(retTok, CategorySyntactic, "expected return type, found %s", retTok.Type)
	}
	p.advance()

	if inHeader {
		if !p.syms.DeclareFunction(nameTok.Text, true) {
			return nil, p.fatalf(nameTok, CategorySemantic, "function %q already declared", nameTok.Text)
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &FunctionProto{Pos: posOf(start), Name: nameTok.Text, ReturnType: retType, Params: params}, nil
	}

	if !p.syms.DeclareFunction(nameTok.Text, false) {
		return nil, p.fatalf(nameTok, CategorySemantic, "function %q redefined", nameTok.Text)
	}

	p.syms.EnterScope()
	for _, param := range params {
		if !p.syms.Declare(param.Name, param.Type) {
			p.syms.ExitScope()
			return nil, p.fatalf(nameTok, CategorySemantic, "duplicate parameter %q in function %q", param.Name, nameTok.Text)
		}
	}
	body, err := p.parseBlockNoScope()
	p.syms.ExitScope()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &FunctionDecl{Pos: posOf(start), Name: nameTok.Text, ReturnType: retType, Params: params, Body: body}, nil
}

func (p *Parser) parseTypedef() (TopLevel, error) {
	start := p.peek()
	p.advance() // 'typedef'

	if p.check(STRUCT) {
		p.advance()
		if _, err := p.expect(LBRACE); err != nil {
			return nil, err
		}
		var members []Param
		seen := make(map[string]bool)
		for !p.check(RBRACE) {
			if p.atEOF() {
				return nil, p.fatalf(p.peek(), CategorySyntactic, "unterminated struct body")
			}
			mTypTok := p.peek()
			mTyp, ok := p.typeTokenName(mTypTok)
			if !ok {
				return nil, p.fatalf(mTypTok, CategorySyntactic, "expected member type, found %s", mTypTok.Type)
			}
			p.advance()
			mNameTok, err := p.expect(IDENTIFIER)
			if err != nil {
				return nil, err
			}
			if seen[mNameTok.Text] {
				return nil, p.fatalf(mNameTok, CategorySemantic, "duplicate struct member %q", mNameTok.Text)
			}
			seen[mNameTok.Text] = true
			if _, err := p.expect(SEMICOLON); err != nil {
				return nil, err
			}
			members = append(members, Param{Type: mTyp, Name: mNameTok.Text})
		}
		if _, err := p.expect(RBRACE); err != nil {
			return nil, err
		}
		nameTok, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if !p.syms.DeclareType(nameTok.Text) {
			return nil, p.fatalf(nameTok, CategorySemantic, "type %q already declared", nameTok.Text)
		}
		p.syms.AddTypedef(nameTok.Text, structSentinel)
		p.syms.AddStruct(nameTok.Text, members)
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &TypedefDecl{
			Pos:     posOf(start),
			NewName: nameTok.Text,
			Struct:  &StructBody{Pos: posOf(start), Members: members},
		}, nil
	}

	oldTok := p.peek()
	oldType, ok := p.typeTokenName(oldTok)
	if !ok {
		return nil, p.fatalf(oldTok, CategorySyntactic, "expected type name, found %s", oldTok.Type)
	}
	p.advance()
	newTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if !p.syms.DeclareType(newTok.Text) {
		return nil, p.fatalf(newTok, CategorySemantic, "type %q already declared", newTok.Text)
	}
	p.syms.AddTypedef(newTok.Text, p.syms.Resolve(oldType))
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &TypedefDecl{Pos: posOf(start), NewName: newTok.Text, OldType: oldType}, nil
}

func (p *Parser) parseInlineAsm() (TopLevel, error) {
	start := p.peek()
	p.advance() // 'asm'
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	if p.asmNext >= len(p.asmBlocks) {
		return nil, p.fatalf(start, CategorySemantic, "more inline-asm references than captured asm blocks")
	}
	idx := p.asmNext
	p.asmNext++
	return &InlineAsmItem{Pos: posOf(start), BlockIndex: idx}, nil
}

func (p *Parser) parseGlobalVarDecl(inHeader bool) (TopLevel, error) {
	start := p.peek()
	typTok := p.peek()
	typ, _ := p.typeTokenName(typTok)
	p.advance()

	addressInit := false
	var nameTok Token
	var err error
	if p.check(LBRACKET) {
		addressInit = true
		p.advance()
		nameTok, err = p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return nil, err
		}
	} else {
		nameTok, err = p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
	}

	if p.check(ASSIGN) {
		if inHeader {
			return nil, p.fatalf(p.peek(), CategorySemantic, "initialization in header")
		}
		return nil, p.fatalf(p.peek(), CategorySemantic, "global variable %q may not have an initializer", nameTok.Text)
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	if !p.syms.DeclareGlobal(nameTok.Text, typ) {
		return nil, p.fatalf(nameTok, CategorySemantic, "global %q already declared", nameTok.Text)
	}
	return &GlobalVarDecl{Pos: posOf(start), Type: typ, Name: nameTok.Text, AddressInit: addressInit}, nil
}

//  Statements

func (p *Parser) parseBlockNoScope() (*BlockStmt, error) {
	start := p.peek()
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	var stmts []Stmt
	for !p.check(RBRACE) {
		if p.atEOF() {
			return nil, p.fatalf(p.peek(), CategorySyntactic, "unterminated block")
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return &BlockStmt{Pos: posOf(start), Stmts: stmts}, nil
}

// parseBlock parses a nested block, pushing its own lexical scope. The
// function body's own top-level block is parsed via parseBlockNoScope
// instead, since its scope was already pushed for the parameter list.
func (p *Parser) parseBlock() (*BlockStmt, error) {
	p.syms.EnterScope()
	b, err := p.parseBlockNoScope()
	p.syms.ExitScope()
	return b, err
}

func (p *Parser) parseStmt() (Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case WHILE:
		return p.parseWhile()
	case IF:
		return p.parseIf()
	case RETURN:
		return p.parseReturn()
	case CONTINUE:
		return p.parseContinue()
	case BREAK:
		return p.parseBreak()
	case SWITCH:
		return p.parseSwitch()
	case LBRACKET:
		return p.parseMemoryAssign()
	default:
		if p.atTypeName() {
			return p.parseVarDecl()
		}
		if tok.Type == IDENTIFIER {
			return p.parseIdentifierStmt()
		}
		return nil, p.fatalf(tok, CategorySyntactic, "unexpected token %s in statement", tok.Type)
	}
}

func (p *Parser) parseVarDecl() (Stmt, error) {
	start := p.peek()
	typTok := p.peek()
	typ, _ := p.typeTokenName(typTok)
	p.advance()

	addressInit := false
	var nameTok Token
	var err error
	if p.check(LBRACKET) {
		addressInit = true
		p.advance()
		nameTok, err = p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return nil, err
		}
	} else {
		nameTok, err = p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
	}

	if !p.syms.Declare(nameTok.Text, typ) {
		return nil, p.fatalf(nameTok, CategorySemantic, "%q already declared in this scope", nameTok.Text)
	}

	if p.check(ASSIGN) {
		p.advance()
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &VarDeclAssign{Pos: posOf(start), Type: typ, Name: nameTok.Text, Init: init, AddressInit: addressInit}, nil
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &VarDecl{Pos: posOf(start), Type: typ, Name: nameTok.Text, AddressInit: addressInit}, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	start := p.peek()
	p.advance() // 'while'
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &WhileStmt{Pos: posOf(start), Cond: cond, Body: body}, nil
}

func (p *Parser) parseIf() (Stmt, error) {
	stmt, err := p.parseIfNoSemi()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseIfNoSemi parses one if/else-if/else chain without the trailing
// semicolon, which belongs to the outermost call only. Else-if chains
// right-nest through Else.
func (p *Parser) parseIfNoSemi() (*IfStmt, error) {
	start := p.peek()
	p.advance() // 'if'
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{Pos: posOf(start), Cond: cond, Then: then}
	if p.check(ELSE) {
		p.advance()
		if p.check(IF) {
			elseIf, err := p.parseIfNoSemi()
			if err != nil {
				return nil, err
			}
			stmt.Else = elseIf
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			stmt.Else = elseBlock
		}
	}
	return stmt, nil
}

func (p *Parser) parseReturn() (Stmt, error) {
	start := p.peek()
	p.advance() // 'return'
	if p.check(SEMICOLON) {
		p.advance()
		return &ReturnStmt{Pos: posOf(start)}, nil
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &ReturnStmt{Pos: posOf(start), Expr: expr}, nil
}

func (p *Parser) parseBreak() (Stmt, error) {
	start := p.peek()
	p.advance()
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &BreakStmt{Pos: posOf(start)}, nil
}

func (p *Parser) parseContinue() (Stmt, error) {
	start := p.peek()
	p.advance()
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &ContinueStmt{Pos: posOf(start)}, nil
}

func (p *Parser) parseSwitch() (Stmt, error) {
	start := p.peek()
	p.advance() // 'switch'
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}

	var cases []*CaseClause
	var def *DefaultClause
	for !p.check(RBRACE) {
		if p.atEOF() {
			return nil, p.fatalf(p.peek(), CategorySyntactic, "unterminated switch body")
		}
		switch {
		case p.check(CASE):
			if def != nil {
				return nil, p.fatalf(p.peek(), CategorySemantic, "case after default in switch")
			}
			c, err := p.parseCase()
			if err != nil {
				return nil, err
			}
			cases = append(cases, c)
		case p.check(DEFAULT):
			if def != nil {
				return nil, p.fatalf(p.peek(), CategorySemantic, "duplicate default in switch")
			}
			d, err := p.parseDefault()
			if err != nil {
				return nil, err
			}
			def = d
		default:
			return nil, p.fatalf(p.peek(), CategorySyntactic, "expected case or default, found %s", p.peek().Type)
		}
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &SwitchStmt{Pos: posOf(start), Cond: cond, Cases: cases, Default: def}, nil
}

func (p *Parser) parseCase() (*CaseClause, error) {
	start := p.peek()
	p.advance() // 'case'
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &CaseClause{Pos: posOf(start), Value: val, Body: body}, nil
}

func (p *Parser) parseDefault() (*DefaultClause, error) {
	start := p.peek()
	p.advance() // 'default'
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &DefaultClause{Pos: posOf(start), Body: body}, nil
}

func (p *Parser) parseMemoryAssign() (Stmt, error) {
	start := p.peek()
	p.advance() // '['
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if !p.syms.IsDeclared(nameTok.Text) {
		return nil, p.fatalf(nameTok, CategorySemantic, "undefined variable %q", nameTok.Text)
	}
	if _, err := p.expect(RBRACKET); err != nil {
		return nil, err
	}
	if _, err := p.expect(ASSIGN); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &MemoryAssignStmt{Pos: posOf(start), Name: nameTok.Text, Value: val}, nil
}

// parseMemberChain parses a left-associative -> member chain starting after
// an identifier already known to be in scope. nameTok is the base identifier
// token (its name becomes the Identifier leaf); posTok is the position given
// to that leaf.
// Each member is validated against the struct type at its depth: curType
// tracks the type of base as the chain is built, starting from nameTok's own
// declared type and advancing to each member's declared type in turn.
func (p *Parser) parseMemberChain(nameTok, posTok Token) (*MemberAccess, error) {
	var base Expr = &Identifier{Pos: posOf(posTok), Name: nameTok.Text}
	curType, _ := p.syms.VarType(nameTok.Text)
	var last *MemberAccess
	for p.check(MINUS) && p.peekAt(1).Type == GREATER {
		p.advance() // '-'
		p.advance() // '>'
		memberTok, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		def, ok := p.syms.GetStruct(curType)
		if !ok {
			def, ok = p.syms.GetStruct(p.syms.Resolve(curType))
		}
		if !ok {
			return nil, p.fatalf(memberTok, CategorySemantic, "%q is not a struct type", curType)
		}
		idx := def.MemberIndex(memberTok.Text)
		if idx < 0 {
			return nil, p.fatalf(memberTok, CategorySemantic, "struct %s has no member %q", def.Name, memberTok.Text)
		}
		last = &MemberAccess{Pos: posOf(memberTok), Base: base, Member: memberTok.Text}
		base = last
		curType = def.Members[idx].Type
	}
	if last == nil {
		return nil, p.fatalf(p.peek(), CategorySyntactic, "expected '->' member access")
	}
	return last, nil
}

func (p *Parser) parseIdentifierStmt() (Stmt, error) {
	start := p.peek()
	nameTok := p.advance() // identifier

	if p.syms.IsDeclared(nameTok.Text) {
		switch p.peek().Type {
		case PLUS_PLUS, MINUS_MINUS:
			opTok := p.advance()
			if _, err := p.expect(SEMICOLON); err != nil {
				return nil, err
			}
			return &IncDecStmt{Pos: posOf(start), Name: nameTok.Text, Op: opTok.Type}, nil
		case ASSIGN:
			p.advance()
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(SEMICOLON); err != nil {
				return nil, err
			}
			return &AssignStmt{Pos: posOf(start), Name: nameTok.Text, Value: val}, nil
		case LBRACKET:
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RBRACKET); err != nil {
				return nil, err
			}
			if _, err := p.expect(ASSIGN); err != nil {
				return nil, err
			}
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(SEMICOLON); err != nil {
				return nil, err
			}
			return &IndexAssignStmt{Pos: posOf(start), Name: nameTok.Text, Index: idx, Value: val}, nil
		case MINUS:
			if p.peekAt(1).Type == GREATER {
				base, err := p.parseMemberChain(nameTok, start)
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(ASSIGN); err != nil {
					return nil, err
				}
				val, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(SEMICOLON); err != nil {
					return nil, err
				}
				return &StructMemberAssignStmt{Pos: posOf(start), Base: base, Value: val}, nil
			}
		}
		return nil, p.fatalf(p.peek(), CategorySyntactic, "unexpected token %s after variable %q", p.peek().Type, nameTok.Text)
	}

	if p.syms.IsFunction(nameTok.Text) {
		if _, err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &CallStmt{Pos: posOf(start), Name: nameTok.Text, Args: args}, nil
	}

	return nil, p.fatalf(nameTok, CategorySemantic, "undefined variable or function name %q", nameTok.Text)
}

//  Expressions, lowest precedence first: || && | & == != < <= > >= + - * / unary primary

func (p *Parser) parseExpr() (Expr, error) { return p.parseLor() }

func (p *Parser) parseLor() (Expr, error) {
	left, err := p.parseLand()
	if err != nil {
		return nil, err
	}
	for p.check(OR_LOGICAL) {
		opTok := p.advance()
		right, err := p.parseLand()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Pos: posOf(opTok), Op: opTok.Type, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseLand() (Expr, error) {
	left, err := p.parseBor()
	if err != nil {
		return nil, err
	}
	for p.check(AND_LOGICAL) {
		opTok := p.advance()
		right, err := p.parseBor()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Pos: posOf(opTok), Op: opTok.Type, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseBor() (Expr, error) {
	left, err := p.parseBand()
	if err != nil {
		return nil, err
	}
	for p.check(PIPE) {
		opTok := p.advance()
		right, err := p.parseBand()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Pos: posOf(opTok), Op: opTok.Type, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseBand() (Expr, error) {
	left, err := p.parseEq()
	if err != nil {
		return nil, err
	}
	for p.check(AND) {
		opTok := p.advance()
		right, err := p.parseEq()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Pos: posOf(opTok), Op: opTok.Type, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEq() (Expr, error) {
	left, err := p.parseRel()
	if err != nil {
		return nil, err
	}
	for p.check(EQUALS) || p.check(NOT_EQ) {
		opTok := p.advance()
		right, err := p.parseRel()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Pos: posOf(opTok), Op: opTok.Type, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseRel() (Expr, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	for p.check(LESS) || p.check(LESS_EQ) || p.check(GREATER) || p.check(GREATER_EQ) {
		opTok := p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Pos: posOf(opTok), Op: opTok.Type, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdd() (Expr, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.check(PLUS) || p.check(MINUS) {
		opTok := p.advance()
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Pos: posOf(opTok), Op: opTok.Type, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMul() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.check(STAR) || p.check(SLASH) {
		opTok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Pos: posOf(opTok), Op: opTok.Type, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	tok := p.peek()
	if tok.Type == NOT || tok.Type == MINUS {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Pos: posOf(tok), Op: tok.Type, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case NUMBER:
		p.advance()
		return &Literal{Pos: posOf(tok), Text: tok.Text}, nil
	case STRING:
		p.advance()
		return &StringLit{Pos: posOf(tok), Text: tok.Text}, nil
	case LPAREN:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	case LBRACKET:
		p.advance()
		nameTok, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if !p.syms.IsDeclared(nameTok.Text) {
			return nil, p.fatalf(nameTok, CategorySemantic, "undefined variable %q", nameTok.Text)
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return nil, err
		}
		return &MemoryAddress{Pos: posOf(tok), Name: nameTok.Text}, nil
	case IDENTIFIER:
		p.advance()
		switch {
		case p.check(LBRACKET):
			if !p.syms.IsDeclared(tok.Text) {
				return nil, p.fatalf(tok, CategorySemantic, "undefined variable %q", tok.Text)
			}
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RBRACKET); err != nil {
				return nil, err
			}
			return &IndexExpr{Pos: posOf(tok), Name: tok.Text, Index: idx}, nil
		case p.check(LPAREN):
			if !p.syms.IsFunction(tok.Text) {
				return nil, p.fatalf(tok, CategorySemantic, "call to undeclared function %q", tok.Text)
			}
			p.advance()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RPAREN); err != nil {
				return nil, err
			}
			return &CallExpr{Pos: posOf(tok), Name: tok.Text, Args: args}, nil
		case p.check(MINUS) && p.peekAt(1).Type == GREATER:
			if !p.syms.IsDeclared(tok.Text) {
				return nil, p.fatalf(tok, CategorySemantic, "undefined variable %q", tok.Text)
			}
			return p.parseMemberChain(tok, tok)
		default:
			if !p.syms.IsDeclared(tok.Text) && !p.syms.IsFunction(tok.Text) {
				return nil, p.fatalf(tok, CategorySemantic, "undefined identifier %q", tok.Text)
			}
			return &Identifier{Pos: posOf(tok), Name: tok.Text}, nil
		}
	default:
		return nil, p.fatalf(tok, CategorySyntactic, "unexpected token %s in expression", tok.Type)
	}
}

func (p *Parser) parseArgs() ([]Expr, error) {
	var args []Expr
	if p.check(RPAREN) {
		return args, nil
	}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.check(COMMA) {
			p.advance()
			continue
		}
		break
	}
	return args, nil
}
