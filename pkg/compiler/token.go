package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER
	NUMBER
	STRING

	// Keywords
	FUNCTION
	RETURN
	TYPEDEF
	STRUCT
	IF
	ELSE
	WHILE
	SWITCH
	CASE
	DEFAULT
	BREAK
	CONTINUE
	HEADER
	ASM

	// Built-in type names
	VOID
	BOOL
	CHAR
	FLOAT
	INT8
	INT16
	INT32
	INT64
	UINT8
	UINT16
	UINT32
	UINT64

	// Paired delimiters
	LBRACE
	RBRACE
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET

	// Punctuation
	SEMICOLON
	COMMA

	// Operators
	ASSIGN  // =
	EQUALS  // ==
	NOT_EQ  // !=
	LESS    // <
	LESS_EQ // <=
	GREATER // >
	GREATER_EQ
	PLUS  // +
	MINUS // -
	STAR  // *
	SLASH // /
	PERCENT
	AND         // &
	PIPE        // |
	AND_LOGICAL // &&
	OR_LOGICAL  // ||
	NOT         // !
	PLUS_PLUS   // ++
	MINUS_MINUS // --
)

var tokenNames = [...]string{
	EOF:         "EOF",
	IDENTIFIER:  "IDENTIFIER",
	NUMBER:      "NUMBER",
	STRING:      "STRING",
	FUNCTION:    "FUNCTION",
	RETURN:      "RETURN",
	TYPEDEF:     "TYPEDEF",
	STRUCT:      "STRUCT",
	IF:          "IF",
	ELSE:        "ELSE",
	WHILE:       "WHILE",
	SWITCH:      "SWITCH",
	CASE:        "CASE",
	DEFAULT:     "DEFAULT",
	BREAK:       "BREAK",
	CONTINUE:    "CONTINUE",
	HEADER:      "HEADER",
	ASM:         "ASM",
	VOID:        "VOID",
	BOOL:        "BOOL",
	CHAR:        "CHAR",
	FLOAT:       "FLOAT",
	INT8:        "INT8",
	INT16:       "INT16",
	INT32:       "INT32",
	INT64:       "INT64",
	UINT8:       "UINT8",
	UINT16:      "UINT16",
	UINT32:      "UINT32",
	UINT64:      "UINT64",
	LBRACE:      "LBRACE",
	RBRACE:      "RBRACE",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	LBRACKET:    "LBRACKET",
	RBRACKET:    "RBRACKET",
	SEMICOLON:   "SEMICOLON",
	COMMA:       "COMMA",
	ASSIGN:      "ASSIGN",
	EQUALS:      "EQUALS",
	NOT_EQ:      "NOT_EQ",
	LESS:        "LESS",
	LESS_EQ:     "LESS_EQ",
	GREATER:     "GREATER",
	GREATER_EQ:  "GREATER_EQ",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	STAR:        "STAR",
	SLASH:       "SLASH",
	PERCENT:     "PERCENT",
	AND:         "AND",
	PIPE:        "PIPE",
	AND_LOGICAL: "AND_LOGICAL",
	OR_LOGICAL:  "OR_LOGICAL",
	NOT:         "NOT",
	PLUS_PLUS:   "PLUS_PLUS",
	MINUS_MINUS: "MINUS_MINUS",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// keywords maps reserved identifiers, including built-in type names, to their
// token kind. Anything not in this map lexes as IDENTIFIER.
var keywords = map[string]TokenType{
	"function": FUNCTION,
	"return":   RETURN,
	"typedef":  TYPEDEF,
	"struct":   STRUCT,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"switch":   SWITCH,
	"case":     CASE,
	"default":  DEFAULT,
	"break":    BREAK,
	"continue": CONTINUE,
	"header":   HEADER,
	"asm":      ASM,
	"void":     VOID,
	"bool":     BOOL,
	"char":     CHAR,
	"float":    FLOAT,
	"int8":     INT8,
	"int16":    INT16,
	"int32":    INT32,
	"int64":    INT64,
	"uint8":    UINT8,
	"uint16":   UINT16,
	"uint32":   UINT32,
	"uint64":   UINT64,
}

// builtinTypeNames lists the twelve default type names that seed a fresh
// symbol table's existingTypes set.
var builtinTypeNames = []string{
	"void", "bool", "char", "float",
	"int8", "int16", "int32", "int64",
	"uint8", "uint16", "uint32", "uint64",
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Text   string // lexeme payload: identifier/number/string text
	Line   int    // 1-based source line
	Column int    // 1-based source column
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  %d:%d", t.Type, t.Text, t.Line, t.Column)
}
