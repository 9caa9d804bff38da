// Package compiler provides an EntS preprocessor, lexer, parser, and code
// generator that targets x86-64 SysV AMD64 text assembly.
//
// Pipeline: source → Preprocess → Lex → Parse → Generate → assembly text
package compiler
