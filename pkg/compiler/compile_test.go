package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestCompileBareIncludeOfHeaderWrappedFile covers a bare top-level
// #include of a file whose prototypes are themselves wrapped in a
// "header { ... };" block: the wrapper must survive the splice so the
// parser sees a header block, not unwrapped declarations at top level.
func TestCompileBareIncludeOfHeaderWrappedFile(t *testing.T) {
	dir := t.TempDir()
	headerPath := filepath.Join(dir, "math.e")
	header := "header {\n  function square(int32 n) -> int32;\n};\n"
	if err := os.WriteFile(headerPath, []byte(header), 0o644); err != nil {
		t.Fatal(err)
	}
	src := `#include "math.e"
function square(int32 n) -> int32 {
	return n * n;
};
function main() -> int32 {
	return square(3);
};
`
	out, err := Compile(src, dir, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	for _, want := range []string{".global square", ".global main", "call square", "imul rax, rbx"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestCompileMacroSubstitutionReachesCodegen(t *testing.T) {
	src := "#define SIZE 64\nfunction f() -> int32 { return SIZE; };\n"
	out, err := Compile(src, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !strings.Contains(out, "mov  rax, 64") {
		t.Errorf("expected macro-substituted literal 64 in output, got:\n%s", out)
	}
}

func TestCompileUndefRestoresOriginalIdentifier(t *testing.T) {
	// A use of WIDTH after #undef should fail to resolve as a plain
	// variable, since it was never declared as one.
	src := "#define WIDTH 10\n#undef WIDTH\nfunction f() -> int32 { return WIDTH; };\n"
	_, err := Compile(src, t.TempDir(), nil)
	if err == nil {
		t.Fatal("expected an error: WIDTH is undefined after #undef and was never declared as a variable")
	}
}

func TestCompilePropagatesPreprocessorError(t *testing.T) {
	_, err := Compile("#include <missing.e>\n", t.TempDir(), nil)
	if err == nil {
		t.Fatal("expected a fatal error for a missing include")
	}
	diag, ok := err.(*Diagnostic)
	if !ok {
		t.Fatalf("error is %T, want *Diagnostic", err)
	}
	if diag.Category != CategoryPreprocessor {
		t.Errorf("got category %v, want CategoryPreprocessor", diag.Category)
	}
}

func TestCompilePropagatesLexError(t *testing.T) {
	_, err := Compile("function f() -> void { return @; };\n", t.TempDir(), nil)
	if err == nil {
		t.Fatal("expected a lexical error for an unrecognized character")
	}
	if diag, ok := err.(*Diagnostic); ok && diag.Category != CategoryLexical {
		t.Errorf("got category %v, want CategoryLexical", diag.Category)
	}
}

func TestCompilePropagatesParseError(t *testing.T) {
	_, err := Compile("function f() -> void { return undeclared_name; };\n", t.TempDir(), nil)
	if err == nil {
		t.Fatal("expected a semantic error for an undeclared identifier")
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	src := "function f(int32 a) -> int32 { return a + 1; };\n"
	first, err := Compile(src, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	second, err := Compile(src, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if first != second {
		t.Errorf("Compile() is not deterministic across repeated calls:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestCompileInlineAsmEndToEnd(t *testing.T) {
	src := "#asmstart(x)\nmov rax, [rdi]\n#asmend\n"
	out, err := Compile(src, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !strings.Contains(out, "lea  rdi, [x]") {
		t.Errorf("expected captured asm param to be addressed via rdi, got:\n%s", out)
	}
	if !strings.Contains(out, "mov rax, [rdi]") {
		t.Errorf("expected the verbatim asm body to be spliced in, got:\n%s", out)
	}
}
