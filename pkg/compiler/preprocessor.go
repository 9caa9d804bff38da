package compiler

import (
	"os"
	"path/filepath"
	"strings"
)

// AsmBlock is one verbatim inline-assembly capture from a
// #asmstart(...)/#asmend pair: the parameter names bound to SysV argument
// registers in order, and the captured body lines.
type AsmBlock struct {
	Params []string
	Body   string
}

// Preprocessor holds the mutable state of a single top-level preprocessing
// invocation: the macro table and the ordered asm-block list are scoped to
// this invocation only, per the single-threaded resource model.
type Preprocessor struct {
	includeRoots []string
	macros       map[string]string
	asmBlocks    []AsmBlock
	visiting     map[string]bool // absolute paths currently being expanded, cycle guard
}

// Preprocess runs the full preprocessor pass over src (the contents of the
// file at baseDir) and returns the rewritten text buffer plus the ordered
// list of captured inline-assembly blocks. includeRoots are searched, in
// order, for #include <path> directives; #include "path" is resolved only
// relative to the including file's directory.
func Preprocess(src string, baseDir string, includeRoots []string) (string, []AsmBlock, error) {
	pp := &Preprocessor{
		includeRoots: includeRoots,
		macros:       make(map[string]string),
		visiting:     make(map[string]bool),
	}
	out, err := pp.run(src, baseDir, true)
	if err != nil {
		return "", nil, err
	}
	return out, pp.asmBlocks, nil
}

// run preprocesses one file's text. topLevel is true only for the original
// entry file: the entry file's whole text is kept for the parser; for an
// included file only its header blocks are kept (each with its
// "header { ... };" wrapper, via extractHeaderBodies) and the rest of that
// file is dropped.
func (pp *Preprocessor) run(src string, baseDir string, topLevel bool) (string, error) {
	lines := splitLines(src)
	var out strings.Builder

	var capturing *AsmBlock
	var capturingStartLine int

	for i := 0; i < len(lines); i++ {
		lineNo := i + 1
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if capturing != nil {
			if trimmed == "#asmend" {
				pp.asmBlocks = append(pp.asmBlocks, *capturing)
				out.WriteString("asm;\n")
				capturing = nil
				continue
			}
			capturing.Body += line + "\n"
			continue
		}

		if !strings.HasPrefix(trimmed, "#") {
			expanded, err := pp.applyMacros(line)
			if err != nil {
				return "", err
			}
			out.WriteString(expanded)
			out.WriteByte('\n')
			continue
		}

		directive, rest := splitDirective(trimmed)
		switch directive {
		case "#include":
			text, err := pp.handleInclude(rest, baseDir, lineNo)
			if err != nil {
				return "", err
			}
			out.WriteString(text)

		case "#define":
			value, consumed := joinContinuations(lines, i, rest)
			i += consumed
			name, val := splitDefine(value)
			if name == "" {
				return "", fatalf(CategoryPreprocessor, lineNo, 1, "", "malformed #define")
			}
			pp.macros[name] = val

		case "#undef":
			name := strings.TrimSpace(rest)
			delete(pp.macros, name)

		case "#asmstart":
			params, err := parseAsmStartArgs(rest)
			if err != nil {
				return "", fatalf(CategoryPreprocessor, lineNo, 1, "", "%s", err.Error())
			}
			capturing = &AsmBlock{Params: params}
			capturingStartLine = lineNo

		case "#asmend":
			return "", fatalf(CategoryPreprocessor, lineNo, 1, "", "#asmend without a matching #asmstart")

		default:
			return "", fatalf(CategoryPreprocessor, lineNo, 1, "", "unknown preprocessor directive %q", directive)
		}
	}

	if capturing != nil {
		return "", fatalf(CategoryPreprocessor, capturingStartLine, 1, "", "unterminated #asmstart block")
	}

	text := out.String()
	if topLevel {
		return text, nil
	}
	return extractHeaderBodies(text), nil
}

// handleInclude resolves and recursively preprocesses one #include directive,
// returning the text to splice into the including file's output.
func (pp *Preprocessor) handleInclude(rest string, baseDir string, lineNo int) (string, error) {
	rest = strings.TrimSpace(rest)
	var resolved string
	switch {
	case strings.HasPrefix(rest, `"`):
		path, ok := quotedPath(rest)
		if !ok {
			return "", fatalf(CategoryPreprocessor, lineNo, 1, "", "unterminated include path")
		}
		resolved = filepath.Join(baseDir, path)
	case strings.HasPrefix(rest, "<"):
		path, ok := angledPath(rest)
		if !ok {
			return "", fatalf(CategoryPreprocessor, lineNo, 1, "", "unterminated include path")
		}
		found := ""
		for _, root := range pp.includeRoots {
			candidate := filepath.Join(root, path)
			if _, err := os.Stat(candidate); err == nil {
				found = candidate
				break
			}
		}
		if found == "" {
			return "", fatalf(CategoryPreprocessor, lineNo, 1, "", "include file %q not found in any include root", path)
		}
		resolved = found
	default:
		return "", fatalf(CategoryPreprocessor, lineNo, 1, "", "malformed #include directive")
	}

	abs, err := filepath.Abs(resolved)
	if err != nil {
		abs = resolved
	}
	if pp.visiting[abs] {
		return "", nil // already being expanded along this branch; skip to avoid recursing forever
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fatalf(CategoryIO, lineNo, 1, "", "cannot open include file %q: %v", resolved, err)
	}

	pp.visiting[abs] = true
	defer delete(pp.visiting, abs)

	return pp.run(string(data), filepath.Dir(resolved), false)
}

// applyMacros performs whole-word macro substitution on one line, skipping
// the contents of string and character literals. It repeats until a pass
// produces no further change (bounded, to guard a macro expanding to its
// own name).
func (pp *Preprocessor) applyMacros(line string) (string, error) {
	if len(pp.macros) == 0 {
		return line, nil
	}
	cur := line
	for round := 0; round < 32; round++ {
		next := pp.applyMacrosOnce(cur)
		if next == cur {
			return cur, nil
		}
		cur = next
	}
	return cur, nil
}

func (pp *Preprocessor) applyMacrosOnce(line string) string {
	var out strings.Builder
	runes := []rune(line)
	i := 0
	for i < len(runes) {
		r := runes[i]
		if r == '"' || r == '\'' {
			quote := r
			out.WriteRune(r)
			i++
			for i < len(runes) {
				out.WriteRune(runes[i])
				if runes[i] == quote {
					i++
					break
				}
				if runes[i] == '\\' && i+1 < len(runes) {
					i++
					out.WriteRune(runes[i])
				}
				i++
			}
			continue
		}
		if isIdentStart(r) {
			start := i
			for i < len(runes) && isIdentPart(runes[i]) {
				i++
			}
			word := string(runes[start:i])
			if val, ok := pp.macros[word]; ok {
				out.WriteString(val)
			} else {
				out.WriteString(word)
			}
			continue
		}
		out.WriteRune(r)
		i++
	}
	return out.String()
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func splitLines(src string) []string {
	return strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
}

// splitDirective splits a trimmed "#word rest..." line into the directive
// keyword and the remainder (not yet trimmed of leading space). The keyword
// also ends at '(', so "#asmstart(a, b)" yields "#asmstart" and "(a, b)".
func splitDirective(trimmed string) (directive, rest string) {
	i := 0
	for i < len(trimmed) && !isSpaceByte(trimmed[i]) && trimmed[i] != '(' {
		i++
	}
	return trimmed[:i], trimmed[i:]
}

func isSpaceByte(b byte) bool { return b == ' ' || b == '\t' }

// joinContinuations consumes subsequent physical lines while the current
// one ends in a backslash, returning the joined value text and the number
// of extra lines consumed.
func joinContinuations(lines []string, idx int, first string) (string, int) {
	value := first
	consumed := 0
	for strings.HasSuffix(strings.TrimRight(value, " \t"), "\\") {
		value = strings.TrimRight(value, " \t")
		value = value[:len(value)-1]
		idx++
		consumed++
		if idx >= len(lines) {
			break
		}
		value += lines[idx]
	}
	return value, consumed
}

// splitDefine splits a #define's remainder into NAME and VALUE. VALUE may
// be empty.
func splitDefine(rest string) (name, value string) {
	rest = strings.TrimLeft(rest, " \t")
	i := 0
	for i < len(rest) && isIdentPart(rune(rest[i])) {
		i++
	}
	if i == 0 {
		return "", ""
	}
	name = rest[:i]
	value = strings.TrimLeft(rest[i:], " \t")
	return name, value
}

func quotedPath(rest string) (string, bool) {
	if len(rest) < 2 || rest[0] != '"' {
		return "", false
	}
	end := strings.IndexByte(rest[1:], '"')
	if end < 0 {
		return "", false
	}
	return rest[1 : 1+end], true
}

func angledPath(rest string) (string, bool) {
	if len(rest) < 2 || rest[0] != '<' {
		return "", false
	}
	end := strings.IndexByte(rest[1:], '>')
	if end < 0 {
		return "", false
	}
	return rest[1 : 1+end], true
}

func parseAsmStartArgs(rest string) ([]string, error) {
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "(") {
		return nil, errPreprocessor("#asmstart requires a parenthesized parameter list")
	}
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return nil, errPreprocessor("unterminated #asmstart parameter list")
	}
	inner := strings.TrimSpace(rest[1:end])
	if inner == "" {
		return nil, nil
	}
	var params []string
	for _, p := range strings.Split(inner, ",") {
		params = append(params, strings.TrimSpace(p))
	}
	return params, nil
}

type preprocessorError string

func (e preprocessorError) Error() string { return string(e) }

func errPreprocessor(msg string) error { return preprocessorError(msg) }

// extractHeaderBodies scans an included file's already-preprocessed text for
// top-level `header { ... } ;` blocks and returns them verbatim, wrapper
// included, discarding everything else in the file. Re-emitting the wrapper
// (rather than splicing in only the inner declarations) is what lets a bare
// top-level #include of a header-wrapped file parse as a header block of its
// own, instead of dumping unwrapped prototypes at top level.
func extractHeaderBodies(text string) string {
	var out strings.Builder
	i := 0
	for {
		idx := indexHeaderKeyword(text, i)
		if idx < 0 {
			break
		}
		braceStart := strings.IndexByte(text[idx:], '{')
		if braceStart < 0 {
			break
		}
		braceStart += idx
		depth := 1
		j := braceStart + 1
		for j < len(text) && depth > 0 {
			switch text[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
			j++
		}
		// j now sits just past the matching '}'. The source syntax closes a
		// header block with a trailing ';' (header { ... };); consume it so
		// the re-emitted wrapper matches what the parser expects.
		end := j
		for end < len(text) && (text[end] == ' ' || text[end] == '\t') {
			end++
		}
		if end < len(text) && text[end] == ';' {
			end++
		}
		out.WriteString(text[idx:end])
		out.WriteByte('\n')
		i = end
	}
	return out.String()
}

// indexHeaderKeyword finds the next occurrence of the "header" keyword in
// text starting at or after from, respecting word boundaries.
func indexHeaderKeyword(text string, from int) int {
	for {
		rel := strings.Index(text[from:], "header")
		if rel < 0 {
			return -1
		}
		idx := from + rel
		before := idx == 0 || !isIdentPart(rune(text[idx-1]))
		afterIdx := idx + len("header")
		after := afterIdx >= len(text) || !isIdentPart(rune(text[afterIdx]))
		if before && after {
			return idx
		}
		from = idx + len("header")
	}
}
