package compiler

// Compile runs the full pipeline over one translation unit: preprocess,
// lex, parse, generate. baseDir is the directory src was read from, used
// to resolve "path" includes; includeRoots are searched, in order, for
// <path> includes.
func Compile(src string, baseDir string, includeRoots []string) (string, error) {
	expanded, asmBlocks, err := Preprocess(src, baseDir, includeRoots)
	if err != nil {
		return "", err
	}

	tokens, err := Lex(expanded)
	if err != nil {
		return "", err
	}

	prog, syms, err := Parse(tokens, asmBlocks)
	if err != nil {
		return "", err
	}

	assembly, err := Generate(prog, syms, asmBlocks)
	if err != nil {
		return "", err
	}

	return assembly, nil
}
