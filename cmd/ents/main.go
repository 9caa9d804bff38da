// Command ents compiles EntS source files to SysV AMD64 text assembly.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"entsc/pkg/compiler"
)

const version = "ents 0.1.0"

// defaultSysroot is the baked-in fallback used when SYSROOT is unset in
// the environment.
const defaultSysroot = "/usr/local/ents"

var validFormats = map[string]bool{"elf": true, "obj": true, "bin": true}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("ents", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		showHelp    bool
		showVersion bool
		output      string
		emitAsmOnly bool
		format      string
		includes    stringList
	)
	fs.BoolVar(&showHelp, "h", false, "show this help message")
	fs.BoolVar(&showHelp, "help", false, "show this help message")
	fs.BoolVar(&showVersion, "v", false, "print version and exit")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.StringVar(&output, "o", "", "write output to `file` instead of stdout")
	fs.StringVar(&output, "output", "", "write output to `file` instead of stdout")
	fs.BoolVar(&emitAsmOnly, "S", false, "emit assembly only")
	fs.StringVar(&format, "f", "elf", "assembler `format`: elf, obj, or bin")
	fs.StringVar(&format, "format", "elf", "assembler `format`: elf, obj, or bin")
	fs.Var(&includes, "I", "add `path` to the include search roots (repeatable)")
	fs.Var(&includes, "include", "add `path` to the include search roots (repeatable)")

	unknown, positional := splitUnknownFlags(args, fs)
	for _, u := range unknown {
		printDiagnostic(compiler.Warningf(compiler.CategoryCLI, "unknown flag %q, ignored", u))
	}
	if err := fs.Parse(positional); err != nil {
		printDiagnostic(compiler.Warningf(compiler.CategoryCLI, "%v", err))
	}

	if showHelp {
		printUsage()
		return 0
	}
	if showVersion {
		fmt.Println(version)
		return 0
	}

	if !validFormats[format] {
		printFatal(fmt.Errorf("unknown output format %q (want elf, obj, or bin)", format))
		return 1
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		printFatal(fmt.Errorf("no input files"))
		return 1
	}

	sysroot := os.Getenv("SYSROOT")
	if sysroot == "" {
		sysroot = defaultSysroot
	}
	if err := checkSysroot(sysroot); err != nil {
		printFatal(err)
		return 1
	}

	includeRoots := append([]string{filepath.Join(sysroot, "include", "ents")}, includes...)

	out := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			printFatal(fmt.Errorf("cannot open output file %q: %v", output, err))
			return 1
		}
		defer f.Close()
		out = f
	}

	for _, path := range inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			printFatal(fmt.Errorf("cannot open input file %q: %v", path, err))
			return 1
		}
		assembly, err := compiler.Compile(string(data), filepath.Dir(path), includeRoots)
		if err != nil {
			printDiagnostic(err)
			if d, ok := err.(*compiler.Diagnostic); ok && d.Severity == compiler.SeverityFatal {
				fmt.Fprintln(os.Stderr, "compilation terminated.")
			}
			return 1
		}
		fmt.Fprint(out, assembly)
	}

	return 0
}

// checkSysroot verifies the files the driver's documented startup contract
// requires: SYSROOT/lib/ents/crt0.o and intlibe.a must exist.
func checkSysroot(sysroot string) error {
	libDir := filepath.Join(sysroot, "lib", "ents")
	for _, name := range []string{"crt0.o", "intlibe.a"} {
		path := filepath.Join(libDir, name)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("required library %q not found under SYSROOT (%s)", name, sysroot)
		}
	}
	return nil
}

func printUsage() {
	fmt.Println("usage: ents [options] <input-files>")
	fmt.Println()
	fmt.Println("  -h, --help            show this help message")
	fmt.Println("  -v, --version         print version and exit")
	fmt.Println("  -o, --output <file>   write output to file instead of stdout")
	fmt.Println("  -S                    emit assembly only")
	fmt.Println("  -f, --format <fmt>    elf, obj, or bin (default elf)")
	fmt.Println("  -I, --include <path>  add a path to the include search roots")
}

func printFatal(err error) {
	fmt.Fprintf(os.Stderr, "ents: fatal error: %v\ncompilation terminated.\n", err)
}

func printDiagnostic(err error) {
	fmt.Fprintln(os.Stderr, err)
}

// stringList accumulates repeated -I/--include flag values in order.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// splitUnknownFlags pulls out any "-x"/"--x" argument whose name isn't
// registered on fs, so it can be reported as a warning instead of making
// flag.Parse abort the whole run.
func splitUnknownFlags(args []string, fs *flag.FlagSet) (unknown, rest []string) {
	known := make(map[string]bool)
	fs.VisitAll(func(f *flag.Flag) { known[f.Name] = true })

	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") || a == "-" {
			rest = append(rest, a)
			continue
		}
		name := strings.TrimLeft(a, "-")
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			name = name[:eq]
		}
		if known[name] {
			rest = append(rest, a)
			continue
		}
		unknown = append(unknown, a)
	}
	return unknown, rest
}
