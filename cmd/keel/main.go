package main

import (
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/toyz/keel/internal/diagnostics"
	"github.com/toyz/keel/internal/docgen"
	"github.com/toyz/keel/internal/errors"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer, fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(w, "Usage: keel docgen [options] <directory-paths...>\n\n")
		fmt.Fprintf(w, "Keel documentation generator\n")
		fmt.Fprintf(w, "Scans packages for controller methods taking a *keel.Context and writes their\n")
		fmt.Fprintf(w, "doc comments and keel:: directives to %s.\n\n", docgen.OutputFile)
		fmt.Fprintf(w, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(w, "\nDirectives:\n")
		fmt.Fprintf(w, "  keel::summary <text>    Short summary of the route\n")
		fmt.Fprintf(w, "  keel::tag <name>...     Extra OpenAPI tags\n")
		fmt.Fprintf(w, "  keel::deprecated        Marks the route deprecated\n")
		fmt.Fprintf(w, "\nExamples:\n")
		fmt.Fprintf(w, "  keel docgen ./...                    # Scan everything recursively\n")
		fmt.Fprintf(w, "  keel docgen ./internal/controllers   # Scan one package\n")
		fmt.Fprintf(w, "  keel docgen --clean ./...            # Delete all %s files\n", docgen.OutputFile)
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] != "docgen" {
		fmt.Fprintf(stderr, "Error: unknown command, expected \"docgen\"\n\n")
		usage(stderr, flag.NewFlagSet("docgen", flag.ContinueOnError))()
		return 2
	}

	fs := flag.NewFlagSet("docgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		moduleFlag  = fs.String("module", "", "Module path used in handler names (defaults to go.mod module)")
		verboseFlag = fs.Bool("verbose", false, "Enable verbose output")
		quietFlag   = fs.Bool("quiet", false, "Only show errors")
		cleanFlag   = fs.Bool("clean", false, "Delete the generated files instead of writing them")
	)
	fs.Usage = usage(stderr, fs)
	if err := fs.Parse(args[1:]); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	dirs := fs.Args()
	if len(dirs) == 0 {
		fmt.Fprintf(stderr, "Error: At least one directory path is required\n\n")
		fs.Usage()
		return 2
	}

	level := diagnostics.Info
	switch {
	case *quietFlag:
		level = diagnostics.Error
	case *verboseFlag:
		level = diagnostics.Verbose
	}
	reporter := diagnostics.NewWithWriters(level, stdout, stderr)
	generator := docgen.New(reporter)
	if *moduleFlag != "" {
		generator.SetModule(*moduleFlag)
	}

	if *cleanFlag {
		reporter.Section("cleaning generated docs")
		removed, err := generator.Clean(dirs)
		if err != nil {
			report(reporter, err)
			return 1
		}
		reporter.Success("removed %d file(s)", len(removed))
		return 0
	}

	reporter.Section("generating handler docs")
	reporter.Verbose("target directories: %s", strings.Join(dirs, ", "))
	summary, err := generator.Generate(dirs)
	if err != nil {
		report(reporter, err)
		return 1
	}

	reporter.Summary("Generation complete", map[string]any{
		"Packages scanned":   summary.PackagesScanned,
		"Handlers described": summary.Handlers,
		"Files written":      len(summary.Written),
		"Files removed":      len(summary.Removed),
	})
	return 0
}

// report prints every error of a joined error with its suggestions
func report(reporter *diagnostics.Reporter, err error) {
	for _, e := range flatten(err) {
		reporter.Error("%v", e)
		var be *errors.BaseError
		if stderrors.As(e, &be) {
			reporter.Indent()
			for _, hint := range be.Suggestions() {
				reporter.List("%s", hint)
			}
			reporter.Unindent()
		}
	}
}

func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
