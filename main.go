package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fragarco/basc/codegen"
	"github.com/fragarco/basc/config"
	"github.com/fragarco/basc/output"
	"github.com/fragarco/basc/parser"
	"github.com/fragarco/basc/tui"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

// Exit codes
const (
	exitOK         = 0
	exitDiagnostic = 1
	exitIO         = 2
	exitUsage      = 3
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		outPath     = flag.String("output", "", "Output .asm path (default: source with .asm extension)")
		orgFlag     = flag.String("org", "", "Code origin address, e.g. &4000 (default from config)")
		verboseMode = flag.Bool("verbose", false, "Verbose output")
		withListing = flag.Bool("listing", false, "Also write a .lst listing file")
		withMap     = flag.Bool("map", false, "Also write a .map symbol file")
		tuiMode     = flag.Bool("tui", false, "Open the result inspector after compiling")
		configPath  = flag.String("config", "", "Config file path (default: platform config dir)")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("basc %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(exitOK)
	}

	if *showHelp {
		printHelp()
		os.Exit(exitOK)
	}

	if flag.NArg() != 1 {
		printHelp()
		os.Exit(exitUsage)
	}

	// Load configuration; flags override config values
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitUsage)
	}

	orgText := cfg.Build.Org
	if *orgFlag != "" {
		orgText = *orgFlag
	}
	org, err := config.ParseOrg(orgText)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitUsage)
	}

	srcFile := flag.Arg(0)
	data, err := os.ReadFile(srcFile) // #nosec G304 -- user-specified source path
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIO)
	}

	if *verboseMode {
		fmt.Printf("Compiling %s (org &%04X)\n", srcFile, org)
	}

	result, err := codegen.Compile(srcFile, data, codegen.Options{Org: org})
	if err != nil {
		if _, ok := err.(*parser.Error); ok {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitDiagnostic)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIO)
	}

	for _, warn := range result.Warnings {
		fmt.Fprintln(os.Stderr, warn)
	}

	asmPath := *outPath
	if asmPath == "" {
		asmPath = replaceExt(srcFile, ".asm")
	}

	writer := output.NewWriter()
	if err := writer.Stage(asmPath, result.Assembly); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIO)
	}
	if *withListing || cfg.Build.Listing {
		if err := writer.Stage(replaceExt(asmPath, ".lst"), result.Listing); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitIO)
		}
	}
	if *withMap || cfg.Build.Map {
		if err := writer.Stage(replaceExt(asmPath, ".map"), result.Map); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitIO)
		}
	}
	if err := writer.Commit(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIO)
	}

	if *verboseMode {
		fmt.Printf("Wrote %s\n", asmPath)
		if len(result.Warnings) > 0 {
			fmt.Printf("%d warning(s)\n", len(result.Warnings))
		}
	}

	if *tuiMode {
		if err := tui.Run(srcFile, string(data), result); err != nil {
			fmt.Fprintf(os.Stderr, "Inspector error: %v\n", err)
			os.Exit(exitIO)
		}
	}

	os.Exit(exitOK)
}

// replaceExt swaps the extension of a path
func replaceExt(path, ext string) string {
	if i := strings.LastIndexByte(path, '.'); i > strings.LastIndexByte(path, '/') {
		return path[:i] + ext
	}
	return path + ext
}

func printHelp() {
	fmt.Printf(`basc %s - Locomotive BASIC compiler for the Amstrad CPC

Usage: basc [options] <source.bas>

Options:
  -help              Show this help message
  -version           Show version information
  -output PATH       Output .asm path (default: source with .asm extension)
  -org ADDR          Code origin address, e.g. &4000
  -verbose           Enable verbose output
  -listing           Also write a .lst listing file
  -map               Also write a .map symbol file
  -tui               Open the result inspector after compiling
  -config PATH       Config file path

Exit codes:
  0  success
  1  compile error
  2  I/O error
  3  usage error

Examples:
  # Compile a program to hello.asm
  basc hello.bas

  # Compile with a custom origin and a listing
  basc -org &8000 -listing game.bas

  # Inspect the generated code interactively
  basc -tui demo.bas

The generated .asm file targets a standard Z80 assembler; pack the
assembled binary with the dsk/cdt utilities to produce a disk or tape
image.
`, Version)
}
