// fleece - Fleece document CLI tool
//
// Usage:
//
//	fleece encode [--sort-keys] [--no-unique-strings] [--compress] [file]
//	fleece stats [file]
//	fleece inspect [file]
//	fleece version
//
// If no file is given, reads from stdin. Default Options come from
// ~/.fleece.toml when present, overridden by flags.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/couchbaselabs/fleece-go/fleece"
	"github.com/couchbaselabs/fleece-go/fleecewriter"
	"github.com/couchbaselabs/fleece-go/inspector"
	"github.com/couchbaselabs/fleece-go/jsonbridge"
)

const version = "0.1.0"

// fileConfig mirrors the shape of ~/.fleece.toml, loaded before flags
// so that flags can override it.
type fileConfig struct {
	SortKeys      *bool `toml:"sort_keys"`
	UniqueStrings *bool `toml:"unique_strings"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "encode":
		cmdEncode(os.Args[2:])
	case "stats":
		cmdStats(os.Args[2:])
	case "inspect":
		cmdInspect(os.Args[2:])
	case "version", "-v", "--version":
		fmt.Printf("fleece %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `fleece - Fleece document CLI tool

Usage:
  fleece encode [--sort-keys] [--no-unique-strings] [--compress] [-o out] [file]
  fleece stats [file]
  fleece inspect [file]
  fleece version

If no file is given, reads from stdin.

Default Options are loaded from ~/.fleece.toml (sort_keys, unique_strings)
and can be overridden by flags.
`)
}

// loadDefaultOptions starts from fleece.DefaultOptions and applies
// ~/.fleece.toml if it exists. A missing file is not an error.
func loadDefaultOptions() fleece.Options {
	opts := fleece.DefaultOptions()

	home, err := os.UserHomeDir()
	if err != nil {
		return opts
	}
	path := filepath.Join(home, ".fleece.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return opts
	}

	var cfg fileConfig
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "fleece: warning: ignoring malformed %s: %v\n", path, err)
		return opts
	}
	if cfg.SortKeys != nil {
		opts.SortKeys = *cfg.SortKeys
	}
	if cfg.UniqueStrings != nil {
		opts.UniqueStrings = *cfg.UniqueStrings
	}
	return opts
}

func cmdEncode(args []string) {
	opts := loadDefaultOptions()
	compress := false
	outPath := ""
	fileArg := ""

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--sort-keys":
			opts.SortKeys = true
		case arg == "--no-unique-strings":
			opts.UniqueStrings = false
		case arg == "--compress":
			compress = true
		case arg == "-o":
			i++
			if i >= len(args) {
				fatal("-o requires an argument")
			}
			outPath = args[i]
		case strings.HasPrefix(arg, "-o="):
			outPath = strings.TrimPrefix(arg, "-o=")
		default:
			if !strings.HasPrefix(arg, "-") || arg == "-" {
				fileArg = arg
			}
		}
	}

	data := readInput(fileArg)

	w := fleece.NewMemoryWriter()
	enc := fleece.NewEncoderWithOptions(w, opts)
	if err := jsonbridge.Encode(enc, data); err != nil {
		fatal("encode: %v", err)
	}
	if err := enc.End(); err != nil {
		fatal("encode: %v", err)
	}
	doc := w.Bytes()

	var out io.Writer = os.Stdout
	var outFile *os.File
	if outPath != "" && outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			fatal("create output: %v", err)
		}
		defer f.Close()
		out = f
		outFile = f
	}

	if compress {
		cw, err := fleecewriter.NewCompressingWriter(out)
		if err != nil {
			fatal("compress: %v", err)
		}
		if err := cw.WriteDocument(doc); err != nil {
			fatal("compress: %v", err)
		}
		if err := cw.Close(); err != nil {
			fatal("compress: %v", err)
		}
	} else {
		if _, err := out.Write(doc); err != nil {
			fatal("write output: %v", err)
		}
	}
	if outFile != nil {
		if err := outFile.Sync(); err != nil {
			fatal("sync output: %v", err)
		}
	}
}

func cmdStats(args []string) {
	fileArg := ""
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			fileArg = arg
		}
	}
	data := readInput(fileArg)

	stats, doc, err := jsonbridge.EncodeToDocument(data, loadDefaultOptions())
	if err != nil {
		fatal("encode: %v", err)
	}

	fmt.Printf("id:               %s\n", stats.ID)
	fmt.Printf("document bytes:   %d\n", stats.DocumentBytes)
	fmt.Printf("narrow containers: %d\n", stats.NarrowContainers)
	fmt.Printf("wide containers:   %d\n", stats.WideContainers)
	fmt.Printf("interned strings:  %d\n", stats.InternedStrings)
	_ = doc
}

// cmdInspect browses an already-encoded Fleece document, not JSON, so
// it reads raw bytes rather than going through readInput's
// whitespace-trimming (which would corrupt binary content).
func cmdInspect(args []string) {
	fileArg := ""
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			fileArg = arg
		}
	}

	var r io.Reader = os.Stdin
	if fileArg != "" && fileArg != "-" {
		f, err := os.Open(fileArg)
		if err != nil {
			fatal("open file: %v", err)
		}
		defer f.Close()
		r = f
	}
	doc, err := io.ReadAll(r)
	if err != nil {
		fatal("read input: %v", err)
	}

	if err := inspector.Run(doc); err != nil {
		fatal("inspect: %v", err)
	}
}

func readInput(fileArg string) []byte {
	var r io.Reader = os.Stdin
	if fileArg != "" && fileArg != "-" {
		f, err := os.Open(fileArg)
		if err != nil {
			fatal("open file: %v", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		fatal("read input: %v", err)
	}
	return bytes.TrimSpace(data)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fleece: "+format+"\n", args...)
	os.Exit(1)
}
