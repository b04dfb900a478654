// fleece-inspect is the standalone entry point for the bubbletea
// document browser in package inspector. `fleece inspect` delegates
// here; this binary exists so the browser can also be run directly.
//
// Usage:
//
//	fleece-inspect [file]
//
// If no file is given, reads an encoded Fleece document from stdin.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/couchbaselabs/fleece-go/inspector"
)

func main() {
	var r io.Reader = os.Stdin
	if len(os.Args) > 1 && os.Args[1] != "-" {
		f, err := os.Open(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "fleece-inspect: open file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}

	doc, err := io.ReadAll(r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fleece-inspect: read input: %v\n", err)
		os.Exit(1)
	}

	if err := inspector.Run(doc); err != nil {
		fmt.Fprintf(os.Stderr, "fleece-inspect: %v\n", err)
		os.Exit(1)
	}
}
