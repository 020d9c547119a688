// This API exposes the command-line interface for modresolve. It takes an
// array of strings and returns an integer exit code. This is used by the
// "modresolve" command itself and is exposed so that other Go programs can
// embed the command-line tool.
//
// A failed resolution exits with that failure's stable error code, so a
// script can tell "NotFound" (2) from "PackagePathNotExported" (3). Bad
// command-line usage exits with 64.
//
// Example usage:
//
//	package main
//
//	import (
//	    "os"
//
//	    "github.com/modresolve/modresolve/pkg/cli"
//	)
//
//	func main() {
//	    os.Exit(cli.Run([]string{
//	        "resolve",
//	        "--conditions=import,node",
//	        "src",
//	        "lodash-es",
//	    }))
//	}
package cli

import "os"

// Run executes the command-line tool using the process's standard streams
// and returns the exit code.
func Run(osArgs []string) int {
	return RunWithStreams(osArgs, Streams{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
}

// RunWithStreams is like Run but reads and writes the given streams instead
func RunWithStreams(osArgs []string, streams Streams) int {
	return runImpl(osArgs, streams)
}
