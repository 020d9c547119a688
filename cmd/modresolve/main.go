package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"runtime/trace"
	"strings"

	"github.com/modresolve/modresolve/internal/logger"
	"github.com/modresolve/modresolve/pkg/cli"
)

var modresolveVersion = "0.1.0"

func main() {
	osArgs := os.Args[1:]
	traceFile := ""
	cpuprofileFile := ""

	// Do an initial scan over the argument list
	argsEnd := 0
	for _, arg := range osArgs {
		switch {
		// Special-case the version flag here
		case arg == "--version":
			fmt.Fprintf(os.Stdout, "%s\n", modresolveVersion)
			os.Exit(0)

		case strings.HasPrefix(arg, "--trace="):
			traceFile = arg[len("--trace="):]

		case strings.HasPrefix(arg, "--cpuprofile="):
			cpuprofileFile = arg[len("--cpuprofile="):]

		default:
			// Strip any arguments that were handled above
			osArgs[argsEnd] = arg
			argsEnd++
		}
	}
	osArgs = osArgs[:argsEnd]

	// Capture the defer statements below so the profiles are flushed before exiting
	exitCode := 1
	func() {
		// To view a trace, use "go tool trace [file]"
		if traceFile != "" {
			f, err := os.Create(traceFile)
			if err != nil {
				logger.PrintErrorToStderr(fmt.Sprintf("Failed to create trace file: %s", err.Error()))
				return
			}
			defer f.Close()
			trace.Start(f)
			defer trace.Stop()
		}

		// To view a CPU profile, use "go tool pprof [file]". Use the "batch"
		// command with a large input to collect enough samples.
		if cpuprofileFile != "" {
			f, err := os.Create(cpuprofileFile)
			if err != nil {
				logger.PrintErrorToStderr(fmt.Sprintf("Failed to create cpuprofile file: %s", err.Error()))
				return
			}
			defer f.Close()
			pprof.StartCPUProfile(f)
			defer pprof.StopCPUProfile()
		}

		exitCode = cli.Run(osArgs)
	}()

	os.Exit(exitCode)
}
