package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/francoispqt/gojay"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/modresolve/modresolve/internal/cli_helpers"
	"github.com/modresolve/modresolve/internal/exitcode"
	"github.com/modresolve/modresolve/pkg/api"
)

type requestKind uint8

const (
	requestResolve requestKind = iota
	requestTypes
)

type request struct {
	kind      requestKind
	from      string
	specifier string

	// Only used while decoding
	kindText string
}

func requestsFor(kind requestKind, from string, specifiers []string) []request {
	requests := make([]request, 0, len(specifiers))
	for _, specifier := range specifiers {
		requests = append(requests, request{kind: kind, from: from, specifier: specifier})
	}
	return requests
}

func (r *request) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	switch key {
	case "kind":
		return dec.String(&r.kindText)
	case "from":
		return dec.String(&r.from)
	case "specifier":
		return dec.String(&r.specifier)
	}
	return nil
}

func (r *request) NKeys() int {
	return 0
}

func openInput(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, cli_helpers.MakeErrorWithNote(
			fmt.Sprintf("Could not open %q", path), err.Error())
	}
	return file, nil
}

// readBatch decodes one request per line. Blank lines are skipped.
func readBatch(input io.Reader, name string) ([]request, error) {
	var requests []request
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0

	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if isBlank(text) {
			continue
		}

		var r request
		if err := gojay.UnmarshalJSONObject(text, &r); err != nil {
			return nil, exitcode.AsUsage(cli_helpers.MakeErrorWithNote(
				fmt.Sprintf("%s:%d: Invalid request", name, line), err.Error()))
		}
		switch r.kindText {
		case "", "resolve":
			r.kind = requestResolve
		case "types":
			r.kind = requestTypes
		default:
			return nil, exitcode.AsUsage(cli_helpers.MakeErrorWithNote(
				fmt.Sprintf("%s:%d: Invalid request kind %q", name, line, r.kindText),
				"Valid kinds are \"resolve\" and \"types\"."))
		}
		if r.from == "" || r.specifier == "" {
			return nil, exitcode.AsUsage(cli_helpers.MakeErrorWithNote(
				fmt.Sprintf("%s:%d: Invalid request", name, line),
				"Each request needs \"from\" and \"specifier\"."))
		}
		requests = append(requests, r)
	}

	if err := scanner.Err(); err != nil {
		return nil, cli_helpers.MakeErrorWithNote(fmt.Sprintf("Could not read %s", name), err.Error())
	}
	return requests, nil
}

func isBlank(text []byte) bool {
	for _, c := range text {
		if c != ' ' && c != '\t' && c != '\r' {
			return false
		}
	}
	return true
}

func (a *app) runBatch(cmd *cobra.Command, requests []request, jobs int) error {
	resolver, err := a.newResolver(cmd)
	if err != nil {
		return err
	}
	defer resolver.Close()

	outputJSON, noteErr := cli_helpers.ParseOutputFormat(a.options.format)
	if noteErr != nil {
		return usageError(noteErr)
	}

	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	// Each goroutine writes only to its own slot
	results := make([]api.Resolution, len(requests))
	var group errgroup.Group
	group.SetLimit(jobs)
	for i, r := range requests {
		i, r := i, r
		group.Go(func() error {
			if r.kind == requestTypes {
				results[i] = resolver.ResolveTypeReferenceDirective(r.from, r.specifier)
			} else {
				results[i] = resolver.Resolve(r.from, r.specifier)
			}
			return nil
		})
	}
	group.Wait()

	if a.options.timing {
		resolver.LogTimings()
	}

	firstFailure := api.ErrorNone
	for i, result := range results {
		if result.Failed() && firstFailure == api.ErrorNone {
			firstFailure = result.ErrorCode
		}
		if err := a.printResult(requests[i], result, outputJSON); err != nil {
			return err
		}
	}

	if firstFailure != api.ErrorNone {
		return exitcode.Set(errReported, int(firstFailure))
	}
	return nil
}
