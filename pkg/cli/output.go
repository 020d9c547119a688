package cli

import (
	"fmt"

	"github.com/francoispqt/gojay"

	"github.com/modresolve/modresolve/pkg/api"
)

type stringArray []string

func (a stringArray) MarshalJSONArray(enc *gojay.Encoder) {
	for _, s := range a {
		enc.String(s)
	}
}

func (a stringArray) IsNil() bool {
	return len(a) == 0
}

// The JSON form of one result. Failed results have "error" instead of "path".
type resultJSON struct {
	request request
	result  api.Resolution
}

func (r *resultJSON) MarshalJSONObject(enc *gojay.Encoder) {
	kind := "resolve"
	if r.request.kind == requestTypes {
		kind = "types"
	}
	enc.StringKey("kind", kind)
	enc.StringKey("from", r.request.from)
	enc.StringKey("specifier", r.request.specifier)

	if r.result.Failed() {
		enc.ObjectKey("error", &errorJSON{result: r.result})
		return
	}
	enc.StringKey("path", r.result.Path)
	enc.StringKeyOmitEmpty("query", r.result.Query)
	enc.StringKeyOmitEmpty("fragment", r.result.Fragment)
	enc.BoolKeyOmitEmpty("resolvedUsingTsExtension", r.result.ResolvedUsingTSExtension)
}

func (r *resultJSON) IsNil() bool {
	return r == nil
}

type errorJSON struct {
	result api.Resolution
}

func (e *errorJSON) MarshalJSONObject(enc *gojay.Encoder) {
	enc.IntKey("code", int(e.result.ErrorCode))
	enc.StringKey("kind", e.result.ErrorCode.String())
	enc.StringKey("message", e.result.ErrorText)
	enc.ArrayKeyOmitEmpty("notes", stringArray(e.result.Notes))
}

func (e *errorJSON) IsNil() bool {
	return e == nil
}

func (a *app) printResult(r request, result api.Resolution, outputJSON bool) error {
	if outputJSON {
		bytes, err := gojay.MarshalJSONObject(&resultJSON{request: r, result: result})
		if err != nil {
			return err
		}
		bytes = append(bytes, '\n')
		_, err = a.streams.Stdout.Write(bytes)
		return err
	}

	if result.Failed() {
		fmt.Fprintf(a.streams.Stderr, "error[%s]: %s\n", result.ErrorCode, result.ErrorText)
		for _, note := range result.Notes {
			fmt.Fprintf(a.streams.Stderr, "  %s\n", note)
		}
		return nil
	}
	_, err := fmt.Fprintf(a.streams.Stdout, "%s%s%s\n", result.Path, result.Query, result.Fragment)
	return err
}
