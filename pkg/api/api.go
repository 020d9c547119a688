// This API exposes the module resolver for use from Go programs. A resolver
// is created once from a set of options and can then be used to resolve any
// number of specifiers, from any number of goroutines at once.
//
// The file system is assumed not to change while a resolver exists. Create a
// new resolver to pick up changes.
//
// Example usage:
//
//	package main
//
//	import (
//	    "fmt"
//
//	    "github.com/modresolve/modresolve/pkg/api"
//	)
//
//	func main() {
//	    resolver, err := api.NewResolver(api.ResolveOptions{
//	        ConditionNames: []string{"import", "node"},
//	        Extensions:     []string{".ts", ".js"},
//	    })
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    result := resolver.Resolve("/project/src", "lodash-es")
//	    if result.Failed() {
//	        fmt.Println(result.ErrorText)
//	        return
//	    }
//	    fmt.Println(result.Path)
//	}
package api

type LogLevel uint8

const (
	LogLevelNone LogLevel = iota
	LogLevelVerbose
	LogLevelDebug
	LogLevelInfo
	LogLevelWarning
	LogLevelError
	LogLevelSilent
)

// ErrorCode says why a resolution failed. These values are stable and are
// also used as the exit codes of the command-line tool.
type ErrorCode int

const (
	ErrorNone ErrorCode = iota
	ErrorInvalidSpecifier
	ErrorNotFound
	ErrorPackagePathNotExported
	ErrorNoMatchingCondition
	ErrorNotADeclarationFile
	ErrorExtensionRequired
	ErrorConfigCycle
	ErrorSymlinkCycle
	ErrorMalformedPackageJSON
	ErrorMalformedTsconfig
	ErrorIO
	ErrorBuiltin
	ErrorUnsupportedScheme
	ErrorInvalidPackageTarget
)

type Message struct {
	// The name that can be passed in "LogOverride" to change the level of
	// this message, or "" if it can't be changed
	ID string

	Text  string
	Path  string
	Notes []string
}

////////////////////////////////////////////////////////////////////////////////
// Resolve API

type ResolveOptions struct {
	LogLevel    LogLevel
	LogOverride map[string]LogLevel
	LogJSON     bool

	// Each of these lists is in priority order. Leaving a list nil uses its
	// default while an empty list means "none".
	ConditionNames []string
	Extensions     []string
	MainFields     []string
	ExportsFields  []string
	ImportsFields  []string

	// A tsconfig.json file, or a directory containing one, whose "paths",
	// "baseUrl" and "typeRoots" apply to every resolution
	Tsconfig string

	EnforceExtension bool
	FullySpecified   bool
	PreserveSymlinks bool
	PreferRelative   bool
	DeclarationOnly  bool
	BuiltinModules   bool

	// Relative paths passed to this API are relative to this directory.
	// Defaults to the current working directory.
	AbsWorkingDir string
}

type Resolution struct {
	Path     string
	Query    string
	Fragment string

	// The specifier named a TypeScript file and resolved to it
	ResolvedUsingTSExtension bool

	ErrorCode ErrorCode
	ErrorText string
	Notes     []string
}

func (result Resolution) Failed() bool {
	return result.ErrorCode != ErrorNone
}

type Resolver struct {
	impl *resolverImpl
}

// NewResolver validates the options and loads the configured tsconfig.json
// file. A malformed tsconfig.json file is reported as a *ConfigError with
// the matching error code.
func NewResolver(options ResolveOptions) (*Resolver, error) {
	impl, err := newResolverImpl(options)
	if err != nil {
		return nil, err
	}
	return &Resolver{impl: impl}, nil
}

// Resolve resolves a specifier written in a file inside "sourceDir"
func (r *Resolver) Resolve(sourceDir string, specifier string) Resolution {
	return r.impl.resolve(sourceDir, specifier)
}

// ResolveTypeReferenceDirective resolves the name in a triple-slash
// "types" reference written in "containingFile"
func (r *Resolver) ResolveTypeReferenceDirective(containingFile string, name string) Resolution {
	return r.impl.resolveTypeReferenceDirective(containingFile, name)
}

// Close releases the caches and the loaded tsconfig.json. Calls that are
// already running finish normally. Later calls fail with ErrorIO. Messages
// stays available after closing.
func (r *Resolver) Close() {
	r.impl.close()
}

// Messages returns the warnings logged so far, such as invalid fields in
// package.json files
func (r *Resolver) Messages() []Message {
	return r.impl.messages()
}

// ConfigError is returned by NewResolver when the resolver can't be created
// because of its configuration files
type ConfigError struct {
	Code ErrorCode
	Text string
	err  error
}

func (e *ConfigError) Error() string {
	return e.Text
}

func (e *ConfigError) Unwrap() error {
	return e.err
}

func (e *ConfigError) ExitCode() int {
	return int(e.Code)
}
