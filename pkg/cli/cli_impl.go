package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/modresolve/modresolve/internal/api_helpers"
	"github.com/modresolve/modresolve/internal/cli_helpers"
	"github.com/modresolve/modresolve/internal/config"
	"github.com/modresolve/modresolve/internal/exitcode"
	"github.com/modresolve/modresolve/pkg/api"
)

type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Failures that were already written out as results. They only set the exit
// code and aren't printed a second time.
var errReported = errors.New("resolution failed")

type cliOptions struct {
	configFile string

	conditions    []string
	extensions    []string
	mainFields    []string
	exportsFields []string
	importsFields []string
	tsconfig      string

	enforceExtension bool
	fullySpecified   bool
	preserveSymlinks bool
	preferRelative   bool
	declarationOnly  bool
	builtinModules   bool

	logLevel     string
	logOverrides []string
	logFormat    string
	format       string
	timing       bool
	cwd          string
}

type app struct {
	streams Streams
	options cliOptions

	// Set once a command starts running. Errors before this point come from
	// parsing the command line.
	started bool
}

func runImpl(osArgs []string, streams Streams) int {
	a := &app{streams: streams}
	root := a.newRootCommand()
	root.SetArgs(osArgs)
	root.SetIn(streams.Stdin)
	root.SetOut(streams.Stdout)
	root.SetErr(streams.Stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}
	if !a.started {
		if !exitcode.HasCode(err) {
			err = exitcode.AsUsage(err)
		}
	}
	if !errors.Is(err, errReported) {
		printError(streams.Stderr, err)
	}
	return exitcode.Get(err)
}

func printError(w io.Writer, err error) {
	var withNote *cli_helpers.ErrorWithNote
	if errors.As(err, &withNote) {
		fmt.Fprintf(w, "error: %s\n", withNote.Text)
		if withNote.Note != "" {
			fmt.Fprintf(w, "  %s\n", withNote.Note)
		}
		return
	}
	fmt.Fprintf(w, "error: %s\n", err.Error())
}

func usageError(err *cli_helpers.ErrorWithNote) error {
	return exitcode.AsUsage(err)
}

func (a *app) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "modresolve",
		Short: "Resolve module specifiers the way Node and TypeScript do",
		Long: strings.TrimSpace(`
Resolve module specifiers the way Node and TypeScript do. Package "exports"
and "imports" maps, tsconfig.json "paths", file extensions, main fields and
symlinks are all taken into account.

A failed resolution exits with that failure's error code.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return exitcode.AsUsage(err)
	})

	flags := root.PersistentFlags()
	opts := &a.options
	flags.StringVar(&opts.configFile, "config", "", "read options from this YAML file (flags take precedence)")
	flags.StringSliceVar(&opts.conditions, "conditions", nil, "condition names for \"exports\" and \"imports\", in priority order")
	flags.StringSliceVar(&opts.extensions, "extensions", nil, "extensions to try, in order (default .js,.json,.node)")
	flags.StringSliceVar(&opts.mainFields, "main-fields", nil, "package.json fields naming the entry point (default main)")
	flags.StringSliceVar(&opts.exportsFields, "exports-fields", nil, "package.json fields holding the exports map (default exports)")
	flags.StringSliceVar(&opts.importsFields, "imports-fields", nil, "package.json fields holding the imports map (default imports)")
	flags.StringVar(&opts.tsconfig, "tsconfig", "", "use the \"paths\", \"baseUrl\" and \"typeRoots\" of this tsconfig.json")
	flags.BoolVar(&opts.enforceExtension, "enforce-extension", false, "never add an extension to a path")
	flags.BoolVar(&opts.fullySpecified, "fully-specified", false, "relative and absolute specifiers must name a file")
	flags.BoolVar(&opts.preserveSymlinks, "preserve-symlinks", false, "return paths without following symlinks")
	flags.BoolVar(&opts.preferRelative, "prefer-relative", false, "try \"./x\" before the package \"x\"")
	flags.BoolVar(&opts.declarationOnly, "declaration-only", false, "only resolve TypeScript declaration files")
	flags.BoolVar(&opts.builtinModules, "builtin-modules", false, "fail on the names of node built-in modules")
	flags.StringVar(&opts.logLevel, "log-level", "warning", "verbose, debug, info, warning, error, or silent")
	flags.StringArrayVar(&opts.logOverrides, "log-override", nil, "change the level of one message as ID=LEVEL (repeatable)")
	flags.StringVar(&opts.logFormat, "log-format", "text", "text or json")
	flags.StringVar(&opts.format, "format", "text", "output format: text or json")
	flags.BoolVar(&opts.timing, "timing", false, "log how long each resolution took")
	flags.StringVar(&opts.cwd, "cwd", "", "resolve relative paths against this directory")

	root.AddCommand(
		a.newResolveCommand(),
		a.newTypesCommand(),
		a.newBatchCommand(),
	)
	return root
}

func (a *app) newResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <dir> <specifier>...",
		Short: "Resolve specifiers as if imported from a file in <dir>",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.started = true
			return a.runRequests(cmd, requestsFor(requestResolve, args[0], args[1:]))
		},
	}
}

func (a *app) newTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types <containing-file> <name>...",
		Short: "Resolve triple-slash type reference directives",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.started = true
			return a.runRequests(cmd, requestsFor(requestTypes, args[0], args[1:]))
		},
	}
}

func (a *app) newBatchCommand() *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Resolve JSON requests read one per line from a file or stdin",
		Long: strings.TrimSpace(`
Resolve JSON requests read one per line from a file or stdin, such as:

  {"kind": "resolve", "from": "/project/src", "specifier": "react"}
  {"kind": "types", "from": "/project/src/index.ts", "specifier": "node"}

Requests are resolved in parallel. Results are printed in input order.`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.started = true
			input := a.streams.Stdin
			name := "<stdin>"
			if len(args) == 1 && args[0] != "-" {
				name = args[0]
				file, err := openInput(name)
				if err != nil {
					return exitcode.AsUsage(err)
				}
				defer file.Close()
				input = file
			}
			requests, err := readBatch(input, name)
			if err != nil {
				return err
			}
			return a.runBatch(cmd, requests, jobs)
		},
	}
	cmd.Flags().IntVar(&jobs, "jobs", 0, "how many requests to resolve at once (default the number of CPUs)")
	return cmd
}

// resolveOptions merges the options file with the flags that were set
func (a *app) resolveOptions(cmd *cobra.Command) (api.ResolveOptions, error) {
	opts := a.options
	changed := cmd.Flags().Changed

	var base config.Options
	if opts.configFile != "" {
		loaded, err := config.LoadFile(opts.configFile)
		if err != nil {
			return api.ResolveOptions{}, exitcode.AsUsage(err)
		}
		base = loaded
	}

	lists := []struct {
		flag  string
		value []string
		into  *[]string
	}{
		{"conditions", opts.conditions, &base.ConditionNames},
		{"extensions", opts.extensions, &base.Extensions},
		{"main-fields", opts.mainFields, &base.MainFields},
		{"exports-fields", opts.exportsFields, &base.ExportsFields},
		{"imports-fields", opts.importsFields, &base.ImportsFields},
	}
	for _, list := range lists {
		if changed(list.flag) {
			*list.into = append([]string{}, list.value...)
		}
	}

	bools := []struct {
		flag  string
		value bool
		into  *bool
	}{
		{"enforce-extension", opts.enforceExtension, &base.EnforceExtension},
		{"fully-specified", opts.fullySpecified, &base.FullySpecified},
		{"preserve-symlinks", opts.preserveSymlinks, &base.PreserveSymlinks},
		{"prefer-relative", opts.preferRelative, &base.PreferRelative},
		{"declaration-only", opts.declarationOnly, &base.DeclarationOnly},
		{"builtin-modules", opts.builtinModules, &base.BuiltinModules},
	}
	for _, b := range bools {
		if changed(b.flag) {
			*b.into = b.value
		}
	}
	if changed("tsconfig") {
		base.Tsconfig = opts.tsconfig
	}

	logLevel, noteErr := cli_helpers.ParseLogLevel(opts.logLevel)
	if noteErr != nil {
		return api.ResolveOptions{}, usageError(noteErr)
	}
	if opts.timing && !changed("log-level") {
		logLevel = api.LogLevelInfo
	}

	var overrides map[string]api.LogLevel
	for _, text := range opts.logOverrides {
		id, level, noteErr := cli_helpers.ParseLogOverride(text)
		if noteErr != nil {
			return api.ResolveOptions{}, usageError(noteErr)
		}
		if overrides == nil {
			overrides = make(map[string]api.LogLevel)
		}
		overrides[id] = level
	}

	logJSON, noteErr := cli_helpers.ParseOutputFormat(opts.logFormat)
	if noteErr != nil {
		return api.ResolveOptions{}, usageError(noteErr)
	}

	return api.ResolveOptions{
		LogLevel:         logLevel,
		LogOverride:      overrides,
		LogJSON:          logJSON,
		ConditionNames:   base.ConditionNames,
		Extensions:       base.Extensions,
		MainFields:       base.MainFields,
		ExportsFields:    base.ExportsFields,
		ImportsFields:    base.ImportsFields,
		Tsconfig:         base.Tsconfig,
		EnforceExtension: base.EnforceExtension,
		FullySpecified:   base.FullySpecified,
		PreserveSymlinks: base.PreserveSymlinks,
		PreferRelative:   base.PreferRelative,
		DeclarationOnly:  base.DeclarationOnly,
		BuiltinModules:   base.BuiltinModules,
		AbsWorkingDir:    opts.cwd,
	}, nil
}

func (a *app) newResolver(cmd *cobra.Command) (*api.Resolver, error) {
	options, err := a.resolveOptions(cmd)
	if err != nil {
		return nil, err
	}

	// The timer must be turned on before the resolver is created
	api_helpers.UseTimer = a.options.timing

	resolver, err := api.NewResolver(options)
	if err != nil {
		if errors.Is(err, config.ErrInvalidOptions) {
			return nil, exitcode.AsUsage(err)
		}
		return nil, err
	}
	return resolver, nil
}

func (a *app) runRequests(cmd *cobra.Command, requests []request) error {
	return a.runBatch(cmd, requests, 1)
}
