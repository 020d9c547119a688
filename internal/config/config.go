package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/modresolve/modresolve/internal/helpers"
)

// Options configures one resolver instance. It is read once when the resolver
// is created and never changes afterward.
//
// Ordered lists define priority: the first entry that matches wins. A nil
// list means "use the default" while an empty non-nil list means "none".
type Options struct {
	// Conditions matched against "exports" and "imports" maps, in priority
	// order. "default" always matches last and doesn't need to be listed.
	ConditionNames []string `yaml:"conditionNames"`

	// Extensions tried when a path doesn't exist as written, including for
	// "index" files. Each must start with ".".
	Extensions []string `yaml:"extensions"`

	// package.json fields read when a directory is imported
	MainFields []string `yaml:"mainFields"`

	// package.json fields holding the conditional exports map. The first one
	// present in a package.json file is used.
	ExportsFields []string `yaml:"exportsFields"`

	// package.json fields holding the "#" imports map
	ImportsFields []string `yaml:"importsFields"`

	// Path to a tsconfig.json file, or a directory containing one
	Tsconfig string `yaml:"tsconfig"`

	// Only accept files that already carry one of the configured extensions
	EnforceExtension bool `yaml:"enforceExtension"`

	// Disable extension probing and "index" lookup for the specifier's own
	// path, as required for ESM imports
	FullySpecified bool `yaml:"fullySpecified"`

	// Return paths as seen through symlinks instead of their real locations
	PreserveSymlinks bool `yaml:"preserveSymlinks"`

	// Try a bare specifier as a relative path before searching packages
	PreferRelative bool `yaml:"preferRelative"`

	// Only resolve to TypeScript declaration files
	DeclarationOnly bool `yaml:"declarationOnly"`

	// Fail with a dedicated error for Node built-in modules like "fs"
	BuiltinModules bool `yaml:"builtinModules"`
}

var defaultExtensions = []string{".js", ".json", ".node"}
var defaultMainFields = []string{"main"}
var defaultExportsFields = []string{"exports"}
var defaultImportsFields = []string{"imports"}

// WithDefaults returns a copy with every nil list replaced by its default
func (options Options) WithDefaults() Options {
	if options.Extensions == nil {
		options.Extensions = defaultExtensions
	}
	if options.MainFields == nil {
		options.MainFields = defaultMainFields
	}
	if options.ExportsFields == nil {
		options.ExportsFields = defaultExportsFields
	}
	if options.ImportsFields == nil {
		options.ImportsFields = defaultImportsFields
	}
	return options
}

var ErrInvalidOptions = errors.New("invalid options")

func (options Options) Validate() error {
	lists := []struct {
		name   string
		values []string
	}{
		{"conditionNames", options.ConditionNames},
		{"extensions", options.Extensions},
		{"mainFields", options.MainFields},
		{"exportsFields", options.ExportsFields},
		{"importsFields", options.ImportsFields},
	}
	for _, list := range lists {
		if dup, ok := helpers.FirstDuplicate(list.values); ok {
			return errors.Wrapf(ErrInvalidOptions, "%q appears more than once in %s", dup, list.name)
		}
		for _, value := range list.values {
			if value == "" {
				return errors.Wrapf(ErrInvalidOptions, "%s contains an empty entry", list.name)
			}
		}
	}
	for _, ext := range options.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return errors.Wrapf(ErrInvalidOptions, "the extension %q must start with \".\"", ext)
		}
	}
	return nil
}

// LoadFile reads options from a YAML file. Unknown keys are an error.
func LoadFile(path string) (Options, error) {
	var options Options
	file, err := os.Open(path)
	if err != nil {
		return options, errors.Wrapf(err, "cannot read options file %q", path)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&options); err != nil {
		return options, errors.Wrapf(ErrInvalidOptions, "cannot parse options file %q: %s", path, err.Error())
	}
	return options, options.Validate()
}
