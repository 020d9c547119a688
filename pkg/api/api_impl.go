package api

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/modresolve/modresolve/internal/api_helpers"
	"github.com/modresolve/modresolve/internal/cache"
	"github.com/modresolve/modresolve/internal/config"
	"github.com/modresolve/modresolve/internal/fs"
	"github.com/modresolve/modresolve/internal/helpers"
	"github.com/modresolve/modresolve/internal/logger"
	"github.com/modresolve/modresolve/internal/resolver"
)

func validateLogLevel(value LogLevel) logger.LogLevel {
	switch value {
	case LogLevelVerbose:
		return logger.LevelVerbose
	case LogLevelDebug:
		return logger.LevelDebug
	case LogLevelInfo:
		return logger.LevelInfo
	case LogLevelWarning, LogLevelNone:
		return logger.LevelWarning
	case LogLevelError:
		return logger.LevelError
	case LogLevelSilent:
		return logger.LevelSilent
	default:
		panic("Invalid log level")
	}
}

func validateLogOverrides(input map[string]LogLevel) (output map[logger.MsgID]logger.LogLevel) {
	output = make(map[logger.MsgID]logger.LogLevel)
	for k, v := range input {
		logger.StringToMsgIDs(k, validateLogLevel(v), output)
	}
	return
}

func validateOptions(options ResolveOptions) config.Options {
	return config.Options{
		ConditionNames:   options.ConditionNames,
		Extensions:       options.Extensions,
		MainFields:       options.MainFields,
		ExportsFields:    options.ExportsFields,
		ImportsFields:    options.ImportsFields,
		Tsconfig:         options.Tsconfig,
		EnforceExtension: options.EnforceExtension,
		FullySpecified:   options.FullySpecified,
		PreserveSymlinks: options.PreserveSymlinks,
		PreferRelative:   options.PreferRelative,
		DeclarationOnly:  options.DeclarationOnly,
		BuiltinModules:   options.BuiltinModules,
	}
}

func convertMessages(msgs []logger.Msg) []Message {
	var result []Message
	for _, msg := range msgs {
		if msg.Kind != logger.Warning && msg.Kind != logger.Error {
			continue
		}
		var notes []string
		for _, note := range msg.Notes {
			notes = append(notes, note.Text)
		}
		id := ""
		if msg.ID != logger.MsgID_None {
			id = logger.MsgIDToString(msg.ID)
		}
		result = append(result, Message{
			ID:    id,
			Text:  msg.Data.Text,
			Path:  msg.Data.Path,
			Notes: notes,
		})
	}
	return result
}

type resolverImpl struct {
	fs    fs.FS
	log   logger.Log
	timer *helpers.Timer

	// Nil once closed. Calls already running keep the resolver they loaded.
	resolver atomic.Pointer[resolver.Resolver]
}

func newResolverImpl(options ResolveOptions) (*resolverImpl, error) {
	realFS := fs.RealFS(fs.RealFSOptions{AbsWorkingDir: options.AbsWorkingDir})

	// Warnings are both printed and kept so they can be returned later
	level := validateLogLevel(options.LogLevel)
	stderr := logger.NewStderrLog(logger.OutputOptions{
		LogLevel:  level,
		Overrides: validateLogOverrides(options.LogOverride),
		JSON:      options.LogJSON,
	})

	var timer *helpers.Timer
	if api_helpers.UseTimer {
		timer = &helpers.Timer{}
	}

	timer.Begin("Create resolver")
	res, err := resolver.NewResolver(realFS, stderr, cache.MakeCacheSet(), validateOptions(options))
	timer.End("Create resolver", options.Tsconfig)
	if err != nil {
		var resolveErr *resolver.Error
		if errors.As(err, &resolveErr) {
			return nil, &ConfigError{Code: ErrorCode(resolveErr.Kind.Code()), Text: resolveErr.Error(), err: err}
		}
		return nil, err
	}

	impl := &resolverImpl{
		fs:    realFS,
		log:   stderr,
		timer: timer,
	}
	impl.resolver.Store(res)
	return impl, nil
}

type resolveFunc func(*resolver.Resolver, string, string) (*resolver.ResolveResult, error)

func (impl *resolverImpl) run(what string, fn resolveFunc, from string, specifier string) (result Resolution) {
	// Don't let a bug take down the whole program when resolving one path
	defer func() {
		if r := recover(); r != nil {
			impl.log.AddIDWithNotes(logger.MsgID_None, logger.Error, logger.MsgData{},
				fmt.Sprintf("panic: %v", r), []logger.MsgData{{Text: string(debug.Stack())}})
			result = Resolution{
				ErrorCode: ErrorIO,
				ErrorText: fmt.Sprintf("Internal error while resolving %q: %v", specifier, r),
			}
		}
	}()

	res := impl.resolver.Load()
	if res == nil {
		return Resolution{
			ErrorCode: ErrorIO,
			ErrorText: fmt.Sprintf("Cannot resolve %q because the resolver is closed", specifier),
		}
	}

	if !impl.fs.IsAbs(from) {
		if abs, ok := impl.fs.Abs(from); ok {
			from = abs
		}
	}

	timer := impl.timer.Fork()
	timer.Begin(what)
	defer func() {
		timer.End(what, specifier)
		impl.timer.Join(timer)
	}()

	resolved, err := fn(res, from, specifier)
	if err != nil {
		var resolveErr *resolver.Error
		if !errors.As(err, &resolveErr) {
			return Resolution{ErrorCode: ErrorIO, ErrorText: err.Error()}
		}
		return Resolution{
			ErrorCode: ErrorCode(resolveErr.Kind.Code()),
			ErrorText: resolveErr.Message,
			Notes:     resolveErr.Notes,
		}
	}

	return Resolution{
		Path:                     resolved.Path,
		Query:                    resolved.Query,
		Fragment:                 resolved.Fragment,
		ResolvedUsingTSExtension: resolved.ResolvedUsingTSExtension,
	}
}

func (impl *resolverImpl) resolve(sourceDir string, specifier string) Resolution {
	return impl.run("Resolve", (*resolver.Resolver).Resolve, sourceDir, specifier)
}

func (impl *resolverImpl) resolveTypeReferenceDirective(containingFile string, name string) Resolution {
	return impl.run("Resolve type reference", (*resolver.Resolver).ResolveTypeReferenceDirective, containingFile, name)
}

func (impl *resolverImpl) close() {
	impl.resolver.Store(nil)
}

func (impl *resolverImpl) messages() []Message {
	return convertMessages(impl.log.Peek())
}

// LogTimings prints how long resolutions took in total, and which one was the
// slowest. This does nothing unless timing was enabled before the resolver
// was created.
func (r *Resolver) LogTimings() {
	r.impl.timer.Log(r.impl.log)
}

func (code ErrorCode) String() string {
	return resolver.ErrorKind(code).String()
}
