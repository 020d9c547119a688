package logger

// Messages are collected through a "Log" value that is passed around by value.
// Where they end up depends on how the log was constructed: the stderr log
// renders them through charmbracelet/log as they arrive, and the deferred log
// keeps them in memory for the caller (mostly tests) to inspect.

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

type Log struct {
	AddMsg    func(Msg)
	HasErrors func() bool
	Peek      func() []Msg
	Done      func() []Msg

	Level     LogLevel
	Overrides map[MsgID]LogLevel
}

type LogLevel int8

const (
	LevelNone LogLevel = iota
	LevelVerbose
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
	LevelSilent
)

type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
	Info
	Note
	Debug
	Verbose
)

func (kind MsgKind) String() string {
	switch kind {
	case Error:
		return "ERROR"
	case Warning:
		return "WARNING"
	case Info:
		return "INFO"
	case Note:
		return "NOTE"
	case Debug:
		return "DEBUG"
	case Verbose:
		return "VERBOSE"
	default:
		panic("Internal error")
	}
}

type Msg struct {
	Notes []MsgData
	Data  MsgData
	Kind  MsgKind
	ID    MsgID
}

type MsgData struct {
	Text string

	// Optional absolute path of the file this message is about
	Path string
}

func (msg Msg) String() string {
	sb := strings.Builder{}
	sb.WriteString(msg.Kind.String())
	sb.WriteString(": ")
	sb.WriteString(msg.Data.Text)
	if msg.Data.Path != "" {
		sb.WriteString(fmt.Sprintf(" [%s]", msg.Data.Path))
	}
	for _, note := range msg.Notes {
		sb.WriteString("\n  ")
		sb.WriteString(note.Text)
	}
	return sb.String()
}

// Whether a message of this kind is visible at the given log level
func (level LogLevel) Shows(kind MsgKind) bool {
	switch kind {
	case Error:
		return level <= LevelError
	case Warning:
		return level <= LevelWarning
	case Info, Note:
		return level <= LevelInfo
	case Debug:
		return level <= LevelDebug
	case Verbose:
		return level <= LevelVerbose
	}
	return false
}

type OutputOptions struct {
	// Defaults to stderr
	Writer io.Writer

	LogLevel  LogLevel
	Overrides map[MsgID]LogLevel

	// Emit one JSON object per message instead of human-readable text
	JSON bool
}

type msgKey struct {
	id   MsgID
	kind MsgKind
	path string
	text string
}

// NewStderrLog prints messages that the level shows. Warnings and errors are
// also kept for Peek and Done whatever the level, but only once each: a
// long-lived resolver repeats the same warning for every lookup that runs
// into it. Other kinds are never kept.
func NewStderrLog(options OutputOptions) Log {
	var mutex sync.Mutex
	var msgs []Msg
	seen := make(map[msgKey]bool)
	errors := 0

	writer := options.Writer
	if writer == nil {
		writer = os.Stderr
	}
	formatter := charmlog.TextFormatter
	if options.JSON {
		formatter = charmlog.JSONFormatter
	}
	out := charmlog.NewWithOptions(writer, charmlog.Options{
		Prefix:    "modresolve",
		Level:     charmlog.DebugLevel,
		Formatter: formatter,
	})

	return Log{
		Level:     options.LogLevel,
		Overrides: options.Overrides,
		AddMsg: func(msg Msg) {
			mutex.Lock()
			defer mutex.Unlock()
			if msg.Kind == Error {
				errors++
			}
			if msg.Kind == Error || msg.Kind == Warning {
				key := msgKey{id: msg.ID, kind: msg.Kind, path: msg.Data.Path, text: msg.Data.Text}
				if seen[key] {
					return
				}
				seen[key] = true
				msgs = append(msgs, msg)
			}
			if options.LogLevel.Shows(msg.Kind) {
				printMsg(out, msg)
			}
		},
		HasErrors: func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return errors > 0
		},
		Peek: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			return append([]Msg{}, msgs...)
		},
		Done: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			return msgs
		},
	}
}

func printMsg(out *charmlog.Logger, msg Msg) {
	var keyvals []interface{}
	if msg.Data.Path != "" {
		keyvals = append(keyvals, "path", msg.Data.Path)
	}
	if msg.ID != MsgID_None {
		keyvals = append(keyvals, "id", MsgIDToString(msg.ID))
	}
	for _, note := range msg.Notes {
		keyvals = append(keyvals, "note", note.Text)
	}

	switch msg.Kind {
	case Error:
		out.Error(msg.Data.Text, keyvals...)
	case Warning:
		out.Warn(msg.Data.Text, keyvals...)
	case Info, Note:
		out.Info(msg.Data.Text, keyvals...)
	default:
		out.Debug(msg.Data.Text, keyvals...)
	}
}

func PrintErrorToStderr(text string) {
	log := NewStderrLog(OutputOptions{})
	log.AddError(MsgData{}, text)
	log.Done()
}

// NewDeferLog keeps every message at or above the given level in memory
func NewDeferLog(level LogLevel, overrides map[MsgID]LogLevel) Log {
	var msgs []Msg
	var mutex sync.Mutex
	var hasErrors bool

	return Log{
		Level:     level,
		Overrides: overrides,
		AddMsg: func(msg Msg) {
			mutex.Lock()
			defer mutex.Unlock()
			if msg.Kind == Error {
				hasErrors = true
			}
			if level.Shows(msg.Kind) {
				msgs = append(msgs, msg)
			}
		},
		HasErrors: func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return hasErrors
		},
		Peek: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			return append([]Msg{}, msgs...)
		},
		Done: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			return msgs
		},
	}
}

// NewSilentLog drops everything. This is what a resolver uses when it wasn't
// given a log.
func NewSilentLog() Log {
	return NewDeferLog(LevelSilent, nil)
}

func (log Log) AddError(data MsgData, text string) {
	data.Text = text
	log.AddMsg(Msg{
		Kind: Error,
		Data: data,
	})
}

func (log Log) AddID(id MsgID, kind MsgKind, data MsgData, text string) {
	log.AddIDWithNotes(id, kind, data, text, nil)
}

func (log Log) AddIDWithNotes(id MsgID, kind MsgKind, data MsgData, text string, notes []MsgData) {
	if override, ok := allowOverride(log.Overrides, id, kind); ok {
		data.Text = text
		log.AddMsg(Msg{
			ID:    id,
			Kind:  override,
			Data:  data,
			Notes: notes,
		})
	}
}

func allowOverride(overrides map[MsgID]LogLevel, id MsgID, kind MsgKind) (MsgKind, bool) {
	if logLevel, ok := overrides[id]; ok {
		switch logLevel {
		case LevelVerbose:
			return Verbose, true
		case LevelDebug:
			return Debug, true
		case LevelInfo:
			return Info, true
		case LevelWarning:
			return Warning, true
		case LevelError:
			return Error, true
		default:
			// Setting the log level to "silent" silences this log message
			return MsgKind(0), false
		}
	}
	return kind, true
}
