// This package contains internal CLI-related code that must be shared with
// other internal code outside of the CLI package.

package cli_helpers

import (
	"fmt"
	"strings"

	"github.com/modresolve/modresolve/pkg/api"
)

type ErrorWithNote struct {
	Text string
	Note string
}

func MakeErrorWithNote(text string, note string) *ErrorWithNote {
	return &ErrorWithNote{
		Text: text,
		Note: note,
	}
}

func (e *ErrorWithNote) Error() string {
	if e.Note == "" {
		return e.Text
	}
	return e.Text + "\n" + e.Note
}

func ParseLogLevel(text string) (api.LogLevel, *ErrorWithNote) {
	switch text {
	case "verbose":
		return api.LogLevelVerbose, nil
	case "debug":
		return api.LogLevelDebug, nil
	case "info":
		return api.LogLevelInfo, nil
	case "warning":
		return api.LogLevelWarning, nil
	case "error":
		return api.LogLevelError, nil
	case "silent":
		return api.LogLevelSilent, nil
	default:
		return api.LogLevelNone, MakeErrorWithNote(
			fmt.Sprintf("Invalid log level: %q", text),
			"Valid values are \"verbose\", \"debug\", \"info\", \"warning\", \"error\", or \"silent\".",
		)
	}
}

// ParseLogOverride parses "ID=LEVEL" where ID is a message name such as
// "invalid-paths" or a group such as "tsconfig.json"
func ParseLogOverride(text string) (string, api.LogLevel, *ErrorWithNote) {
	equals := strings.IndexByte(text, '=')
	if equals < 1 {
		return "", api.LogLevelNone, MakeErrorWithNote(
			fmt.Sprintf("Invalid log override: %q", text),
			"Log overrides must have the form \"ID=LEVEL\", for example \"different-path-case=error\".",
		)
	}
	level, err := ParseLogLevel(text[equals+1:])
	if err != nil {
		return "", api.LogLevelNone, err
	}
	return text[:equals], level, nil
}

func ParseOutputFormat(text string) (bool, *ErrorWithNote) {
	switch text {
	case "text":
		return false, nil
	case "json":
		return true, nil
	default:
		return false, MakeErrorWithNote(
			fmt.Sprintf("Invalid format: %q", text),
			"Valid values are \"text\" or \"json\".",
		)
	}
}
