package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modresolve/modresolve/internal/fs"
	"github.com/modresolve/modresolve/internal/jsonc"
	"github.com/modresolve/modresolve/internal/logger"
	"github.com/modresolve/modresolve/internal/test"
)

func parseTSConfigForTest(t *testing.T, log logger.Log, contents string, base *TSConfigJSON) *TSConfigJSON {
	t.Helper()
	value, err := jsonc.ParseJSONC([]byte(contents))
	require.NoError(t, err)
	mockFS := fs.MockFS(nil, nil, "/")
	result, parseErr := ParseTSConfigJSON(log, mockFS, "/proj/config/tsconfig.json", value, "/proj",
		func(extends string) (*TSConfigJSON, *Error) {
			return base, nil
		})
	require.Nil(t, parseErr)
	return result
}

func TestParseTSConfigPaths(t *testing.T) {
	config := parseTSConfigForTest(t, logger.NewSilentLog(), `{
		"compilerOptions": {
			"baseUrl": "${configDir}/src",
			"paths": {
				"a/*": ["./a/*"],
				"b": ["${configDir}/b.ts"],
				"a/*": ["./second/*"],
			},
		},
	}`, nil)

	require.NotNil(t, config.BaseURL)
	test.AssertEqual(t, *config.BaseURL, "/proj/src")
	test.AssertEqual(t, config.Paths.BaseDir, "/proj/config")

	var keys []string
	for _, entry := range config.Paths.Entries {
		keys = append(keys, entry.Key)
	}
	test.AssertEqualWithDiff(t, keys, []string{"a/*", "b"})
	test.AssertEqualWithDiff(t, config.Paths.Entries[0].Targets, []string{"./second/*"})
	test.AssertEqualWithDiff(t, config.Paths.Entries[1].Targets, []string{"/proj/b.ts"})
	test.AssertEqual(t, config.TypeRoots == nil, true)
}

func TestParseTSConfigWarnings(t *testing.T) {
	log := logger.NewDeferLog(logger.LevelWarning, nil)
	config := parseTSConfigForTest(t, log, `{
		"compilerOptions": {
			"baseUrl": 1,
			"paths": {"a/**": ["./x"], "b": "./b", "c": [2, "./c/*/*", "./c"]},
			"typeRoots": "./types"
		}
	}`, nil)

	test.AssertEqual(t, config.BaseURL == nil, true)
	require.Len(t, config.Paths.Entries, 1)
	test.AssertEqualWithDiff(t, config.Paths.Entries[0].Targets, []string{"./c"})

	var ids []logger.MsgID
	for _, msg := range log.Done() {
		ids = append(ids, msg.ID)
	}
	test.AssertEqualWithDiff(t, ids, []logger.MsgID{
		logger.MsgID_TsconfigJSON_InvalidBaseURL,
		logger.MsgID_TsconfigJSON_InvalidPaths,
		logger.MsgID_TsconfigJSON_InvalidPaths,
		logger.MsgID_TsconfigJSON_InvalidPaths,
		logger.MsgID_TsconfigJSON_InvalidPaths,
		logger.MsgID_TsconfigJSON_InvalidTypeRoots,
	})
}

func TestParseTSConfigExtendsOverridesPerOption(t *testing.T) {
	baseURL := "/base"
	base := &TSConfigJSON{
		AbsPath:   "/base/tsconfig.json",
		BaseURL:   &baseURL,
		Paths:     &TSConfigPaths{BaseDir: "/base", Entries: []TSConfigPath{{Key: "x", Targets: []string{"./x"}}}},
		TypeRoots: []string{"/base/types"},
	}

	config := parseTSConfigForTest(t, logger.NewSilentLog(), `{
		"extends": "../base",
		"compilerOptions": {"paths": {"y": ["./y"]}}
	}`, base)

	test.AssertEqual(t, config.BaseURL, base.BaseURL)
	test.AssertEqualWithDiff(t, config.TypeRoots, []string{"/base/types"})
	require.Len(t, config.Paths.Entries, 1)
	test.AssertEqual(t, config.Paths.Entries[0].Key, "y")
	test.AssertEqual(t, config.Paths.BaseDir, "/proj/config")
}

func TestParseTSConfigInvalidExtends(t *testing.T) {
	value, err := jsonc.ParseJSONC([]byte(`{"extends": 1}`))
	require.NoError(t, err)
	_, parseErr := ParseTSConfigJSON(logger.NewSilentLog(), fs.MockFS(nil, nil, "/"), "/tsconfig.json", value, "/", nil)
	require.NotNil(t, parseErr)
	test.AssertEqual(t, parseErr.Kind, ErrMalformedTsconfig)
}
