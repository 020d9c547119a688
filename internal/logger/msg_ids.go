package logger

// Most non-error log messages are given a message ID that can be used to set
// the log level for that message. Errors do not get a message ID because you
// cannot turn errors into non-errors (otherwise a failed resolution would be
// reported as a success). Some internal log messages do not get a message ID
// because they are part of verbose and/or internal debugging output. These
// messages use "MsgID_None" instead.
type MsgID = uint8

const (
	MsgID_None MsgID = iota

	// Resolver
	MsgID_Resolver_DifferentPathCase

	// package.json
	MsgID_PackageJSON_FIRST // Keep this first
	MsgID_PackageJSON_InvalidImportsOrExports
	MsgID_PackageJSON_InvalidMainField
	MsgID_PackageJSON_InvalidTsconfig
	MsgID_PackageJSON_LAST // Keep this last

	// tsconfig.json
	MsgID_TsconfigJSON_FIRST // Keep this first
	MsgID_TsconfigJSON_InvalidBaseURL
	MsgID_TsconfigJSON_InvalidPaths
	MsgID_TsconfigJSON_InvalidTypeRoots
	MsgID_TsconfigJSON_LAST // Keep this last

	MsgID_END // Keep this at the end (used only for tests)
)

func StringToMsgIDs(str string, logLevel LogLevel, overrides map[MsgID]LogLevel) {
	switch str {
	// Resolver
	case "different-path-case":
		overrides[MsgID_Resolver_DifferentPathCase] = logLevel

	// package.json
	case "package.json":
		for i := MsgID_PackageJSON_FIRST; i <= MsgID_PackageJSON_LAST; i++ {
			overrides[i] = logLevel
		}
	case "invalid-imports-or-exports":
		overrides[MsgID_PackageJSON_InvalidImportsOrExports] = logLevel
	case "invalid-main-field":
		overrides[MsgID_PackageJSON_InvalidMainField] = logLevel
	case "invalid-tsconfig-field":
		overrides[MsgID_PackageJSON_InvalidTsconfig] = logLevel

	// tsconfig.json
	case "tsconfig.json":
		for i := MsgID_TsconfigJSON_FIRST; i <= MsgID_TsconfigJSON_LAST; i++ {
			overrides[i] = logLevel
		}
	case "invalid-base-url":
		overrides[MsgID_TsconfigJSON_InvalidBaseURL] = logLevel
	case "invalid-paths":
		overrides[MsgID_TsconfigJSON_InvalidPaths] = logLevel
	case "invalid-type-roots":
		overrides[MsgID_TsconfigJSON_InvalidTypeRoots] = logLevel

	default:
		// Ignore invalid entries since this message id may have
		// been renamed/removed since when this code was written
	}
}

func MsgIDToString(id MsgID) string {
	switch id {
	// Resolver
	case MsgID_Resolver_DifferentPathCase:
		return "different-path-case"

	// package.json
	case MsgID_PackageJSON_InvalidImportsOrExports:
		return "invalid-imports-or-exports"
	case MsgID_PackageJSON_InvalidMainField:
		return "invalid-main-field"
	case MsgID_PackageJSON_InvalidTsconfig:
		return "invalid-tsconfig-field"

	// tsconfig.json
	case MsgID_TsconfigJSON_InvalidBaseURL:
		return "invalid-base-url"
	case MsgID_TsconfigJSON_InvalidPaths:
		return "invalid-paths"
	case MsgID_TsconfigJSON_InvalidTypeRoots:
		return "invalid-type-roots"
	}

	return ""
}
