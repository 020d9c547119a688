package api_helpers

// UseTimer is set by the command-line tool before any resolver is created.
// Only the code that creates a resolver's root timer reads it. Everything
// else checks whether the timer it was handed is nil.
var UseTimer bool
