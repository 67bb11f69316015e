package generation

import "strings"

// Markers that distinguish a structural build problem from an ordinary
// generation failure. Matched against error messages reported by the
// preview collaborator or carried on an error event.
var buildErrorMarkers = []string{
	"Build failed",
	"Failed to compile",
	"SyntaxError",
	"Unexpected token",
	"Cannot find module",
	"is not defined",
}

// IsBuildError reports whether an error message should be surfaced as a
// blocking build-error modal rather than a transient toast.
func IsBuildError(message string) bool {
	for _, marker := range buildErrorMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

// BuildErrorFunc is the explicit reporting channel the build/preview
// collaborator invokes when compilation of generated files fails. It
// replaces any interception of global logging.
type BuildErrorFunc func(message string)
