package artifacts

import (
	"path"
	"strings"
)

var acceptedExtensions = map[string]struct{}{
	".xml":  {},
	".json": {},
	".html": {},
	".csv":  {},
	".txt":  {},
	".log":  {},
}

// IsValidFormat reports whether filename carries one of the accepted
// test-result extensions. Only the extension is inspected, case-insensitively.
func IsValidFormat(filename string) bool {
	_, ok := acceptedExtensions[strings.ToLower(path.Ext(filename))]
	return ok
}

// FileType returns the lowercased extension without the dot.
func FileType(filename string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
}
