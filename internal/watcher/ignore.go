package watcher

import (
	"path"
	"strings"
)

var ignoredNames = map[string]struct{}{
	".DS_Store":   {},
	"Thumbs.db":   {},
	"desktop.ini": {},
}

var ignoredExts = map[string]struct{}{
	".tmp":  {},
	".lock": {},
}

// Ignored reports whether a file or directory name is excluded from
// watching and indexing: hidden entries, office lock files (~$), OS
// metadata files and temporary files.
func Ignored(name string) bool {
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return true
	}
	if _, ok := ignoredNames[name]; ok {
		return true
	}
	_, ok := ignoredExts[strings.ToLower(path.Ext(name))]
	return ok
}

// IgnoredPath reports whether any element of a forward-slash relative path is ignored.
func IgnoredPath(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if part != "." && Ignored(part) {
			return true
		}
	}
	return false
}
