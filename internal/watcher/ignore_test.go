package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIgnored(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"notes.txt", false},
		{"report.docx", false},
		{".hidden", true},
		{".git", true},
		{"~$report.docx", true},
		{".DS_Store", true},
		{"Thumbs.db", true},
		{"desktop.ini", true},
		{"build.tmp", true},
		{"pkg.LOCK", true},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Ignored(tt.name), tt.name)
	}
}

func TestIgnoredPath(t *testing.T) {
	assert.True(t, IgnoredPath(".git/config"))
	assert.True(t, IgnoredPath("docs/~$draft.docx"))
	assert.False(t, IgnoredPath("docs/draft.docx"))
	assert.False(t, IgnoredPath("./docs/a.md"))
}

func TestPaths(t *testing.T) {
	events := []FileEvent{{Path: "a"}, {Path: "b"}, {Path: "a"}}
	assert.Equal(t, []string{"a", "b"}, Paths(events))
}
