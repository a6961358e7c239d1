package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"sync", "status", "retrieve", "ask"} {
		c, _, err := root.Find([]string{name})
		if assert.NoError(t, err, name) {
			assert.Equal(t, name, c.Name())
		}
	}
}

func TestRetrieveCmd_RequiresQuery(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"retrieve", "notes"})
	root.SetOut(&discard{})
	root.SetErr(&discard{})
	assert.Error(t, root.Execute())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b c", preview("a\n b\t\tc", 10))
	assert.Equal(t, "héll...", preview("héllo world", 4))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
