package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"chat", "index", "eval", "history"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, "data/raw", indexCmd.Flags().Lookup("dir").DefValue)
	assert.Equal(t, "logs/eval", evalCmd.Flags().Lookup("out").DefValue)
	assert.Equal(t, "100", historyCmd.Flags().Lookup("limit").DefValue)
}

func TestHistoryRequiresSession(t *testing.T) {
	assert.Error(t, historyCmd.Args(historyCmd, nil))
	assert.NoError(t, historyCmd.Args(historyCmd, []string{"s1"}))
}
