package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spendview/spendview/internal/cli"
)

func TestMainComponents(t *testing.T) {
	t.Run("version available", func(t *testing.T) {
		assert.NotEmpty(t, version)
	})

	t.Run("cli root command", func(t *testing.T) {
		root := cli.NewRootCmd(version)
		assert.Equal(t, "spendview", root.Use)
		assert.Equal(t, version, root.Version)
		assert.True(t, root.HasSubCommands())
	})
}
