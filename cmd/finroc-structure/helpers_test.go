package main

import (
	"testing"

	"github.com/finrocmirror/finroc-plugins-structure/config"
)

func testDefaultConfig(t *testing.T) *config.Config {
	t.Helper()
	return config.Default()
}
