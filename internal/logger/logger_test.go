package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_WritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	log, err := New(Config{Dir: dir, Level: "debug"})
	require.NoError(t, err)
	log.Info("hello", "key", "value")

	path := filepath.Join(dir, "monitor.log")
	_, err = os.Stat(path)
	require.NoError(t, err, "expected log file at %s", path)
}

func TestNew_StdoutOnly(t *testing.T) {
	log, err := New(Config{Level: "info"})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]bool{"debug": true, "warn": true, "error": true, "info": true, "": true, "bogus": true}
	for lvl := range cases {
		_ = parseLevel(lvl)
	}
}
