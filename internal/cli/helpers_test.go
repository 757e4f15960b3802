package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	orderSpecsDir     = filepath.Join("..", "harness", "testdata", "specs", "order")
	orderScenariosDir = filepath.Join("..", "harness", "testdata", "scenarios")
)

// writeSpec writes a single CUE file into a fresh directory and returns it.
func writeSpec(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "specs.cue"), []byte(content), 0o644))
	return dir
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// loadedDB loads the order specs into a fresh database and returns its path.
func loadedDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "nature.db")
	_, _, err := execute(t, "--db", db, "load", orderSpecsDir)
	require.NoError(t, err)
	return db
}
