package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript writes an executable shell script to a temp file and returns
// its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solver.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestRunSolver_SAT(t *testing.T) {
	path := writeScript(t, `cat >/dev/null
echo "A -> TRUE"
echo "B -> TRUE"
exit 10
`)

	outcome := RunSolver(context.Background(), path, "A B &&", time.Second)
	assert.Equal(t, exitCodeSAT, outcome.ExitCode)
	assert.Contains(t, outcome.Stdout, "A -> TRUE")
	assert.False(t, outcome.TimedOut)
	assert.False(t, outcome.BinaryNotFound)
}

func TestRunSolver_UNSAT(t *testing.T) {
	path := writeScript(t, `cat >/dev/null
echo "UNSAT"
exit 20
`)

	outcome := RunSolver(context.Background(), path, "A A ! &&", time.Second)
	assert.Equal(t, exitCodeUNSAT, outcome.ExitCode)
	assert.Contains(t, outcome.Stdout, "UNSAT")
}

func TestRunSolver_ParseError(t *testing.T) {
	path := writeScript(t, `cat >/dev/null
echo "parse error at token 2" >&2
exit 30
`)

	outcome := RunSolver(context.Background(), path, "A &&", time.Second)
	assert.Equal(t, exitCodeParseError, outcome.ExitCode)
	assert.Contains(t, outcome.Stderr, "parse error at token 2")
}

func TestRunSolver_Timeout(t *testing.T) {
	path := writeScript(t, `sleep 5
`)

	outcome := RunSolver(context.Background(), path, "A", 50*time.Millisecond)
	assert.True(t, outcome.TimedOut)
	assert.Equal(t, 0.05, outcome.RuntimeS)
}

func TestRunSolver_BinaryNotFound(t *testing.T) {
	outcome := RunSolver(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"), "A", time.Second)
	assert.True(t, outcome.BinaryNotFound)
}

func TestParseSolverOutput_SAT(t *testing.T) {
	decision, assignment := ParseSolverOutput("A -> TRUE\nB -> FALSE\n")
	assert.Equal(t, "SAT", decision)
	assert.Equal(t, map[string]bool{"A": true, "B": false}, assignment)
}

func TestParseSolverOutput_UNSAT(t *testing.T) {
	decision, assignment := ParseSolverOutput("UNSAT\n")
	assert.Equal(t, "UNSAT", decision)
	assert.Nil(t, assignment)
}
