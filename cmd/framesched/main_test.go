package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func newTestApp(out *bytes.Buffer) *cli.App {
	return &cli.App{
		Name:     "framesched",
		Writer:   out,
		Commands: []*cli.Command{RunCommand(), ConfigCommand()},

		// Keep ExitCoder errors from terminating the test binary.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func TestRunCommand(t *testing.T) {
	var out bytes.Buffer
	app := newTestApp(&out)

	err := app.Run([]string{"framesched", "run",
		"--frames", "3", "--systems", "6", "--resources", "3",
		"--workers", "2", "--work", "0s", "--seed", "42", "--log-level", "error",
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "frames: 3  workers: 2  barrier: soft  failures: 0")
	assert.Contains(t, out.String(), "slowest systems:")
}

func TestRunCommand_HardBarrierFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  barrier: hard\n  workers: 1\nlogging:\n  level: error\n"), 0o644))

	var out bytes.Buffer
	err := newTestApp(&out).Run([]string{"framesched", "run", "-c", path, "-n", "2", "--work", "0s"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "workers: 1  barrier: hard")
}

func TestRunCommand_InvalidBarrier(t *testing.T) {
	var out bytes.Buffer
	err := newTestApp(&out).Run([]string{"framesched", "run", "--barrier", "wall"})
	require.Error(t, err)
	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 2, exit.ExitCode())
}

func TestConfigCommand(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, newTestApp(&out).Run([]string{"framesched", "config"}))

	assert.Contains(t, out.String(), "barrier: soft")
	assert.Contains(t, out.String(), "namespace: framescheduler")
}
