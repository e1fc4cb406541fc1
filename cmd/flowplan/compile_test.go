package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/flowplan/workspace"
)

const truckFlow = `diagram:
  Protocol:
    - On: vehicle_type
    - Fill Data:
        - name: truck_number
    - Access Decision: Granted
`

func TestPlanPath(t *testing.T) {
	assert.Equal(t, filepath.Join("flows", "gate.planspace.yaml"),
		planPath(filepath.Join("flows", "gate.yaml"), ""))
	assert.Equal(t, filepath.Join("out", "gate.planspace.yaml"),
		planPath(filepath.Join("flows", "gate.yaml"), "out"))
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "gate.yaml")
	require.NoError(t, os.WriteFile(input, []byte(truckFlow), 0644))

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	registry := buildRegistry(logger)
	tr, ok := registry.Get(workspace.IDProtocols)
	require.True(t, ok)

	require.NoError(t, compileFile(tr, input, "", logger))

	out, err := os.ReadFile(filepath.Join(dir, "gate.planspace.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "PlanSpace:")
	assert.Contains(t, string(out), "fill_truck_number")
}

func TestCompileFile_InvalidDocument(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(input, []byte("diagram:\n  Frobnicate:\n"), 0644))

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	registry := buildRegistry(logger)
	tr, _ := registry.Get(workspace.IDProtocols)

	err := compileFile(tr, input, "", logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Frobnicate")
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "flows")
	require.NoError(t, os.MkdirAll(sub, 0755))

	one := filepath.Join(sub, "one.yaml")
	two := filepath.Join(sub, "two.yml")
	require.NoError(t, os.WriteFile(one, []byte(truckFlow), 0644))
	require.NoError(t, os.WriteFile(two, []byte(truckFlow), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "notes.txt"), []byte("x"), 0644))

	files, dirs, err := expandInputs([]string{sub})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{one, two}, files)
	assert.Equal(t, []string{sub}, dirs)

	files, dirs, err = expandInputs([]string{one})
	require.NoError(t, err)
	assert.Equal(t, []string{one}, files)
	assert.Empty(t, dirs)

	_, _, err = expandInputs([]string{filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte(truckFlow), 0644))
	require.NoError(t, os.WriteFile(bad, []byte("diagram:\n  Frobnicate:\n"), 0644))

	known := workspace.Protocols().BlockNames()
	assert.NoError(t, validateFile(good, known))
	assert.ErrorContains(t, validateFile(bad, known), "Frobnicate")
}

func TestWorkspacesCommand(t *testing.T) {
	cmd := workspacesCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, cmd.RunE(cmd, nil))
	assert.Contains(t, out.String(), workspace.IDProtocols)
	assert.Contains(t, out.String(), workspace.IDActions)
}
