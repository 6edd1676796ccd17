package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, cfg Config, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := RootCmd(cfg)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReadEnv(t *testing.T) {
	cfg, err := ReadEnv(context.Background(), envconfig.MapLookuper(map[string]string{
		"STATEMECH_LOG_FORMAT": "JSON",
		"STATEMECH_DB":         "/tmp/phone.db",
	}))
	require.NoError(t, err)
	assert.Equal(t, Config{LogLevel: "INFO", LogFormat: "JSON", DB: "/tmp/phone.db"}, cfg)
}

func TestGraph_Mermaid(t *testing.T) {
	out, err := execute(t, Config{}, "graph", "--direction", "LR")
	require.NoError(t, err)
	assert.Contains(t, out, "stateDiagram-v2\n\tdirection LR")
	assert.Contains(t, out, "state Connected {")
	assert.Contains(t, out, "OffHook --> Ringing : CallDialed")
}

func TestGraph_Dot(t *testing.T) {
	out, err := execute(t, Config{}, "graph", "--format", "dot")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph {")
	assert.Contains(t, out, `subgraph "clusterConnected"`)
}

func TestGraph_InvalidFlags(t *testing.T) {
	_, err := execute(t, Config{}, "graph", "--format", "svg")
	assert.EqualError(t, err, `unknown format "svg", expected mermaid or dot`)

	_, err = execute(t, Config{}, "graph", "--direction", "up")
	assert.EqualError(t, err, `unknown direction "up"`)
}

func TestRun_WithoutDB(t *testing.T) {
	out, err := execute(t, Config{LogLevel: "ERROR"}, "run", "CallDialed", "CallConnected", "SetVolume=3")
	require.NoError(t, err)
	assert.Contains(t, out, "firing SetVolume=3\n  -> volume set to 3\n")
	assert.Contains(t, out, "StateMachine { Name = phone, ActiveStates = [Connected, Talking] }")
	assert.Contains(t, out, "snapshot: 1:Connected/Talking\n")
}

func TestRun_PersistsBetweenRuns(t *testing.T) {
	cfg := Config{LogLevel: "ERROR", DB: filepath.Join(t.TempDir(), "phone.db")}

	out, err := execute(t, cfg, "run", "CallDialed")
	require.NoError(t, err)
	assert.Contains(t, out, "snapshot: 1:Ringing\n")

	out, err = execute(t, cfg, "run", "CallConnected", "PlacedOnHold")
	require.NoError(t, err)
	assert.Contains(t, out, "snapshot: 1:Connected/OnHold\n")

	out, err = execute(t, cfg, "run", "--key", "other")
	require.NoError(t, err)
	assert.Contains(t, out, "snapshot: 1:OffHook\n")

	out, err = execute(t, cfg, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "snapshot: 1:Connected/OnHold\n")
}

func TestRun_FailedEventStopsRun(t *testing.T) {
	_, err := execute(t, Config{LogLevel: "ERROR"}, "run", "HungUp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HungUp")
}
