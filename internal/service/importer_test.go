package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"abmconf/internal/model"
	"abmconf/internal/scaffold"
)

func flockProject() *model.Config {
	cfg := model.New("flock")
	boid := model.NewAgentType("Boid", 0)
	boid.Variables = append(boid.Variables, model.AgentVariable{
		Name: "neighbours", Default: "[0, 0, 0]", Type: model.TypeArrayInt, Logging: model.LogNone,
	})
	boid.Variables[3].Logging = model.LogMean // vx
	boid.Functions = []model.AgentFunction{
		{Name: "output_location", InputType: model.MessageNone, OutputType: model.MessageSpatial3D},
		{Name: "steer", InputType: model.MessageSpatial3D, OutputType: model.MessageNone},
	}
	cfg.Agents = []model.AgentType{boid}
	cfg.Globals = []model.GlobalVariable{
		{Name: "SEPARATION", Value: "0.5", Type: model.TypeFloat},
		{Name: "FLOCK_SIZE", Value: "128", Type: model.TypeInt},
		{Name: "DENSITY_GRID", Value: "16, 16, 16", Type: model.TypeShape, IsMacro: true},
	}
	cfg.Layers = []model.Layer{
		{Name: "Broadcast", FunctionIDs: []string{"Boid::output_location"}},
		{Name: "Steer", FunctionIDs: []string{"Boid::steer"}},
	}
	cfg.Connections = []model.Connection{
		{Src: "Boid::output_location", Dst: "Boid::steer", Type: model.MessageSpatial3D},
	}
	return cfg
}

func TestImportRoundTripsExportedDriver(t *testing.T) {
	t.Parallel()

	cfg := flockProject()
	out, err := scaffold.Render(cfg, scaffold.Options{CreatedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)})
	require.NoError(t, err)

	svc := &ImportService{}
	imported, res, err := svc.Import("flock", strings.NewReader(out.Main.Content))
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	t.Logf("imported %d agents, %d globals, %d layers, %d connections",
		res.Agents, res.Globals, res.Layers, res.Connections)

	require.Equal(t, "flock", imported.Name)
	require.Len(t, imported.Agents, 1)
	boid := imported.Agents[0]
	require.Equal(t, "Boid", boid.Name)
	require.Equal(t, "#e6194B", boid.Color)

	require.Len(t, boid.Variables, len(cfg.Agents[0].Variables))
	for i, want := range cfg.Agents[0].Variables {
		got := boid.Variables[i]
		require.Equal(t, want.Name, got.Name)
		require.Equal(t, want.Type, got.Type)
		require.Equal(t, want.Logging, got.Logging)
		if model.IsArrayType(want.Type) {
			// Array defaults belong to the population setup, the
			// driver only carries the length.
			require.Empty(t, got.Default)
		} else {
			require.Equal(t, want.Default, got.Default)
		}
	}

	require.Equal(t, cfg.Agents[0].Functions, boid.Functions)
	require.Equal(t, cfg.Globals, imported.Globals)
	require.Equal(t, cfg.Layers, imported.Layers)
	require.Equal(t, cfg.Connections, imported.Connections)
	require.Nil(t, imported.Visualization)
}

func TestImportHandWrittenDriver(t *testing.T) {
	t.Parallel()

	src := `"""
demo driver
"""
import pyflamegpu

ENSEMBLE = False
STEP_COUNT = 100
SEPARATION = 0.5
FLOCK_SIZE = 128
WEIGHTS = [0.5, 1.5]
DENSITY_GRID = 16, 16, 16
WRAP = True
MY_LIMIT = ?
age_default = 2

model = pyflamegpu.ModelDescription("demo")
env = model.Environment()
env.newPropertyFloat("SEPARATION", 0.5)
env.newPropertyInt("FLOCK_SIZE", FLOCK_SIZE)
env.newPropertyArrayFloat("WEIGHTS", [0.5, 1.5])
env.newPropertyUInt("MAX_AGE", 200)
env.newPropertyFloat("dt", 0.1)
env.newMacroPropertyFloat("DENSITY_GRID", 16, 16, 16)
env.newMacroPropertyInt("TICK", 1)

Boid_agent = model.newAgent("Boid")
Boid_agent.newVariableFloat("x", 0.0)
Boid_agent.newVariableFloat("vx", 0.25)
Boid_agent.newVariableInt("age", age_default)
Boid_agent.newVariableUInt16("flags", 0)
Boid_agent.newVariableArrayInt("neighbours", 3)

output_location_file = "output_location.cpp"
steer_file = "steer.cpp"
Boid_agent.newRTCFunctionFile("output_location", output_location_file).setMessageOutput("Boid_spatial_location_message ")
Boid_agent.newRTCFunctionFile("steer", steer_file).setMessageInput("Boid_spatial_location_message ")

model.newLayer("Broadcast").addAgentFunction("Boid", "output_location")
model.Layer("Steer").addAgentFunction("Boid", "steer")

logging_config = pyflamegpu.StepLoggingConfig(model)
Boid_agent_log = logging_config.agent("Boid")
Boid_agent_log.logCount()
Boid_agent_log.logMean("vx")
`

	svc := &ImportService{}
	cfg, res, err := svc.Import("demo", strings.NewReader(src))
	require.NoError(t, err)

	require.Len(t, cfg.Agents, 1)
	boid := cfg.Agents[0]
	require.Equal(t, []model.AgentVariable{
		{Name: "x", Default: "0.0", Type: model.TypeFloat, Logging: model.LogNone},
		{Name: "vx", Default: "0.25", Type: model.TypeFloat, Logging: model.LogMean},
		{Name: "age", Default: "2", Type: model.TypeInt, Logging: model.LogNone},
		{Name: "flags", Default: "0", Type: "UInt16", Logging: model.LogNone},
		{Name: "neighbours", Default: "", Type: model.TypeArrayInt, Logging: model.LogNone},
	}, boid.Variables)

	require.Equal(t, []model.AgentFunction{
		{Name: "output_location", InputType: model.MessageNone, OutputType: model.MessageSpatial3D},
		{Name: "steer", InputType: model.MessageSpatial3D, OutputType: model.MessageNone},
	}, boid.Functions)

	require.Equal(t, []model.GlobalVariable{
		{Name: "SEPARATION", Value: "0.5", Type: model.TypeFloat},
		{Name: "FLOCK_SIZE", Value: "128", Type: model.TypeInt},
		{Name: "WEIGHTS", Value: "0.5, 1.5", Type: model.TypeArrayFloat},
		{Name: "DENSITY_GRID", Value: "16, 16, 16", Type: model.TypeShape, IsMacro: true},
		{Name: "WRAP", Value: "True", Type: model.TypeInt},
		{Name: "MY_LIMIT", Value: "?", Type: model.TypeFloat},
		{Name: "MAX_AGE", Value: "200", Type: model.TypeUInt8},
		{Name: "dt", Value: "0.1", Type: model.TypeFloat},
		{Name: "TICK", Value: "1", Type: model.TypeInt, IsMacro: true},
	}, cfg.Globals)

	require.Equal(t, []model.Layer{
		{Name: "Broadcast", FunctionIDs: []string{"Boid::output_location"}},
		{Name: "Steer", FunctionIDs: []string{"Boid::steer"}},
	}, cfg.Layers)

	require.Equal(t, []model.Connection{
		{Src: "Boid::output_location", Dst: "Boid::steer", Type: model.MessageSpatial3D},
	}, cfg.Connections)

	require.Equal(t, []string{"variable Boid.flags has unsupported type UInt16, kept as-is"}, res.Warnings)
	require.Equal(t, 9, res.Globals)
}

func TestImportFunctionVarsAndOrphanInputs(t *testing.T) {
	t.Parallel()

	src := `node_file = "output_state.cpp"
update_file = "update_state.cpp"
listen_file = "listen.cpp"

NetworkNode_agent = model.newAgent("NetworkNode")
NetworkNode_agent.newVariableArrayUInt("linked_nodes", 0)
out_fn = NetworkNode_agent.newRTCFunctionFile("output_state", node_file)
out_fn.setMessageOutput("NetworkNode_bucket_location_message ")
in_fn = NetworkNode_agent.newRTCFunctionFile("update_state", update_file)
in_fn.setMessageInput("NetworkNode_bucket_location_message")
orphan_fn = NetworkNode_agent.newRTCFunctionFile("listen", listen_file)
orphan_fn.setMessageInput("ghost_message")
update_layer = model.newLayer("Update")
update_layer.addAgentFunction("NetworkNode", "update_state")
`

	svc := &ImportService{}
	cfg, res, err := svc.Import("network", strings.NewReader(src))
	require.NoError(t, err)

	require.Len(t, cfg.Agents, 1)
	node := cfg.Agents[0]
	require.Equal(t, []model.AgentFunction{
		{Name: "output_state", InputType: model.MessageNone, OutputType: model.MessageBucket},
		{Name: "update_state", InputType: model.MessageBucket, OutputType: model.MessageNone},
		{Name: "listen", InputType: model.MessageNone, OutputType: model.MessageNone},
	}, node.Functions)

	require.Equal(t, []model.Connection{
		{Src: "NetworkNode::output_state", Dst: "NetworkNode::update_state", Type: model.MessageBucket},
	}, cfg.Connections)

	require.Equal(t, []model.Layer{
		{Name: "Update", FunctionIDs: []string{"NetworkNode::update_state"}},
	}, cfg.Layers)

	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0], `no output feeds message "ghost_message"`)
}

func TestImportSkipsIndentedAndDocstringStatements(t *testing.T) {
	t.Parallel()

	src := `"""
Ghost_agent = model.newAgent("Ghost")
"""
def build():
    Fake_agent = model.newAgent("Fake")
    FAKE_GLOBAL = 4

Boid_agent = model.newAgent("Boid")
`

	svc := &ImportService{}
	cfg, _, err := svc.Import("demo", strings.NewReader(src))
	require.NoError(t, err)

	require.Len(t, cfg.Agents, 1)
	require.Equal(t, "Boid", cfg.Agents[0].Name)
	require.Empty(t, cfg.Globals)
}

func TestImportFileNamesModelAfterStem(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "predator_prey.py")
	src := "Prey_agent = model.newAgent(\"Prey\")\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	svc := &ImportService{}
	cfg, res, err := svc.ImportFile(path)
	require.NoError(t, err)
	require.Equal(t, "predator_prey", cfg.Name)
	require.Equal(t, 1, res.Agents)
}
