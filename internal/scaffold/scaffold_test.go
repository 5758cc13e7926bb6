package scaffold

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"abmconf/internal/model"
)

func flockConfig() *model.Config {
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
	cfg.Visualization = &model.VisualizationSettings{
		Activated:            true,
		DomainWidth:          "100",
		BeginPaused:          true,
		ShowDomainBoundaries: true,
		Agents: []model.AgentVisualization{
			{AgentName: "Boid", Include: true, Shape: model.ShapeSphere, ColorMode: model.ColorInterpolated,
				Interpolation: &model.Interpolation{Variable: "vx", MinValue: "-1", MaxValue: "1"}},
		},
	}
	return cfg
}

func render(t *testing.T, cfg *model.Config) *Output {
	t.Helper()
	out, err := Render(cfg, Options{CreatedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)})
	require.NoError(t, err)
	return out
}

func TestRenderSubstitutesAllPlaceholders(t *testing.T) {
	t.Parallel()

	out := render(t, flockConfig())
	files := append([]File{out.Main}, out.Functions...)
	require.Len(t, out.Functions, 2)
	for _, f := range files {
		require.NotContains(t, f.Content, "[PLACEHOLDER", "file %s still has placeholders", f.Name)
		require.NotContains(t, f.Content, "[PLACE_HODER", "file %s still has placeholders", f.Name)
	}
}

func TestRenderMainFileContent(t *testing.T) {
	t.Parallel()

	out := render(t, flockConfig())
	main := out.Main.Content

	require.Equal(t, "flock.py", out.Main.Name)
	require.Contains(t, main, "Generated on 14/03/2025 - 09:30:00")
	require.Contains(t, main, `model = pyflamegpu.ModelDescription("flock")`)

	// Globals appear both as script constants and env properties.
	require.Contains(t, main, "SEPARATION = 0.5")
	require.Contains(t, main, "FLOCK_SIZE = 128")
	require.Contains(t, main, `env.newPropertyFloat("SEPARATION", 0.5)`)
	require.Contains(t, main, `env.newPropertyInt("FLOCK_SIZE", 128)`)
	require.Contains(t, main, `env.newMacroPropertyFloat("DENSITY_GRID", 16, 16, 16)`)

	// Macro initialisation host function.
	require.Contains(t, main, "class initMacroProperties(pyflamegpu.HostFunction):")
	require.Contains(t, main, `        DENSITY_GRID = FLAMEGPU.environment.getMacroPropertyFloat("DENSITY_GRID")`)
	require.Contains(t, main, "model.addInitFunction(initialMacroProperties)")

	// Spatial message declaration with its radius constant.
	require.Contains(t, main, `Boid_spatial_location_message = model.newMessageSpatial3D("Boid_spatial_location_message")`)
	require.Contains(t, main, "Boid_spatial_location_message.setRadius(MAX_SEARCH_RADIUS_Boid)")
	require.Contains(t, main, "MAX_SEARCH_RADIUS_Boid = ?")
	// Spatial messages carry position internally, so x, y, z are not
	// re-declared but the remaining variables are.
	require.NotContains(t, main, `Boid_spatial_location_message.newVariableFloat("x")`)
	require.Contains(t, main, `Boid_spatial_location_message.newVariableFloat("vx")`)
	require.Contains(t, main, `Boid_spatial_location_message.newVariableArrayInt("neighbours", 3)`)

	// Agent declaration with function wiring. The message name inside
	// the wiring calls keeps its historical trailing space.
	require.Contains(t, main, `Boid_agent = model.newAgent("Boid")`)
	require.Contains(t, main, `Boid_agent.newVariableFloat("x", 0.0)`)
	require.Contains(t, main, `Boid_agent.newVariableArrayInt("neighbours", 3)`)
	require.Contains(t, main, `Boid_agent.newRTCFunctionFile("output_location", output_location_file).setMessageOutput("Boid_spatial_location_message ")`)
	require.Contains(t, main, `Boid_agent.newRTCFunctionFile("steer", steer_file).setMessageInput("Boid_spatial_location_message ")`)

	// Function file declarations.
	require.Contains(t, main, `output_location_file = "output_location.cpp"`)
	require.Contains(t, main, `steer_file = "steer.cpp"`)

	// Layers in declaration order.
	require.Contains(t, main, `model.newLayer("Broadcast").addAgentFunction("Boid", "output_location")`)
	require.Contains(t, main, `model.newLayer("Steer").addAgentFunction("Boid", "steer")`)

	// Logging configuration and log processing.
	require.Contains(t, main, `Boid_agent_log = logging_config.agent("Boid")`)
	require.Contains(t, main, "Boid_agent_log.logCount()")
	require.Contains(t, main, `Boid_agent_log.logMean("vx")`)
	require.Contains(t, main, `            Boid_agents = step.getAgent("Boid")`)
	require.Contains(t, main, "            Boid_agent_counts[counter] = Boid_agents.getCount()")
	require.Contains(t, main, `            vx = Boid_agents.getSumFloat("vx")`)
}

func TestRenderVisualisation(t *testing.T) {
	t.Parallel()

	out := render(t, flockConfig())
	main := out.Main.Content

	require.Contains(t, main, "if pyflamegpu.VISUALISATION and VISUALISATION:")
	require.Contains(t, main, "    domain_width = 100.0")
	require.Contains(t, main, "    vis.setBeginPaused(True)")
	require.Contains(t, main, `    Boid_vis_agent = vis.addAgent("Boid")`)
	require.Contains(t, main, "    Boid_vis_agent.setModel(pyflamegpu.SPHERE)")
	require.Contains(t, main, `    Boid_vis_agent.setColor(pyflamegpu.HSVInterpolation.GREENRED("vx", -1.0, 1.0))`)
	require.Contains(t, main, "if pyflamegpu.VISUALISATION and VISUALISATION and not ENSEMBLE:")
	require.Equal(t, 24, strings.Count(main, "pen.addVertex(coord_boundary["))
}

func TestRenderStaticColorUsesAgentColor(t *testing.T) {
	t.Parallel()

	cfg := flockConfig()
	cfg.Visualization.Agents[0].ColorMode = model.ColorStatic
	out := render(t, cfg)

	require.Contains(t, out.Main.Content, `    Boid_vis_agent.setColor(pyflamegpu.Color("#e6194B"))`)
	require.NotContains(t, out.Main.Content, "HSVInterpolation")
}

func TestRenderEmptyModelFallbacks(t *testing.T) {
	t.Parallel()

	out := render(t, model.New("empty"))
	main := out.Main.Content

	require.Empty(t, out.Functions)
	require.Contains(t, main, "# No global variables defined")
	require.Contains(t, main, "# No model globals configured")
	require.Contains(t, main, "# No macro properties initialisation required")
	require.Contains(t, main, "# No agent function files declared")
	require.Contains(t, main, "# No location messages defined")
	require.Contains(t, main, "# No agents available")
	require.Contains(t, main, "layer_count = 0\n# No layers defined")
	require.Contains(t, main, "# No agents available for logging configuration")
	require.Contains(t, main, "            # No agent log data available")
	require.Contains(t, main, "# MAX_SEARCH_RADIUS constants can be declared per agent when spatial messages are in use")
	require.Contains(t, main, "# Visualisation disabled in configuration")
	require.Contains(t, main, "# Visualisation join disabled")
}

func TestRenderFunctionFileWithOutput(t *testing.T) {
	t.Parallel()

	out := render(t, flockConfig())
	var outputLocation string
	for _, f := range out.Functions {
		if f.Name == "output_location.cpp" {
			outputLocation = f.Content
		}
	}
	require.NotEmpty(t, outputLocation)

	require.Contains(t, outputLocation, "FLAMEGPU_AGENT_FUNCTION(output_location, flamegpu::MessageNone, flamegpu::MessageSpatial3D) {")
	require.Contains(t, outputLocation, `  float agent_x = FLAMEGPU->getVariable<float>("x");`)
	require.Contains(t, outputLocation, `  FLAMEGPU->setVariable<float>("x", agent_x);`)
	require.Contains(t, outputLocation, `  FLAMEGPU->message_out.setVariable<float>("vx", FLAMEGPU->getVariable<float>("vx"));`)
	// Array variables need a hand written size constant.
	require.Contains(t, outputLocation, "const uint8_t neighbours_ARRAY_SIZE = ?;")
	require.Contains(t, outputLocation, "return flamegpu::ALIVE;")
}

func TestRenderFunctionFileWithInput(t *testing.T) {
	t.Parallel()

	out := render(t, flockConfig())
	var steer string
	for _, f := range out.Functions {
		if f.Name == "steer.cpp" {
			steer = f.Content
		}
	}
	require.NotEmpty(t, steer)

	require.Contains(t, steer, "FLAMEGPU_AGENT_FUNCTION(steer, flamegpu::MessageSpatial3D, flamegpu::MessageNone) {")
	require.Contains(t, steer, "  //Define message variables (agent sending the input message)")
	require.Contains(t, steer, "  float message_vx = 0.0;")
	require.Contains(t, steer, "  for (const auto &message : FLAMEGPU->message_in(agent_x, agent_y, agent_z)) {")
	require.Contains(t, steer, `    message_vx = message.getVariable<float>("vx");`)
	// No output message section in the plain template.
	require.NotContains(t, steer, "message_out")
}

func TestRenderUnwiredInputFunction(t *testing.T) {
	t.Parallel()

	cfg := flockConfig()
	cfg.Connections = nil
	out := render(t, cfg)

	require.Contains(t, out.Main.Content, "# TODO: connect message input for Boid::steer")

	var steer string
	for _, f := range out.Functions {
		if f.Name == "steer.cpp" {
			steer = f.Content
		}
	}
	require.Contains(t, steer, "// WARNING: this function is not currently wired to any message source")
	require.Contains(t, steer, "// TODO: initialise message variables as needed")
	require.Contains(t, steer, "// TODO: process incoming message data")
}

func TestRenderBucketMessage(t *testing.T) {
	t.Parallel()

	cfg := model.New("net")
	node := model.NewAgentType("Node", 0)
	node.Functions = []model.AgentFunction{
		{Name: "publish", InputType: model.MessageNone, OutputType: model.MessageBucket},
	}
	cfg.Agents = []model.AgentType{node}
	out := render(t, cfg)
	main := out.Main.Content

	require.Contains(t, main, "Node_MAX_CONNECTIVITY = ? # the maximum expected connectivity of each node")
	require.Contains(t, main, "Node_N_NODES = ? # number of nodes in the bucket network")
	require.Contains(t, main, `Node_bucket_location_message = model.newMessageBucket("Node_bucket_location_message")`)
	require.Contains(t, main, "Node_bucket_location_message.setBounds(0,Node_N_NODES)")
	require.Contains(t, main, `Node_bucket_location_message.newVariableArrayUInt("linked_nodes", Node_MAX_CONNECTIVITY)`)
}

func TestRenderDeduplicatesMessagesPerAgentAndType(t *testing.T) {
	t.Parallel()

	cfg := model.New("dup")
	agent := model.NewAgentType("Cell", 0)
	agent.Functions = []model.AgentFunction{
		{Name: "a", OutputType: model.MessageSpatial3D},
		{Name: "b", OutputType: model.MessageSpatial3D},
	}
	cfg.Agents = []model.AgentType{agent}
	out := render(t, cfg)

	count := strings.Count(out.Main.Content, `Cell_spatial_location_message = model.newMessageSpatial3D`)
	require.Equal(t, 1, count)
}

func TestUnresolvedMarksAreDocumented(t *testing.T) {
	t.Parallel()

	out := render(t, flockConfig())
	require.NotEmpty(t, out.Unresolved)

	// Every remaining ? sits on a line that explains itself, either
	// through a comment or a recognisable constant assignment.
	for _, mark := range out.Unresolved {
		documented := strings.Contains(mark.Text, "#") ||
			strings.Contains(mark.Text, "//") ||
			strings.HasSuffix(mark.Text, "= ?") ||
			strings.HasSuffix(mark.Text, "= [?, ?, ?]")
		require.True(t, documented, "undocumented marker %s:%d: %s", mark.File, mark.Line, mark.Text)
	}
}

func TestRenderFallsBackToDefaultModelName(t *testing.T) {
	t.Parallel()

	out := render(t, model.New(""))
	require.Equal(t, "model", out.ModelName)
	require.Equal(t, "model.py", out.Main.Name)
}

func TestWriteFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := render(t, flockConfig())

	mainPath, err := WriteFiles(dir, out)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "flock", "flock.py"), mainPath)

	for _, name := range []string{"flock.py", "output_location.cpp", "steer.cpp", "handy_device_functions.cpp"} {
		_, err := os.Stat(filepath.Join(dir, "flock", name))
		require.NoError(t, err, "missing %s", name)
	}
}

func TestWriteFilesSkipsHelpersWithoutFunctions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := render(t, model.New("bare"))

	_, err := WriteFiles(dir, out)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "bare", "handy_device_functions.cpp"))
	require.True(t, os.IsNotExist(err))
}

func TestTemplateOverrideDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	custom := "# custom template for [PLACEHOLDER_MODEL_NAME]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main_template.txt"), []byte(custom), 0o600))

	out, err := Render(flockConfig(), Options{TemplateDir: dir, CreatedAt: time.Now()})
	require.NoError(t, err)
	require.Equal(t, "# custom template for flock\n", out.Main.Content)
	// Function templates were not overridden and fall back to the
	// embedded copies.
	require.NotEmpty(t, out.Functions)
	require.Contains(t, out.Functions[0].Content, "FLAMEGPU_AGENT_FUNCTION")
}

func TestFormatLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		varType string
		value   string
		want    string
	}{
		{model.TypeFloat, "1", "1.0"},
		{model.TypeFloat, "0.5", "0.5"},
		{model.TypeFloat, "", "0.0"},
		{model.TypeFloat, "abc", "0.0"},
		{model.TypeInt, "42", "42"},
		{model.TypeInt, "3.5", "0"},
		{model.TypeUInt8, "300", "255"},
		{model.TypeUInt8, "-5", "0"},
		{model.TypeUInt8, "128", "128"},
		{model.TypeArrayFloat, "[1, 2.5]", "[1.0, 2.5]"},
		{model.TypeArrayFloat, "1, 2", "[1.0, 2.0]"},
		{model.TypeArrayInt, "1, 2", "[1, 2]"},
		{model.TypeArrayInt, "1.5, 2", "[2]"},
		{model.TypeShape, "16, 16, 16", "16, 16, 16"},
		{model.TypeShape, "4.0, 8.0", "4, 8"},
		{model.TypeShape, "N_NODES, 4", "N_NODES, 4"},
		{model.TypeShape, "?", "?"},
		{model.TypeShape, "", "?"},
		{"", "7", "7.0"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, formatLiteral(tt.varType, tt.value), "type %q value %q", tt.varType, tt.value)
	}
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	require.Equal(t, "100.0", formatNumber(100))
	require.Equal(t, "0.5", formatNumber(0.5))
	require.Equal(t, "-3.0", formatNumber(-3))
	require.Equal(t, "1e+21", formatNumber(1e21))
}

func TestSafeNumericLiteral(t *testing.T) {
	t.Parallel()

	require.Equal(t, "?", safeNumericLiteral(""))
	require.Equal(t, "?", safeNumericLiteral("  "))
	require.Equal(t, "?", safeNumericLiteral("wide"))
	require.Equal(t, "50.0", safeNumericLiteral("50"))
	require.Equal(t, "12.5", safeNumericLiteral(" 12.5 "))
}
