// Package scaffold turns an edited simulation project into runnable
// source scaffolding: a Python driver for the GPU framework plus one
// CUDA file per agent function. Rendering is pure text substitution
// into fixed templates, so output is deterministic for a given model
// and timestamp.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"abmconf/internal/model"
)

//go:embed templates
var templateFS embed.FS

// Template file names, resolvable against an override directory.
const (
	mainTemplateName         = "main_template.txt"
	funcLocationTemplateName = "func_location_template.txt"
	funcAnyTemplateName      = "func_any_template.txt"
	handyTemplateName        = "handy_device_functions_template.cpp"
)

// HelperFileName is the name the device helper collection is written
// under next to the generated function files.
const HelperFileName = "handy_device_functions.cpp"

// DefaultModelName is used when a project has no name yet.
const DefaultModelName = "model"

// File is one rendered output document.
type File struct {
	Name    string
	Content string
}

// Mark points at a ? marker the user has to resolve by hand before the
// generated scaffold can run.
type Mark struct {
	File string
	Line int
	Text string
}

// Output is the full set of rendered documents for one export.
type Output struct {
	ModelName  string
	Main       File
	Functions  []File
	Helpers    File
	Unresolved []Mark
}

// Options control template resolution and the generation timestamp.
type Options struct {
	// TemplateDir overrides individual embedded templates. Files not
	// present in the directory fall back to the embedded copies.
	TemplateDir string
	// CreatedAt is stamped into the generated header. Zero means now.
	CreatedAt time.Time
}

type replacement struct {
	placeholder string
	value       string
}

func applyReplacements(template string, replacements []replacement) string {
	for _, r := range replacements {
		template = strings.ReplaceAll(template, r.placeholder, r.value)
	}
	return template
}

// Render fills the main template and one function template per agent
// function. It never touches the filesystem beyond reading template
// overrides.
func Render(cfg *model.Config, opts Options) (*Output, error) {
	name := cfg.Name
	if name == "" {
		name = DefaultModelName
	}
	createdAt := opts.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	mainTemplate, err := loadTemplate(opts.TemplateDir, mainTemplateName)
	if err != nil {
		return nil, err
	}
	locationTemplate, err := loadTemplate(opts.TemplateDir, funcLocationTemplateName)
	if err != nil {
		return nil, err
	}
	anyTemplate, err := loadTemplate(opts.TemplateDir, funcAnyTemplateName)
	if err != nil {
		return nil, err
	}
	helpers, err := loadTemplate(opts.TemplateDir, handyTemplateName)
	if err != nil {
		return nil, err
	}

	messagesBlock, spatialAgents := renderMessages(cfg.Agents)
	visBlockOne, visBlockTwo := renderVisualisationBlocks(cfg.Agents, cfg.Visualization)

	main := applyReplacements(mainTemplate, []replacement{
		{"[PLACEHOLDER_MODEL_NAME]", name},
		{"[PLACEHOLDER_DATE]", createdAt.Format("02/01/2006 - 15:04:05")},
		{"[PLACEHOLDER_ALL_GLOBALS]", renderAllGlobals(cfg.Globals)},
		{"[PLACEHODER_MODEL_GLOBALS]", renderModelGlobals(cfg.Globals)},
		{"[PLACEHOLDER_FUNCTION_FILES]", renderFunctionFiles(cfg.Agents)},
		{"[PLACEHOLDER_MESSAGES]", messagesBlock},
		{"[PLACEHOLDER_AGENTS]", renderAgents(cfg.Agents, cfg.Connections)},
		{"[PLACEHOLDER_LAYERS]", renderLayers(cfg.Layers)},
		{"[PLACEHOLDER_LOGGING]", renderLogging(cfg.Agents)},
		{"[PLACEHOLDER_VISUALIZATION_1]", visBlockOne},
		{"[PLACEHOLDER_VISUALIZATION_2]", visBlockTwo},
		{"[PLACEHOLDER_AGENT_LOGS]", renderAgentLogs(cfg.Agents)},
		{"[PLACEHOLDER_INIT_MACRO_PROPERTIES]", renderMacroInitialisation(cfg.Globals)},
	})
	// Spatial constants depend on the rendered message blocks, so they
	// are substituted in a second pass.
	main = strings.ReplaceAll(main, "[PLACEHOLDER_MAX_SEARCH_RADIUS_AGENT_i_NAME]", renderSpatialConstants(spatialAgents))

	out := &Output{
		ModelName: name,
		Main:      File{Name: name + ".py", Content: main},
		Helpers:   File{Name: HelperFileName, Content: helpers},
	}

	inputMap := buildInputMap(cfg.Connections)
	for _, agent := range cfg.Agents {
		for _, fn := range agent.Functions {
			if fn.Name == "" {
				continue
			}
			template := anyTemplate
			if orMessageNone(fn.OutputType) != model.MessageNone {
				template = locationTemplate
			}
			var sourceAgent *model.AgentType
			if srcName := inputSourceAgent(agent.Name, fn.Name, orMessageNone(fn.InputType), inputMap); srcName != "" {
				sourceAgent = cfg.Agent(srcName)
			}
			out.Functions = append(out.Functions, File{
				Name:    fn.Name + ".cpp",
				Content: renderFunctionSource(template, agent, fn, sourceAgent),
			})
		}
	}

	out.Unresolved = collectMarks(out)
	return out, nil
}

func loadTemplate(dir, name string) (string, error) {
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("reading template %s: %w", name, err)
		}
	}
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("reading embedded template %s: %w", name, err)
	}
	return string(data), nil
}

// collectMarks lists every line still carrying a ? marker, in output
// order, so the editor can show what remains to be filled in.
func collectMarks(out *Output) []Mark {
	var marks []Mark
	files := append([]File{out.Main}, out.Functions...)
	for _, f := range files {
		for i, line := range strings.Split(f.Content, "\n") {
			if strings.Contains(line, "?") {
				marks = append(marks, Mark{File: f.Name, Line: i + 1, Text: strings.TrimSpace(line)})
			}
		}
	}
	return marks
}

// WriteFiles writes a rendered export under outputDir/<model name>/,
// creating the directory as needed, and returns the path of the main
// driver file.
func WriteFiles(outputDir string, out *Output) (string, error) {
	exportRoot := filepath.Join(outputDir, out.ModelName)
	if err := os.MkdirAll(exportRoot, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	for _, f := range out.Functions {
		if err := os.WriteFile(filepath.Join(exportRoot, f.Name), []byte(f.Content), 0o644); err != nil {
			return "", fmt.Errorf("writing %s: %w", f.Name, err)
		}
	}
	if len(out.Functions) > 0 {
		if err := os.WriteFile(filepath.Join(exportRoot, out.Helpers.Name), []byte(out.Helpers.Content), 0o644); err != nil {
			return "", fmt.Errorf("writing %s: %w", out.Helpers.Name, err)
		}
	}
	mainPath := filepath.Join(exportRoot, out.Main.Name)
	if err := os.WriteFile(mainPath, []byte(out.Main.Content), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", out.Main.Name, err)
	}
	return mainPath, nil
}
