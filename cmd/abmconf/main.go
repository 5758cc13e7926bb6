package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	tea "github.com/charmbracelet/bubbletea"

	"abmconf/internal/config"
	"abmconf/internal/database"
	"abmconf/internal/database/repository"
	"abmconf/internal/llm"
	"abmconf/internal/model"
	"abmconf/internal/modelfile"
	"abmconf/internal/sample"
	"abmconf/internal/service"
	"abmconf/internal/tui"
)

func main() {
	openPath := flag.String("open", "", "open a model file in the editor")
	exportFlag := flag.Bool("export", false, "export -model to a simulation scaffold and exit")
	modelPath := flag.String("model", "", "model file for -export and -report")
	outPath := flag.String("out", "", "output directory for -export, output file for -report and -import")
	reportFlag := flag.Bool("report", false, "write the function spreadsheet for -model and exit")
	importPath := flag.String("import", "", "convert an exported scaffold back into a model file and exit")
	samplePath := flag.String("sample", "", "write the boids sample model to a path and exit")
	initFlag := flag.Bool("init", false, "create a new model interactively and exit")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Headless paths that need no catalog database.
	switch {
	case *samplePath != "":
		if err := sample.Write(*samplePath); err != nil {
			log.Fatalf("sample: %v", err)
		}
		fmt.Printf("Wrote the boids sample to %s\n", *samplePath)
		return
	case *reportFlag:
		runReport(*modelPath, *outPath)
		return
	case *importPath != "":
		runImport(cfg, *importPath, *outPath)
		return
	case *initFlag:
		runInitWizard(cfg)
		return
	}

	for _, dir := range []string{filepath.Dir(cfg.Database.Path), cfg.Paths.ConfigsDir, cfg.Paths.ExportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	if err := database.RunMigrations(cfg.Database.Path, "internal/database/migrations"); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := database.SeedDefaults(ctx, db); err != nil {
		log.Fatalf("seed defaults: %v", err)
	}

	projectRepo := repository.NewProjectRepo(db)
	exportRepo := repository.NewExportRepo(db)
	presetRepo := repository.NewPresetRepo(db)

	apiKey := llm.ResolveAPIKey(cfg.LLM.Provider, cfg.LLM.APIKeyEnv, cfg.LLM.APIKey)
	provider := llm.NewProviderFor(cfg.LLM.Provider, apiKey, cfg.LLM.Model)

	exporter := &service.ExportService{Projects: projectRepo, Exports: exportRepo, TemplateDir: cfg.Paths.TemplatesDir}
	catalog := &service.CatalogService{Projects: projectRepo}

	if *exportFlag {
		runExport(ctx, exporter, cfg, *modelPath, *outPath)
		return
	}

	app := tui.New(ctx, cfg,
		tui.Repos{Projects: projectRepo, Exports: exportRepo, Presets: presetRepo},
		tui.Services{
			Export:      exporter,
			Import:      &service.ImportService{},
			Report:      &service.ReportService{},
			Assist:      &service.AssistService{Provider: provider},
			Catalog:     catalog,
			Maintenance: &service.MaintenanceService{DB: db},
		},
	)

	if *openPath != "" {
		path, doc := loadModel(*openPath)
		app.SetModel(doc, path)
		if err := catalog.Remember(ctx, path, doc); err != nil {
			log.Printf("warn: catalog update failed: %v", err)
		}
	}

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

// loadModel reads a model file for a flag path, fatally on failure.
func loadModel(path string) (string, *model.Config) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	doc, err := modelfile.Load(abs)
	if err != nil {
		log.Fatalf("open %s: %v", path, err)
	}
	return abs, doc
}

func runExport(ctx context.Context, exporter *service.ExportService, cfg config.Config, modelPath, outDir string) {
	if modelPath == "" {
		log.Fatalf("export: -model is required")
	}
	path, doc := loadModel(modelPath)
	if outDir == "" {
		outDir = cfg.Paths.ExportsDir
	}
	res, err := exporter.Export(ctx, doc, path, outDir)
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	fmt.Printf("Exported %s: %d files under %s\n", res.ModelName, res.FileCount, res.OutputDir)
	if len(res.Issues) > 0 {
		fmt.Printf("%d validation notes:\n", len(res.Issues))
		for _, issue := range res.Issues {
			fmt.Printf("  - %s\n", issue.String())
		}
	}
	if len(res.Unresolved) > 0 {
		fmt.Printf("%d lines still carry a ? marker:\n", len(res.Unresolved))
		for _, mark := range res.Unresolved {
			fmt.Printf("  %s:%d  %s\n", mark.File, mark.Line, mark.Text)
		}
	}
}

func runReport(modelPath, out string) {
	if modelPath == "" {
		log.Fatalf("report: -model is required")
	}
	path, doc := loadModel(modelPath)
	if out == "" {
		out = service.DefaultReportPath(path)
	}
	reporter := &service.ReportService{}
	res, err := reporter.WriteFunctionReport(doc, out)
	if err != nil {
		log.Fatalf("report: %v", err)
	}
	fmt.Printf("Wrote %d function rows to %s\n", res.Rows, res.Path)
}

func runImport(cfg config.Config, scaffoldPath, out string) {
	importer := &service.ImportService{}
	doc, res, err := importer.ImportFile(scaffoldPath)
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	if out == "" {
		out = filepath.Join(cfg.Paths.ConfigsDir, doc.Name+modelfile.Ext)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		log.Fatalf("import: %v", err)
	}
	if err := modelfile.Save(out, doc); err != nil {
		log.Fatalf("import: %v", err)
	}
	fmt.Printf("Imported %d agents, %d globals, %d layers, %d connections.\n",
		res.Agents, res.Globals, res.Layers, res.Connections)
	for _, warn := range res.Warnings {
		fmt.Printf("  warning: %s\n", warn)
	}
	fmt.Printf("Wrote %s\n", out)
}

// runInitWizard walks through the minimum questions for a fresh model
// and writes it into the configs directory.
func runInitWizard(cfg config.Config) {
	var name string
	err := survey.AskOne(&survey.Input{
		Message: "Model name:",
		Default: "new_model",
	}, &name, survey.WithValidator(survey.Required))
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	name = strings.TrimSpace(name)

	var width string
	err = survey.AskOne(&survey.Input{
		Message: "Environment domain width:",
		Default: "1.0",
	}, &width)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	var agentsLine string
	err = survey.AskOne(&survey.Input{
		Message: "Starter agent types (comma separated):",
		Default: "Agent",
	}, &agentsLine)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	var withVis bool
	err = survey.AskOne(&survey.Confirm{
		Message: "Enable visualization?",
		Default: true,
	}, &withVis)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	doc := model.New(name)
	for _, raw := range strings.Split(agentsLine, ",") {
		agentName := strings.TrimSpace(raw)
		if agentName == "" {
			continue
		}
		doc.Agents = append(doc.Agents, model.NewAgentType(agentName, len(doc.Agents)))
	}
	if withVis {
		vis := &model.VisualizationSettings{Activated: true, DomainWidth: strings.TrimSpace(width)}
		for _, agent := range doc.Agents {
			vis.Agents = append(vis.Agents, model.AgentVisualization{
				AgentName: agent.Name,
				Include:   true,
				Shape:     model.DefaultShape,
				ColorMode: model.DefaultColorMode,
			})
		}
		doc.Visualization = vis
	}

	path := filepath.Join(cfg.Paths.ConfigsDir, name+modelfile.Ext)
	if err := os.MkdirAll(cfg.Paths.ConfigsDir, 0o755); err != nil {
		log.Fatalf("init: %v", err)
	}
	if err := modelfile.Save(path, doc); err != nil {
		log.Fatalf("init: %v", err)
	}
	fmt.Printf("Created %s\n", path)
}
