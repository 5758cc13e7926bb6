package repository

import "time"

// Project represents a tracked model file row. ContentHash fingerprints
// the file so catalog scans can spot edits made outside the editor.
type Project struct {
	ID           string
	Name         string
	Path         string
	Description  string
	AgentCount   int
	LayerCount   int
	ContentHash  string
	LastOpenedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Export represents one export run row.
type Export struct {
	ID              string
	ProjectID       *string
	ModelName       string
	OutputDir       string
	MainFile        string
	FileCount       int
	UnresolvedCount int
	CreatedAt       time.Time
}

// AgentPreset represents a reusable agent definition row. Definition
// holds the JSON encoding of a model.AgentType.
type AgentPreset struct {
	ID         string
	Name       string
	Definition string
	Builtin    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
