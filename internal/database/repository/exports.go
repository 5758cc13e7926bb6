package repository

import (
	"context"
	"database/sql"
)

// ExportRepo handles export run history.
type ExportRepo struct {
	db *sql.DB
}

func NewExportRepo(db *sql.DB) *ExportRepo { return &ExportRepo{db: db} }

func (r *ExportRepo) Insert(ctx context.Context, e Export) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO exports(id, project_id, model_name, output_dir, main_file, file_count, unresolved_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, e.ID, e.ProjectID, e.ModelName, e.OutputDir, e.MainFile, e.FileCount, e.UnresolvedCount)
	return err
}

func (r *ExportRepo) ListRecent(ctx context.Context, limit int) ([]Export, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, project_id, model_name, output_dir, main_file, file_count, unresolved_count, created_at FROM exports ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectExports(rows)
}

func (r *ExportRepo) ListForProject(ctx context.Context, projectID string) ([]Export, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, project_id, model_name, output_dir, main_file, file_count, unresolved_count, created_at FROM exports WHERE project_id = ? ORDER BY created_at DESC, id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectExports(rows)
}

func collectExports(rows *sql.Rows) ([]Export, error) {
	var out []Export
	for rows.Next() {
		var e Export
		var projectID sql.NullString
		if err := rows.Scan(&e.ID, &projectID, &e.ModelName, &e.OutputDir, &e.MainFile,
			&e.FileCount, &e.UnresolvedCount, &e.CreatedAt); err != nil {
			return nil, err
		}
		if projectID.Valid {
			e.ProjectID = &projectID.String
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
