package repository

import (
	"context"
	"database/sql"
	"strings"
)

// ProjectFilters defines list filters.
type ProjectFilters struct {
	Search string
}

// ProjectRepo handles tracked model files.
type ProjectRepo struct {
	db *sql.DB
}

func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{db: db} }

func (r *ProjectRepo) Upsert(ctx context.Context, p Project) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO projects(id, name, path, description, agent_count, layer_count, content_hash, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(path) DO UPDATE SET
	 name=excluded.name,
	 description=excluded.description,
	 agent_count=excluded.agent_count,
	 layer_count=excluded.layer_count,
	 content_hash=excluded.content_hash,
	 updated_at=CURRENT_TIMESTAMP;
	`, p.ID, p.Name, p.Path, p.Description, p.AgentCount, p.LayerCount, p.ContentHash)
	return err
}

// Touch records that the project was opened.
func (r *ProjectRepo) Touch(ctx context.Context, path string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE projects SET last_opened_at = CURRENT_TIMESTAMP WHERE path = ?`, path)
	return err
}

func (r *ProjectRepo) List(ctx context.Context, f ProjectFilters) ([]Project, error) {
	var where []string
	var args []interface{}

	if f.Search != "" {
		where = append(where, "(name LIKE ? OR path LIKE ?)")
		args = append(args, "%"+f.Search+"%", "%"+f.Search+"%")
	}

	query := "SELECT id, name, path, description, agent_count, layer_count, content_hash, last_opened_at, created_at, updated_at FROM projects"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY last_opened_at IS NULL, last_opened_at DESC, name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProjectRepo) GetByPath(ctx context.Context, path string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, path, description, agent_count, layer_count, content_hash, last_opened_at, created_at, updated_at FROM projects WHERE path = ?`, path)
	p, err := scanProject(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	return err
}

// scanProject handles nullable fields for both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row scanner) (Project, error) {
	var p Project
	var lastOpened sql.NullTime
	if err := row.Scan(&p.ID, &p.Name, &p.Path, &p.Description, &p.AgentCount,
		&p.LayerCount, &p.ContentHash, &lastOpened, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Project{}, err
	}
	if lastOpened.Valid {
		p.LastOpenedAt = &lastOpened.Time
	}
	return p, nil
}
