package repository

import (
	"context"
	"database/sql"
)

// PresetRepo handles reusable agent definitions.
type PresetRepo struct {
	db *sql.DB
}

func NewPresetRepo(db *sql.DB) *PresetRepo { return &PresetRepo{db: db} }

func (r *PresetRepo) Upsert(ctx context.Context, p AgentPreset) error {
	builtin := 0
	if p.Builtin {
		builtin = 1
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO agent_presets(id, name, definition, builtin, created_at, updated_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(name) DO UPDATE SET
	 definition=excluded.definition,
	 builtin=excluded.builtin,
	 updated_at=CURRENT_TIMESTAMP;
	`, p.ID, p.Name, p.Definition, builtin)
	return err
}

func (r *PresetRepo) List(ctx context.Context) ([]AgentPreset, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, definition, builtin, created_at, updated_at FROM agent_presets ORDER BY builtin DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AgentPreset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PresetRepo) GetByName(ctx context.Context, name string) (*AgentPreset, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, definition, builtin, created_at, updated_at FROM agent_presets WHERE name = ?`, name)
	p, err := scanPreset(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PresetRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM agent_presets WHERE id = ?`, id)
	return err
}

func scanPreset(row scanner) (AgentPreset, error) {
	var p AgentPreset
	var builtin int
	if err := row.Scan(&p.ID, &p.Name, &p.Definition, &builtin, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return AgentPreset{}, err
	}
	p.Builtin = builtin != 0
	return p, nil
}
