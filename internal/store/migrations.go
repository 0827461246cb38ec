package store

import (
	"database/sql"
	"fmt"
)

// migration is one ordered, idempotent schema step. Applied ids are recorded
// in schema_migrations so each step runs exactly once per database.
type migration struct {
	id  string
	sql string
}

var migrations = []migration{
	{
		id: "001_runs",
		sql: `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    prompt_text TEXT NOT NULL,
    tools_enabled TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`,
	},
	{
		id: "002_model_responses",
		sql: `
CREATE TABLE IF NOT EXISTS model_responses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    model_id TEXT NOT NULL,
    model_name TEXT NOT NULL,
    output_text TEXT,
    reasoning_text TEXT,
    tool_calls TEXT,
    status TEXT NOT NULL,
    error_message TEXT,
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP,
    duration_ms INTEGER,
    token_count_input INTEGER,
    token_count_output INTEGER,
    config TEXT
);

CREATE INDEX IF NOT EXISTS idx_model_responses_run_id ON model_responses(run_id);
CREATE INDEX IF NOT EXISTS idx_model_responses_model_id ON model_responses(model_id);
`,
	},
	{
		id: "003_evaluations",
		sql: `
CREATE TABLE IF NOT EXISTS evaluations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    judge_model TEXT NOT NULL,
    evaluation_prompt TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS evaluation_scores (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    evaluation_id INTEGER NOT NULL REFERENCES evaluations(id) ON DELETE CASCADE,
    model_response_id INTEGER NOT NULL REFERENCES model_responses(id) ON DELETE CASCADE,
    score REAL NOT NULL,
    reasoning TEXT,
    criteria_scores TEXT,
    raw_response TEXT
);

CREATE INDEX IF NOT EXISTS idx_evaluations_run_id ON evaluations(run_id);
CREATE INDEX IF NOT EXISTS idx_evaluation_scores_evaluation_id ON evaluation_scores(evaluation_id);
`,
	},
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
    id TEXT PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var applied int
		if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE id = ?`, m.id).Scan(&applied); err != nil {
			return fmt.Errorf("checking migration %s: %w", m.id, err)
		}
		if applied > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %s: %w", m.id, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (id) VALUES (?)`, m.id); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", m.id, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", m.id, err)
		}
	}

	return nil
}
