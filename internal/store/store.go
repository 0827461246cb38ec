package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hochfrequenz/litmus/internal/domain"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for runs, responses and
// evaluations. Its lifecycle is owned by the caller: construct once at
// startup, inject where needed, Close on shutdown.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies pending
// migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a run row and returns its id.
func (s *Store) CreateRun(promptText string, toolsEnabled []string) (int64, error) {
	var tools any
	if len(toolsEnabled) > 0 {
		data, err := json.Marshal(toolsEnabled)
		if err != nil {
			return 0, err
		}
		tools = string(data)
	}

	res, err := s.db.Exec(`INSERT INTO runs (prompt_text, tools_enabled, created_at) VALUES (?, ?, ?)`,
		promptText, tools, time.Now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetRun retrieves a run by id.
func (s *Store) GetRun(id int64) (*domain.Run, error) {
	row := s.db.QueryRow(`SELECT id, prompt_text, tools_enabled, created_at FROM runs WHERE id = ?`, id)

	var run domain.Run
	var tools sql.NullString
	if err := row.Scan(&run.ID, &run.PromptText, &tools, &run.CreatedAt); err != nil {
		return nil, err
	}
	if tools.Valid && tools.String != "" {
		if err := json.Unmarshal([]byte(tools.String), &run.ToolsEnabled); err != nil {
			return nil, fmt.Errorf("decoding tools_enabled for run %d: %w", id, err)
		}
	}
	return &run, nil
}

// RecentRuns returns runs newest first, with response counts and the average
// score of each run's evaluations when present.
func (s *Store) RecentRuns(limit, offset int) ([]domain.RunSummary, error) {
	rows, err := s.db.Query(`
		SELECT
			r.id, r.prompt_text, r.tools_enabled, r.created_at,
			COUNT(DISTINCT mr.id) AS model_count,
			AVG(es.score) AS avg_score,
			CASE WHEN COUNT(e.id) > 0 THEN 1 ELSE 0 END AS has_evaluation
		FROM runs r
		LEFT JOIN model_responses mr ON mr.run_id = r.id
		LEFT JOIN evaluations e ON e.run_id = r.id
		LEFT JOIN evaluation_scores es ON es.evaluation_id = e.id
		GROUP BY r.id
		ORDER BY r.created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.RunSummary
	for rows.Next() {
		var sum domain.RunSummary
		var tools sql.NullString
		var avg sql.NullFloat64
		var hasEval int
		if err := rows.Scan(&sum.ID, &sum.PromptText, &tools, &sum.CreatedAt, &sum.ModelCount, &avg, &hasEval); err != nil {
			return nil, err
		}
		if tools.Valid && tools.String != "" {
			if err := json.Unmarshal([]byte(tools.String), &sum.ToolsEnabled); err != nil {
				return nil, err
			}
		}
		if avg.Valid {
			v := avg.Float64
			sum.AvgScore = &v
		}
		sum.HasEvaluation = hasEval == 1
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// CreateResponse inserts one model response row and returns its id.
func (s *Store) CreateResponse(resp *domain.ModelResponse) (int64, error) {
	var toolCalls, config any
	if len(resp.ToolCalls) > 0 {
		data, err := json.Marshal(resp.ToolCalls)
		if err != nil {
			return 0, err
		}
		toolCalls = string(data)
	}
	if resp.Config != nil {
		data, err := json.Marshal(resp.Config)
		if err != nil {
			return 0, err
		}
		config = string(data)
	}

	res, err := s.db.Exec(`
		INSERT INTO model_responses (
			run_id, model_id, model_name, output_text, reasoning_text, tool_calls,
			status, error_message, start_time, end_time, duration_ms,
			token_count_input, token_count_output, config
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		resp.RunID,
		resp.ModelID,
		resp.ModelName,
		nullifyString(resp.OutputText),
		nullifyString(resp.ReasoningText),
		toolCalls,
		string(resp.Status),
		nullifyString(resp.ErrorMessage),
		resp.StartTime,
		nullableTime(resp.EndTime),
		nullableInt64(resp.DurationMS),
		nullableInt(resp.TokensInput),
		nullableInt(resp.TokensOutput),
		config,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetResponsesForRun returns all responses for a run in insertion order.
func (s *Store) GetResponsesForRun(runID int64) ([]domain.ModelResponse, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, model_id, model_name, output_text, reasoning_text, tool_calls,
			status, error_message, start_time, end_time, duration_ms,
			token_count_input, token_count_output, config
		FROM model_responses
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []domain.ModelResponse
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, *resp)
	}
	return responses, rows.Err()
}

// CreateEvaluation inserts an evaluation row and returns its id.
func (s *Store) CreateEvaluation(runID int64, judgeModel, evaluationPrompt string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO evaluations (run_id, judge_model, evaluation_prompt, created_at)
		VALUES (?, ?, ?, ?)
	`, runID, judgeModel, evaluationPrompt, time.Now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CreateEvaluationScore inserts one score row and returns its id.
func (s *Store) CreateEvaluationScore(score *domain.EvaluationScore) (int64, error) {
	var criteria any
	if len(score.CriteriaScores) > 0 {
		data, err := json.Marshal(score.CriteriaScores)
		if err != nil {
			return 0, err
		}
		criteria = string(data)
	}

	res, err := s.db.Exec(`
		INSERT INTO evaluation_scores (
			evaluation_id, model_response_id, score, reasoning, criteria_scores, raw_response
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		score.EvaluationID,
		score.ResponseID,
		score.Score,
		nullifyString(score.Reasoning),
		criteria,
		nullifyString(score.RawResponse),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetLatestEvaluationForRun returns the most recent evaluation for a run with
// its scores joined to model identity, sorted descending by score. Returns
// sql.ErrNoRows when the run has no evaluation.
func (s *Store) GetLatestEvaluationForRun(runID int64) (*domain.EvaluationWithScores, error) {
	row := s.db.QueryRow(`
		SELECT id, run_id, judge_model, evaluation_prompt, created_at
		FROM evaluations
		WHERE run_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, runID)

	var eval domain.EvaluationWithScores
	if err := row.Scan(&eval.ID, &eval.RunID, &eval.JudgeModel, &eval.EvaluationPrompt, &eval.CreatedAt); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT es.id, es.evaluation_id, es.model_response_id, es.score,
			es.reasoning, es.criteria_scores, es.raw_response,
			mr.model_id, mr.model_name
		FROM evaluation_scores es
		JOIN model_responses mr ON mr.id = es.model_response_id
		WHERE es.evaluation_id = ?
		ORDER BY es.score DESC
	`, eval.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sc domain.ScoredResponse
		var reasoning, criteria, raw sql.NullString
		if err := rows.Scan(&sc.ID, &sc.EvaluationID, &sc.ResponseID, &sc.Score,
			&reasoning, &criteria, &raw, &sc.ModelID, &sc.ModelName); err != nil {
			return nil, err
		}
		sc.Reasoning = reasoning.String
		sc.RawResponse = raw.String
		if criteria.Valid && criteria.String != "" {
			if err := json.Unmarshal([]byte(criteria.String), &sc.CriteriaScores); err != nil {
				return nil, err
			}
		}
		eval.Scores = append(eval.Scores, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &eval, nil
}

// ModelAverages returns each model's mean judge score across all
// evaluations, best first.
func (s *Store) ModelAverages() ([]domain.ModelAverage, error) {
	rows, err := s.db.Query(`
		SELECT mr.model_id, mr.model_name, AVG(es.score) AS avg_score, COUNT(es.id) AS eval_count
		FROM evaluation_scores es
		JOIN model_responses mr ON mr.id = es.model_response_id
		GROUP BY mr.model_id
		ORDER BY avg_score DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var averages []domain.ModelAverage
	for rows.Next() {
		var avg domain.ModelAverage
		if err := rows.Scan(&avg.ModelID, &avg.ModelName, &avg.AvgScore, &avg.EvalCount); err != nil {
			return nil, err
		}
		averages = append(averages, avg)
	}
	return averages, rows.Err()
}

func scanResponse(rows *sql.Rows) (*domain.ModelResponse, error) {
	var resp domain.ModelResponse
	var output, reasoning, toolCalls, errMsg, config sql.NullString
	var endTime sql.NullTime
	var duration sql.NullInt64
	var tokensIn, tokensOut sql.NullInt64
	var status string

	err := rows.Scan(&resp.ID, &resp.RunID, &resp.ModelID, &resp.ModelName,
		&output, &reasoning, &toolCalls, &status, &errMsg,
		&resp.StartTime, &endTime, &duration, &tokensIn, &tokensOut, &config)
	if err != nil {
		return nil, err
	}

	resp.OutputText = output.String
	resp.ReasoningText = reasoning.String
	resp.ErrorMessage = errMsg.String
	resp.Status = domain.ResponseStatus(status)
	if toolCalls.Valid && toolCalls.String != "" {
		if err := json.Unmarshal([]byte(toolCalls.String), &resp.ToolCalls); err != nil {
			return nil, fmt.Errorf("decoding tool_calls for response %d: %w", resp.ID, err)
		}
	}
	if config.Valid && config.String != "" {
		var cfg domain.ModelConfig
		if err := json.Unmarshal([]byte(config.String), &cfg); err != nil {
			return nil, fmt.Errorf("decoding config for response %d: %w", resp.ID, err)
		}
		resp.Config = &cfg
	}
	if endTime.Valid {
		t := endTime.Time
		resp.EndTime = &t
	}
	if duration.Valid {
		d := duration.Int64
		resp.DurationMS = &d
	}
	if tokensIn.Valid {
		n := int(tokensIn.Int64)
		resp.TokensInput = &n
	}
	if tokensOut.Valid {
		n := int(tokensOut.Int64)
		resp.TokensOutput = &n
	}

	return &resp, nil
}

func nullifyString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableInt64(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullableInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}
