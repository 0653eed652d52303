// Package leaderboard persists prompt runs and ranks them per task.
// Scores accumulate per (user, task, prompt, parameters) so repeated
// runs of the same prompt average out instead of overwriting.
package leaderboard

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store is a SQLite-backed run store.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database file, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if path == "" {
		path = filepath.Join("persistence", "sql.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("leaderboard: creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("leaderboard: opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			user_name TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS prompts (
			prompt_id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT,
			task_id TEXT,
			prompt TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS prompt_runs (
			run_id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT,
			task_id TEXT,
			prompt_id INTEGER,
			creation_date TEXT,
			open_score REAL,
			open_runs INTEGER,
			hidden_score REAL,
			hidden_runs INTEGER,
			parameters_json TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("leaderboard: creating schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// UpsertUser records or renames a user.
func (s *Store) UpsertUser(userID, userName string) error {
	_, err := s.db.Exec(`
		INSERT INTO users (user_id, user_name) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET user_name = excluded.user_name`,
		userID, userName)
	if err != nil {
		return fmt.Errorf("leaderboard: upserting user: %w", err)
	}
	return nil
}

// Run is one evaluation outcome to be folded into the store.
type Run struct {
	UserID      string
	TaskID      string
	Prompt      string
	OpenScore   float64
	OpenRuns    int
	HiddenScore float64
	HiddenRuns  int
	Parameters  any
}

// RecordRun stores the run, accumulating into the existing row for
// the same user, task, prompt and parameters when there is one.
func (s *Store) RecordRun(run Run) error {
	promptID, err := s.promptID(run.UserID, run.TaskID, run.Prompt)
	if err != nil {
		return err
	}

	params, err := json.Marshal(run.Parameters)
	if err != nil {
		return fmt.Errorf("leaderboard: encoding parameters: %w", err)
	}

	var runID int64
	err = s.db.QueryRow(`
		SELECT run_id FROM prompt_runs
		WHERE user_id = ? AND task_id = ? AND prompt_id = ? AND parameters_json = ?`,
		run.UserID, run.TaskID, promptID, string(params)).Scan(&runID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.Exec(`
			INSERT INTO prompt_runs
				(user_id, task_id, prompt_id, creation_date,
				 open_score, open_runs, hidden_score, hidden_runs, parameters_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.UserID, run.TaskID, promptID,
			time.Now().Format("2006-01-02 15:04:05"),
			run.OpenScore, run.OpenRuns, run.HiddenScore, run.HiddenRuns, string(params))
	case err == nil:
		_, err = s.db.Exec(`
			UPDATE prompt_runs
			SET open_score = open_score + ?, open_runs = open_runs + ?,
			    hidden_score = hidden_score + ?, hidden_runs = hidden_runs + ?
			WHERE run_id = ?`,
			run.OpenScore, run.OpenRuns, run.HiddenScore, run.HiddenRuns, runID)
	}
	if err != nil {
		return fmt.Errorf("leaderboard: recording run: %w", err)
	}
	return nil
}

func (s *Store) promptID(userID, taskID, prompt string) (int64, error) {
	var id int64
	err := s.db.QueryRow(`
		SELECT prompt_id FROM prompts
		WHERE user_id = ? AND task_id = ? AND prompt = ?`,
		userID, taskID, prompt).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("leaderboard: looking up prompt: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO prompts (user_id, task_id, prompt) VALUES (?, ?, ?)`,
		userID, taskID, prompt)
	if err != nil {
		return 0, fmt.Errorf("leaderboard: inserting prompt: %w", err)
	}
	return res.LastInsertId()
}

// Row is one leaderboard entry: a user's best run for the task,
// averaged over accumulated runs.
type Row struct {
	RunID       int64
	UserID      string
	UserName    string
	TaskID      string
	Prompt      string
	HiddenValue float64
	OpenValue   float64
	Parameters  json.RawMessage
	CreatedAt   string
}

// Board ranks each user's best run by hidden average, ties broken by
// earliest submission.
func (s *Store) Board(taskID string) ([]Row, error) {
	rows, err := s.db.Query(`
		WITH calculated AS (
			SELECT
				run_id, user_id, task_id, prompt_id, parameters_json, creation_date,
				CASE WHEN hidden_runs > 0 THEN hidden_score / hidden_runs ELSE 0 END AS hidden_value,
				CASE WHEN open_runs > 0 THEN open_score / open_runs ELSE 0 END AS open_value
			FROM prompt_runs
			WHERE task_id = ?
		),
		ranked AS (
			SELECT *,
				ROW_NUMBER() OVER (
					PARTITION BY user_id, task_id
					ORDER BY hidden_value DESC
				) AS rn
			FROM calculated
		)
		SELECT r.run_id, r.user_id, u.user_name, r.task_id, p.prompt,
		       r.hidden_value, r.open_value, r.parameters_json, r.creation_date
		FROM ranked r
		JOIN users u ON r.user_id = u.user_id
		JOIN prompts p ON r.prompt_id = p.prompt_id
		WHERE r.rn = 1
		ORDER BY r.hidden_value DESC, r.creation_date ASC`,
		taskID)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: querying board: %w", err)
	}
	defer rows.Close()

	var board []Row
	for rows.Next() {
		var row Row
		var params sql.NullString
		if err := rows.Scan(&row.RunID, &row.UserID, &row.UserName, &row.TaskID,
			&row.Prompt, &row.HiddenValue, &row.OpenValue, &params, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("leaderboard: scanning board row: %w", err)
		}
		if params.Valid {
			row.Parameters = json.RawMessage(params.String)
		}
		board = append(board, row)
	}
	return board, rows.Err()
}

// PromptStats summarizes one stored prompt's accumulated scores.
type PromptStats struct {
	Prompt      string
	OpenScore   float64
	OpenRuns    int
	HiddenScore float64
	HiddenRuns  int
	Parameters  json.RawMessage
}

// TopPrompts returns the k best prompts for a task by hidden average.
func (s *Store) TopPrompts(taskID string, k int) ([]PromptStats, error) {
	return s.topPrompts(`
		SELECT p.prompt, pr.open_score, pr.open_runs, pr.hidden_score, pr.hidden_runs, pr.parameters_json
		FROM prompt_runs pr
		JOIN prompts p ON pr.prompt_id = p.prompt_id
		WHERE pr.task_id = ?
		ORDER BY CASE WHEN pr.hidden_runs > 0 THEN pr.hidden_score / pr.hidden_runs ELSE 0 END DESC
		LIMIT ?`, taskID, k)
}

// TopUserPrompts returns the k best prompts one user submitted for a
// task.
func (s *Store) TopUserPrompts(userID, taskID string, k int) ([]PromptStats, error) {
	return s.topPrompts(`
		SELECT p.prompt, pr.open_score, pr.open_runs, pr.hidden_score, pr.hidden_runs, pr.parameters_json
		FROM prompt_runs pr
		JOIN prompts p ON pr.prompt_id = p.prompt_id
		WHERE pr.task_id = ? AND pr.user_id = ?
		ORDER BY CASE WHEN pr.hidden_runs > 0 THEN pr.hidden_score / pr.hidden_runs ELSE 0 END DESC
		LIMIT ?`, taskID, userID, k)
}

func (s *Store) topPrompts(query string, args ...any) ([]PromptStats, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: querying prompts: %w", err)
	}
	defer rows.Close()

	var stats []PromptStats
	for rows.Next() {
		var st PromptStats
		var params sql.NullString
		if err := rows.Scan(&st.Prompt, &st.OpenScore, &st.OpenRuns,
			&st.HiddenScore, &st.HiddenRuns, &params); err != nil {
			return nil, fmt.Errorf("leaderboard: scanning prompt row: %w", err)
		}
		if params.Valid {
			st.Parameters = json.RawMessage(params.String)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
