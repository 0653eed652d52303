// Package runlog writes one JSON file per evaluation run so past
// runs can be inspected after the fact.
package runlog

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"prompetition/pkg/core"
)

// RunLog is the persisted record of one batch evaluation.
type RunLog struct {
	RunID      string                   `json:"run_id"`
	Created    string                   `json:"created"`
	TaskID     string                   `json:"task_id"`
	Tag        string                   `json:"tag,omitempty"`
	Model      string                   `json:"model"`
	Prompt     string                   `json:"prompt"`
	Score      float64                  `json:"score"`
	Snippets   []core.SnippetEvaluation `json:"snippets"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
}

// FromBatch builds a log entry for a batch evaluation.
func FromBatch(batch core.BatchEvaluation, model, prompt string) RunLog {
	return RunLog{
		RunID:      newRunID(),
		Created:    time.Now().UTC().Format(time.RFC3339),
		TaskID:     batch.TaskID,
		Tag:        batch.Tag,
		Model:      model,
		Prompt:     prompt,
		Score:      batch.Score,
		Snippets:   batch.Evaluations,
		StartedAt:  batch.StartedAt,
		FinishedAt: batch.FinishedAt,
	}
}

// Write stores the log under logDir and returns the file path.
func Write(logDir string, log RunLog) (string, error) {
	if logDir == "" {
		return "", fmt.Errorf("runlog: logDir is required")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(logDir, buildFileName(log))
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(log); err != nil {
		return "", err
	}
	return path, nil
}

func buildFileName(log RunLog) string {
	timestamp := time.Now().Format("2006-01-02T15-04-05")
	task := sanitizeName(log.TaskID)
	if task == "" {
		task = "task"
	}
	name := timestamp + "_" + task
	if log.Tag != "" {
		name += "_" + sanitizeName(log.Tag)
	}
	return name + "_" + log.RunID + ".json"
}

func sanitizeName(name string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", " ", "-", ":", "-")
	return replacer.Replace(name)
}

func newRunID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
