// Package task loads prompt tasks from a data directory. A task
// directory holds an info.json describing the scoring configuration
// plus one subdirectory per snippet with the snippet text and its
// expected answer.
package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"prompetition/pkg/core"
	"prompetition/pkg/matcher"
	"prompetition/pkg/transform"
)

// Info is the parsed shape of a task's info.json.
type Info struct {
	ID               string                 `json:"id"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description"`
	AnswerType       string                 `json:"answer_type"`
	Matcher          string                 `json:"matcher"`
	ReplyPipe        []transform.StepConfig `json:"reply_pipe"`
	AnswerPipe       []transform.StepConfig `json:"answer_pipe"`
	SamplePromptPath string                 `json:"sample_prompt_pth"`
	Exposed          bool                   `json:"exposed"`
	LLM              string                 `json:"llm,omitempty"`
	OpenSnippets     []string               `json:"open_snippets"`
	HiddenSnippets   []string               `json:"hidden_snippets"`
}

// Task is a loaded task: immutable snippet data plus the reply and
// answer pipelines, reused across many evaluation requests.
type Task struct {
	Info Info
	Dir  string

	ReplyPipe  *transform.Pipeline
	AnswerPipe *transform.Pipeline

	open   []core.Snippet
	hidden []core.Snippet
	index  map[string]core.Snippet
}

// Load reads a task directory. Pipeline definitions and the matcher
// name are validated here, before any evaluation runs.
func Load(dir string) (*Task, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "info.json"))
	if err != nil {
		return nil, fmt.Errorf("task: reading info.json: %w", err)
	}
	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("task: parsing info.json: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("task: %s: info.json has no id", dir)
	}

	replyPipe, err := transform.NewPipeline(info.ReplyPipe, info.AnswerType)
	if err != nil {
		return nil, fmt.Errorf("task %s: reply pipe: %w", info.ID, err)
	}
	answerPipe, err := transform.NewPipeline(info.AnswerPipe, info.AnswerType)
	if err != nil {
		return nil, fmt.Errorf("task %s: answer pipe: %w", info.ID, err)
	}
	if _, err := matcher.FromName(info.Matcher); err != nil {
		return nil, fmt.Errorf("task %s: %w", info.ID, err)
	}

	t := &Task{
		Info:       info,
		Dir:        dir,
		ReplyPipe:  replyPipe,
		AnswerPipe: answerPipe,
		index:      make(map[string]core.Snippet),
	}
	if t.open, err = t.loadSnippets(info.OpenSnippets); err != nil {
		return nil, fmt.Errorf("task %s: %w", info.ID, err)
	}
	if t.hidden, err = t.loadSnippets(info.HiddenSnippets); err != nil {
		return nil, fmt.Errorf("task %s: %w", info.ID, err)
	}
	return t, nil
}

func (t *Task) loadSnippets(rels []string) ([]core.Snippet, error) {
	snippets := make([]core.Snippet, 0, len(rels))
	for _, rel := range rels {
		dir := filepath.Join(t.Dir, filepath.FromSlash(rel))
		text, err := os.ReadFile(filepath.Join(dir, "task.txt"))
		if err != nil {
			return nil, fmt.Errorf("snippet %s: %w", rel, err)
		}
		answer, err := os.ReadFile(filepath.Join(dir, "answer.json"))
		if err != nil {
			return nil, fmt.Errorf("snippet %s: %w", rel, err)
		}
		s := core.Snippet{
			ID:     filepath.Base(rel),
			Text:   string(text),
			Answer: string(answer),
		}
		if _, dup := t.index[s.ID]; dup {
			return nil, fmt.Errorf("snippet %s: duplicate id", s.ID)
		}
		t.index[s.ID] = s
		snippets = append(snippets, s)
	}
	return snippets, nil
}

func (t *Task) ID() string          { return t.Info.ID }
func (t *Task) Title() string       { return t.Info.Title }
func (t *Task) Description() string { return t.Info.Description }

// TitleWithID renders "Title (id)" for listings.
func (t *Task) TitleWithID() string {
	return fmt.Sprintf("%s (%s)", t.Info.Title, t.Info.ID)
}

// SamplePrompt reads the task's example prompt, if configured.
func (t *Task) SamplePrompt() (string, error) {
	if t.Info.SamplePromptPath == "" {
		return "", nil
	}
	raw, err := os.ReadFile(filepath.Join(t.Dir, filepath.FromSlash(t.Info.SamplePromptPath)))
	if err != nil {
		return "", fmt.Errorf("task %s: sample prompt: %w", t.Info.ID, err)
	}
	return string(raw), nil
}

// OpenSnippets returns the publicly visible snippets in info.json
// order.
func (t *Task) OpenSnippets() []core.Snippet { return t.open }

// HiddenSnippets returns the held-out snippets in info.json order.
func (t *Task) HiddenSnippets() []core.Snippet { return t.hidden }

// Snippet looks a snippet up by id across both sets.
func (t *Task) Snippet(id string) (core.Snippet, bool) {
	s, ok := t.index[id]
	return s, ok
}

// NewMatcher builds a fresh accumulator for one batch.
func (t *Task) NewMatcher() (matcher.Matcher, error) {
	return matcher.FromName(t.Info.Matcher)
}
