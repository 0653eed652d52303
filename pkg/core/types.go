package core

import "time"

// Response is a model response plus basic telemetry.
type Response struct {
	Content    string        `json:"content" yaml:"content"`
	TokenUsage TokenUsage    `json:"token_usage" yaml:"token_usage"`
	Latency    time.Duration `json:"latency" yaml:"latency"`
}

// TokenUsage captures token accounting for a request.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" yaml:"completion_tokens"`
	TotalTokens      int `json:"total_tokens" yaml:"total_tokens"`
}

// GenerateOptions controls model generation behavior.
type GenerateOptions struct {
	Temperature  float32  `json:"temperature" yaml:"temperature"`
	MaxTokens    int      `json:"max_tokens" yaml:"max_tokens"`
	TopP         float32  `json:"top_p" yaml:"top_p"`
	Stop         []string `json:"stop" yaml:"stop"`
	SystemPrompt string   `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
}

// SnippetEvaluation captures the outcome for one snippet.
// ReplyValue and AnswerValue hold the transformed representations the
// score was computed over; ReplyText is the raw model output.
type SnippetEvaluation struct {
	TaskID      string  `json:"task_id" yaml:"task_id"`
	SnippetID   string  `json:"snippet_id" yaml:"snippet_id"`
	Score       float64 `json:"score" yaml:"score"`
	SnippetText string  `json:"snippet_text" yaml:"snippet_text"`
	ReplyText   string  `json:"reply_text" yaml:"reply_text"`
	ReplyValue  any     `json:"reply_value" yaml:"reply_value"`
	AnswerValue any     `json:"answer_value" yaml:"answer_value"`
	Error       string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the snippet produced no usable score.
func (e SnippetEvaluation) Failed() bool { return e.Error != "" }

// BatchEvaluation summarizes one batch of snippet evaluations.
// Evaluations keep submission order, not completion order, and Score
// is the matcher's final running average over the snippets that
// contributed.
type BatchEvaluation struct {
	TaskID      string              `json:"task_id" yaml:"task_id"`
	Tag         string              `json:"tag,omitempty" yaml:"tag,omitempty"`
	Score       float64             `json:"score" yaml:"score"`
	Evaluations []SnippetEvaluation `json:"evaluations" yaml:"evaluations"`
	StartedAt   time.Time           `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time           `json:"finished_at" yaml:"finished_at"`
}

// Title renders the task id with the batch tag, if any.
func (b BatchEvaluation) Title() string {
	if b.Tag == "" {
		return b.TaskID
	}
	return b.TaskID + "/" + b.Tag
}
