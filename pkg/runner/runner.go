// Package runner composes the generation client, the transform
// pipelines, the matcher and the rate-limited executor into snippet
// and batch evaluations. It is the only component that talks to the
// generation service.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"prompetition/pkg/core"
	"prompetition/pkg/executor"
	"prompetition/pkg/matcher"
	"prompetition/pkg/task"
)

// Batch tags for the two snippet sets of a task.
const (
	TagOpen   = "open"
	TagHidden = "hidden"
)

// ErrUnknownSnippet is returned for snippet ids the task does not
// define. This is a caller error and fails fast, before any work is
// submitted.
var ErrUnknownSnippet = errors.New("runner: unknown snippet")

// Runner evaluates prompts against task snippets.
type Runner struct {
	Generator core.Generator
	Executor  *executor.Executor
	Queue     *executor.BatchQueue
	Options   core.GenerateOptions
	Logger    *zap.Logger
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// evalUnit is one snippet evaluation, run in full inside a single
// executor worker: one generation call, both pipelines, one
// accumulation. Errors of any stage fail only this snippet.
func (r *Runner) evalUnit(ctx context.Context, t *task.Task, s core.Snippet, prompt string, m matcher.Matcher) (core.SnippetEvaluation, error) {
	opts := r.Options
	opts.SystemPrompt = prompt

	resp, err := r.Generator.Generate(ctx, s.Text, opts)
	if err != nil {
		return core.SnippetEvaluation{}, fmt.Errorf("generation: %w", err)
	}

	replyValue, err := t.ReplyPipe.Apply(resp.Content)
	if err != nil {
		return core.SnippetEvaluation{}, fmt.Errorf("reply pipe: %w", err)
	}
	answerValue, err := t.AnswerPipe.Apply(s.Answer)
	if err != nil {
		return core.SnippetEvaluation{}, fmt.Errorf("answer pipe: %w", err)
	}

	score, err := m.Accumulate(replyValue, answerValue, 1.0)
	if err != nil {
		return core.SnippetEvaluation{}, err
	}

	return core.SnippetEvaluation{
		TaskID:      t.ID(),
		SnippetID:   s.ID,
		Score:       score,
		SnippetText: s.Text,
		ReplyText:   resp.Content,
		ReplyValue:  replyValue,
		AnswerValue: answerValue,
	}, nil
}

// EvaluateSnippet evaluates one snippet through the executor. A
// failed generation or transform comes back as an evaluation with
// Error set; only admission or context failures surface as errors.
func (r *Runner) EvaluateSnippet(ctx context.Context, t *task.Task, snippetID, prompt string, m matcher.Matcher) (core.SnippetEvaluation, error) {
	s, ok := t.Snippet(snippetID)
	if !ok {
		return core.SnippetEvaluation{}, fmt.Errorf("%w: %s/%s", ErrUnknownSnippet, t.ID(), snippetID)
	}

	res, err := r.Executor.Submit(ctx, func(ctx context.Context) (any, error) {
		return r.evalUnit(ctx, t, s, prompt, m)
	})
	if err != nil {
		return core.SnippetEvaluation{}, err
	}
	return r.foldResult(t, s, res), nil
}

func (r *Runner) foldResult(t *task.Task, s core.Snippet, res executor.Result) core.SnippetEvaluation {
	if !res.OK() {
		r.logger().Warn("snippet evaluation failed",
			zap.String("task", t.ID()),
			zap.String("snippet", s.ID),
			zap.Error(res.Err))
		return core.SnippetEvaluation{
			TaskID:      t.ID(),
			SnippetID:   s.ID,
			SnippetText: s.Text,
			Error:       res.Err.Error(),
		}
	}
	return res.Value.(core.SnippetEvaluation)
}

// EvaluateBatch runs the prompt against every snippet in the given
// set as one batch. A fresh matcher is created for the batch and its
// final running average becomes the aggregate score. Evaluations come
// back in snippet enumeration order; failed snippets keep their
// position with Error set and contribute nothing to the aggregate.
// onBacklog, when given, is told how many earlier batches are still
// unresolved.
func (r *Runner) EvaluateBatch(ctx context.Context, t *task.Task, snippets []core.Snippet, prompt, tag string, onBacklog func(int)) (core.BatchEvaluation, error) {
	m, err := t.NewMatcher()
	if err != nil {
		return core.BatchEvaluation{}, err
	}

	started := time.Now()
	units := make([]executor.Task, len(snippets))
	for i, s := range snippets {
		s := s
		units[i] = func(ctx context.Context) (any, error) {
			return r.evalUnit(ctx, t, s, prompt, m)
		}
	}

	results, err := r.Queue.Submit(ctx, units, onBacklog)
	if err != nil {
		return core.BatchEvaluation{}, err
	}

	evaluations := make([]core.SnippetEvaluation, len(results))
	for i, res := range results {
		evaluations[i] = r.foldResult(t, snippets[i], res)
	}

	return core.BatchEvaluation{
		TaskID:      t.ID(),
		Tag:         tag,
		Score:       m.Score(),
		Evaluations: evaluations,
		StartedAt:   started,
		FinishedAt:  time.Now(),
	}, nil
}

// EvaluateOpen runs the prompt against the task's open snippet set.
func (r *Runner) EvaluateOpen(ctx context.Context, t *task.Task, prompt string, onBacklog func(int)) (core.BatchEvaluation, error) {
	return r.EvaluateBatch(ctx, t, t.OpenSnippets(), prompt, TagOpen, onBacklog)
}

// EvaluateHidden runs the prompt against the held-out snippet set.
func (r *Runner) EvaluateHidden(ctx context.Context, t *task.Task, prompt string, onBacklog func(int)) (core.BatchEvaluation, error) {
	return r.EvaluateBatch(ctx, t, t.HiddenSnippets(), prompt, TagHidden, onBacklog)
}
