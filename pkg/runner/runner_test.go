package runner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"prompetition/pkg/core"
	"prompetition/pkg/executor"
	"prompetition/pkg/model"
	"prompetition/pkg/runner"
	"prompetition/pkg/task"

	"github.com/stretchr/testify/require"
)

// fixtureTask builds an on-disk task whose answers equal the snippet
// text split into lines, so an echoing generator scores 1.0.
func fixtureTask(t *testing.T) *task.Task {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "echo")
	info := `{
		"id": "echo",
		"title": "Echo",
		"answer_type": "set",
		"matcher": "avg_iou",
		"reply_pipe": [{"type": "line_split"}, {"type": "to_answer_type"}],
		"answer_pipe": [{"type": "from_json"}, {"type": "to_answer_type"}],
		"open_snippets": ["snippets/s1", "snippets/s2", "snippets/s3"],
		"hidden_snippets": ["snippets/h1"]
	}`
	snippets := map[string][2]string{
		"s1": {"alpha\nbeta", `["alpha", "beta"]`},
		"s2": {"gamma", `["gamma"]`},
		"s3": {"delta\nepsilon", `["delta", "epsilon"]`},
		"h1": {"zeta", `["zeta"]`},
	}
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "info.json"), []byte(info), 0o600))
	for name, pair := range snippets {
		snippetDir := filepath.Join(dir, "snippets", name)
		require.NoError(t, os.MkdirAll(snippetDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(snippetDir, "task.txt"), []byte(pair[0]), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(snippetDir, "answer.json"), []byte(pair[1]), 0o600))
	}

	tk, err := task.Load(dir)
	require.NoError(t, err)
	return tk
}

func newRunner(t *testing.T, gen core.Generator) *runner.Runner {
	t.Helper()
	exec := executor.New(executor.Config{Workers: 2, Interval: time.Millisecond}, nil)
	t.Cleanup(exec.Shutdown)
	return &runner.Runner{
		Generator: gen,
		Executor:  exec,
		Queue:     executor.NewBatchQueue(exec),
	}
}

func TestEvaluateOpenPerfectScore(t *testing.T) {
	tk := fixtureTask(t)
	r := newRunner(t, model.MockGenerator{})

	batch, err := r.EvaluateOpen(context.Background(), tk, "repeat the input", nil)
	require.NoError(t, err)

	require.Equal(t, "echo", batch.TaskID)
	require.Equal(t, runner.TagOpen, batch.Tag)
	require.InDelta(t, 1.0, batch.Score, 1e-9)
	require.Len(t, batch.Evaluations, 3)
	for i, id := range []string{"s1", "s2", "s3"} {
		require.Equal(t, id, batch.Evaluations[i].SnippetID)
		require.False(t, batch.Evaluations[i].Failed())
		require.InDelta(t, 1.0, batch.Evaluations[i].Score, 1e-9)
	}
	require.False(t, batch.FinishedAt.Before(batch.StartedAt))
}

// faultyGenerator fails for one specific input and echoes otherwise.
type faultyGenerator struct {
	failOn string
}

func (g faultyGenerator) Name() string { return "faulty" }

func (g faultyGenerator) Generate(_ context.Context, input string, _ core.GenerateOptions) (core.Response, error) {
	if input == g.failOn {
		return core.Response{}, errors.New("upstream unavailable")
	}
	return core.Response{Content: input}, nil
}

func TestFailedSnippetKeepsPositionAndSparesSiblings(t *testing.T) {
	tk := fixtureTask(t)
	r := newRunner(t, faultyGenerator{failOn: "gamma"})

	batch, err := r.EvaluateOpen(context.Background(), tk, "repeat the input", nil)
	require.NoError(t, err)
	require.Len(t, batch.Evaluations, 3)

	failed := batch.Evaluations[1]
	require.Equal(t, "s2", failed.SnippetID)
	require.True(t, failed.Failed())
	require.Contains(t, failed.Error, "upstream unavailable")

	require.False(t, batch.Evaluations[0].Failed())
	require.False(t, batch.Evaluations[2].Failed())
	// The failed snippet contributes nothing to the aggregate.
	require.InDelta(t, 1.0, batch.Score, 1e-9)
}

func TestEvaluateSnippet(t *testing.T) {
	tk := fixtureTask(t)
	r := newRunner(t, model.MockGenerator{})

	m, err := tk.NewMatcher()
	require.NoError(t, err)

	eval, err := r.EvaluateSnippet(context.Background(), tk, "h1", "repeat the input", m)
	require.NoError(t, err)
	require.Equal(t, "h1", eval.SnippetID)
	require.InDelta(t, 1.0, eval.Score, 1e-9)
	require.InDelta(t, 1.0, m.Score(), 1e-9)
}

func TestEvaluateSnippetUnknownID(t *testing.T) {
	tk := fixtureTask(t)
	r := newRunner(t, model.MockGenerator{})

	m, err := tk.NewMatcher()
	require.NoError(t, err)

	_, err = r.EvaluateSnippet(context.Background(), tk, "nope", "p", m)
	require.ErrorIs(t, err, runner.ErrUnknownSnippet)
}

func TestEvaluateHiddenUsesHiddenSet(t *testing.T) {
	tk := fixtureTask(t)
	r := newRunner(t, model.MockGenerator{})

	batch, err := r.EvaluateHidden(context.Background(), tk, "repeat the input", nil)
	require.NoError(t, err)
	require.Equal(t, runner.TagHidden, batch.Tag)
	require.Len(t, batch.Evaluations, 1)
	require.Equal(t, "h1", batch.Evaluations[0].SnippetID)
}
