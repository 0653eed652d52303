package tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"prompetition/pkg/executor"
	"prompetition/pkg/leaderboard"
	"prompetition/pkg/model"
	"prompetition/pkg/runlog"
	"prompetition/pkg/runner"
	"prompetition/pkg/task"

	"github.com/stretchr/testify/require"
)

func writeFixtureTask(t *testing.T, root string) {
	t.Helper()
	dir := filepath.Join(root, "echo")
	info := `{
		"id": "echo",
		"title": "Echo",
		"description": "Repeat every line of the input.",
		"answer_type": "set",
		"matcher": "avg_iou",
		"reply_pipe": [{"type": "line_split"}, {"type": "to_answer_type"}],
		"answer_pipe": [{"type": "from_json"}, {"type": "to_answer_type"}],
		"exposed": true,
		"open_snippets": ["snippets/s1", "snippets/s2"],
		"hidden_snippets": ["snippets/h1"]
	}`
	snippets := map[string][2]string{
		"s1": {"alpha\nbeta", `["alpha", "beta"]`},
		"s2": {"gamma", `["gamma"]`},
		"h1": {"delta", `["delta"]`},
	}
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "info.json"), []byte(info), 0o600))
	for name, pair := range snippets {
		snippetDir := filepath.Join(dir, "snippets", name)
		require.NoError(t, os.MkdirAll(snippetDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(snippetDir, "task.txt"), []byte(pair[0]), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(snippetDir, "answer.json"), []byte(pair[1]), 0o600))
	}
}

func TestEndToEndEvaluation(t *testing.T) {
	root := t.TempDir()
	writeFixtureTask(t, root)

	manager := task.NewManager(root)
	tk, err := manager.Task("echo")
	require.NoError(t, err)

	exec := executor.New(executor.Config{Workers: 2, Interval: time.Millisecond}, nil)
	defer exec.Shutdown()

	r := &runner.Runner{
		Generator: model.MockGenerator{},
		Executor:  exec,
		Queue:     executor.NewBatchQueue(exec),
	}

	open, err := r.EvaluateOpen(context.Background(), tk, "repeat the input", nil)
	require.NoError(t, err)
	require.InDelta(t, 1.0, open.Score, 1e-9)
	require.Len(t, open.Evaluations, 2)

	hidden, err := r.EvaluateHidden(context.Background(), tk, "repeat the input", nil)
	require.NoError(t, err)
	require.InDelta(t, 1.0, hidden.Score, 1e-9)
	require.Len(t, hidden.Evaluations, 1)

	// Persist the run and read it back through the leaderboard.
	store, err := leaderboard.Open(filepath.Join(root, "sql.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.UpsertUser("u1", "Ada"))
	require.NoError(t, store.RecordRun(leaderboard.Run{
		UserID:      "u1",
		TaskID:      tk.ID(),
		Prompt:      "repeat the input",
		OpenScore:   open.Score,
		OpenRuns:    1,
		HiddenScore: hidden.Score,
		HiddenRuns:  1,
		Parameters:  map[string]string{"model": "mock"},
	}))

	board, err := store.Board("echo")
	require.NoError(t, err)
	require.Len(t, board, 1)
	require.InDelta(t, 1.0, board[0].HiddenValue, 1e-9)

	// And the run log file round-trips.
	logPath, err := runlog.Write(filepath.Join(root, "logs"), runlog.FromBatch(open, "mock", "repeat the input"))
	require.NoError(t, err)
	require.FileExists(t, logPath)
}

func TestConcurrentBatchesStayOrdered(t *testing.T) {
	root := t.TempDir()
	writeFixtureTask(t, root)

	tk, err := task.Load(filepath.Join(root, "echo"))
	require.NoError(t, err)

	exec := executor.New(executor.Config{Workers: 1, Interval: time.Millisecond}, nil)
	defer exec.Shutdown()
	queue := executor.NewBatchQueue(exec)

	r := &runner.Runner{
		Generator: model.MockGenerator{Delay: 2 * time.Millisecond},
		Executor:  exec,
		Queue:     queue,
	}

	type outcome struct {
		tag string
		err error
		ids []string
	}
	results := make(chan outcome, 2)
	run := func(tag string) {
		batch, err := r.EvaluateBatch(context.Background(), tk, tk.OpenSnippets(), "p", tag, nil)
		out := outcome{tag: tag, err: err}
		for _, eval := range batch.Evaluations {
			out.ids = append(out.ids, eval.SnippetID)
		}
		results <- out
	}
	go run("first")
	go run("second")

	for i := 0; i < 2; i++ {
		out := <-results
		require.NoError(t, out.err)
		require.Equal(t, []string{"s1", "s2"}, out.ids)
	}
	require.Zero(t, queue.Backlog())
}
