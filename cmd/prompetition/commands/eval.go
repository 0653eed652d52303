package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"prompetition/pkg/core"
	"prompetition/pkg/executor"
	"prompetition/pkg/leaderboard"
	"prompetition/pkg/model"
	"prompetition/pkg/reporter"
	"prompetition/pkg/runlog"
	"prompetition/pkg/runner"
	"prompetition/pkg/task"
)

func newEvalCommand() *cobra.Command {
	var (
		dataRoot       string
		taskID         string
		prompt         string
		promptFile     string
		snippetSet     string
		provider       string
		modelName      string
		mockResponse   string
		workers        int
		intervalMillis int
		queueSize      int
		format         string
		outputPath     string
		full           bool
		logDir         string
		record         bool
		userID         string
		userName       string
		temperature    float64
		maxTokens      int
		topP           float64
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a prompt against a task's snippets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID == "" {
				return errors.New("task id is required")
			}
			promptText, err := resolvePrompt(prompt, promptFile)
			if err != nil {
				return err
			}

			rootResolved := resolveString(dataRoot, appConfig.DataRoot)
			if rootResolved == "" {
				rootResolved = "data"
			}
			manager := task.NewManager(rootResolved)
			t, err := manager.Task(taskID)
			if err != nil {
				return err
			}

			providerResolved := resolveString(provider, appConfig.Provider)
			if providerResolved == "" {
				providerResolved = "mock"
			}
			modelResolved := resolveString(modelName, appConfig.Model.Name)
			gen, err := buildGenerator(providerResolved, modelResolved,
				resolveString(mockResponse, appConfig.Model.MockResponse))
			if err != nil {
				return err
			}

			execCfg := executor.Config{
				Workers:   resolveInt(workers, appConfig.Executor.Workers, executor.DefaultWorkers),
				QueueSize: resolveInt(queueSize, appConfig.Executor.QueueSize, executor.DefaultQueueSize),
			}
			interval := resolveInt(intervalMillis, appConfig.Executor.IntervalMillis, int(executor.DefaultInterval/time.Millisecond))
			execCfg.Interval = time.Duration(interval) * time.Millisecond

			exec := executor.New(execCfg, logger)
			defer exec.Shutdown()
			queue := executor.NewBatchQueue(exec)

			r := &runner.Runner{
				Generator: gen,
				Executor:  exec,
				Queue:     queue,
				Options: core.GenerateOptions{
					Temperature: float32(temperature),
					MaxTokens:   maxTokens,
					TopP:        float32(topP),
				},
				Logger: logger,
			}

			progress := progressWriter(cmd)
			var batches []core.BatchEvaluation
			runOpen := snippetSet == "open" || snippetSet == "both"
			runHidden := snippetSet == "hidden" || snippetSet == "both"
			if !runOpen && !runHidden {
				return fmt.Errorf("unknown snippet set: %s", snippetSet)
			}

			ctx := context.Background()
			if runOpen {
				announceBatch(progress, t, runner.TagOpen, len(t.OpenSnippets()), gen.Name())
				batch, err := r.EvaluateOpen(ctx, t, promptText, backlogNotice(progress))
				if err != nil {
					return err
				}
				batches = append(batches, batch)
			}
			if runHidden {
				announceBatch(progress, t, runner.TagHidden, len(t.HiddenSnippets()), gen.Name())
				batch, err := r.EvaluateHidden(ctx, t, promptText, backlogNotice(progress))
				if err != nil {
					return err
				}
				batches = append(batches, batch)
			}

			writer := cmd.OutOrStdout()
			outputResolved := resolveString(outputPath, appConfig.Output)
			if outputResolved != "" {
				file, err := os.Create(outputResolved)
				if err != nil {
					return err
				}
				defer file.Close()
				writer = file
			}

			formatResolved := resolveString(format, appConfig.Format)
			if formatResolved == "" {
				formatResolved = reporter.FormatTable
			}
			rep, err := buildReporter(formatResolved, writer, full)
			if err != nil {
				return err
			}
			for _, batch := range batches {
				if err := rep.Report(batch); err != nil {
					return err
				}
			}

			logDirResolved := resolveString(logDir, appConfig.LogDir)
			if logDirResolved != "" {
				for _, batch := range batches {
					if _, err := runlog.Write(logDirResolved, runlog.FromBatch(batch, gen.Name(), promptText)); err != nil {
						return err
					}
				}
			}

			if record {
				if err := recordRun(batches, t.ID(), promptText, userID, userName, gen.Name()); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataRoot, "data-root", "", "task data root directory")
	cmd.Flags().StringVar(&taskID, "task", "", "task id")
	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt text to evaluate")
	cmd.Flags().StringVar(&promptFile, "prompt-file", "", "file holding the prompt text")
	cmd.Flags().StringVar(&snippetSet, "snippets", "open", "snippet set to run (open, hidden, both)")
	cmd.Flags().StringVar(&provider, "provider", "", "generation provider (mock, openai, anthropic)")
	cmd.Flags().StringVar(&modelName, "model", "", "model name")
	cmd.Flags().StringVar(&mockResponse, "mock-response", "", "fixed mock response")
	cmd.Flags().IntVar(&workers, "workers", 0, "executor worker count")
	cmd.Flags().IntVar(&intervalMillis, "interval-ms", 0, "minimum per-worker interval between completions")
	cmd.Flags().IntVar(&queueSize, "queue-size", 0, "admission queue capacity")
	cmd.Flags().StringVar(&format, "format", "", "output format (table, json, markdown)")
	cmd.Flags().StringVar(&outputPath, "output", "", "output file path")
	cmd.Flags().BoolVar(&full, "full", false, "include reply and answer values in the table")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "directory for run logs")
	cmd.Flags().BoolVar(&record, "record", false, "record the run to the leaderboard")
	cmd.Flags().StringVar(&userID, "user-id", "", "leaderboard user id")
	cmd.Flags().StringVar(&userName, "user-name", "", "leaderboard user name")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "model temperature (0 = default)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "max completion tokens (0 = provider default)")
	cmd.Flags().Float64Var(&topP, "top-p", 0, "nucleus sampling top-p (0 = default)")

	return cmd
}

func resolvePrompt(prompt, promptFile string) (string, error) {
	if prompt != "" {
		return prompt, nil
	}
	if promptFile != "" {
		raw, err := os.ReadFile(promptFile)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return "", errors.New("either --prompt or --prompt-file is required")
}

func buildGenerator(provider, modelName, mockResponse string) (core.Generator, error) {
	switch provider {
	case "mock":
		return model.MockGenerator{
			NameValue:    modelName,
			ResponseText: mockResponse,
		}, nil
	case "openai":
		gen, err := model.NewOpenAIFromEnv(resolveString(modelName, appConfig.OpenAI.Model))
		if err != nil {
			return nil, err
		}
		if appConfig.OpenAI.TimeoutSeconds > 0 {
			gen.Timeout = time.Duration(appConfig.OpenAI.TimeoutSeconds) * time.Second
		}
		return gen, nil
	case "anthropic":
		gen, err := model.NewAnthropicFromEnv(resolveString(modelName, appConfig.Anthropic.Model))
		if err != nil {
			return nil, err
		}
		if appConfig.Anthropic.TimeoutSeconds > 0 {
			gen.Timeout = time.Duration(appConfig.Anthropic.TimeoutSeconds) * time.Second
		}
		if appConfig.Anthropic.MaxTokens > 0 {
			gen.MaxTokens = appConfig.Anthropic.MaxTokens
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

func buildReporter(format string, writer io.Writer, full bool) (reporter.Reporter, error) {
	switch format {
	case reporter.FormatJSON:
		return reporter.JSONReporter{Writer: writer, Pretty: true}, nil
	case reporter.FormatTable:
		return reporter.TableReporter{Writer: writer, Full: full}, nil
	case reporter.FormatMarkdown:
		return reporter.MarkdownReporter{Writer: writer}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

func recordRun(batches []core.BatchEvaluation, taskID, prompt, userID, userName, modelName string) error {
	if userID == "" {
		userID = appConfig.User.ID
	}
	if userName == "" {
		userName = appConfig.User.Name
	}
	if userID == "" {
		return errors.New("--user-id is required with --record")
	}

	store, err := leaderboard.Open(appConfig.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.UpsertUser(userID, resolveString(userName, userID)); err != nil {
		return err
	}

	run := leaderboard.Run{
		UserID:     userID,
		TaskID:     taskID,
		Prompt:     prompt,
		Parameters: map[string]string{"model": modelName},
	}
	for _, batch := range batches {
		switch batch.Tag {
		case runner.TagOpen:
			run.OpenScore += batch.Score
			run.OpenRuns++
		case runner.TagHidden:
			run.HiddenScore += batch.Score
			run.HiddenRuns++
		}
	}
	return store.RecordRun(run)
}

func announceBatch(w io.Writer, t *task.Task, tag string, snippets int, modelName string) {
	header := fmt.Sprintf("%s/%s: %d snippets via %s", t.ID(), tag, snippets, modelName)
	if isTerminal(w) {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
		header = style.Render(header)
	}
	fmt.Fprintln(w, header)
}

// backlogNotice reports how many earlier batches the new submission
// is queued behind.
func backlogNotice(w io.Writer) func(int) {
	return func(backlog int) {
		if backlog > 0 {
			fmt.Fprintf(w, "queued behind %d unresolved batch(es)\n", backlog)
		}
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func progressWriter(cmd *cobra.Command) io.Writer {
	stderr := cmd.ErrOrStderr()
	stdout := cmd.OutOrStdout()

	if isTerminal(stderr) {
		return stderr
	}
	if isTerminal(stdout) {
		return stdout
	}
	return stderr
}
