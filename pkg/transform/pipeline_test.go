package transform_test

import (
	"testing"

	"prompetition/pkg/transform"

	"github.com/stretchr/testify/require"
)

func TestLastChunk(t *testing.T) {
	step := transform.LastChunk{Separator: "\n", Strip: true}

	out, err := step.Apply("a\nb\nc")
	require.NoError(t, err)
	require.Equal(t, "c", out)

	out, err = step.Apply("")
	require.NoError(t, err)
	require.Equal(t, "", out)

	out, err = step.Apply("   \n  ")
	require.NoError(t, err)
	require.Equal(t, "", out)
}

func TestFromJSON(t *testing.T) {
	step := transform.FromJSON{Strip: true}

	out, err := step.Apply("")
	require.NoError(t, err)
	require.Nil(t, out)

	out, err = step.Apply("[1, 2]")
	require.NoError(t, err)
	require.Equal(t, []any{1.0, 2.0}, out)

	_, err = step.Apply("{bad")
	require.Error(t, err)
}

func TestLineSplit(t *testing.T) {
	step := transform.LineSplit{Strip: true}

	out, err := step.Apply("")
	require.NoError(t, err)
	require.Equal(t, []string{}, out)

	out, err = step.Apply("x\ny")
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, out)
}

func TestToAnswerTargets(t *testing.T) {
	set, err := transform.ToAnswer{Target: transform.AnswerSet}.Apply([]string{"b", "a", "b"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, set.(transform.Set).Elements())

	list, err := transform.ToAnswer{Target: transform.AnswerList}.Apply([]string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b"}, list)

	str, err := transform.ToAnswer{Target: transform.AnswerString}.Apply("hello")
	require.NoError(t, err)
	require.Equal(t, "hello", str)

	jsonStr, err := transform.ToAnswer{Target: transform.AnswerJSONString}.Apply([]any{1.0, 2.0})
	require.NoError(t, err)
	require.Equal(t, "[1,2]", jsonStr)
}

func TestNewPipelineRejectsUnknownStep(t *testing.T) {
	_, err := transform.NewPipeline([]transform.StepConfig{
		{Type: "reverse"},
	}, transform.AnswerSet)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown step")
}

func TestNewPipelineRequiresSeparator(t *testing.T) {
	_, err := transform.NewPipeline([]transform.StepConfig{
		{Type: transform.StepLastChunk},
	}, transform.AnswerSet)
	require.Error(t, err)
}

func TestNewPipelineRejectsUnknownAnswerType(t *testing.T) {
	_, err := transform.NewPipeline([]transform.StepConfig{
		{Type: transform.StepToAnswer},
	}, "tuple")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown answer type")
}

func TestPipelineRunsStepsInOrder(t *testing.T) {
	pipe, err := transform.NewPipeline([]transform.StepConfig{
		{Type: transform.StepLastChunk, Separator: "###"},
		{Type: transform.StepFromJSON},
		{Type: transform.StepToAnswer},
	}, transform.AnswerSet)
	require.NoError(t, err)

	out, err := pipe.Apply("reasoning goes here###[\"x\", \"y\"]")
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, out.(transform.Set).Elements())
}
