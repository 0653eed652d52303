// Package transform converts raw model replies and reference answers
// into comparable values through an ordered list of named steps.
package transform

import (
	"fmt"
)

// StepConfig is one entry of a pipeline definition as it appears in
// a task's info.json.
type StepConfig struct {
	Type      string `json:"type"`
	Separator string `json:"separator,omitempty"`
	Strip     *bool  `json:"strip,omitempty"`
	Target    string `json:"answer_type,omitempty"`
}

func (c StepConfig) strip() bool {
	if c.Strip == nil {
		return true
	}
	return *c.Strip
}

// Pipeline is an ordered sequence of steps. It has no mutable state
// and may be applied concurrently.
type Pipeline struct {
	steps []Step
}

// NewPipeline validates the whole definition eagerly: an unrecognized
// step name, a missing separator or an unknown answer type fails here,
// before any evaluation runs. The task-level answerType fills in
// to_answer_type targets that the step config leaves unset.
func NewPipeline(configs []StepConfig, answerType string) (*Pipeline, error) {
	steps := make([]Step, 0, len(configs))
	for i, cfg := range configs {
		step, err := newStep(cfg, answerType)
		if err != nil {
			return nil, fmt.Errorf("pipeline step %d: %w", i, err)
		}
		steps = append(steps, step)
	}
	return &Pipeline{steps: steps}, nil
}

func newStep(cfg StepConfig, answerType string) (Step, error) {
	switch cfg.Type {
	case StepLastChunk:
		if cfg.Separator == "" {
			return nil, fmt.Errorf("transform: %s requires a separator", StepLastChunk)
		}
		return LastChunk{Separator: cfg.Separator, Strip: cfg.strip()}, nil
	case StepFromJSON:
		return FromJSON{Strip: cfg.strip()}, nil
	case StepLineSplit:
		return LineSplit{Strip: cfg.strip()}, nil
	case StepToAnswer:
		target := cfg.Target
		if target == "" {
			target = answerType
		}
		switch target {
		case AnswerSet, AnswerList, AnswerString, AnswerJSONString:
			return ToAnswer{Target: target}, nil
		default:
			return nil, fmt.Errorf("transform: unknown answer type %q", target)
		}
	default:
		return nil, fmt.Errorf("transform: unknown step %q", cfg.Type)
	}
}

// Apply runs the steps strictly in configured order, each consuming
// the prior step's output.
func (p *Pipeline) Apply(value any) (any, error) {
	var err error
	for _, step := range p.steps {
		value, err = step.Apply(value)
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}

// Steps returns the configured step names in order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
