package transform

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Recognized step names. The registry is closed: anything else is a
// construction-time error.
const (
	StepLastChunk = "last_chunk"
	StepFromJSON  = "from_json"
	StepLineSplit = "line_split"
	StepToAnswer  = "to_answer_type"
)

// Recognized to_answer_type targets.
const (
	AnswerSet        = "set"
	AnswerList       = "list"
	AnswerString     = "str"
	AnswerJSONString = "json_str"
)

// Step is a pure text-to-value conversion. Steps hold no mutable
// state and are safe to share across concurrent evaluations.
type Step interface {
	Name() string
	Apply(value any) (any, error)
}

func asString(name string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("transform: %s expects text, got %T", name, value)
	}
	return s, nil
}

// LastChunk keeps the final segment after splitting on a separator.
type LastChunk struct {
	Separator string
	Strip     bool
}

func (LastChunk) Name() string { return StepLastChunk }

func (c LastChunk) Apply(value any) (any, error) {
	s, err := asString(StepLastChunk, value)
	if err != nil {
		return nil, err
	}
	if c.Strip {
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return s, nil
	}
	parts := strings.Split(s, c.Separator)
	return parts[len(parts)-1], nil
}

// FromJSON decodes the text as JSON. Empty input maps to nil;
// malformed input is a hard failure at evaluation time.
type FromJSON struct {
	Strip bool
}

func (FromJSON) Name() string { return StepFromJSON }

func (c FromJSON) Apply(value any) (any, error) {
	s, err := asString(StepFromJSON, value)
	if err != nil {
		return nil, err
	}
	if c.Strip {
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return nil, fmt.Errorf("transform: from_json: %w", err)
	}
	return decoded, nil
}

// LineSplit turns text into an ordered sequence of lines.
type LineSplit struct {
	Strip bool
}

func (LineSplit) Name() string { return StepLineSplit }

func (c LineSplit) Apply(value any) (any, error) {
	s, err := asString(StepLineSplit, value)
	if err != nil {
		return nil, err
	}
	if c.Strip {
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return []string{}, nil
	}
	return strings.Split(s, "\n"), nil
}

// ToAnswer coerces the value into the task's comparable answer
// representation.
type ToAnswer struct {
	Target string
}

func (ToAnswer) Name() string { return StepToAnswer }

func (c ToAnswer) Apply(value any) (any, error) {
	switch c.Target {
	case AnswerSet:
		return ToSet(value)
	case AnswerList:
		return elements(value)
	case AnswerString:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprint(value), nil
	case AnswerJSONString:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("transform: to_answer_type: %w", err)
		}
		return string(b), nil
	default:
		return nil, fmt.Errorf("transform: unknown answer type %q", c.Target)
	}
}
