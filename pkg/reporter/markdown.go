package reporter

import (
	"encoding/json"
	"fmt"
	"io"

	"prompetition/pkg/core"
)

type MarkdownReporter struct {
	Writer io.Writer
}

func (r MarkdownReporter) Report(batch core.BatchEvaluation) error {
	if _, err := fmt.Fprintf(r.Writer, "# %s\n\n", batch.Title()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(r.Writer, "Score: **%.2f%%**\n\n", batch.Score*100); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(r.Writer, "| Snippet | Score | Reply | Answer | Error |\n|---|---|---|---|---|\n"); err != nil {
		return err
	}
	for _, eval := range batch.Evaluations {
		if _, err := fmt.Fprintf(
			r.Writer,
			"| %s | %.2f%% | %s | %s | %s |\n",
			eval.SnippetID,
			eval.Score*100,
			escapePipe(dataToString(eval.ReplyValue)),
			escapePipe(dataToString(eval.AnswerValue)),
			escapePipe(eval.Error),
		); err != nil {
			return err
		}
	}
	return nil
}

// dataToString renders a transformed value for display; structured
// values come out as compact JSON.
func dataToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func escapePipe(input string) string {
	if input == "" {
		return ""
	}
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if r == '|' {
			out = append(out, '\\', r)
		} else if r == '\n' || r == '\r' {
			out = append(out, ' ')
		} else {
			out = append(out, r)
		}
	}
	return string(out)
}
