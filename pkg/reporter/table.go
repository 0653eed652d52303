package reporter

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"prompetition/pkg/core"
)

type TableReporter struct {
	Writer io.Writer
	// Full also prints reply and answer values per snippet.
	Full bool
}

func (r TableReporter) Report(batch core.BatchEvaluation) error {
	fmt.Fprintf(r.Writer, "%s - score: %.2f%%\n", batch.Title(), batch.Score*100)

	table := tablewriter.NewWriter(r.Writer)
	if r.Full {
		table.Header([]string{"Snippet", "Score", "Reply", "Answer", "Error"})
	} else {
		table.Header([]string{"Snippet", "Score", "Error"})
	}
	for _, eval := range batch.Evaluations {
		if r.Full {
			table.Append([]string{
				eval.SnippetID,
				fmt.Sprintf("%.2f%%", eval.Score*100),
				dataToString(eval.ReplyValue),
				dataToString(eval.AnswerValue),
				eval.Error,
			})
		} else {
			table.Append([]string{
				eval.SnippetID,
				fmt.Sprintf("%.2f%%", eval.Score*100),
				eval.Error,
			})
		}
	}
	table.Render()
	return nil
}
