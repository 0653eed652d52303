package reporter

import (
	"encoding/json"
	"io"

	"prompetition/pkg/core"
)

type JSONReporter struct {
	Writer io.Writer
	Pretty bool
}

func (r JSONReporter) Report(batch core.BatchEvaluation) error {
	encoder := json.NewEncoder(r.Writer)
	if r.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(batch)
}
