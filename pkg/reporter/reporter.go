package reporter

import "prompetition/pkg/core"

// Reporter writes a batch evaluation for human or machine consumers.
type Reporter interface {
	Report(batch core.BatchEvaluation) error
}

const (
	FormatJSON     = "json"
	FormatTable    = "table"
	FormatMarkdown = "markdown"
)

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatTable, FormatJSON, FormatMarkdown}
}
