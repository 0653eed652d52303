package core

// Snippet is a single reference input and its expected answer.
// Snippets are immutable once loaded and safe to share across
// concurrent evaluations.
type Snippet struct {
	ID     string `json:"id" yaml:"id"`
	Text   string `json:"text" yaml:"text"`
	Answer string `json:"answer" yaml:"answer"`
}
