// Package packer concatenates a repository tree into a single annotated
// text document in markdown or XML form.
//
// Output is deterministic: files are emitted in path order and no
// timestamps or host details are written.
package packer

import "fmt"

// Style selects the output format.
type Style string

const (
	StyleMarkdown Style = "markdown"
	StyleXML      Style = "xml"
)

// Ext returns the output file extension for the style.
func (s Style) Ext() string {
	if s == StyleXML {
		return "xml"
	}
	return "md"
}

// ParseStyle validates a style name. Empty means markdown.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case "", StyleMarkdown:
		return StyleMarkdown, nil
	case StyleXML:
		return StyleXML, nil
	default:
		return "", fmt.Errorf("unknown output style %q (want markdown or xml)", s)
	}
}

// IgnoreConfig controls which files are left out.
type IgnoreConfig struct {
	UseGitignore       bool
	UseDefaultPatterns bool
	// CustomPatterns are gitignore-style patterns applied last.
	CustomPatterns []string
}

// Header describes the packed source for the file summary.
type Header struct {
	Source string
	Commit string
	Branch string
}

// Config configures one pack run.
type Config struct {
	Style Style
	// OutputPath is where the document is written. It is ignored during
	// traversal if it lies inside the packed root.
	OutputPath string
	// Include restricts packing to matching files when non-empty.
	Include []string
	Ignore  IgnoreConfig

	SecurityCheck    bool
	ShowLineNumbers  bool
	RemoveEmptyLines bool
	TopFilesLength   int

	Header Header
}

// DefaultConfig mirrors the engine defaults.
func DefaultConfig() Config {
	return Config{
		Style: StyleMarkdown,
		Ignore: IgnoreConfig{
			UseGitignore:       true,
			UseDefaultPatterns: true,
		},
		SecurityCheck:  true,
		TopFilesLength: 10,
	}
}

// ProgressFunc receives a human-readable note for each unit of work.
// The number of calls is not known in advance.
type ProgressFunc func(message string)

// FileStat is a packed file and its size after processing.
type FileStat struct {
	Path  string `json:"path"`
	Chars int    `json:"chars"`
}

// SuspiciousFile is a file left out because the security check flagged it.
type SuspiciousFile struct {
	Path  string   `json:"path"`
	Rules []string `json:"rules"`
}

// Result summarizes a pack run.
type Result struct {
	OutputPath      string
	TotalFiles      int
	TotalChars      int
	TopFiles        []FileStat
	SuspiciousFiles []SuspiciousFile
}
