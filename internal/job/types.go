package job

import (
	"encoding/json"
	"fmt"

	"github.com/fyrsmithlabs/repopackd/internal/ignore"
	"github.com/fyrsmithlabs/repopackd/internal/packer"
	"github.com/fyrsmithlabs/repopackd/internal/scan"
)

// Globs is a list of exclusion patterns. In JSON it is either an array of
// strings or a single newline-delimited string.
type Globs []string

// UnmarshalJSON implements json.Unmarshaler.
func (g *Globs) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*g = cleanGlobs(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("exclude globs must be a string array or newline-delimited string")
	}
	*g = ignore.SplitList(s)
	return nil
}

func cleanGlobs(list []string) Globs {
	var out Globs
	for _, p := range list {
		out = append(out, ignore.SplitList(p)...)
	}
	return out
}

// Request is the handshake that starts a job.
type Request struct {
	SourceURL       string   `json:"sourceUrl"`
	ExcludeGlobs    Globs    `json:"excludeGlobs,omitempty"`
	SizeThresholdMB *float64 `json:"sizeThresholdMb,omitempty"`
	MaxSourceSizeMB *float64 `json:"maxSourceSizeMb,omitempty"`
	OutputStyle     string   `json:"outputStyle,omitempty"`
	// RegexFilter is appended as one extra exclusion pattern.
	RegexFilter string `json:"regexFilter,omitempty"`
}

// UnmarshalJSON accepts githubUrl, excludePatterns and maxRepoSizeMb as
// aliases of the primary field names.
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	var aux struct {
		plain
		GithubURL       string   `json:"githubUrl"`
		ExcludePatterns Globs    `json:"excludePatterns"`
		MaxRepoSizeMB   *float64 `json:"maxRepoSizeMb"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Request(aux.plain)
	if r.SourceURL == "" {
		r.SourceURL = aux.GithubURL
	}
	if len(r.ExcludeGlobs) == 0 {
		r.ExcludeGlobs = aux.ExcludePatterns
	}
	if r.MaxSourceSizeMB == nil {
		r.MaxSourceSizeMB = aux.MaxRepoSizeMB
	}
	return nil
}

// Message is one entry of a job's outbound sequence.
type Message struct {
	HumanFriendlyProgress string  `json:"humanFriendlyProgress"`
	Progress              float64 `json:"progress"`
	Complete              bool    `json:"complete"`

	LargeFiles              []scan.CandidateFile `json:"largeFiles,omitempty"`
	WaitingForFileSelection bool                 `json:"waitingForFileSelection,omitempty"`

	Output      string   `json:"output,omitempty"`
	OutputSize  int64    `json:"outputSize,omitempty"`
	ArtifactKey string   `json:"artifactKey,omitempty"`
	Summary     *Summary `json:"summary,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Summary describes a completed artifact: the largest packed files and
// the files withheld by the security check.
type Summary struct {
	TotalFiles      int                     `json:"totalFiles"`
	TotalChars      int                     `json:"totalChars"`
	TopFiles        []packer.FileStat       `json:"topFiles,omitempty"`
	SuspiciousFiles []packer.SuspiciousFile `json:"suspiciousFiles,omitempty"`
}

func newSummary(res *packer.Result) *Summary {
	if res == nil {
		return nil
	}
	return &Summary{
		TotalFiles:      res.TotalFiles,
		TotalChars:      res.TotalChars,
		TopFiles:        res.TopFiles,
		SuspiciousFiles: res.SuspiciousFiles,
	}
}

// Kind names the message category used for event subjects.
func (m Message) Kind() string {
	switch {
	case m.Complete && m.Error != "":
		return "failed"
	case m.Complete:
		return "completed"
	case m.WaitingForFileSelection:
		return "selection"
	default:
		return "progress"
	}
}

// Reply answers a selection request. A nil SelectedFiles (field absent)
// asks for the default policy; an empty list excludes nothing.
type Reply struct {
	SelectedFiles []string `json:"selectedFiles"`
}
