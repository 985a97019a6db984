// Package ignore provides gitignore-style pattern parsing and matching for
// repository scanning and packing.
package ignore

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ProjectIgnoreFile is read from the repository root by the packer.
const ProjectIgnoreFile = ".repopackignore"

// Parser reads and parses gitignore-style files.
type Parser struct {
	// IgnoreFiles is the list of ignore file names to look for.
	IgnoreFiles []string

	// FallbackPatterns are returned when no ignore files are found.
	FallbackPatterns []string
}

// NewParser creates a new ignore file parser with the given configuration.
func NewParser(ignoreFiles, fallbackPatterns []string) *Parser {
	return &Parser{
		IgnoreFiles:      ignoreFiles,
		FallbackPatterns: fallbackPatterns,
	}
}

// ParseProject reads all ignore files from the project root and returns
// combined patterns in file order. If no ignore files are found, returns
// fallback patterns.
func (p *Parser) ParseProject(projectRoot string) ([]string, error) {
	var patterns []string
	foundAny := false

	for _, ignoreFile := range p.IgnoreFiles {
		filePatterns, err := parseFile(filepath.Join(projectRoot, ignoreFile))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		patterns = append(patterns, filePatterns...)
		foundAny = true
	}

	if !foundAny {
		return p.FallbackPatterns, nil
	}
	return deduplicate(patterns), nil
}

func parseFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseLines(file)
}

// ParseLines reads gitignore-style lines, dropping blanks and comments.
// Negations are kept; Matcher honors them.
func ParseLines(r io.Reader) ([]string, error) {
	var patterns []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if pattern := parseLine(scanner.Text()); pattern != "" {
			patterns = append(patterns, pattern)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return patterns, nil
}

// SplitList splits a newline-delimited pattern list.
func SplitList(s string) []string {
	patterns, _ := ParseLines(strings.NewReader(s))
	return patterns
}

func parseLine(line string) string {
	line = strings.TrimRight(line, " \t\r")
	line = strings.TrimLeft(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	return line
}

// deduplicate removes duplicate patterns while preserving order.
func deduplicate(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))

	for _, p := range patterns {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}
	return result
}

// ReadGitignore collects .gitignore patterns from root and every nested
// directory, plus .git/info/exclude. Patterns from nested files are scoped
// to their directory.
func ReadGitignore(root string) ([]gitignore.Pattern, error) {
	return gitignore.ReadPatterns(osfs.New(root), nil)
}

// Compile turns root-relative pattern lines into gitignore patterns.
func Compile(lines []string) []gitignore.Pattern {
	patterns := make([]gitignore.Pattern, 0, len(lines))
	for _, l := range lines {
		if l = parseLine(l); l != "" {
			patterns = append(patterns, gitignore.ParsePattern(l, nil))
		}
	}
	return patterns
}

// Matcher matches slash-separated relative paths. Later patterns take
// precedence over earlier ones.
type Matcher struct {
	m     gitignore.Matcher
	empty bool
}

// NewMatcher builds a matcher from pattern groups, applied in order.
func NewMatcher(groups ...[]gitignore.Pattern) *Matcher {
	var all []gitignore.Pattern
	for _, g := range groups {
		all = append(all, g...)
	}
	return &Matcher{m: gitignore.NewMatcher(all), empty: len(all) == 0}
}

// Match reports whether relPath (slash- or OS-separated) is excluded.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	if m == nil || m.empty {
		return false
	}
	relPath = filepath.ToSlash(relPath)
	relPath = strings.Trim(relPath, "/")
	if relPath == "" || relPath == "." {
		return false
	}
	return m.m.Match(strings.Split(relPath, "/"), isDir)
}
