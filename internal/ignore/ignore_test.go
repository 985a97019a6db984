package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{"empty line", "", ""},
		{"whitespace only", "   ", ""},
		{"comment", "# this is a comment", ""},
		{"negation kept", "!important.txt", "!important.txt"},
		{"simple file glob", "*.log", "*.log"},
		{"directory with slash", "node_modules/", "node_modules/"},
		{"trailing CR", "dist/\r", "dist/"},
		{"indented", "  *.pyc", "*.pyc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseLine(tt.line)
			if result != tt.expected {
				t.Errorf("parseLine(%q) = %q, want %q", tt.line, result, tt.expected)
			}
		})
	}
}

func TestParseProject(t *testing.T) {
	tmpDir := t.TempDir()

	content := `# Build outputs
dist/
*.pyc
dist/
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ProjectIgnoreFile), []byte(content), 0644))

	parser := NewParser([]string{ProjectIgnoreFile, ".missingignore"}, []string{"fallback"})
	patterns, err := parser.ParseProject(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"dist/", "*.pyc"}, patterns)
}

func TestParseProject_Fallback(t *testing.T) {
	parser := NewParser([]string{ProjectIgnoreFile}, []string{"fallback/"})
	patterns, err := parser.ParseProject(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback/"}, patterns)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"*.log", "docs/"}, SplitList("*.log\n\n# note\r\ndocs/\n"))
	assert.Empty(t, SplitList(""))
}

func TestMatcher(t *testing.T) {
	m := NewMatcher(Compile([]string{"*.log", "docs/", "/root-only.txt", "assets/**/*.png", "!keep.log"}))

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"app.log", false, true},
		{"nested/deep/app.log", false, true},
		{"keep.log", false, false},
		{"docs", true, true},
		{"docs/readme.md", false, true},
		{"src/docs/readme.md", false, true},
		{"root-only.txt", false, true},
		{"sub/root-only.txt", false, false},
		{"assets/img/a/logo.png", false, true},
		{"logo.png", false, false},
		{"main.go", false, false},
		{"", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestMatcher_Empty(t *testing.T) {
	var nilMatcher *Matcher
	assert.False(t, nilMatcher.Match("a.go", false))
	assert.False(t, NewMatcher().Match("a.go", false))
}

func TestMatcher_GroupOrder(t *testing.T) {
	// A later group can re-include what an earlier one excluded.
	m := NewMatcher(Compile([]string{"*.md"}), Compile([]string{"!README.md"}))
	assert.True(t, m.Match("CHANGELOG.md", false))
	assert.False(t, m.Match("README.md", false))
}

func TestReadGitignore_Nested(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.tmp\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", ".gitignore"), []byte("generated.go\n"), 0644))

	patterns, err := ReadGitignore(root)
	require.NoError(t, err)
	m := NewMatcher(patterns)

	assert.True(t, m.Match("x.tmp", false))
	assert.True(t, m.Match("pkg/generated.go", false))
	assert.False(t, m.Match("generated.go", false))
	assert.False(t, m.Match("pkg/main.go", false))
}

func TestDefaultPatterns(t *testing.T) {
	m := NewMatcher(Compile(DefaultPatterns))
	for _, p := range []string{"node_modules/x/index.js", "yarn.lock", "img/logo.png", ".git/HEAD", "repopack-output.md"} {
		assert.True(t, m.Match(p, false), p)
	}
	for _, p := range []string{"main.go", "README.md", "src/app.ts"} {
		assert.False(t, m.Match(p, false), p)
	}
	for _, p := range DefaultPatterns {
		assert.False(t, strings.HasPrefix(p, " "), p)
	}
}
