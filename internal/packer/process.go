package packer

import (
	"fmt"
	"strconv"
	"strings"
)

// processContent normalizes line endings and applies the optional line
// transforms.
func processContent(content string, cfg Config) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSuffix(content, "\n")

	if cfg.RemoveEmptyLines {
		lines := strings.Split(content, "\n")
		kept := lines[:0]
		for _, l := range lines {
			if strings.TrimSpace(l) != "" {
				kept = append(kept, l)
			}
		}
		content = strings.Join(kept, "\n")
	}

	if cfg.ShowLineNumbers && content != "" {
		lines := strings.Split(content, "\n")
		width := len(strconv.Itoa(len(lines)))
		var b strings.Builder
		for i, l := range lines {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%*d: %s", width, i+1, l)
		}
		content = b.String()
	}
	return content
}

// fence returns a backtick fence longer than any run inside content.
func fence(content string) string {
	longest, run := 0, 0
	for _, r := range content {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}

var languages = map[string]string{
	".go": "go", ".py": "python", ".js": "javascript", ".jsx": "jsx", ".ts": "typescript",
	".tsx": "tsx", ".rb": "ruby", ".rs": "rust", ".java": "java", ".kt": "kotlin",
	".c": "c", ".h": "c", ".cc": "cpp", ".cpp": "cpp", ".hpp": "cpp", ".cs": "csharp",
	".php": "php", ".swift": "swift", ".scala": "scala", ".sh": "bash", ".bash": "bash",
	".zsh": "zsh", ".ps1": "powershell", ".sql": "sql", ".html": "html", ".css": "css",
	".scss": "scss", ".json": "json", ".yaml": "yaml", ".yml": "yaml", ".toml": "toml",
	".xml": "xml", ".md": "markdown", ".proto": "protobuf", ".lua": "lua", ".dart": "dart",
	".ex": "elixir", ".exs": "elixir", ".tf": "hcl", ".vue": "vue", ".svelte": "svelte",
}

func language(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 && !strings.Contains(path[i:], "/") {
		return languages[strings.ToLower(path[i:])]
	}
	if strings.HasSuffix(path, "Dockerfile") {
		return "dockerfile"
	}
	if strings.HasSuffix(path, "Makefile") {
		return "makefile"
	}
	return ""
}
