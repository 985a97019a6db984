package packer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repopackd/internal/logging"
	"github.com/fyrsmithlabs/repopackd/internal/secrets"
)

// Engine packs repositories.
type Engine struct {
	detector *secrets.Detector
	logger   *logging.Logger
}

// New creates an engine. detector may be nil when security checks are
// never requested.
func New(detector *secrets.Detector, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{detector: detector, logger: logger.Named("packer")}
}

// Pack packs root according to cfg and writes the document to
// cfg.OutputPath. The file only appears once it is completely written.
func (e *Engine) Pack(ctx context.Context, root string, cfg Config, onProgress ProgressFunc) (*Result, error) {
	if cfg.OutputPath == "" {
		return nil, errors.New("packer: output path is required")
	}
	if cfg.Style == "" {
		cfg.Style = StyleMarkdown
	}
	if _, err := ParseStyle(string(cfg.Style)); err != nil {
		return nil, err
	}
	if cfg.SecurityCheck && e.detector == nil {
		return nil, errors.New("packer: security check requested without a detector")
	}
	if onProgress == nil {
		onProgress = func(string) {}
	}

	onProgress("Searching for files...")
	paths, err := searchFiles(ctx, root, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to search files: %w", err)
	}

	var raw []rawFile
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		onProgress(fmt.Sprintf("Collecting file (%d/%d): %s", i+1, len(paths), p))
		content, ok, err := readText(root, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		if !ok {
			continue
		}
		raw = append(raw, rawFile{path: p, content: content})
	}

	var suspicious []SuspiciousFile
	if cfg.SecurityCheck {
		clean := raw[:0]
		for i, f := range raw {
			onProgress(fmt.Sprintf("Running security check (%d/%d): %s", i+1, len(raw), f.path))
			findings := e.detector.Scan(f.path, f.content)
			if len(findings) == 0 {
				clean = append(clean, f)
				continue
			}
			suspicious = append(suspicious, SuspiciousFile{Path: f.path, Rules: ruleIDs(findings)})
		}
		raw = clean
		if len(suspicious) > 0 {
			e.logger.Warn(ctx, "files excluded by security check", zap.Int("count", len(suspicious)))
		}
	}

	files := make([]packedFile, 0, len(raw))
	stats := make([]FileStat, 0, len(raw))
	total := 0
	for _, f := range raw {
		onProgress("Processing file: " + f.path)
		content := processContent(f.content, cfg)
		files = append(files, packedFile{path: f.path, content: content})
		n := utf8.RuneCountInString(content)
		stats = append(stats, FileStat{Path: f.path, Chars: n})
		total += n
	}

	onProgress("Writing output file...")
	var doc string
	if cfg.Style == StyleXML {
		doc = renderXML(files, cfg)
	} else {
		doc = renderMarkdown(files, cfg)
	}
	if err := writeAtomic(cfg.OutputPath, doc); err != nil {
		return nil, err
	}

	return &Result{
		OutputPath:      cfg.OutputPath,
		TotalFiles:      len(files),
		TotalChars:      total,
		TopFiles:        topFiles(stats, cfg.TopFilesLength),
		SuspiciousFiles: suspicious,
	}, nil
}

func ruleIDs(findings []secrets.Finding) []string {
	seen := map[string]bool{}
	var ids []string
	for _, f := range findings {
		if !seen[f.RuleID] {
			seen[f.RuleID] = true
			ids = append(ids, f.RuleID)
		}
	}
	sort.Strings(ids)
	return ids
}

func topFiles(stats []FileStat, n int) []FileStat {
	if n <= 0 {
		return nil
	}
	sorted := make([]FileStat, len(stats))
	copy(sorted, stats)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Chars != sorted[j].Chars {
			return sorted[i].Chars > sorted[j].Chars
		}
		return sorted[i].Path < sorted[j].Path
	})
	return sorted[:min(n, len(sorted))]
}

// writeAtomic writes to a sibling temp file and renames it into place.
func writeAtomic(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".partial-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to finalize output: %w", err)
	}
	return nil
}
