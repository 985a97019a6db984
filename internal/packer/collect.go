package packer

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/fyrsmithlabs/repopackd/internal/ignore"
)

// binarySniffLen is how much of a file is checked for NUL bytes.
const binarySniffLen = 8000

type rawFile struct {
	path    string
	content string
}

// buildMatchers assembles the exclude and include matchers for root.
func buildMatchers(root string, cfg Config) (exclude, include *ignore.Matcher, err error) {
	var groups [][]gitignore.Pattern
	if cfg.Ignore.UseDefaultPatterns {
		groups = append(groups, ignore.Compile(ignore.DefaultPatterns))
	}
	if cfg.Ignore.UseGitignore {
		ps, err := ignore.ReadGitignore(root)
		if err != nil {
			return nil, nil, err
		}
		groups = append(groups, ps)
	}

	project, err := ignore.NewParser([]string{ignore.ProjectIgnoreFile}, nil).ParseProject(root)
	if err != nil {
		return nil, nil, err
	}
	groups = append(groups, ignore.Compile(project))
	groups = append(groups, ignore.Compile(cfg.Ignore.CustomPatterns))

	exclude = ignore.NewMatcher(groups...)
	if len(cfg.Include) > 0 {
		include = ignore.NewMatcher(ignore.Compile(cfg.Include))
	}
	return exclude, include, nil
}

// searchFiles lists packable regular files under root in path order.
func searchFiles(ctx context.Context, root string, cfg Config) ([]string, error) {
	exclude, include, err := buildMatchers(root, cfg)
	if err != nil {
		return nil, err
	}

	var outAbs string
	if cfg.OutputPath != "" {
		outAbs, _ = filepath.Abs(cfg.OutputPath)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == ".git" || exclude.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || exclude.Match(rel, false) {
			return nil
		}
		if d.Name() == ignore.ProjectIgnoreFile {
			return nil
		}
		if include != nil && !include.Match(rel, false) {
			return nil
		}
		if outAbs != "" {
			if abs, _ := filepath.Abs(path); abs == outAbs {
				return nil
			}
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// readText reads a file, reporting ok=false for binary or non-UTF-8 data.
func readText(root, rel string) (string, bool, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return "", false, err
	}
	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 || !utf8.Valid(data) {
		return "", false, nil
	}
	return string(data), true, nil
}
