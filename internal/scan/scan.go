// Package scan walks a fetched repository, measures its files and ranks
// the largest ones for interactive review.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/fyrsmithlabs/repopackd/internal/ignore"
	"github.com/fyrsmithlabs/repopackd/internal/tokens"
)

// DefaultTopN is the minimum number of candidates offered when few files
// exceed the threshold.
const DefaultTopN = 10

// File is a regular file measured during the scan.
type File struct {
	Path string
	Size int64
}

// CandidateFile is a large file offered to the caller for exclusion.
type CandidateFile struct {
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	TokenCount int    `json:"tokenCount"`
}

// Options configures a scan.
type Options struct {
	// Exclude holds gitignore-style patterns relative to the root.
	Exclude       []string
	SizeThreshold int64
	TopN          int
	Tokens        tokens.Estimator
}

// Result is the outcome of a scan.
type Result struct {
	// Files lists every scanned file, sorted by path.
	Files      []File
	TotalSize  int64
	Candidates []CandidateFile
}

// Scan walks root, skipping .git and excluded paths. Only regular files
// are counted; symlinks and other special files are ignored.
func Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	matcher := ignore.NewMatcher(ignore.Compile(opts.Exclude))

	var files []File
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
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
			if d.Name() == ".git" || matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matcher.Match(rel, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, File{Path: rel, Size: info.Size()})
		total += info.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	est := opts.Tokens
	if est == nil {
		est = tokens.None{}
	}
	selected := SelectCandidates(files, opts.SizeThreshold, opts.TopN)
	candidates := make([]CandidateFile, 0, len(selected))
	for _, f := range selected {
		candidates = append(candidates, CandidateFile{
			Path:       f.Path,
			Size:       f.Size,
			TokenCount: est.Estimate(ctx, filepath.Join(root, filepath.FromSlash(f.Path))),
		})
	}

	return &Result{Files: files, TotalSize: total, Candidates: candidates}, nil
}

// SelectCandidates ranks files by size and applies the selection policy:
// when fewer than topN files exceed threshold, the topN largest files are
// returned; otherwise exactly the files over threshold are. Ties are
// broken by path. The input is not modified.
func SelectCandidates(files []File, threshold int64, topN int) []File {
	if topN <= 0 {
		topN = DefaultTopN
	}
	ranked := make([]File, len(files))
	copy(ranked, files)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Size != ranked[j].Size {
			return ranked[i].Size > ranked[j].Size
		}
		return ranked[i].Path < ranked[j].Path
	})

	over := 0
	for _, f := range ranked {
		if f.Size > threshold {
			over++
		}
	}
	if over < topN {
		return ranked[:min(topN, len(ranked))]
	}
	return ranked[:over]
}

// OverThreshold returns the paths of candidates strictly larger than
// threshold, in candidate order.
func OverThreshold(candidates []CandidateFile, threshold int64) []string {
	var out []string
	for _, c := range candidates {
		if c.Size > threshold {
			out = append(out, c.Path)
		}
	}
	return out
}
