package secrets

import (
	"fmt"
	"regexp"
	"sync"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// Finding is a detected secret. The secret value itself is not retained.
type Finding struct {
	RuleID   string
	RuleDesc string
	Line     int
}

// Detector scans file contents. It is safe for concurrent use.
type Detector struct {
	mu        sync.Mutex
	detector  *detect.Detector
	pathAllow []*regexp.Regexp
}

// NewDetector creates a detector using the default Gitleaks rules plus the
// optional allowlist.
func NewDetector(allowlist *Allowlist) (*Detector, error) {
	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create gitleaks detector: %w", err)
	}

	det := &Detector{detector: d}
	if allowlist != nil {
		if err := det.applyAllowlist(allowlist); err != nil {
			return nil, err
		}
	}
	return det, nil
}

// Scan returns findings in content. Files whose path matches an allowlisted
// path pattern are not scanned.
func (d *Detector) Scan(path, content string) []Finding {
	for _, re := range d.pathAllow {
		if re.MatchString(path) {
			return nil
		}
	}

	d.mu.Lock()
	found := d.detector.DetectString(content)
	d.mu.Unlock()

	findings := make([]Finding, 0, len(found))
	for _, f := range found {
		findings = append(findings, Finding{
			RuleID:   f.RuleID,
			RuleDesc: f.Description,
			Line:     f.StartLine,
		})
	}
	return findings
}

// applyAllowlist merges content patterns into the Gitleaks config. Path
// patterns are kept locally since DetectString has no path.
func (d *Detector) applyAllowlist(allowlist *Allowlist) error {
	global := &gitleaksConfig.Allowlist{
		Description: "repopackd operator allowlist",
	}

	for _, pattern := range allowlist.Paths {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidRegex, pattern, err)
		}
		d.pathAllow = append(d.pathAllow, re)
	}
	for _, pattern := range allowlist.Regexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidRegex, pattern, err)
		}
		global.Regexes = append(global.Regexes, (*gitleaksRegexp.Regexp)(re))
	}

	if len(global.Regexes) > 0 {
		d.detector.Config.Allowlists = append(d.detector.Config.Allowlists, global)
	}
	return nil
}
