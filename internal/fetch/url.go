package fetch

import (
	"fmt"
	"regexp"
	"strings"
)

// sourceURLPattern accepts https://host/owner/repo with an optional .git suffix.
var sourceURLPattern = regexp.MustCompile(`^https://([A-Za-z0-9](?:[A-Za-z0-9.-]*[A-Za-z0-9])?(?::[0-9]{1,5})?)/([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?$`)

// Source identifies a repository to fetch.
type Source struct {
	Host  string
	Owner string
	Repo  string
	// CloneURL is the URL handed to git, always ending in .git.
	CloneURL string
}

// String returns host/owner/repo.
func (s Source) String() string {
	return s.Host + "/" + s.Owner + "/" + s.Repo
}

// ParseSourceURL validates raw against the accepted shape and host list.
// It performs no I/O.
func ParseSourceURL(raw string, allowedHosts []string) (Source, error) {
	raw = strings.TrimSpace(raw)
	m := sourceURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return Source{}, newError(KindInvalidURL, nil, "%q does not look like https://host/owner/repo", raw)
	}
	host, owner, repo := strings.ToLower(m[1]), m[2], m[3]
	if owner == "." || owner == ".." || repo == "." || repo == ".." || repo == "" {
		return Source{}, newError(KindInvalidURL, nil, "%q has an invalid owner or repository name", raw)
	}
	if !hostAllowed(host, allowedHosts) {
		return Source{}, newError(KindInvalidURL, nil, "host %q is not allowed", host)
	}

	return Source{
		Host:     host,
		Owner:    owner,
		Repo:     repo,
		CloneURL: fmt.Sprintf("https://%s/%s/%s.git", host, owner, repo),
	}, nil
}

func hostAllowed(host string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, h := range allowed {
		if strings.EqualFold(strings.TrimSpace(h), host) {
			return true
		}
	}
	return false
}
