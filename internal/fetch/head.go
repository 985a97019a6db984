package fetch

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
)

// Head describes the commit a clone was taken at.
type Head struct {
	Commit string
	Branch string
	When   time.Time
}

// InspectHead opens the clone at dir and reads its HEAD commit.
func InspectHead(dir string) (Head, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return Head{}, fmt.Errorf("failed to open repository: %w", err)
	}
	ref, err := repo.Head()
	if err != nil {
		return Head{}, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return Head{}, fmt.Errorf("failed to read HEAD commit: %w", err)
	}
	return Head{
		Commit: ref.Hash().String(),
		Branch: ref.Name().Short(),
		When:   commit.Committer.When,
	}, nil
}
