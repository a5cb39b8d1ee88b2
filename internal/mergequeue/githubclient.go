package mergequeue

import (
	"context"

	"github.com/simplesurance/mergeq/internal/githubclt"
)

//go:generate mockgen -destination=mocks/mock_githubclient.go -package=mocks . GithubClient

// GithubClient is the subset of GitHub API operations the merge queue
// requires.
type GithubClient interface {
	PullRequest(ctx context.Context, owner, repo string, number int) (*githubclt.PullRequest, error)
	CIStatus(ctx context.Context, owner, repo, ref string) (githubclt.CIStatus, error)
	SquashMerge(ctx context.Context, owner, repo string, number int) error
	MergeBranch(ctx context.Context, owner, repo, base, head string) error
	CreateIssueComment(ctx context.Context, owner, repo string, issueOrPRNr int, comment string) error
}
