package mergequeue

import (
	"context"

	"go.uber.org/zap"

	"github.com/simplesurance/mergeq/internal/githubclt"
)

// DryGithubClient is a github-client that does not do any changes on github.
// All operations that could cause a change are simulated and always succeed.
// All all other operations are forwarded to a wrapped GithubClient.
type DryGithubClient struct {
	clt    GithubClient
	logger *zap.Logger
}

func NewDryGithubClient(clt GithubClient, logger *zap.Logger) *DryGithubClient {
	return &DryGithubClient{
		clt:    clt,
		logger: logger.Named("dry_github_client"),
	}
}

func (c *DryGithubClient) PullRequest(ctx context.Context, owner, repo string, number int) (*githubclt.PullRequest, error) {
	return c.clt.PullRequest(ctx, owner, repo, number)
}

func (c *DryGithubClient) CIStatus(ctx context.Context, owner, repo, ref string) (githubclt.CIStatus, error) {
	return c.clt.CIStatus(ctx, owner, repo, ref)
}

func (c *DryGithubClient) SquashMerge(_ context.Context, owner, repo string, number int) error {
	c.logger.Info(
		"simulated squash merging pull request, nothing was merged on github",
		zap.String("github.repository_owner", owner),
		zap.String("github.repository", repo),
		zap.Int("github.pull_request", number),
	)
	return nil
}

func (c *DryGithubClient) MergeBranch(_ context.Context, owner, repo, base, head string) error {
	c.logger.Info(
		"simulated merging branch, no branch was changed on github",
		zap.String("github.repository_owner", owner),
		zap.String("github.repository", repo),
		zap.String("git.merge_base", base),
		zap.String("git.merge_head", head),
	)
	return nil
}

func (c *DryGithubClient) CreateIssueComment(_ context.Context, _, _ string, number int, comment string) error {
	c.logger.Info(
		"simulated creating of github issue comment, no comment created on github",
		zap.Int("github.pull_request", number),
		zap.String("comment", comment),
	)
	return nil
}
