// Package githubclt provides a github API client.
package githubclt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v43/github"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/simplesurance/mergeq/internal/logfields"
)

const DefaultHTTPClientTimeout = time.Minute

// DefaultAPIURL is the base url of the public GitHub REST API.
const DefaultAPIURL = "https://api.github.com/"

const loggerName = "github_client"

// tokenType is sent in the Authorization header: "token <TOKEN>".
const tokenType = "token"

// Client is an github API client.
type Client struct {
	restClt    *github.Client
	graphQLClt *githubv4.Client
	logger     *zap.Logger

	ciStatusFn func(ctx context.Context, owner, repo, ref string) (CIStatus, error)
}

type Option func(*Client)

// WithStatusCheckRollup configures the client to evaluate CI status via the
// GraphQL statusCheckRollup of a commit instead of the REST combined status.
// The rollup also considers GitHub check runs.
func WithStatusCheckRollup() Option {
	return func(c *Client) {
		c.ciStatusFn = c.StatusCheckRollup
	}
}

// New returns a new github api client.
// apiURL is the base url of the REST API, if it is empty DefaultAPIURL is
// used.
func New(oauthAPItoken, apiURL string, opts ...Option) (*Client, error) {
	return newClient(newHTTPClient(oauthAPItoken), apiURL, opts...)
}

func newClient(httpClient *http.Client, apiURL string, opts ...Option) (*Client, error) {
	restClt := github.NewClient(httpClient)
	graphQLClt := githubv4.NewClient(httpClient)

	if apiURL != "" && apiURL != DefaultAPIURL {
		baseURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("parsing api url failed: %w", err)
		}

		if !strings.HasSuffix(baseURL.Path, "/") {
			baseURL.Path += "/"
		}

		restClt.BaseURL = baseURL
		graphQLClt = githubv4.NewEnterpriseClient(graphQLURL(baseURL), httpClient)
	}

	clt := Client{
		restClt:    restClt,
		graphQLClt: graphQLClt,
		logger:     zap.L().Named(loggerName),
	}
	clt.ciStatusFn = clt.CombinedStatus

	for _, o := range opts {
		o(&clt)
	}

	return &clt, nil
}

// graphQLURL derives the GraphQL endpoint from the REST base url.
// For GitHub Enterprise the REST API is served at /api/v3/, GraphQL at
// /api/graphql.
func graphQLURL(restURL *url.URL) string {
	u := *restURL
	if strings.HasSuffix(u.Path, "/api/v3/") {
		u.Path = strings.TrimSuffix(u.Path, "v3/") + "graphql"
		return u.String()
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/graphql"
	return u.String()
}

func newHTTPClient(apiToken string) *http.Client {
	if apiToken == "" {
		return &http.Client{
			Timeout: DefaultHTTPClientTimeout,
		}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: apiToken, TokenType: tokenType},
	)

	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = DefaultHTTPClientTimeout

	return tc
}

// PullRequest retrieves the current state of a pull request.
// The result is never cached.
func (clt *Client) PullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	pr, _, err := clt.restClt.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}

	result := PullRequest{
		URL:            pr.GetURL(),
		Number:         pr.GetNumber(),
		State:          PRState(pr.GetState()),
		MergeableState: MergeableState(pr.GetMergeableState()),
		BaseRef:        pr.GetBase().GetRef(),
		BaseSHA:        pr.GetBase().GetSHA(),
		HeadRef:        pr.GetHead().GetRef(),
		HeadSHA:        pr.GetHead().GetSHA(),
	}

	if pr.Mergeable != nil {
		if *pr.Mergeable {
			result.Mergeable = MergeableTrue
		} else {
			result.Mergeable = MergeableFalse
		}
	}

	if result.State == "" {
		return nil, errors.New("got pull request object with empty state")
	}

	return &result, nil
}

// SquashMerge merges a pull request with the squash merge method.
func (clt *Client) SquashMerge(ctx context.Context, owner, repo string, number int) error {
	res, _, err := clt.restClt.PullRequests.Merge(ctx, owner, repo, number, "", &github.PullRequestOptions{
		MergeMethod: "squash",
	})
	if err != nil {
		return err
	}

	if !res.GetMerged() {
		return fmt.Errorf("github reported pull request as not merged: %s", res.GetMessage())
	}

	clt.logger.Debug(
		"pull request merged",
		logfields.Event("github_pull_request_merged"),
		zap.String("github.repository_owner", owner),
		zap.String("github.repository_name", repo),
		logfields.PullRequest(number),
		logfields.Commit(res.GetSHA()),
	)

	return nil
}

// MergeBranch merges head into the branch base.
// head can be a branch name or a commit SHA.
// If base already contains head, nothing is changed and the call succeeds.
func (clt *Client) MergeBranch(ctx context.Context, owner, repo, base, head string) error {
	commit, resp, err := clt.restClt.Repositories.Merge(ctx, owner, repo, &github.RepositoryMergeRequest{
		Base: &base,
		Head: &head,
	})
	if err != nil {
		return err
	}

	logger := clt.logger.With(
		zap.String("github.repository_owner", owner),
		zap.String("github.repository_name", repo),
		logfields.Branch(base),
		zap.String("git.merged_ref", head),
	)

	if resp != nil && resp.StatusCode == http.StatusNoContent {
		logger.Debug(
			"branch already contains changes, nothing merged",
			logfields.Event("github_branch_uptodate"),
		)

		return nil
	}

	logger.Debug(
		"merged ref into branch",
		logfields.Event("github_branch_merged"),
		logfields.Commit(commit.GetSHA()),
	)

	return nil
}

// CreateIssueComment creates a comment in a issue or pull request
func (clt *Client) CreateIssueComment(ctx context.Context, owner, repo string, issueOrPRNr int, comment string) error {
	_, _, err := clt.restClt.Issues.CreateComment(ctx, owner, repo, issueOrPRNr, &github.IssueComment{Body: &comment})
	return err
}

// CIStatus returns the aggregated CI status of a commit.
// Depending on the client options it is retrieved from the combined status
// REST endpoint or the GraphQL status check rollup.
func (clt *Client) CIStatus(ctx context.Context, owner, repo, ref string) (CIStatus, error) {
	return clt.ciStatusFn(ctx, owner, repo, ref)
}

// CombinedStatus returns the combined commit status for a ref.
func (clt *Client) CombinedStatus(ctx context.Context, owner, repo, ref string) (CIStatus, error) {
	status, _, err := clt.restClt.Repositories.GetCombinedStatus(ctx, owner, repo, ref, nil)
	if err != nil {
		return "", err
	}

	return combinedStatusStateToCIStatus(status.GetState()), nil
}
