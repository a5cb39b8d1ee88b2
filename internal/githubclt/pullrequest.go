package githubclt

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// pullRequestAPIPathRe matches the path of a pull request API url.
// GitHub Enterprise prefixes it with /api/v3.
var pullRequestAPIPathRe = regexp.MustCompile(`^(?:/api/v3)?/repos/([^/]+)/([^/]+)/pulls/([0-9]+)/?$`)

// PullRequestRef identifies a pull request by its API url.
type PullRequestRef struct {
	// URL is the API url of the pull request, e.g.
	// https://api.github.com/repos/simplesurance/mergeq/pulls/12
	URL    string
	Owner  string
	Repo   string
	Number int
}

// ParsePullRequestURL parses a pull request API url.
func ParsePullRequestURL(prURL string) (*PullRequestRef, error) {
	u, err := url.Parse(prURL)
	if err != nil {
		return nil, fmt.Errorf("parsing pull request url failed: %w", err)
	}

	matches := pullRequestAPIPathRe.FindStringSubmatch(u.Path)
	if len(matches) != 4 {
		return nil, fmt.Errorf("%q is not a pull request api url", prURL)
	}

	nr, err := strconv.Atoi(matches[3])
	if err != nil {
		return nil, fmt.Errorf("pull request number in url %q is invalid: %w", prURL, err)
	}

	if nr <= 0 {
		return nil, fmt.Errorf("pull request number in url %q is %d, must be >0", prURL, nr)
	}

	return &PullRequestRef{
		URL:    prURL,
		Owner:  matches[1],
		Repo:   matches[2],
		Number: nr,
	}, nil
}

// RepositoryFullName returns owner/repo in lower case.
func (r *PullRequestRef) RepositoryFullName() string {
	return strings.ToLower(r.Owner + "/" + r.Repo)
}

func (r *PullRequestRef) String() string {
	return fmt.Sprintf("#%d", r.Number)
}

// PRState is the lifecycle state of a pull request.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
)

// MergeableState is GitHub's classification of a pull request's merge
// readiness. GitHub knows more values than the ones defined as constants.
type MergeableState string

const (
	MergeableStateClean   MergeableState = "clean"
	MergeableStateBehind  MergeableState = "behind"
	MergeableStateBlocked MergeableState = "blocked"
	MergeableStateUnknown MergeableState = "unknown"
)

// Mergeable is the tri-state mergeable field of a GitHub pull request.
type Mergeable int

const (
	MergeableUnknown Mergeable = iota
	MergeableTrue
	MergeableFalse
)

func (m Mergeable) String() string {
	switch m {
	case MergeableTrue:
		return "true"
	case MergeableFalse:
		return "false"
	default:
		return "unknown"
	}
}

// PullRequest is the state of a pull request retrieved from GitHub.
type PullRequest struct {
	URL            string
	Number         int
	State          PRState
	Mergeable      Mergeable
	MergeableState MergeableState

	BaseRef string
	BaseSHA string
	HeadRef string
	HeadSHA string
}
