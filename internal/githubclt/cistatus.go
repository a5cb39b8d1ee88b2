package githubclt

import (
	"context"
	"strings"

	"github.com/shurcooL/githubv4"
)

// CIStatus abstracts the aggregated result of GitHub commit statuses and
// check runs into a single value.
// Values that GitHub returns but that are unknown to mergeq are passed
// through unchanged.
type CIStatus string

const (
	CIStatusSuccess CIStatus = "success"
	CIStatusPending CIStatus = "pending"
	CIStatusFailure CIStatus = "failure"
)

func combinedStatusStateToCIStatus(state string) CIStatus {
	switch state {
	case "success":
		return CIStatusSuccess
	case "pending":
		return CIStatusPending
	case "failure", "error":
		return CIStatusFailure
	default:
		return CIStatus(state)
	}
}

func statusStateToCIStatus(state githubv4.StatusState) CIStatus {
	switch state {
	case githubv4.StatusStateSuccess:
		return CIStatusSuccess

	case githubv4.StatusStateExpected,
		githubv4.StatusStatePending:
		return CIStatusPending

	case githubv4.StatusStateError,
		githubv4.StatusStateFailure:
		return CIStatusFailure

	default:
		return CIStatus(strings.ToLower(string(state)))
	}
}

// StatusCheckRollup returns the [status check rollup] state of a commit.
// If no statuses or check runs exist for the commit, CIStatusPending is
// returned, the same as the combined status REST endpoint does.
//
// [status check rollup]: https://docs.github.com/en/graphql/reference/objects#statuscheckrollup
func (clt *Client) StatusCheckRollup(ctx context.Context, owner, repo, commitSHA string) (CIStatus, error) {
	var q struct {
		Repository struct {
			Object struct {
				Commit struct {
					StatusCheckRollup struct {
						State githubv4.StatusState
					}
				} `graphql:"... on Commit"`
			} `graphql:"object(oid: $oid)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	vars := map[string]any{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(repo),
		"oid":   githubv4.GitObjectID(commitSHA),
	}

	if err := clt.graphQLClt.Query(ctx, &q, vars); err != nil {
		return "", err
	}

	// statusCheckRollup is null when no statuses and check runs exist
	state := q.Repository.Object.Commit.StatusCheckRollup.State
	if state == "" {
		return CIStatusPending, nil
	}

	return statusStateToCIStatus(state), nil
}
