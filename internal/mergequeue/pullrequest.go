package mergequeue

import (
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/mergeq/internal/githubclt"
	"github.com/simplesurance/mergeq/internal/logfields"
)

// PullRequest is an entry in a MergeQueue.
type PullRequest struct {
	*githubclt.PullRequestRef
	LogFields []zap.Field

	EnqueuedSince time.Time
}

func NewPullRequest(ref *githubclt.PullRequestRef) *PullRequest {
	return &PullRequest{
		PullRequestRef: ref,
		LogFields: []zap.Field{
			logfields.PullRequest(ref.Number),
			logfields.PullRequestURL(ref.URL),
		},
	}
}

func (p *PullRequest) Equal(other *PullRequest) bool {
	return other != nil && p.URL == other.URL
}
