package mergequeue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/simplesurance/mergeq/internal/githubclt"
	"github.com/simplesurance/mergeq/internal/mergequeue/mocks"
	github_prov "github.com/simplesurance/mergeq/internal/provider/github"
)

const (
	repoOwner    = "simplesurance"
	repo         = "mergeq"
	repoFullName = repoOwner + "/" + repo
)

const condCheckInterval = 20 * time.Millisecond
const condWaitTimeout = 5 * time.Second

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func prURL(nr int) string {
	return fmt.Sprintf("https://api.github.com/repos/%s/%s/pulls/%d", repoOwner, repo, nr)
}

func newTestPR(t *testing.T, nr int) *PullRequest {
	t.Helper()

	ref, err := githubclt.ParsePullRequestURL(prURL(nr))
	require.NoError(t, err)

	return NewPullRequest(ref)
}

func newTestQueue(t *testing.T, prNumbers ...int) *MergeQueue {
	t.Helper()

	q := newMergeQueue(repoFullName, zap.L())
	t.Cleanup(q.Stop)

	for _, nr := range prNumbers {
		_, err := q.Enqueue(newTestPR(t, nr))
		require.NoError(t, err)
	}

	return q
}

func queuedPRNumbers(q *MergeQueue) []int {
	var result []int

	for _, pr := range q.AsSlice() {
		result = append(result, pr.Number)
	}

	return result
}

func newGHPullRequest(nr int, mergeableState githubclt.MergeableState, mergeable githubclt.Mergeable) *githubclt.PullRequest {
	return &githubclt.PullRequest{
		URL:            prURL(nr),
		Number:         nr,
		State:          githubclt.PRStateOpen,
		Mergeable:      mergeable,
		MergeableState: mergeableState,
		BaseRef:        "main",
		BaseSHA:        "b1a2e3",
		HeadRef:        fmt.Sprintf("feature-%d", nr),
		HeadSHA:        fmt.Sprintf("c0ffee%d", nr),
	}
}

func mockPullRequestCall(clt *mocks.MockGithubClient, pr *githubclt.PullRequest) *gomock.Call {
	return clt.
		EXPECT().
		PullRequest(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(pr.Number)).
		Return(pr, nil)
}

func mockCIStatusCall(clt *mocks.MockGithubClient, pr *githubclt.PullRequest, status githubclt.CIStatus) *gomock.Call {
	return clt.
		EXPECT().
		CIStatus(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Eq(pr.HeadSHA)).
		Return(status, nil)
}

// commentRecorder records the comments created via a MockGithubClient.
type commentRecorder struct {
	lock     sync.Mutex
	comments map[int][]string
}

func newCommentRecorder(clt *mocks.MockGithubClient) *commentRecorder {
	r := commentRecorder{comments: map[int][]string{}}

	clt.
		EXPECT().
		CreateIssueComment(gomock.Any(), gomock.Eq(repoOwner), gomock.Eq(repo), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, nr int, body string) error {
			r.lock.Lock()
			defer r.lock.Unlock()

			r.comments[nr] = append(r.comments[nr], body)
			return nil
		}).
		AnyTimes()

	return &r
}

func (r *commentRecorder) Get(prNumber int) []string {
	r.lock.Lock()
	defer r.lock.Unlock()

	return append([]string(nil), r.comments[prNumber]...)
}

func (r *commentRecorder) Count() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	var result int
	for _, c := range r.comments {
		result += len(c)
	}

	return result
}

func newCommentEvent(nr int, body string) *github_prov.IssueCommentEvent {
	return &github_prov.IssueCommentEvent{
		Metadata: github_prov.Metadata{
			Type: "issue_comment",
			JSON: []byte(fmt.Sprintf(
				`{"action": "created", "comment": {"body": %q}, "sender": {"login": "fho"}}`, body,
			)),
		},
		Action:         "created",
		Repository:     repoFullName,
		IssueURL:       fmt.Sprintf("https://api.github.com/repos/%s/%s/issues/%d", repoOwner, repo, nr),
		IssueNumber:    nr,
		PullRequestURL: prURL(nr),
		Body:           body,
	}
}

func newStatusEvent(state string) *github_prov.StatusEvent {
	return &github_prov.StatusEvent{
		Metadata:   github_prov.Metadata{Type: "status"},
		State:      state,
		Repository: repoFullName,
	}
}

func waitForProcessedEventCnt(t *testing.T, b *Bot, wanted int) {
	t.Helper()

	require.Eventuallyf(
		t,
		func() bool { return b.processedEventCnt.Load() == uint64(wanted) },
		condWaitTimeout,
		condCheckInterval,
		"bot processedEventCnt is: %d, expected: %d", b.processedEventCnt.Load(), wanted,
	)
}

// waitForScheduled blocks until all functions that were scheduled on the
// queue before finished.
func waitForScheduled(t *testing.T, q *MergeQueue) {
	t.Helper()

	done := make(chan struct{})
	q.Schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(condWaitTimeout):
		t.Fatalf("scheduled operations of %s did not finish within %s", q, condWaitTimeout)
	}
}
