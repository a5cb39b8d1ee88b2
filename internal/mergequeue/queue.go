package mergequeue

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/mergeq/internal/logfields"
	"github.com/simplesurance/mergeq/internal/mergequeue/orderedmap"
	"github.com/simplesurance/mergeq/internal/mergequeue/routines"
)

// MergeQueue is the FIFO-queue of pull requests that are merged into a
// repository.
// A pull request is contained at most once, only the first one (head) is
// processed.
//
// All operations that change the queue and that act on the head are run via
// Schedule() on a go-routine pool of size 1. This serializes them per
// repository, while queues of different repositories are processed in
// parallel.
type MergeQueue struct {
	repository string

	prs  *orderedmap.Map[string, *PullRequest]
	lock sync.Mutex

	logger *zap.Logger

	executor *routines.Pool

	metrics *queueMetrics
}

func newMergeQueue(repository string, logger *zap.Logger) *MergeQueue {
	q := MergeQueue{
		repository: repository,
		prs:        orderedmap.New[string, *PullRequest](),
		logger:     logger.Named("queue").With(logfields.Repository(repository)),
		executor:   routines.NewPool(1),
	}

	if qm, err := newQueueMetrics(repository); err == nil {
		q.metrics = qm
	} else {
		q.logger.Warn(
			"could not create prometheus metrics",
			logfields.Event("creating_queue_metrics_failed"),
			zap.Error(err),
		)
	}

	return &q
}

func (q *MergeQueue) String() string {
	return fmt.Sprintf("merge queue for %s", q.repository)
}

// Repository returns the lowercase full name of the repository.
func (q *MergeQueue) Repository() string {
	return q.repository
}

// Enqueue appends pr to the queue.
// wasEmpty is true if the queue was empty before pr was added.
// If pr is already queued, ErrAlreadyExists is returned and the queue is not
// changed.
func (q *MergeQueue) Enqueue(pr *PullRequest) (wasEmpty bool, err error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	pr.EnqueuedSince = time.Now()

	isFirst, added := q.prs.EnqueueIfNotExist(pr.URL, pr)
	if !added {
		return false, fmt.Errorf("pull request %s is already queued: %w", pr, ErrAlreadyExists)
	}

	q.metrics.QueueSizeInc()
	metrics.QueueOpsInc(q.repository, operationLabelEnqueueVal)

	q.logger.Debug(
		"pull request appended to queue",
		append([]zap.Field{logEventEnqueued, zap.Bool("is_head", isFirst)}, pr.LogFields...)...,
	)

	return isFirst, nil
}

func (q *MergeQueue) remove(prURL string, op operationLabelVal) (*PullRequest, error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	pr, removed := q.prs.Dequeue(prURL)
	if !removed {
		return nil, ErrNotFound
	}

	q.metrics.QueueSizeDec()
	metrics.QueueOpsInc(q.repository, op)

	q.logger.Debug(
		"pull request removed from queue",
		append([]zap.Field{logEventDequeued, zap.String("operation", string(op))}, pr.LogFields...)...,
	)

	return pr, nil
}

// Dequeue removes the pull request after it was processed.
// If it is not queued, ErrNotFound is returned.
func (q *MergeQueue) Dequeue(prURL string) (*PullRequest, error) {
	return q.remove(prURL, operationLabelDequeueVal)
}

// Cancel removes the pull request from any position in the queue.
// If it is not queued, ErrNotFound is returned.
func (q *MergeQueue) Cancel(prURL string) (*PullRequest, error) {
	return q.remove(prURL, operationLabelCancelVal)
}

// Head returns the first pull request in the queue.
// If the queue is empty, nil is returned.
func (q *MergeQueue) Head() *PullRequest {
	q.lock.Lock()
	defer q.lock.Unlock()

	return q.prs.First()
}

// IsHead returns true if the pull request with the url is the first in the
// queue.
func (q *MergeQueue) IsHead(prURL string) bool {
	q.lock.Lock()
	defer q.lock.Unlock()

	return q.prs.IsFirst(prURL)
}

// Contains returns true if the pull request is queued.
func (q *MergeQueue) Contains(prURL string) bool {
	q.lock.Lock()
	defer q.lock.Unlock()

	return q.prs.Contains(prURL)
}

// Ahead returns the pull requests that are queued before the one with the
// given url, in queue order.
// If the pull request is not queued, ErrNotFound is returned.
func (q *MergeQueue) Ahead(prURL string) ([]*PullRequest, error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	result, exist := q.prs.Before(prURL)
	if !exist {
		return nil, ErrNotFound
	}

	return result, nil
}

func (q *MergeQueue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()

	return q.prs.Len()
}

// AsSlice returns the queued pull requests in order.
func (q *MergeQueue) AsSlice() []*PullRequest {
	q.lock.Lock()
	defer q.lock.Unlock()

	return q.prs.AsSlice()
}

// Schedule runs fn asynchronously after all previously scheduled functions of
// the queue finished.
func (q *MergeQueue) Schedule(fn func()) {
	q.executor.Queue(fn)
}

// Stop waits until all scheduled functions finished.
// Schedule must not be called after Stop was called.
func (q *MergeQueue) Stop() {
	q.logger.Debug("terminating, waiting for scheduled operations to finish")
	q.executor.Wait()
	q.logger.Debug("terminated")
}
