package mergequeue

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/simplesurance/mergeq/internal/logfields"
)

// Registry maps repositories to their MergeQueue.
// Queues are created on first reference and live until the Registry is
// stopped.
type Registry struct {
	queues map[string]*MergeQueue
	lock   sync.Mutex

	logger *zap.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		queues: map[string]*MergeQueue{},
		logger: zap.L().Named(loggerName),
	}
}

func normalizeRepository(fullName string) string {
	return strings.ToLower(fullName)
}

// Resolve returns the queue for the repository with the given full name
// (owner/name). If it does not exist, an empty queue is created.
func (r *Registry) Resolve(repositoryFullName string) *MergeQueue {
	repo := normalizeRepository(repositoryFullName)

	r.lock.Lock()
	defer r.lock.Unlock()

	q, exist := r.queues[repo]
	if exist {
		return q
	}

	q = newMergeQueue(repo, r.logger)
	r.queues[repo] = q

	r.logger.Debug(
		"merge queue for repository created",
		logfields.Event("merge_queue_created"),
		logfields.Repository(repo),
	)

	return q
}

// Get returns the queue for the repository, if none exist nil is returned.
func (r *Registry) Get(repositoryFullName string) *MergeQueue {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.queues[normalizeRepository(repositoryFullName)]
}

// Queues returns all queues, sorted by repository name.
func (r *Registry) Queues() []*MergeQueue {
	r.lock.Lock()
	result := make([]*MergeQueue, 0, len(r.queues))
	for _, q := range r.queues {
		result = append(result, q)
	}
	r.lock.Unlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].repository < result[j].repository
	})

	return result
}

// Stop waits for the scheduled operations of all queues to finish.
func (r *Registry) Stop() {
	for _, q := range r.Queues() {
		q.Stop()
	}
}
