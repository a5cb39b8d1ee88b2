package mergequeue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/simplesurance/mergeq/internal/logfields"
	github_prov "github.com/simplesurance/mergeq/internal/provider/github"
)

const loggerName = "mergequeue"

const (
	msgQueued         = "Queued for merging after %s."
	msgAlreadyQueued  = "Already queued for merging after %s."
	msgCanceled       = "Merge request canceled."
	msgNoMergeRequest = "There is no merge request for this pull request."
)

// Bot processes GitHub webhook events.
// It maintains a merge queue per repository, enqueues and removes pull
// requests on !merge and !cancel comments and triggers merge attempts when
// commands are issued or commit statuses change.
type Bot struct {
	ch     <-chan github_prov.Event
	logger *zap.Logger

	registry     *Registry
	parser       *CommandParser
	orchestrator *Orchestrator
	notifier     *Notifier

	processedEventCnt atomic.Uint64

	shutdownChan chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func NewBot(ghClient GithubClient, eventChan <-chan github_prov.Event, parser *CommandParser) *Bot {
	notifier := NewNotifier(ghClient)

	return &Bot{
		ch:           eventChan,
		logger:       zap.L().Named(loggerName),
		registry:     NewRegistry(),
		parser:       parser,
		notifier:     notifier,
		orchestrator: NewOrchestrator(ghClient, notifier),
		shutdownChan: make(chan struct{}),
	}
}

// Registry returns the registry of merge queues.
func (b *Bot) Registry() *Registry {
	return b.registry
}

// Start starts the event loop in a go-routine.
func (b *Bot) Start() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.eventLoop()
	}()
}

// Stop terminates the event loop and waits until the scheduled operations of
// all merge queues finished.
func (b *Bot) Stop() {
	b.logger.Debug("merge queue bot terminating")

	b.stopOnce.Do(func() { close(b.shutdownChan) })
	b.wg.Wait()

	b.registry.Stop()

	b.logger.Debug("merge queue bot terminated")
}

func (b *Bot) eventLoop() {
	b.logger.Info("merge queue event loop started")

	for {
		select {
		case <-b.shutdownChan:
			b.logger.Info("merge queue event loop terminated")
			return

		case ev, open := <-b.ch:
			if !open {
				b.logger.Info("merge queue event loop terminated, event channel was closed")
				return
			}

			b.processEvent(context.Background(), ev)
			b.processedEventCnt.Add(1)
			metrics.ProcessedEventsInc()
		}
	}
}

func (b *Bot) processEvent(ctx context.Context, event github_prov.Event) {
	logger := b.logger.With(event.LogFields()...)

	logger.Debug("event received", logfields.Event("github_event_received"))

	switch ev := event.(type) {
	case *github_prov.IssueCommentEvent:
		b.processIssueCommentEvent(ctx, logger, ev)

	case *github_prov.StatusEvent:
		b.processStatusEvent(ctx, logger, ev)

	default:
		logger.Debug("event ignored", logEventEventIgnored)
	}
}

func (b *Bot) processIssueCommentEvent(ctx context.Context, logger *zap.Logger, ev *github_prov.IssueCommentEvent) {
	req, err := b.parser.Parse(ctx, ev)
	if err != nil {
		logger.Warn(
			"ignoring event, parsing command failed",
			logEventEventIgnored,
			zap.Error(err),
		)
		return
	}

	if req == nil {
		logger.Debug("ignoring event, comment does not contain a command", logEventEventIgnored)
		return
	}

	q := b.registry.Resolve(req.Repository)
	q.Schedule(func() {
		b.processMergeRequest(ctx, logger, q, req)
	})

	logger.Debug(
		"merge request scheduled",
		logfields.Event("merge_request_scheduled"),
		zap.String("action", string(req.Action)),
	)
}

func (b *Bot) processStatusEvent(ctx context.Context, logger *zap.Logger, ev *github_prov.StatusEvent) {
	q := b.registry.Get(ev.Repository)
	if q == nil {
		logger.Debug("ignoring event, no merge queue exists for the repository", logEventEventIgnored)
		return
	}

	q.Schedule(func() {
		if q.Len() == 0 {
			logger.Debug("ignoring event, merge queue is empty", logEventEventIgnored)
			return
		}

		if err := b.orchestrator.Attempt(ctx, q, false); err != nil {
			logger.Warn("merge attempt aborted", logEventAttemptAborted, zap.Error(err))
		}
	})
}

func (b *Bot) processMergeRequest(ctx context.Context, logger *zap.Logger, q *MergeQueue, req *MergeRequest) {
	switch req.Action {
	case ActionMerge:
		b.enqueue(ctx, logger, q, req)

	case ActionCancel:
		b.cancel(ctx, logger, q, req)

	default:
		logger.DPanic("merge request has unsupported action", zap.String("action", string(req.Action)))
	}
}

func (b *Bot) enqueue(ctx context.Context, logger *zap.Logger, q *MergeQueue, req *MergeRequest) {
	prURL := req.PullRequest.URL
	msg := msgQueued

	_, err := q.Enqueue(NewPullRequest(req.PullRequest))
	if err != nil {
		if !errors.Is(err, ErrAlreadyExists) {
			logger.DPanic("enqueing pull request failed", zap.Error(err))
			return
		}

		logger.Debug("pull request is already queued", logEventEnqueued)
		msg = msgAlreadyQueued
	}

	if q.IsHead(prURL) {
		if err := b.orchestrator.Attempt(ctx, q, req.Explicit); err != nil {
			logger.Warn("merge attempt aborted", logEventAttemptAborted, zap.Error(err))
		}

		return
	}

	ahead, err := q.Ahead(prURL)
	if err != nil {
		logger.DPanic("retrieving pull requests ahead in queue failed", zap.Error(err))
		return
	}

	b.notifier.Comment(ctx, req.PullRequest, fmt.Sprintf(msg, formatPRList(ahead)))
}

func (b *Bot) cancel(ctx context.Context, logger *zap.Logger, q *MergeQueue, req *MergeRequest) {
	_, err := q.Cancel(req.PullRequest.URL)
	if err != nil {
		logger.Info("cancel requested for pull request that is not queued", logEventCanceled, zap.Error(err))
		b.notifier.Comment(ctx, req.PullRequest, msgNoMergeRequest)
		return
	}

	logger.Info("merge request canceled", logEventCanceled)
	b.notifier.Comment(ctx, req.PullRequest, msgCanceled)
}

func formatPRList(prs []*PullRequest) string {
	var result strings.Builder

	for i, pr := range prs {
		if i > 0 {
			result.WriteString(" ")
		}

		result.WriteString(pr.String())
	}

	return result.String()
}
