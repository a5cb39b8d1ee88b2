package mergequeue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simplesurance/mergeq/internal/githubclt"
	"github.com/simplesurance/mergeq/internal/logfields"
	"github.com/simplesurance/mergeq/internal/mqerr"
)

// Outcome is the result of evaluating the head of a merge queue.
type Outcome string

const (
	OutcomeClosed                   Outcome = "closed"
	OutcomeCleanOK                  Outcome = "clean_ok"
	OutcomeCleanContradiction       Outcome = "clean_contradiction"
	OutcomeBehind                   Outcome = "behind"
	OutcomeBlockedPending           Outcome = "blocked_pending"
	OutcomeBlockedUnexpectedSuccess Outcome = "blocked_unexpected_success"
	OutcomeBlockedFailure           Outcome = "blocked_failure"
	OutcomeBlockedUnknown           Outcome = "blocked_unknown"
	OutcomeUnknownState             Outcome = "unknown_state"
)

// keepsHead returns true if the pull request stays at the head of the queue
// after the outcome.
func (o Outcome) keepsHead() bool {
	return o == OutcomeBlockedPending
}

const (
	msgClosed                   = "I can't merge this pull request because it is closed."
	msgMergeFailed              = "I wasn't able to merge this pull request: %s"
	msgNotMergeable             = "GitHub marked this pull request as not mergeable, it was removed from the merge queue."
	msgUpdateFailed             = "I wasn't able to update this pull request with the base branch %q: %s"
	msgWaitingForChecks         = "I'll merge this pull request after its checks succeed."
	msgUnexpectedBlocked        = "GitHub marked the state of this pull request as blocked unexpectedly, its checks succeeded. It was removed from the merge queue."
	msgChecksFailed             = "The checks of this pull request have failed, it was removed from the merge queue."
	msgUnexpectedStatus         = "The status of this pull request is in an unexpected state (%q), it was removed from the merge queue."
	msgUnexpectedMergeableState = "GitHub reported an unexpected value (%q) as mergeable state of this pull request, it was removed from the merge queue."
)

// Orchestrator drives the head of a MergeQueue through GitHub's merge
// readiness states.
type Orchestrator struct {
	clt      GithubClient
	notifier *Notifier
	logger   *zap.Logger
}

func NewOrchestrator(clt GithubClient, notifier *Notifier) *Orchestrator {
	return &Orchestrator{
		clt:      clt,
		notifier: notifier,
		logger:   zap.L().Named(loggerName).Named("orchestrator"),
	}
}

// Attempt evaluates the head of the queue and acts on it depending on its
// state on GitHub.
// Afterwards the head is removed and the next pull request is evaluated,
// until the queue is empty or the head waits for pending checks.
// Only the evaluation of the first pull request is done with the passed
// explicit value, subsequent ones are evaluated with explicit=false.
//
// If retrieving the state of the head from GitHub fails, the attempt is
// aborted without changing the queue and a *mqerr.RemoteFetchError is
// returned.
//
// Attempt must only be called from a function run via MergeQueue.Schedule().
func (o *Orchestrator) Attempt(ctx context.Context, q *MergeQueue, explicit bool) error {
	logger := o.logger.With(
		logfields.Repository(q.Repository()),
		logfields.AttemptID(uuid.NewString()),
	)

	for {
		pr := q.Head()
		if pr == nil {
			logger.Debug("queue is empty, nothing to do", logfields.Event("merge_queue_empty"))
			return nil
		}

		prLogger := logger.With(pr.LogFields...).With(logFieldExplicit(explicit))

		outcome, err := o.evaluate(ctx, prLogger, pr, explicit)
		if err != nil {
			return err
		}

		metrics.OutcomeInc(q.Repository(), outcome)

		prLogger.Info(
			"evaluated queue head",
			logEventOutcome,
			logFieldOutcome(outcome),
		)

		if outcome.keepsHead() {
			return nil
		}

		if _, err := q.Dequeue(pr.URL); err != nil {
			// must not happen, the queue is only modified by scheduled
			// functions that do not run concurrently
			prLogger.DPanic("removing processed pull request from queue failed", zap.Error(err))
		}

		explicit = false
	}
}

func (o *Orchestrator) evaluate(ctx context.Context, logger *zap.Logger, pr *PullRequest, explicit bool) (Outcome, error) {
	ghPR, err := o.clt.PullRequest(ctx, pr.Owner, pr.Repo, pr.Number)
	if err != nil {
		return "", mqerr.NewRemoteFetchError("fetching pull request", pr.URL, err)
	}

	logger = logger.With(
		zap.String("github.pull_request_state", string(ghPR.State)),
		zap.Stringer("github.mergeable", ghPR.Mergeable),
		logfields.MergeableState(string(ghPR.MergeableState)),
		logfields.BaseBranch(ghPR.BaseRef),
		logfields.Branch(ghPR.HeadRef),
		logfields.Commit(ghPR.HeadSHA),
	)

	logger.Debug("retrieved pull request state", logfields.Event("github_pull_request_retrieved"))

	if ghPR.State == githubclt.PRStateClosed {
		o.notifier.Comment(ctx, pr.PullRequestRef, msgClosed)
		return OutcomeClosed, nil
	}

	switch ghPR.MergeableState {
	case githubclt.MergeableStateClean:
		if ghPR.Mergeable != githubclt.MergeableTrue {
			o.notifier.Comment(ctx, pr.PullRequestRef, msgNotMergeable)
			return OutcomeCleanContradiction, nil
		}

		o.merge(ctx, logger, pr)
		return OutcomeCleanOK, nil

	case githubclt.MergeableStateBehind:
		o.updateBranch(ctx, logger, pr, ghPR)
		return OutcomeBehind, nil

	case githubclt.MergeableStateBlocked:
		return o.evaluateCIStatus(ctx, logger, pr, ghPR, explicit)

	default:
		o.notifier.Comment(ctx, pr.PullRequestRef, fmt.Sprintf(msgUnexpectedMergeableState, ghPR.MergeableState))
		return OutcomeUnknownState, nil
	}
}

func (o *Orchestrator) merge(ctx context.Context, logger *zap.Logger, pr *PullRequest) {
	err := o.clt.SquashMerge(ctx, pr.Owner, pr.Repo, pr.Number)
	if err != nil {
		err = mqerr.NewRemoteActionError("merging pull request", pr.URL, err)
		logger.Warn("merging pull request failed", logEventMergeFailed, zap.Error(err))
		o.notifier.Comment(ctx, pr.PullRequestRef, fmt.Sprintf(msgMergeFailed, errors.Unwrap(err)))
		return
	}

	logger.Info("pull request merged", logEventMerged)
}

// updateBranch merges the base branch of the pull request into its branch.
func (o *Orchestrator) updateBranch(ctx context.Context, logger *zap.Logger, pr *PullRequest, ghPR *githubclt.PullRequest) {
	// the merges endpoint merges head into base
	err := o.clt.MergeBranch(ctx, pr.Owner, pr.Repo, ghPR.HeadRef, ghPR.BaseRef)
	if err != nil {
		err = mqerr.NewRemoteActionError("updating branch with base branch", pr.URL, err)
		logger.Warn("updating pull request branch failed", logEventUpdateFailed, zap.Error(err))
		o.notifier.Comment(ctx, pr.PullRequestRef, fmt.Sprintf(msgUpdateFailed, ghPR.BaseRef, errors.Unwrap(err)))
		return
	}

	logger.Info("pull request branch updated with base branch", logEventUpdated)
}

func (o *Orchestrator) evaluateCIStatus(
	ctx context.Context,
	logger *zap.Logger,
	pr *PullRequest,
	ghPR *githubclt.PullRequest,
	explicit bool,
) (Outcome, error) {
	status, err := o.clt.CIStatus(ctx, pr.Owner, pr.Repo, ghPR.HeadSHA)
	if err != nil {
		return "", mqerr.NewRemoteFetchError("fetching ci status", pr.URL, err)
	}

	logger.Debug(
		"retrieved ci status",
		logfields.Event("github_ci_status_retrieved"),
		logfields.CIStatus(string(status)),
	)

	switch status {
	case githubclt.CIStatusPending:
		if explicit {
			o.notifier.Comment(ctx, pr.PullRequestRef, msgWaitingForChecks)
		}
		return OutcomeBlockedPending, nil

	case githubclt.CIStatusSuccess:
		o.notifier.Comment(ctx, pr.PullRequestRef, msgUnexpectedBlocked)
		return OutcomeBlockedUnexpectedSuccess, nil

	case githubclt.CIStatusFailure:
		o.notifier.Comment(ctx, pr.PullRequestRef, msgChecksFailed)
		return OutcomeBlockedFailure, nil

	default:
		o.notifier.Comment(ctx, pr.PullRequestRef, fmt.Sprintf(msgUnexpectedStatus, status))
		return OutcomeBlockedUnknown, nil
	}
}
