package mergequeue

import (
	"go.uber.org/zap"

	"github.com/simplesurance/mergeq/internal/logfields"
)

var (
	logEventEnqueued       = logfields.Event("pull_request_enqueued")
	logEventDequeued       = logfields.Event("pull_request_dequeued")
	logEventCanceled       = logfields.Event("merge_request_canceled")
	logEventEventIgnored   = logfields.Event("github_event_ignored")
	logEventAttemptAborted = logfields.Event("merge_attempt_aborted")
	logEventOutcome        = logfields.Event("merge_attempt_outcome")
	logEventMerged         = logfields.Event("pull_request_merged")
	logEventMergeFailed    = logfields.Event("pull_request_merge_failed")
	logEventUpdated        = logfields.Event("pull_request_branch_updated")
	logEventUpdateFailed   = logfields.Event("pull_request_branch_update_failed")
	logEventCommentFailed  = logfields.Event("github_comment_creation_failed")
)

func logFieldOutcome(o Outcome) zap.Field {
	return zap.String("outcome", string(o))
}

func logFieldExplicit(explicit bool) zap.Field {
	return zap.Bool("explicit", explicit)
}
