package mergequeue

import (
	"context"

	"go.uber.org/zap"

	"github.com/simplesurance/mergeq/internal/githubclt"
	"github.com/simplesurance/mergeq/internal/logfields"
	"github.com/simplesurance/mergeq/internal/mqerr"
)

type commentCreator interface {
	CreateIssueComment(ctx context.Context, owner, repo string, issueOrPRNr int, comment string) error
}

// Notifier posts comments to pull requests.
// Failures are logged and otherwise ignored.
type Notifier struct {
	clt    commentCreator
	logger *zap.Logger
}

func NewNotifier(clt commentCreator) *Notifier {
	return &Notifier{
		clt:    clt,
		logger: zap.L().Named(loggerName).Named("notifier"),
	}
}

func (n *Notifier) Comment(ctx context.Context, pr *githubclt.PullRequestRef, body string) {
	err := n.clt.CreateIssueComment(ctx, pr.Owner, pr.Repo, pr.Number, body)
	if err == nil {
		n.logger.Debug(
			"comment created",
			logfields.Event("github_comment_created"),
			logfields.PullRequestURL(pr.URL),
			zap.String("comment", body),
		)
		return
	}

	n.logger.Warn(
		"creating comment failed",
		logEventCommentFailed,
		logfields.PullRequestURL(pr.URL),
		zap.String("comment", body),
		zap.Error(mqerr.NewNotificationError(pr.URL, err)),
	)
}
