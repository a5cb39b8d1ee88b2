package logfields

import "go.uber.org/zap"

func PullRequest(val int) zap.Field {
	return zap.Int("github.pull_request", val)
}

func PullRequestURL(val string) zap.Field {
	return zap.String("github.pull_request_url", val)
}

// Repository is the full name (owner/name) of a GitHub repository.
func Repository(val string) zap.Field {
	return zap.String("git.repository", val)
}

func BaseBranch(val string) zap.Field {
	return zap.String("git.base_branch", val)
}

func Branch(val string) zap.Field {
	return zap.String("git.branch", val)
}

func Commit(val string) zap.Field {
	return zap.String("git.commit", val)
}

func CIStatus(val string) zap.Field {
	return zap.String("github.ci_status", val)
}

func MergeableState(val string) zap.Field {
	return zap.String("github.mergeable_state", val)
}
