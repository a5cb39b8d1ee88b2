// Package mergequeue provides serialized merging of GitHub pull requests.
//
// Users request merging a pull request by commenting "!merge" on it and
// withdraw the request with "!cancel". Per repository the requests are kept
// in a FIFO-queue. Only the first pull request in the queue (the head) is
// processed.
//
// # Components
//
// The CommandParser extracts merge requests from issue comment events.
//
// The Registry maps repositories to their MergeQueue. A queue is created when
// a repository is referenced the first time, it is never removed.
//
// The Orchestrator retrieves the state of the head pull request from GitHub
// and decides what to do:
//   - clean and mergeable: the pull request is squash merged,
//   - behind: the base branch is merged into the pull request branch,
//   - blocked: the CI status of the head commit is retrieved. When it is
//     pending, the pull request stays at the head until a status event
//     triggers the next evaluation.
//
// In every other case the pull request is removed from the queue, the author
// is notified via a comment and the next pull request is evaluated. Only the
// evaluation triggered by a command comments that a pull request waits for
// its checks, when draining the queue those comments are omitted.
//
// The Notifier creates comments on pull requests. Failures are only logged.
//
// The Bot receives webhook events and runs the operations for them.
//
// # Concurrency
//
// Every MergeQueue owns a go-routine pool of size 1. Queue modifications
// triggered by commands and all orchestrator runs for a repository are
// scheduled on it and therefore never run concurrently. Operations of
// different repositories run in parallel.
package mergequeue
