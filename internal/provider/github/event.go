package github

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v43/github"
	"go.uber.org/zap"

	"github.com/simplesurance/mergeq/internal/logfields"
)

// ErrUnsupportedEvent is returned by Parse for webhook event types that are
// not processed.
var ErrUnsupportedEvent = errors.New("unsupported event type")

// ValidationError is returned when a webhook payload of a supported event
// type is malformed or misses required fields.
type ValidationError struct {
	EventType string
	Field     string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s event: %s", e.EventType, e.Reason)
	}

	return fmt.Sprintf("invalid %s event: %s: %s", e.EventType, e.Field, e.Reason)
}

// Metadata is the information that is available for every webhook event.
type Metadata struct {
	// DeliveryID is the unique github ID of the event
	DeliveryID string
	// Type is the github webhook event type returned by github.WebHookType()
	Type string
	// JSON is the event payload as JSON
	JSON []byte
}

func (m *Metadata) Meta() *Metadata {
	return m
}

// Event is a validated GitHub webhook event.
// It is one of *IssueCommentEvent, *StatusEvent or *PingEvent.
type Event interface {
	Meta() *Metadata
	LogFields() []zap.Field
	isEvent()
}

// IssueCommentEvent is sent when a comment on an issue or pull request is
// created, edited or deleted.
type IssueCommentEvent struct {
	Metadata

	Action string
	// Repository is the full name (owner/name) of the repository.
	Repository  string
	IssueURL    string
	IssueNumber int
	// PullRequestURL is the API URL of the pull request, empty if the
	// comment was made on an issue.
	PullRequestURL string
	Body           string
	Author         string
}

func (*IssueCommentEvent) isEvent() {}

// IsPullRequest returns true if the comment was made on a pull request.
func (e *IssueCommentEvent) IsPullRequest() bool {
	return e.PullRequestURL != ""
}

func (e *IssueCommentEvent) LogFields() []zap.Field {
	fields := []zap.Field{
		logfields.DeliveryID(e.DeliveryID),
		logfields.Repository(e.Repository),
		logfields.PullRequest(e.IssueNumber),
	}

	if e.PullRequestURL != "" {
		fields = append(fields, logfields.PullRequestURL(e.PullRequestURL))
	}

	return fields
}

// StatusEvent is sent when the status of a git commit changes.
type StatusEvent struct {
	Metadata

	// State is one of pending, success, failure, error.
	State      string
	Repository string
	Commit     string
	Context    string
}

func (*StatusEvent) isEvent() {}

func (e *StatusEvent) LogFields() []zap.Field {
	return []zap.Field{
		logfields.DeliveryID(e.DeliveryID),
		logfields.Repository(e.Repository),
		logfields.Commit(e.Commit),
		logfields.CIStatus(e.State),
	}
}

// PingEvent is sent by GitHub when a webhook is created.
type PingEvent struct {
	Metadata

	Zen    string
	HookID int64
}

func (*PingEvent) isEvent() {}

func (e *PingEvent) LogFields() []zap.Field {
	return []zap.Field{logfields.DeliveryID(e.DeliveryID)}
}

var statusStates = map[string]struct{}{
	"pending": {},
	"success": {},
	"failure": {},
	"error":   {},
}

// Parse converts a webhook payload of the given github event type to an
// Event.
// If the event type is not supported, ErrUnsupportedEvent is returned.
// If the payload is malformed or required fields are missing a
// *ValidationError is returned.
func Parse(eventType string, payload []byte) (Event, error) {
	switch eventType {
	case "issue_comment", "status", "ping":
	default:
		return nil, ErrUnsupportedEvent
	}

	ghEvent, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		return nil, &ValidationError{EventType: eventType, Reason: err.Error()}
	}

	meta := Metadata{Type: eventType, JSON: payload}

	switch ev := ghEvent.(type) {
	case *github.IssueCommentEvent:
		return toIssueCommentEvent(meta, ev)

	case *github.StatusEvent:
		return toStatusEvent(meta, ev)

	case *github.PingEvent:
		return &PingEvent{
			Metadata: meta,
			Zen:      ev.GetZen(),
			HookID:   ev.GetHookID(),
		}, nil

	default:
		return nil, ErrUnsupportedEvent
	}
}

func missingField(eventType, field string) error {
	return &ValidationError{EventType: eventType, Field: field, Reason: "missing"}
}

func toIssueCommentEvent(meta Metadata, ev *github.IssueCommentEvent) (*IssueCommentEvent, error) {
	const evType = "issue_comment"

	if ev.Action == nil {
		return nil, missingField(evType, "action")
	}

	repo := ev.GetRepo().GetFullName()
	if repo == "" {
		return nil, missingField(evType, "repository.full_name")
	}

	if ev.Issue == nil {
		return nil, missingField(evType, "issue")
	}

	if ev.Issue.URL == nil {
		return nil, missingField(evType, "issue.url")
	}

	if ev.Comment == nil || ev.Comment.Body == nil {
		return nil, missingField(evType, "comment.body")
	}

	var prURL string
	if ev.Issue.PullRequestLinks != nil {
		prURL = ev.Issue.PullRequestLinks.GetURL()
		if prURL == "" {
			return nil, missingField(evType, "issue.pull_request.url")
		}
	}

	return &IssueCommentEvent{
		Metadata:       meta,
		Action:         ev.GetAction(),
		Repository:     repo,
		IssueURL:       ev.Issue.GetURL(),
		IssueNumber:    ev.Issue.GetNumber(),
		PullRequestURL: prURL,
		Body:           ev.Comment.GetBody(),
		Author:         ev.GetSender().GetLogin(),
	}, nil
}

func toStatusEvent(meta Metadata, ev *github.StatusEvent) (*StatusEvent, error) {
	const evType = "status"

	if ev.State == nil {
		return nil, missingField(evType, "state")
	}

	state := strings.ToLower(ev.GetState())
	if _, ok := statusStates[state]; !ok {
		return nil, &ValidationError{
			EventType: evType,
			Field:     "state",
			Reason:    fmt.Sprintf("unsupported value %q", ev.GetState()),
		}
	}

	repo := ev.GetRepo().GetFullName()
	if repo == "" {
		return nil, missingField(evType, "repository.full_name")
	}

	return &StatusEvent{
		Metadata:   meta,
		State:      state,
		Repository: repo,
		Commit:     ev.GetSHA(),
		Context:    ev.GetContext(),
	}, nil
}
