package mergequeue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/simplesurance/mergeq/internal/githubclt"
	github_prov "github.com/simplesurance/mergeq/internal/provider/github"
)

// Action is the operation a MergeRequest asks for.
type Action string

const (
	ActionMerge  Action = "merge"
	ActionCancel Action = "cancel"
)

// MergeRequest is a command to add a pull request to a merge queue or remove
// it.
type MergeRequest struct {
	Action      Action
	Repository  string
	PullRequest *githubclt.PullRequestRef
	// Explicit is true when the request was issued by a user. Only
	// explicit merge attempts comment that a pull request is waiting for
	// its checks.
	Explicit bool
}

var commandRe = regexp.MustCompile(`^\s*!(merge|cancel)\b`)

// CommandParser extracts MergeRequests from issue comments.
type CommandParser struct {
	filterQuery *gojq.Query
}

// NewCommandParser returns a CommandParser.
// If filterQuery is not empty, it must be a jq expression that evaluates to
// exactly one boolean for the JSON issue_comment event. Only commands of events
// for that it returns true are accepted.
func NewCommandParser(filterQuery string) (*CommandParser, error) {
	var p CommandParser

	if filterQuery == "" {
		return &p, nil
	}

	query, err := gojq.Parse(filterQuery)
	if err != nil {
		return nil, fmt.Errorf("parsing command filter query failed: %w", err)
	}
	p.filterQuery = query

	return &p, nil
}

// Parse returns the MergeRequest contained in the comment event.
// If the comment was not created on a pull request, does not start with a
// command or the filter query evaluates to false, nil is returned.
func (p *CommandParser) Parse(ctx context.Context, ev *github_prov.IssueCommentEvent) (*MergeRequest, error) {
	if ev.Action != "created" || !ev.IsPullRequest() {
		return nil, nil
	}

	matches := commandRe.FindStringSubmatch(ev.Body)
	if matches == nil {
		return nil, nil
	}

	if p.filterQuery != nil {
		accepted, err := p.evalFilter(ctx, ev.JSON)
		if err != nil {
			return nil, err
		}

		if !accepted {
			return nil, nil
		}
	}

	ref, err := githubclt.ParsePullRequestURL(ev.PullRequestURL)
	if err != nil {
		return nil, err
	}

	return &MergeRequest{
		Action:      Action(matches[1]),
		Repository:  ev.Repository,
		PullRequest: ref,
		Explicit:    true,
	}, nil
}

func (p *CommandParser) evalFilter(ctx context.Context, eventJSON []byte) (bool, error) {
	var evUn any

	if len(eventJSON) == 0 {
		return false, errors.New("json field of event is empty")
	}

	if err := json.Unmarshal(eventJSON, &evUn); err != nil {
		return false, fmt.Errorf("unmarshaling json failed: %w", err)
	}

	result, errs := goJQIterToSlice(p.filterQuery.RunWithContext(ctx, evUn))
	if len(errs) != 0 {
		return false, fmt.Errorf("json query returned errors, query: %q, errors: %s", p.filterQuery.String(), errString(errs))
	}

	if len(result) != 1 {
		return false, fmt.Errorf("json query returned %d results, expected 1, query: %q", len(result), p.filterQuery.String())
	}

	val, ok := result[0].(bool)
	if !ok {
		return false, fmt.Errorf(
			"json query returned non-bool result: %+v (%T), query: %q",
			result[0], result[0], p.filterQuery.String(),
		)
	}

	return val, nil
}

func goJQIterToSlice(iter gojq.Iter) ([]any, []error) {
	var result []any
	var errors []error

	for {
		res, ok := iter.Next()
		if !ok {
			return result, errors
		}

		if err, isErr := res.(error); isErr {
			errors = append(errors, err)
			continue
		}

		result = append(result, res)
	}
}

func errString(errs []error) string {
	var result strings.Builder

	for i, err := range errs {
		if i > 0 {
			result.WriteString("; ")
		}

		result.WriteString(fmt.Sprintf("error %d: %s", i, err))
	}

	return result.String()
}
