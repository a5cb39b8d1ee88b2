package githubclt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-github/v43/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, mux *http.ServeMux, opts ...Option) *Client {
	t.Helper()

	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	clt, err := newClient(srv.Client(), srv.URL+"/", opts...)
	require.NoError(t, err)

	return clt
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body string) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := io.WriteString(w, body)
	assert.NoError(t, err)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	var result map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&result))

	return result
}

func TestPullRequest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testman/repo/pulls/12", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		writeJSON(t, w, http.StatusOK, `{
			"url": "https://api.github.com/repos/testman/repo/pulls/12",
			"number": 12,
			"state": "open",
			"mergeable": true,
			"mergeable_state": "clean",
			"base": {"ref": "main", "sha": "1111"},
			"head": {"ref": "feature", "sha": "2222"}
		}`)
	})

	clt := newTestClient(t, mux)

	pr, err := clt.PullRequest(context.Background(), "testman", "repo", 12)
	require.NoError(t, err)

	assert.Equal(t, "https://api.github.com/repos/testman/repo/pulls/12", pr.URL)
	assert.Equal(t, 12, pr.Number)
	assert.Equal(t, PRStateOpen, pr.State)
	assert.Equal(t, MergeableTrue, pr.Mergeable)
	assert.Equal(t, MergeableStateClean, pr.MergeableState)
	assert.Equal(t, "main", pr.BaseRef)
	assert.Equal(t, "1111", pr.BaseSHA)
	assert.Equal(t, "feature", pr.HeadRef)
	assert.Equal(t, "2222", pr.HeadSHA)
}

func TestPullRequestMergeableNull(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testman/repo/pulls/3", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"number": 3, "state": "open", "mergeable": null, "mergeable_state": "unknown"}`)
	})

	clt := newTestClient(t, mux)

	pr, err := clt.PullRequest(context.Background(), "testman", "repo", 3)
	require.NoError(t, err)
	assert.Equal(t, MergeableUnknown, pr.Mergeable)
	assert.Equal(t, MergeableStateUnknown, pr.MergeableState)
}

func TestPullRequestNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testman/repo/pulls/3", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusNotFound, `{"message": "Not Found"}`)
	})

	clt := newTestClient(t, mux)

	pr, err := clt.PullRequest(context.Background(), "testman", "repo", 3)
	require.Error(t, err)
	assert.Nil(t, pr)

	var respErr *github.ErrorResponse
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusNotFound, respErr.Response.StatusCode)
}

func TestSquashMerge(t *testing.T) {
	var calls int

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testman/repo/pulls/12/merge", func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "squash", decodeBody(t, r)["merge_method"])

		writeJSON(t, w, http.StatusOK, `{"sha": "abcd", "merged": true, "message": "Pull Request successfully merged"}`)
	})

	clt := newTestClient(t, mux)

	require.NoError(t, clt.SquashMerge(context.Background(), "testman", "repo", 12))
	assert.Equal(t, 1, calls)
}

func TestSquashMergeNotMergeable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testman/repo/pulls/12/merge", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusMethodNotAllowed, `{"message": "Pull Request is not mergeable"}`)
	})

	clt := newTestClient(t, mux)

	err := clt.SquashMerge(context.Background(), "testman", "repo", 12)
	require.Error(t, err)

	var respErr *github.ErrorResponse
	assert.ErrorAs(t, err, &respErr)
}

func TestMergeBranch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testman/repo/merges", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		body := decodeBody(t, r)
		assert.Equal(t, "feature", body["base"])
		assert.Equal(t, "main", body["head"])

		writeJSON(t, w, http.StatusCreated, `{"sha": "3333"}`)
	})

	clt := newTestClient(t, mux)

	require.NoError(t, clt.MergeBranch(context.Background(), "testman", "repo", "feature", "main"))
}

func TestMergeBranchNothingToMerge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testman/repo/merges", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	clt := newTestClient(t, mux)

	require.NoError(t, clt.MergeBranch(context.Background(), "testman", "repo", "feature", "main"))
}

func TestMergeBranchConflict(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testman/repo/merges", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusConflict, `{"message": "Merge conflict"}`)
	})

	clt := newTestClient(t, mux)

	require.Error(t, clt.MergeBranch(context.Background(), "testman", "repo", "feature", "main"))
}

func TestCreateIssueComment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testman/repo/issues/12/comments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "hello", decodeBody(t, r)["body"])

		writeJSON(t, w, http.StatusCreated, `{"id": 1, "body": "hello"}`)
	})

	clt := newTestClient(t, mux)

	require.NoError(t, clt.CreateIssueComment(context.Background(), "testman", "repo", 12, "hello"))
}

func TestCombinedStatus(t *testing.T) {
	testcases := []struct {
		state    string
		expected CIStatus
	}{
		{state: "success", expected: CIStatusSuccess},
		{state: "pending", expected: CIStatusPending},
		{state: "failure", expected: CIStatusFailure},
		{state: "error", expected: CIStatusFailure},
		{state: "bogus", expected: CIStatus("bogus")},
	}

	for _, tc := range testcases {
		t.Run(tc.state, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/testman/repo/commits/2222/status", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				writeJSON(t, w, http.StatusOK, `{"state": "`+tc.state+`", "sha": "2222", "total_count": 1}`)
			})

			clt := newTestClient(t, mux)

			status, err := clt.CIStatus(context.Background(), "testman", "repo", "2222")
			require.NoError(t, err)
			assert.Equal(t, tc.expected, status)
		})
	}
}

func TestStatusCheckRollup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		body := decodeBody(t, r)
		vars, ok := body["variables"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "2222", vars["oid"])
		assert.Equal(t, "testman", vars["owner"])
		assert.Equal(t, "repo", vars["name"])

		writeJSON(t, w, http.StatusOK, `{"data": {"repository": {"object": {"statusCheckRollup": {"state": "FAILURE"}}}}}`)
	})

	clt := newTestClient(t, mux, WithStatusCheckRollup())

	status, err := clt.CIStatus(context.Background(), "testman", "repo", "2222")
	require.NoError(t, err)
	assert.Equal(t, CIStatusFailure, status)
}

func TestStatusCheckRollupWithoutChecks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"data": {"repository": {"object": {"statusCheckRollup": null}}}}`)
	})

	clt := newTestClient(t, mux, WithStatusCheckRollup())

	status, err := clt.StatusCheckRollup(context.Background(), "testman", "repo", "2222")
	require.NoError(t, err)
	assert.Equal(t, CIStatusPending, status)
}

func TestAuthorizationHeader(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, `{"state": "success"}`)
	}))
	t.Cleanup(srv.Close)

	clt, err := New("s3cr3t", srv.URL+"/")
	require.NoError(t, err)

	_, err = clt.CombinedStatus(context.Background(), "testman", "repo", "2222")
	require.NoError(t, err)
	assert.Equal(t, "token s3cr3t", authHeader)
}

func TestGraphQLURL(t *testing.T) {
	clt, err := newClient(http.DefaultClient, "https://ghe.example.com/api/v3")
	require.NoError(t, err)
	assert.Equal(t, "https://ghe.example.com/api/v3/", clt.restClt.BaseURL.String())
	assert.NotNil(t, clt.graphQLClt)
}

func TestGraphQLURLDerivation(t *testing.T) {
	clt, err := newClient(http.DefaultClient, "https://ghe.example.com/api/v3/")
	require.NoError(t, err)

	assert.Equal(t, "https://ghe.example.com/api/graphql", graphQLURL(clt.restClt.BaseURL))
}

func TestCombinedStatusServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testman/repo/commits/2222/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusBadGateway, `{"message": "bad gateway"}`)
	})

	clt := newTestClient(t, mux)

	status, err := clt.CIStatus(context.Background(), "testman", "repo", "2222")
	require.Error(t, err)
	assert.Empty(t, status)
	assert.False(t, errors.Is(err, context.Canceled))
}
