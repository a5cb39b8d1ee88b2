package mergequeue

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type httpRespWriter struct {
	http.ResponseWriter
	logger *zap.Logger
}

func newHTTPRespWriter(logger *zap.Logger, resp http.ResponseWriter) *httpRespWriter {
	return &httpRespWriter{
		ResponseWriter: resp,
		logger:         logger,
	}
}

// WriteStr writes a string to the http response write.
// If an error happens, it is logged with info priority and false is returned.
// If it suceeded true is returned.
func (rw *httpRespWriter) WriteStr(str string) (wasSuccessful bool) {
	_, err := rw.ResponseWriter.Write([]byte(str))
	if err != nil {
		rw.logger.Info("sending http response failed", zap.Error(err))
		return false
	}

	return true
}

// HTTPHandlerList lists the pull requests of all merge queues as plain text.
func (b *Bot) HTTPHandlerList(respWr http.ResponseWriter, _ *http.Request) {
	resp := newHTTPRespWriter(b.logger, respWr)

	resp.Header().Add("Content-Type", "text/plain; charset=utf-8")

	if !resp.WriteStr(fmt.Sprintf("processed events: %d\n", b.processedEventCnt.Load())) {
		return
	}

	queues := b.registry.Queues()
	var empty = true

	for _, q := range queues {
		prs := q.AsSlice()
		if len(prs) == 0 {
			continue
		}
		empty = false

		if !resp.WriteStr(fmt.Sprintf("Repository: %s\n", q.Repository())) {
			return
		}

		for i, pr := range prs {
			success := resp.WriteStr(fmt.Sprintf(
				"\t#%-4d PR: %-6s\tAdded: %s\t%s\n",
				i, pr.String(), pr.EnqueuedSince.Format(time.RFC822), pr.URL,
			))
			if !success {
				return
			}
		}
	}

	if empty {
		resp.WriteStr("no pull requests queued for merging\n")
	}
}
