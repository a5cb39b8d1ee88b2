package github

import (
	"errors"
	"net/http"

	"github.com/google/go-github/v43/github"
	"go.uber.org/zap"

	"github.com/simplesurance/mergeq/internal/logfields"
)

const loggerName = "github-event-provider"

// Provider listens for github-webhook http-requests at a http-server handler,
// validates and converts the requests to Events and forwards them to an event
// channel.
type Provider struct {
	logger *zap.Logger
	c      chan<- Event
}

func New(eventChan chan<- Event) *Provider {
	return &Provider{
		c:      eventChan,
		logger: zap.L().Named(loggerName),
	}
}

func (p *Provider) HTTPHandler(resp http.ResponseWriter, req *http.Request) {
	deliveryID := github.DeliveryID(req)
	hookType := github.WebHookType(req)

	baseLogger := p.logger.With(
		logfields.EventProvider("github"),
		zap.String("github.webhook_type", hookType),
	)
	logger := baseLogger.With(logfields.DeliveryID(deliveryID))

	logger.Debug("received a http request", logfields.Event("github_http_request_received"))

	// signatures are not verified, senders are not authenticated
	payload, err := github.ValidatePayload(req, nil)
	if err != nil {
		logger.Info(
			"received invalid http request, payload validation failed",
			logfields.Event("github_http_request_validation_failed"),
			zap.Error(err),
		)
		http.Error(resp, err.Error(), http.StatusBadRequest)
		return
	}

	ev, err := Parse(hookType, payload)
	if err != nil {
		if errors.Is(err, ErrUnsupportedEvent) {
			logger.Debug(
				"ignoring event, event type is unsupported",
				logfields.Event("github_unsupported_event_received"),
			)
			return
		}

		logger.Info(
			"received invalid event",
			logfields.Event("github_event_parsing_failed"),
			zap.Error(err),
			zap.ByteString("http_body", payload),
		)
		http.Error(resp, err.Error(), http.StatusBadRequest)
		return
	}

	ev.Meta().DeliveryID = deliveryID
	logger = baseLogger.With(ev.LogFields()...)

	if _, ok := ev.(*PingEvent); ok {
		logger.Info("received ping event", logfields.Event("github_ping_received"))
		return
	}

	select {
	case p.c <- ev:
		logger.Debug("event forwarded to channel",
			logfields.Event("github_event_forwarded"),
		)

	default:
		logger.Warn(
			"event lost, forwarding event to channel failed",
			zap.String("error", "could not forward event to channel, send would have blocked"),
			logfields.Event("github_forwarding_event_failed"),
		)

		http.Error(resp, "queue full", http.StatusServiceUnavailable)
		return
	}
}
