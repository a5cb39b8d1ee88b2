package mergequeue

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/simplesurance/mergeq/internal/logfields"
)

const metricNamespace = "mergeq"

const (
	queueOperationsMetricName     = "queue_operations_total"
	githubEventsMetricName        = "processed_github_events_total"
	queuedPRCountMetricName       = "queued_prs_count"
	orchestratorOutcomeMetricName = "orchestrator_outcomes_total"
)

const (
	repositoryLabel = "repository"
	operationLabel  = "operation"
	outcomeLabel    = "outcome"
)

type operationLabelVal string

const (
	operationLabelEnqueueVal operationLabelVal = "enqueue"
	operationLabelDequeueVal operationLabelVal = "dequeue"
	operationLabelCancelVal  operationLabelVal = "cancel"
)

type metricCollector struct {
	logger          *zap.Logger
	queueOps        *prometheus.CounterVec
	processedEvents prometheus.Counter
	queueSize       *prometheus.GaugeVec
	outcomes        *prometheus.CounterVec
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		logger: zap.L().Named(loggerName).Named("metrics"),
		queueOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      queueOperationsMetricName,
				Help:      "count of queue operations",
			},
			[]string{repositoryLabel, operationLabel},
		),
		processedEvents: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      githubEventsMetricName,
				Help:      "count of processed github webhook events",
			},
		),
		queueSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      queuedPRCountMetricName,
				Help:      "count of pull requests in the merge queue",
			},
			[]string{repositoryLabel},
		),
		outcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      orchestratorOutcomeMetricName,
				Help:      "count of evaluated queue heads by outcome",
			},
			[]string{repositoryLabel, outcomeLabel},
		),
	}
}

func (m *metricCollector) logGetMetricFailed(metricName string, err error) {
	m.logger.Warn(
		"could not record metric",
		zap.String("metric", metricName),
		logfields.Event("recording_metric_failed"),
		zap.Error(err),
	)
}

func (m *metricCollector) QueueOpsInc(repository string, operation operationLabelVal) {
	cnt, err := m.queueOps.GetMetricWith(prometheus.Labels{
		repositoryLabel: repository,
		operationLabel:  string(operation),
	})
	if err != nil {
		m.logGetMetricFailed(queueOperationsMetricName, err)
		return
	}

	cnt.Inc()
}

func (m *metricCollector) OutcomeInc(repository string, outcome Outcome) {
	cnt, err := m.outcomes.GetMetricWith(prometheus.Labels{
		repositoryLabel: repository,
		outcomeLabel:    string(outcome),
	})
	if err != nil {
		m.logGetMetricFailed(orchestratorOutcomeMetricName, err)
		return
	}

	cnt.Inc()
}

func (m *metricCollector) ProcessedEventsInc() {
	m.processedEvents.Inc()
}

type queueMetrics struct {
	queueSize prometheus.Gauge
}

func newQueueMetrics(repository string) (*queueMetrics, error) {
	queueSize, err := metrics.queueSize.GetMetricWith(prometheus.Labels{repositoryLabel: repository})
	if err != nil {
		return nil, fmt.Errorf("creating queue size metric failed: %w", err)
	}

	return &queueMetrics{queueSize: queueSize}, nil
}

func (q *queueMetrics) QueueSizeInc() {
	if q == nil {
		return
	}

	q.queueSize.Inc()
}

func (q *queueMetrics) QueueSizeDec() {
	if q == nil {
		return
	}

	q.queueSize.Dec()
}
