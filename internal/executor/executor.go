// Package executor performs one-shot signing operations against the
// custody service: submit a pre-stamped request, interpret the response,
// and classify failures as fail-fast or eligible for decoupled
// background retry. It never retries inline; a waiting caller gets an
// immediate answer.
package executor

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/votis/walletd/internal/custody"
	"github.com/votis/walletd/internal/metrics"
	"github.com/votis/walletd/internal/stamp"
	walleterr "github.com/votis/walletd/pkg/errors"
)

// Submitter is the slice of the custody client the executor needs.
type Submitter interface {
	SubmitActivity(ctx context.Context, activityType string, body []byte, authMode stamp.AuthMode, encodedStamp string) (*custody.Activity, error)
}

// Job is one retry-eligible operation handed to the background queue.
// It carries everything needed to resubmit: the exact stamped bytes and
// the stamp that covers them.
type Job struct {
	OperationType string
	StampedBody   []byte
	EncodedStamp  string
	AuthMode      stamp.AuthMode
	FailedAt      time.Time
}

// Enqueuer receives retry-eligible jobs. The queue owns its own backoff
// schedule; the executor only classifies eligibility.
type Enqueuer interface {
	Enqueue(job Job) error
}

// Outcome is the result of one Execute call.
type Outcome struct {
	// ActivityID identifies the upstream activity on success.
	ActivityID string

	// Status is the upstream activity status string on success.
	Status string

	// Result is the nested result payload. Nil when the service
	// returned none; that is a generic success, not an error.
	Result json.RawMessage

	// Err is the classified failure, nil on success.
	Err error

	// Queued reports that the failed operation was handed to the
	// background retry queue.
	Queued bool
}

// Executor submits stamped signing operations.
type Executor struct {
	client  Submitter
	queue   Enqueuer
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Options configures an Executor. Queue may be nil; retry-eligible
// failures are then surfaced without queuing.
type Options struct {
	Queue   Enqueuer
	Metrics *metrics.Metrics
}

// New creates an executor over a custody client.
func New(client Submitter, logger *zap.Logger, opts *Options) (*Executor, error) {
	if client == nil {
		return nil, walleterr.Wrap(walleterr.ErrConfigInvalid, "executor requires a custody client")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts == nil {
		opts = &Options{}
	}
	return &Executor{
		client:  client,
		queue:   opts.Queue,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Execute submits one stamped operation. The body arrives pre-stamped:
// the executor validates the stamp's shape but never re-signs, so a
// client-stamped request passes through opaque.
func (e *Executor) Execute(ctx context.Context, operationType string, stampedBody []byte, encodedStamp string, authMode stamp.AuthMode) Outcome {
	if operationType == "" {
		return e.failed(operationType, walleterr.Wrap(walleterr.ErrValidation, "operation type is required"))
	}
	if len(stampedBody) == 0 {
		return e.failed(operationType, walleterr.Wrap(walleterr.ErrValidation, "request body is required"))
	}
	if _, err := stamp.Decode(encodedStamp); err != nil {
		return e.failed(operationType, err)
	}

	activity, err := e.client.SubmitActivity(ctx, operationType, stampedBody, authMode, encodedStamp)
	if err != nil {
		return e.dispatchFailure(operationType, stampedBody, encodedStamp, authMode, err)
	}

	e.observe("success")
	e.logger.Debug("operation submitted",
		zap.String("operation_type", operationType),
		zap.String("activity_id", activity.ID),
		zap.String("activity_status", activity.Status))

	return Outcome{
		ActivityID: activity.ID,
		Status:     activity.Status,
		Result:     activity.Result,
	}
}

// dispatchFailure classifies an upstream failure and, when eligible,
// hands the operation to the background queue.
func (e *Executor) dispatchFailure(operationType string, stampedBody []byte, encodedStamp string, authMode stamp.AuthMode, err error) Outcome {
	outcome := e.failed(operationType, err)

	if !walleterr.IsRetryable(err) || e.queue == nil {
		return outcome
	}

	job := Job{
		OperationType: operationType,
		StampedBody:   stampedBody,
		EncodedStamp:  encodedStamp,
		AuthMode:      authMode,
		FailedAt:      time.Now(),
	}
	if qErr := e.queue.Enqueue(job); qErr != nil {
		e.logger.Warn("retry queue rejected operation",
			zap.String("operation_type", operationType),
			zap.Error(qErr))
		return outcome
	}

	e.logger.Info("operation queued for background retry",
		zap.String("operation_type", operationType),
		zap.String("error_code", walleterr.Code(err)))
	outcome.Queued = true
	return outcome
}

func (e *Executor) failed(operationType string, err error) Outcome {
	e.observe(walleterr.Code(err))
	e.logger.Warn("operation failed",
		zap.String("operation_type", operationType),
		zap.String("error_code", walleterr.Code(err)),
		zap.Error(err))
	return Outcome{Err: err}
}

func (e *Executor) observe(class string) {
	if e.metrics == nil {
		return
	}
	e.metrics.Outcomes.WithLabelValues(class).Inc()
}
