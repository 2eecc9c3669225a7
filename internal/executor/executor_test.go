package executor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/votis/walletd/internal/custody"
	"github.com/votis/walletd/internal/stamp"
	walleterr "github.com/votis/walletd/pkg/errors"
)

type fakeSubmitter struct {
	calls    int
	lastType string
	lastMode stamp.AuthMode
	activity *custody.Activity
	err      error
}

func (f *fakeSubmitter) SubmitActivity(_ context.Context, activityType string, _ []byte, authMode stamp.AuthMode, _ string) (*custody.Activity, error) {
	f.calls++
	f.lastType = activityType
	f.lastMode = authMode
	return f.activity, f.err
}

type recordingQueue struct {
	jobs []Job
	err  error
}

func (q *recordingQueue) Enqueue(job Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func validStamp(t *testing.T) string {
	t.Helper()
	signer, err := stamp.GenerateP256Signer()
	require.NoError(t, err)
	st, err := stamp.New([]byte(`{"type":"test"}`), signer)
	require.NoError(t, err)
	encoded, err := stamp.Encode(st)
	require.NoError(t, err)
	return encoded
}

func TestExecute_Success(t *testing.T) {
	result := json.RawMessage(`{"signRawPayloadResult":{"r":"1","s":"2","v":"0"}}`)
	submitter := &fakeSubmitter{activity: &custody.Activity{
		ID:     "activity-1",
		Status: "ACTIVITY_STATUS_COMPLETED",
		Result: result,
	}}

	exec, err := New(submitter, zap.NewNop(), nil)
	require.NoError(t, err)

	outcome := exec.Execute(context.Background(), custody.ActivityTypeSignRawPayload,
		[]byte(`{"type":"test"}`), validStamp(t), stamp.AuthModeAPIKey)

	require.NoError(t, outcome.Err)
	assert.Equal(t, "activity-1", outcome.ActivityID)
	assert.Equal(t, "ACTIVITY_STATUS_COMPLETED", outcome.Status)
	assert.JSONEq(t, string(result), string(outcome.Result))
	assert.False(t, outcome.Queued)
	assert.Equal(t, custody.ActivityTypeSignRawPayload, submitter.lastType)
}

func TestExecute_MissingResultIsStillSuccess(t *testing.T) {
	submitter := &fakeSubmitter{activity: &custody.Activity{
		ID:     "activity-1",
		Status: "ACTIVITY_STATUS_CREATED",
	}}

	exec, err := New(submitter, zap.NewNop(), nil)
	require.NoError(t, err)

	outcome := exec.Execute(context.Background(), custody.ActivityTypeSignTransaction,
		[]byte(`{}`), validStamp(t), stamp.AuthModeAPIKey)

	require.NoError(t, outcome.Err)
	assert.Nil(t, outcome.Result)
}

func TestExecute_ClientStampPassesThrough(t *testing.T) {
	submitter := &fakeSubmitter{activity: &custody.Activity{ID: "activity-1"}}

	exec, err := New(submitter, zap.NewNop(), nil)
	require.NoError(t, err)

	outcome := exec.Execute(context.Background(), custody.ActivityTypeCreateAuthenticator,
		[]byte(`{}`), validStamp(t), stamp.AuthModeClient)

	require.NoError(t, outcome.Err)
	assert.Equal(t, stamp.AuthModeClient, submitter.lastMode)
}

func TestExecute_FailureClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantErr   error
		retryable bool
	}{
		{name: "auth failure fails fast", err: walleterr.ErrAuthFailure, wantErr: walleterr.ErrAuthFailure},
		{name: "validation fails fast", err: walleterr.ErrValidation, wantErr: walleterr.ErrValidation},
		{name: "rate limited is retry eligible", err: walleterr.ErrRateLimited, wantErr: walleterr.ErrRateLimited, retryable: true},
		{name: "transient upstream is retry eligible", err: walleterr.ErrTransientUpstream, wantErr: walleterr.ErrTransientUpstream, retryable: true},
		{name: "unknown status is internal", err: walleterr.ErrInternal, wantErr: walleterr.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submitter := &fakeSubmitter{err: tt.err}
			queue := &recordingQueue{}

			exec, err := New(submitter, zap.NewNop(), &Options{Queue: queue})
			require.NoError(t, err)

			outcome := exec.Execute(context.Background(), custody.ActivityTypeSignTransaction,
				[]byte(`{}`), validStamp(t), stamp.AuthModeAPIKey)

			require.ErrorIs(t, outcome.Err, tt.wantErr)
			assert.Equal(t, tt.retryable, outcome.Queued)
			if tt.retryable {
				require.Len(t, queue.jobs, 1)
				assert.Equal(t, custody.ActivityTypeSignTransaction, queue.jobs[0].OperationType)
				assert.Equal(t, []byte(`{}`), queue.jobs[0].StampedBody)
			} else {
				assert.Empty(t, queue.jobs)
			}
		})
	}
}

func TestExecute_RetryableWithoutQueue(t *testing.T) {
	submitter := &fakeSubmitter{err: walleterr.ErrRateLimited}

	exec, err := New(submitter, zap.NewNop(), nil)
	require.NoError(t, err)

	outcome := exec.Execute(context.Background(), custody.ActivityTypeSignTransaction,
		[]byte(`{}`), validStamp(t), stamp.AuthModeAPIKey)

	require.ErrorIs(t, outcome.Err, walleterr.ErrRateLimited)
	assert.False(t, outcome.Queued)
}

func TestExecute_FullQueueSurfacesOriginalError(t *testing.T) {
	submitter := &fakeSubmitter{err: walleterr.ErrTransientUpstream}
	queue := &recordingQueue{err: walleterr.Wrap(walleterr.ErrInternal, "retry queue full")}

	exec, err := New(submitter, zap.NewNop(), &Options{Queue: queue})
	require.NoError(t, err)

	outcome := exec.Execute(context.Background(), custody.ActivityTypeSignTransaction,
		[]byte(`{}`), validStamp(t), stamp.AuthModeAPIKey)

	require.ErrorIs(t, outcome.Err, walleterr.ErrTransientUpstream)
	assert.False(t, outcome.Queued)
}

func TestExecute_InvalidInput(t *testing.T) {
	submitter := &fakeSubmitter{activity: &custody.Activity{ID: "activity-1"}}

	exec, err := New(submitter, zap.NewNop(), nil)
	require.NoError(t, err)

	t.Run("missing operation type", func(t *testing.T) {
		outcome := exec.Execute(context.Background(), "", []byte(`{}`), validStamp(t), stamp.AuthModeAPIKey)
		require.ErrorIs(t, outcome.Err, walleterr.ErrValidation)
	})

	t.Run("empty body", func(t *testing.T) {
		outcome := exec.Execute(context.Background(), custody.ActivityTypeSignTransaction, nil, validStamp(t), stamp.AuthModeAPIKey)
		require.ErrorIs(t, outcome.Err, walleterr.ErrValidation)
	})

	t.Run("malformed stamp", func(t *testing.T) {
		outcome := exec.Execute(context.Background(), custody.ActivityTypeSignTransaction, []byte(`{}`), "not-a-stamp", stamp.AuthModeAPIKey)
		require.ErrorIs(t, outcome.Err, walleterr.ErrInvalidStamp)
		assert.Zero(t, submitter.calls)
	})
}

func TestNew_RequiresClient(t *testing.T) {
	_, err := New(nil, zap.NewNop(), nil)
	require.ErrorIs(t, err, walleterr.ErrConfigInvalid)
}
