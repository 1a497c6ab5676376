// Package queue submits jobs to Temporal. Each job becomes a workflow
// execution whose ID is the job ID.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/kubidu/kubidu/internal/model"
)

const DefaultTaskQueue = "kubidu-tasks"

// TemporalQueue implements the core JobQueue on a Temporal task queue.
//
// Temporal keeps closed executions for the namespace retention period, which
// covers RetryPolicy.RetainOnComplete and RetainOnFail; nothing here deletes
// executions.
type TemporalQueue struct {
	tc        temporalclient.Client
	taskQueue string
}

func NewTemporalQueue(tc temporalclient.Client, taskQueue string) *TemporalQueue {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &TemporalQueue{tc: tc, taskQueue: taskQueue}
}

// Enqueue starts the workflow named by job.Name. Re-submitting a job ID that
// is still running returns the existing execution.
func (q *TemporalQueue) Enqueue(ctx context.Context, job model.Job, policy model.RetryPolicy) (string, error) {
	if job.Name == "" || job.ID == "" {
		return "", errors.New("job name and id are required")
	}

	run, err := q.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:          job.ID,
		TaskQueue:   q.taskQueue,
		RetryPolicy: RetryPolicy(policy),
	}, job.Name, job.Payload)
	if err != nil {
		return "", fmt.Errorf("start %s workflow %s: %w", job.Name, job.ID, err)
	}
	return run.GetID(), nil
}

// RetryPolicy converts a job retry policy to Temporal's. Attempts counts the
// first execution.
func RetryPolicy(p model.RetryPolicy) *temporal.RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	initial := p.Backoff.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	coefficient := 2.0
	if p.Backoff.Type == model.BackoffFixed {
		coefficient = 1.0
	}
	return &temporal.RetryPolicy{
		InitialInterval:    initial,
		BackoffCoefficient: coefficient,
		MaximumAttempts:    int32(p.Attempts),
	}
}
