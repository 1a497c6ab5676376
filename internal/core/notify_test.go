package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/model"
)

func TestWorkspaceNotifier(t *testing.T) {
	q := &recordingQueue{}
	n := NewWorkspaceNotifier(q)
	n.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, n.Notify(context.Background(), model.WorkspaceEvent{Type: model.EventServiceCreated, WorkspaceID: testWorkspace}))

	jobs := q.named(model.NotifyWorkspaceWorkflowName)
	require.Len(t, jobs, 1)
	assert.Regexp(t, `^notify-`, jobs[0].ID)
	event := jobs[0].Payload.(model.WorkspaceEvent)
	assert.Equal(t, testWorkspace, event.WorkspaceID)
	assert.Equal(t, 2026, event.OccurredAt.Year())
}

func TestWorkspaceNotifier_QueueFailure(t *testing.T) {
	q := &recordingQueue{fail: map[string]error{model.NotifyWorkspaceWorkflowName: errors.New("down")}}
	err := NewWorkspaceNotifier(q).Notify(context.Background(), model.WorkspaceEvent{Type: model.EventServiceDeleted})
	assert.ErrorIs(t, err, errs.ErrExternalDependency)
}

func TestNotifyHelperSwallowsErrors(t *testing.T) {
	q := &recordingQueue{fail: map[string]error{model.NotifyWorkspaceWorkflowName: errors.New("down")}}
	project := &model.Project{ID: testProject, WorkspaceID: testWorkspace}
	svc := &model.Service{ID: "svc-1", Name: "api"}

	assert.NotPanics(t, func() {
		notify(context.Background(), NewWorkspaceNotifier(q), model.EventServiceUpdated, project, svc, "", adminID, "")
		notify(context.Background(), nil, model.EventServiceUpdated, project, svc, "", adminID, "")
	})
	assert.Empty(t, q.jobs)
}
