package core

import (
	"context"
	"time"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/model"
	"github.com/kubidu/kubidu/internal/platform"
)

// Notifier fans workspace events out to subscribers.
type Notifier interface {
	Notify(ctx context.Context, event model.WorkspaceEvent) error
}

// WorkspaceNotifier queues each event as a NotifyWorkspaceWorkflow job.
type WorkspaceNotifier struct {
	queue JobQueue
	now   func() time.Time
}

func NewWorkspaceNotifier(queue JobQueue) *WorkspaceNotifier {
	return &WorkspaceNotifier{queue: queue, now: time.Now}
}

func (n *WorkspaceNotifier) Notify(ctx context.Context, event model.WorkspaceEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = n.now().UTC()
	}
	_, err := n.queue.Enqueue(ctx, model.Job{
		Name:    model.NotifyWorkspaceWorkflowName,
		ID:      "notify-" + platform.NewID(),
		Payload: event,
	}, model.NotifyRetryPolicy())
	if err != nil {
		return errs.WrapMsg(errs.ErrExternalDependency, "queue notification "+event.Type, err)
	}
	jobsEnqueued.WithLabelValues("notify").Inc()
	return nil
}

// notify sends a best-effort event for a service.
func notify(ctx context.Context, n Notifier, eventType string, project *model.Project, svc *model.Service, deploymentID, actorID, message string) {
	if n == nil {
		return
	}
	event := model.WorkspaceEvent{
		Type:         eventType,
		DeploymentID: deploymentID,
		ActorID:      actorID,
		Message:      message,
	}
	if project != nil {
		event.WorkspaceID = project.WorkspaceID
		event.ProjectID = project.ID
	}
	if svc != nil {
		event.ServiceID = svc.ID
		event.ServiceName = svc.Name
		if event.ProjectID == "" {
			event.ProjectID = svc.ProjectID
		}
	}
	nonFatal(ctx, "notify_"+eventType, n.Notify(ctx, event))
}
