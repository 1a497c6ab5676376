package activity

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/kubidu/kubidu/internal/model"
)

// ExecutorTokenHeader carries the shared secret between the platform and the
// build executor, in both directions.
const ExecutorTokenHeader = "X-Executor-Token"

// Executor hands build and deploy jobs to the external build executor. The
// executor reports progress back through the status endpoints of the API.
type Executor struct {
	client  *http.Client
	baseURL string
	token   string
}

func NewExecutor(baseURL, token string) *Executor {
	return &Executor{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

func (a *Executor) header(idempotencyKey string) http.Header {
	h := http.Header{}
	if a.token != "" {
		h.Set(ExecutorTokenHeader, a.token)
	}
	h.Set("Idempotency-Key", idempotencyKey)
	return h
}

// SubmitBuild POSTs a build job to {EXECUTOR_URL}/builds.
func (a *Executor) SubmitBuild(ctx context.Context, job model.BuildJob) error {
	activity.GetLogger(ctx).Info("submitting build", "deploymentID", job.DeploymentID, "commit", job.CommitSHA)
	return postJSON(ctx, a.client, a.baseURL+"/builds", job, a.header("build-"+job.DeploymentID))
}

// SubmitDeploy POSTs a deploy job to {EXECUTOR_URL}/deployments.
func (a *Executor) SubmitDeploy(ctx context.Context, job model.DeployJob) error {
	activity.GetLogger(ctx).Info("submitting deploy", "deploymentID", job.DeploymentID, "subdomain", job.Subdomain)
	return postJSON(ctx, a.client, a.baseURL+"/deployments", job, a.header("deploy-"+job.DeploymentID))
}
