package workflow

import (
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/testsuite"

	"github.com/kubidu/kubidu/internal/activity"
)

// registerActivities gives the test environment the activity signatures so
// mocked parameters and results serialize correctly.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.CoreDB{})
	env.RegisterActivity(&activity.Executor{})
	env.RegisterActivity(&activity.Webhook{})
}

func matchFailed(id string) interface{} {
	return mock.MatchedBy(func(p activity.MarkFailedParams) bool {
		return p.ID == id && p.Message != ""
	})
}
