package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/model"
)

func seedPair(env *testEnv) {
	env.services.put(model.Service{ID: "svc-a", ProjectID: testProject, Name: "a"})
	env.services.put(model.Service{ID: "svc-b", ProjectID: testProject, Name: "b"})
}

func TestVariableService_Authorization(t *testing.T) {
	env := newTestEnv(t)
	seedPair(env)
	vs := env.core.Variable
	ctx := context.Background()

	assert.ErrorIs(t, vs.Set(ctx, deployerID, "svc-a", "PORT", "1", false), errs.ErrForbidden)
	require.NoError(t, vs.Set(ctx, memberID, "svc-a", "PORT", "1", false))

	vars, err := vs.List(ctx, deployerID, "svc-a")
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, "1", vars[0].Value)

	_, err = vs.List(ctx, strangerID, "svc-a")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	assert.ErrorIs(t, vs.Delete(ctx, deployerID, "svc-a", vars[0].ID), errs.ErrForbidden)
	require.NoError(t, vs.Delete(ctx, adminID, "svc-a", vars[0].ID))
}

func TestVariableService_References(t *testing.T) {
	env := newTestEnv(t)
	seedPair(env)
	vs := env.core.Variable
	ctx := context.Background()

	ref, err := vs.AddReference(ctx, adminID, "svc-a", "svc-b", "DATABASE_URL", nil)
	require.NoError(t, err)

	impact, err := vs.Impact(ctx, deployerID, "svc-b")
	require.NoError(t, err)
	assert.Equal(t, []string{"svc-a"}, impact)

	graph, err := vs.ProjectGraph(ctx, memberID, testProject)
	require.NoError(t, err)
	assert.Len(t, graph.Edges, 1)

	// The edge belongs to svc-a, not svc-b.
	assert.ErrorIs(t, vs.RemoveReference(ctx, adminID, "svc-b", ref.ID), errs.ErrNotFound)
	require.NoError(t, vs.RemoveReference(ctx, adminID, "svc-a", ref.ID))

	impact, err = vs.Impact(ctx, deployerID, "svc-b")
	require.NoError(t, err)
	assert.Empty(t, impact)
}
