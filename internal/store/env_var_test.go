package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/model"
)

func TestEnvVarStore_FindByKey(t *testing.T) {
	db := &mockDB{}
	s := NewEnvVarStore(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"svc-1", model.EnvServiceName}).
		Return(&mockRow{scanFunc: func(dest ...any) error {
			*(dest[0].(*string)) = "ev-1"
			*(dest[1].(*string)) = "svc-1"
			*(dest[3].(*string)) = model.EnvServiceName
			*(dest[4].(*string)) = "ciphertext"
			*(dest[6].(*bool)) = true
			return nil
		}})

	v, err := s.FindByKey(ctx, "svc-1", model.EnvServiceName)
	require.NoError(t, err)
	assert.Equal(t, "ev-1", v.ID)
	assert.True(t, v.IsSystem)
	assert.Nil(t, v.DeploymentID)
}

func TestEnvVarStore_FindByKey_Missing(t *testing.T) {
	db := &mockDB{}
	s := NewEnvVarStore(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(errRow(pgx.ErrNoRows))

	_, err := s.FindByKey(ctx, "svc-1", "NOPE")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestEnvVarStore_Upsert(t *testing.T) {
	db := &mockDB{}
	s := NewEnvVarStore(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "ON CONFLICT (service_id, key) WHERE deployment_id IS NULL",
			"DO UPDATE SET value = EXCLUDED.value")
	}), []any{"ev-1", "svc-1", model.EnvServiceName, "sealed", false, true}).Return(tag("INSERT 0 1"), nil)

	err := s.Upsert(ctx, &model.EnvironmentVariable{
		ID: "ev-1", ServiceID: "svc-1", Key: model.EnvServiceName, Value: "sealed", IsSystem: true,
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestEnvVarStore_Upsert_UserWriteOverSystemVariable(t *testing.T) {
	db := &mockDB{}
	s := NewEnvVarStore(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(tag("INSERT 0 0"), nil)

	err := s.Upsert(ctx, &model.EnvironmentVariable{ID: "ev-2", ServiceID: "svc-1", Key: model.EnvServiceID, Value: "x"})
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestEnvVarReferenceStore_Create_Duplicate(t *testing.T) {
	db := &mockDB{}
	s := NewEnvVarReferenceStore(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(errRow(&pgconn.PgError{Code: "23505", ConstraintName: "env_var_references_unique"}))

	err := s.Create(ctx, &model.EnvVarReference{ID: "ref-1", ConsumingServiceID: "a", SourceServiceID: "b", Key: "URL"})
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestEnvVarReferenceStore_ListBySource(t *testing.T) {
	db := &mockDB{}
	s := NewEnvVarReferenceStore(db)
	ctx := context.Background()

	edge := func(id, consumer string) func(dest ...any) error {
		return func(dest ...any) error {
			*(dest[0].(*string)) = id
			*(dest[1].(*string)) = consumer
			*(dest[2].(*string)) = "svc-c"
			*(dest[3].(*string)) = "DATABASE_URL"
			*(dest[5].(*time.Time)) = time.Now()
			return nil
		}
	}
	db.On("Query", ctx, mock.AnythingOfType("string"), []any{"svc-c"}).
		Return(newMockRows(edge("r1", "svc-b"), edge("r2", "svc-a")), nil)

	out, err := s.ListBySource(ctx, "svc-c")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "svc-b", out[0].ConsumingServiceID)
	assert.Equal(t, "svc-a", out[1].ConsumingServiceID)
}

func TestEnvVarReferenceStore_Delete_Missing(t *testing.T) {
	db := &mockDB{}
	s := NewEnvVarReferenceStore(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), []any{"ref-x"}).Return(tag("DELETE 0"), nil)

	assert.ErrorIs(t, s.Delete(ctx, "ref-x"), errs.ErrNotFound)
}
