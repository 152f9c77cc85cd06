package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/pkg/clock"
)

func newWorkflowService(t *testing.T, repo *mockWorkflowRepository) (*WorkflowService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	clk := clock.NewFake(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	return NewWorkflowService(repo, client, time.Hour, clk, newTestLogger()), mr
}

func sampleTree() []domain.Stage {
	return []domain.Stage{
		{
			ID: "stage-001", Name: "Cutting", Sequence: 1,
			Processes: []domain.Process{
				{
					ID: "proc-001", StageID: "stage-001", Name: "Fabric prep", Sequence: 1,
					Subprocesses: []domain.Subprocess{
						{ID: "sub-001", ProcessID: "proc-001", Name: "Marking", Sequence: 1},
						{ID: "sub-002", ProcessID: "proc-001", Name: "Cutting table", Sequence: 2},
					},
				},
			},
		},
	}
}

func TestGetTree_CachesResult(t *testing.T) {
	repo := new(mockWorkflowRepository)
	svc, _ := newWorkflowService(t, repo)
	ctx := context.Background()

	repo.On("GetTree", ctx).Return(sampleTree(), nil).Once()

	first, err := svc.GetTree(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Second call must be served from the cache.
	second, err := svc.GetTree(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	repo.AssertNumberOfCalls(t, "GetTree", 1)
}

func TestCreateStage_InvalidatesCache(t *testing.T) {
	repo := new(mockWorkflowRepository)
	svc, mr := newWorkflowService(t, repo)
	ctx := context.Background()

	repo.On("GetTree", ctx).Return(sampleTree(), nil)
	_, err := svc.GetTree(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists(workflowTreeKey))

	repo.On("CreateStage", ctx, mock.AnythingOfType("*domain.Stage")).Return(nil)
	_, err = svc.CreateStage(ctx, StageInput{Name: "Sewing", Sequence: 2})
	require.NoError(t, err)

	assert.False(t, mr.Exists(workflowTreeKey))
}

func TestGetTree_FallsBackWhenRedisDown(t *testing.T) {
	repo := new(mockWorkflowRepository)
	svc, mr := newWorkflowService(t, repo)
	ctx := context.Background()

	mr.Close()
	repo.On("GetTree", ctx).Return(sampleTree(), nil)

	stages, err := svc.GetTree(ctx)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, "Cutting", stages[0].Name)
}

func TestDeleteSubprocess_InvalidatesCache(t *testing.T) {
	repo := new(mockWorkflowRepository)
	svc, mr := newWorkflowService(t, repo)
	ctx := context.Background()

	repo.On("GetTree", ctx).Return(sampleTree(), nil)
	_, err := svc.GetTree(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists(workflowTreeKey))

	repo.On("DeleteSubprocess", ctx, "sub-001").Return(nil)
	require.NoError(t, svc.DeleteSubprocess(ctx, "sub-001"))
	assert.False(t, mr.Exists(workflowTreeKey))
}
