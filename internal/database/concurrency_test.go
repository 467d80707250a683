package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"bac-tracker/internal/models"
	"bac-tracker/internal/service"
	"bac-tracker/internal/store"
	"bac-tracker/internal/workflow"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ConcurrentSubmitSingleWinner(t *testing.T) {
	db := setupTestDB(t)
	st := NewStore(db)
	id := newProject(t, st)
	ctx := context.Background()

	engine := workflow.NewEngine(
		workflow.WithClock(func() time.Time { return now }),
		workflow.WithLocation(time.UTC),
	)
	svc := service.New(st, engine, hclog.NewNullLogger())
	clerk := workflow.Actor{UserID: 2}

	_, err := svc.GetProjectView(ctx, id, clerk)
	require.NoError(t, err)

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitOrUnsubmitStage(ctx, id, clerk, workflow.Request{
				StageName:  models.StagePurchaseRequest,
				ApprovedAt: "2024-06-01T10:00",
				Remark:     "signed",
			})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, workflow.ErrStageNotEligible)
	}
	assert.Equal(t, 1, ok)

	require.NoError(t, st.Atomic(ctx, func(tx store.Tx) error {
		stages, err := tx.LoadOrdered(id)
		require.NoError(t, err)
		assert.True(t, stages[0].IsSubmitted)
		assert.False(t, stages[1].IsSubmitted)
		require.NotNil(t, stages[1].CreatedAt)
		return nil
	}))

	var logs int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("entity_id = ? AND action = ?", id, "submit").Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
}
