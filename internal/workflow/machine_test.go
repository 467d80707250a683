package workflow

import (
	"testing"

	"bac-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageMachine_Definition(t *testing.T) {
	states := stageMachine.GetStates()
	require.Len(t, states, models.StageCount+1)
	for _, name := range models.Stages() {
		assert.Contains(t, states, string(name))
	}
	assert.Contains(t, states, stateFinished)
	assert.Equal(t, string(models.StagePurchaseRequest), stageMachine.GetInitialState())

	// 8 submit + 7 unsubmit между этапами + откат из finished
	total := 0
	for _, ts := range stageMachine.GetTransitions() {
		total += len(ts)
	}
	assert.Equal(t, 2*models.StageCount, total)
}

func TestFire_Submit(t *testing.T) {
	clerk := Actor{UserID: 2}

	to, ok := fire(DeriveState(freshStages(1)), Submit, models.StagePurchaseRequest, clerk)
	require.True(t, ok)
	assert.Equal(t, string(models.StageRFQ1), to)

	_, ok = fire(DeriveState(freshStages(1)), Submit, models.StageRFQ1, clerk)
	assert.False(t, ok, "stages cannot be skipped")

	to, ok = fire(DeriveState(submittedThrough(models.StageCount-1)), Submit, models.StageNoticeToProceed, clerk)
	require.True(t, ok)
	assert.Equal(t, stateFinished, to)

	_, ok = fire(DeriveState(submittedThrough(models.StageCount)), Submit, models.StageNoticeToProceed, clerk)
	assert.False(t, ok)
}

func TestFire_Unsubmit(t *testing.T) {
	admin := Actor{UserID: 1, IsAdmin: true}
	clerk := Actor{UserID: 2}
	state := DeriveState(submittedThrough(3))
	last := models.Stages()[2]

	to, ok := fire(state, Unsubmit, last, admin)
	require.True(t, ok)
	assert.Equal(t, string(last), to)

	_, ok = fire(state, Unsubmit, last, clerk)
	assert.False(t, ok, "only admins roll back")

	_, ok = fire(state, Unsubmit, models.StagePurchaseRequest, admin)
	assert.False(t, ok, "only the last submitted stage rolls back")

	_, ok = fire(DeriveState(freshStages(1)), Unsubmit, models.StagePurchaseRequest, admin)
	assert.False(t, ok)

	to, ok = fire(DeriveState(submittedThrough(models.StageCount)), Unsubmit, models.StageNoticeToProceed, admin)
	require.True(t, ok)
	assert.Equal(t, string(models.StageNoticeToProceed), to)
}

func TestDirectionFor(t *testing.T) {
	admin := Actor{UserID: 1, IsAdmin: true}
	clerk := Actor{UserID: 2}
	stages := submittedThrough(2)
	state := DeriveState(stages)

	assert.Equal(t, Unsubmit, DirectionFor(state, stages[1], admin))
	assert.Equal(t, Submit, DirectionFor(state, stages[1], clerk))
	assert.Equal(t, Submit, DirectionFor(state, stages[0], admin))
	assert.Equal(t, Submit, DirectionFor(state, stages[2], admin))

	assert.True(t, Eligible(state, stages[2].StageName, Submit, clerk))
	assert.False(t, Eligible(state, stages[1].StageName, Submit, admin))
	assert.True(t, Eligible(state, stages[1].StageName, Unsubmit, admin))
}
