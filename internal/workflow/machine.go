package workflow

import (
	"bac-tracker/internal/models"

	"github.com/anggasct/fluo"
)

// stateFinished is the position after Notice to Proceed was submitted.
const stateFinished = "finished"

// stageEvent is the payload guards see when an event is sent.
type stageEvent struct {
	stage models.StageName
	actor Actor
}

// Позиция машины — первый неотправленный этап. submit сдвигает её вперёд,
// unsubmit (только админ) возвращает на один этап назад.
var stageMachine = buildStageMachine()

func buildStageMachine() fluo.MachineDefinition {
	builder := fluo.NewMachine()
	stages := models.Stages()

	for i, name := range stages {
		next := stateFinished
		if i+1 < len(stages) {
			next = string(stages[i+1])
		}

		sb := builder.State(string(name))
		if i == 0 {
			sb = sb.Initial()
		}
		tb := sb.To(next).On(string(Submit)).When(targets(name))
		if i > 0 {
			tb.To(string(stages[i-1])).On(string(Unsubmit)).When(adminTargets(stages[i-1]))
		}
	}

	builder.State(stateFinished).
		To(string(models.StageNoticeToProceed)).On(string(Unsubmit)).When(adminTargets(models.StageNoticeToProceed))

	return builder.Build()
}

func targets(stage models.StageName) fluo.GuardFunc {
	return func(ctx fluo.Context) bool {
		ev, ok := ctx.GetEventData().(stageEvent)
		return ok && ev.stage == stage
	}
}

func adminTargets(stage models.StageName) fluo.GuardFunc {
	return func(ctx fluo.Context) bool {
		ev, ok := ctx.GetEventData().(stageEvent)
		return ok && ev.actor.IsAdmin && ev.stage == stage
	}
}

// position maps a derived state onto the machine state an event of dir
// starts from.
func position(state State, dir Direction) string {
	if dir == Unsubmit {
		if state.LastSubmitted == "" {
			return string(models.StagePurchaseRequest)
		}
		next, ok := models.Next(state.LastSubmitted)
		if !ok {
			return stateFinished
		}
		return string(next)
	}
	if state.FirstUnsubmitted == "" {
		return stateFinished
	}
	return string(state.FirstUnsubmitted)
}

// fire runs one event on a fresh machine instance restored to state.
// It returns the position reached and whether the event was accepted.
func fire(state State, dir Direction, stage models.StageName, actor Actor) (string, bool) {
	m := stageMachine.CreateInstance()
	if err := m.Start(); err != nil {
		return "", false
	}
	if err := m.SetState(position(state, dir)); err != nil {
		return "", false
	}
	res := m.SendEvent(string(dir), stageEvent{stage: stage, actor: actor})
	if res == nil || !res.Processed || res.Error != nil {
		return m.CurrentState(), false
	}
	return res.CurrentState, true
}
