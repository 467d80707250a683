package workflow

import (
	"sort"
	"strings"
	"time"

	"bac-tracker/internal/models"
)

// Actor is the identity performing a request. It is always passed explicitly.
type Actor struct {
	UserID   uint
	IsAdmin  bool
	OfficeID *uint
}

// State is derived from a stage snapshot and never persisted.
type State struct {
	// пустая строка — ни один этап не отправлен
	LastSubmitted models.StageName `json:"lastSubmittedStage"`
	// пустая строка — проект завершён
	FirstUnsubmitted models.StageName `json:"firstUnsubmittedStage"`
	Finished         bool             `json:"isFinished"`
}

type Direction string

const (
	Submit   Direction = "submit"
	Unsubmit Direction = "unsubmit"
)

// Request carries the raw form inputs of a submit/unsubmit action.
type Request struct {
	StageName  models.StageName `json:"stageName"`
	ApprovedAt string           `json:"approvedAt"`
	CreatedAt  string           `json:"createdAt"`
	Remark     string           `json:"remark"`
}

// StageChange is one row the store has to write. ExpectSubmitted is the
// isSubmitted value the row had in the snapshot the decision was made on.
type StageChange struct {
	Stage           models.ProjectStage
	ExpectSubmitted bool
}

// Transition is the outcome of a successful ApplyTransition.
type Transition struct {
	Direction Direction
	Stage     models.StageName
	At        time.Time
	Changes   []StageChange
	Stages    []models.ProjectStage
	State     State
}

// Engine decides and computes stage transitions. It performs no I/O.
type Engine struct {
	now func() time.Time
	loc *time.Location
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone used for inputs that carry no offset.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now: time.Now,
		loc: time.Local,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Now is the engine clock truncated to whole seconds.
func (e *Engine) Now() time.Time {
	return e.now().Truncate(time.Second)
}

// Ordered returns a copy of stages sorted by canonical stage order.
func Ordered(stages []models.ProjectStage) []models.ProjectStage {
	out := make([]models.ProjectStage, len(stages))
	copy(out, stages)
	sort.SliceStable(out, func(i, j int) bool {
		return models.IndexOf(out[i].StageName) < models.IndexOf(out[j].StageName)
	})
	return out
}

// DeriveState computes the last submitted and first unsubmitted stages.
// Input order does not matter.
func DeriveState(stages []models.ProjectStage) State {
	var st State
	last, first := -1, models.StageCount
	for _, s := range stages {
		idx := models.IndexOf(s.StageName)
		if idx < 0 {
			continue
		}
		if s.IsSubmitted {
			if idx > last {
				last = idx
			}
			if s.StageName == models.StageNoticeToProceed {
				st.Finished = true
			}
		} else if idx < first {
			first = idx
		}
	}

	all := models.Stages()
	if last >= 0 {
		st.LastSubmitted = all[last]
	}
	if first < models.StageCount {
		st.FirstUnsubmitted = all[first]
	}
	return st
}

// DirectionFor reports which transition a request on stage would perform:
// a submitted stage the machine lets actor roll back is an unsubmit,
// everything else is a submit.
func DirectionFor(state State, target models.ProjectStage, actor Actor) Direction {
	if target.IsSubmitted {
		if _, ok := fire(state, Unsubmit, target.StageName, actor); ok {
			return Unsubmit
		}
	}
	return Submit
}

// Eligible reports whether stage may be acted on by actor in the given state.
func Eligible(state State, stage models.StageName, dir Direction, actor Actor) bool {
	_, ok := fire(state, dir, stage, actor)
	return ok
}

// ApplyTransition validates req against the snapshot and returns the new
// snapshot. The input slice is never modified.
func (e *Engine) ApplyTransition(stages []models.ProjectStage, actor Actor, req Request) (*Transition, error) {
	name := req.StageName
	if !name.Valid() {
		return nil, newError(KindStageNotEligible, name, "unknown stage")
	}

	ordered := Ordered(stages)
	pos := -1
	for i := range ordered {
		if ordered[i].StageName == name {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, newError(KindStageNotEligible, name, "stage is not initialized for this project")
	}

	state := DeriveState(ordered)
	target := ordered[pos]
	dir := DirectionFor(state, target, actor)

	if _, ok := fire(state, dir, name, actor); !ok {
		if state.FirstUnsubmitted == "" {
			return nil, newError(KindStageNotEligible, name, "project is finished")
		}
		return nil, newError(KindStageNotEligible, name, "only %q can be submitted now", state.FirstUnsubmitted)
	}

	now := e.Now()
	tr := &Transition{
		Direction: dir,
		Stage:     name,
		At:        now,
	}

	updated := target
	if dir == Unsubmit {
		// createdAt сохраняется при откате
		updated.ApprovedAt = nil
		updated.OfficeID = nil
		updated.Remarks = ""
		updated.IsSubmitted = false
	} else {
		approvedAt, createdAt, remark, err := e.validateSubmit(name, actor, req)
		if err != nil {
			return nil, err
		}

		updated.OfficeID = copyUint(actor.OfficeID)
		switch {
		case target.CreatedAt != nil:
		case createdAt != nil:
			updated.CreatedAt = createdAt
		default:
			updated.CreatedAt = timePtr(now)
		}
		updated.ApprovedAt = approvedAt
		updated.Remarks = remark
		updated.IsSubmitted = true
	}

	ordered[pos] = updated
	tr.Changes = append(tr.Changes, StageChange{Stage: updated, ExpectSubmitted: target.IsSubmitted})

	if dir == Submit {
		if next, ok := models.Next(name); ok && pos+1 < len(ordered) && ordered[pos+1].StageName == next {
			succ := ordered[pos+1]
			if succ.CreatedAt == nil {
				succ.CreatedAt = timePtr(now)
				ordered[pos+1] = succ
				tr.Changes = append(tr.Changes, StageChange{Stage: succ, ExpectSubmitted: succ.IsSubmitted})
			}
		}
	}

	tr.Stages = ordered
	tr.State = DeriveState(ordered)
	return tr, nil
}

func (e *Engine) validateSubmit(name models.StageName, actor Actor, req Request) (approvedAt, createdAt *time.Time, remark string, err error) {
	approvedRaw := strings.TrimSpace(req.ApprovedAt)
	createdRaw := strings.TrimSpace(req.CreatedAt)
	remark = strings.TrimSpace(req.Remark)
	needCreated := actor.IsAdmin && name != models.StagePurchaseRequest

	if approvedRaw == "" {
		return nil, nil, "", newError(KindMissingApproval, name, "approved date is required")
	}
	if needCreated && createdRaw == "" {
		return nil, nil, "", newError(KindMissingCreated, name, "created date is required")
	}
	if remark == "" {
		return nil, nil, "", newError(KindMissingRemark, name, "remark is required")
	}

	at, err := parseStageTimestamp(approvedRaw, e.loc, name, "approvedAt")
	if err != nil {
		return nil, nil, "", err
	}
	approvedAt = &at

	if needCreated {
		ct, err := parseStageTimestamp(createdRaw, e.loc, name, "createdAt")
		if err != nil {
			return nil, nil, "", err
		}
		createdAt = &ct
	}
	return approvedAt, createdAt, remark, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func copyUint(v *uint) *uint {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
