// Package service exposes the procurement workflow commands. Every command
// runs its read, decision and write inside one store.Atomic unit.
package service

import (
	"context"
	"errors"
	"fmt"

	"bac-tracker/internal/models"
	"bac-tracker/internal/store"
	"bac-tracker/internal/workflow"

	"github.com/hashicorp/go-hclog"
)

type Service struct {
	store  store.Store
	engine *workflow.Engine
	audit  AuditTrail
	log    hclog.Logger
}

func New(st store.Store, engine *workflow.Engine, log hclog.Logger) *Service {
	if engine == nil {
		engine = workflow.NewEngine()
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Service{
		store:  st,
		engine: engine,
		log:    log,
	}
}

// StageView is a stage row plus what the viewing actor may do with it.
type StageView struct {
	models.ProjectStage
	CanSubmit   bool `json:"canSubmit"`
	CanUnsubmit bool `json:"canUnsubmit"`
}

type ProjectView struct {
	Project models.Project `json:"project"`
	Stages  []StageView    `json:"stages"`
	State   workflow.State `json:"state"`
}

type ProjectSummary struct {
	Project models.Project `json:"project"`
	State   workflow.State `json:"state"`
}

func buildView(p models.Project, stages []models.ProjectStage, state workflow.State, actor workflow.Actor) *ProjectView {
	view := &ProjectView{
		Project: p,
		State:   state,
		Stages:  make([]StageView, 0, len(stages)),
	}
	for _, s := range workflow.Ordered(stages) {
		dir := workflow.DirectionFor(state, s, actor)
		eligible := workflow.Eligible(state, s.StageName, dir, actor)
		view.Stages = append(view.Stages, StageView{
			ProjectStage: s,
			CanSubmit:    eligible && dir == workflow.Submit,
			CanUnsubmit:  eligible && dir == workflow.Unsubmit,
		})
	}
	return view
}

// lockProject maps a missing row to ProjectNotFound.
func lockProject(tx store.Tx, projectID uint) (models.Project, error) {
	p, err := tx.LockProject(projectID)
	if errors.Is(err, store.ErrNotFound) {
		return p, workflow.NewError(workflow.KindProjectNotFound, "project %d not found", projectID)
	}
	return p, err
}

// translate turns storage errors into structured workflow errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrConflict) {
		return &workflow.Error{
			Kind:    workflow.KindConflict,
			Message: "stage was changed by another request",
			Err:     err,
		}
	}
	return workflow.Persistence(err)
}

func (s *Service) logFailure(msg string, err error, args ...interface{}) {
	args = append(args, "error", err)
	if workflow.KindOf(err) == workflow.KindPersistenceFailure {
		s.log.Error(msg, args...)
		return
	}
	s.log.Debug(msg, args...)
}

// GetProjectView loads a project with its stages, creating the stage rows on
// first access. It does not touch the audit fields.
func (s *Service) GetProjectView(ctx context.Context, projectID uint, actor workflow.Actor) (*ProjectView, error) {
	var view *ProjectView
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		p, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		stages, err := s.loadStages(tx, projectID)
		if err != nil {
			return err
		}
		view = buildView(p, stages, workflow.DeriveState(stages), actor)
		return nil
	})
	if err != nil {
		err = translate(err)
		s.logFailure("project view failed", err, "project_id", projectID)
		return nil, err
	}
	return view, nil
}

func (s *Service) loadStages(tx store.Tx, projectID uint) ([]models.ProjectStage, error) {
	created, err := tx.EnsureInitialized(projectID, s.engine.Now())
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Debug("initialized project stages", "project_id", projectID)
	}
	return tx.LoadOrdered(projectID)
}

// SubmitOrUnsubmitStage applies one transition and stamps the audit trail.
// Validation errors leave every row untouched.
func (s *Service) SubmitOrUnsubmitStage(ctx context.Context, projectID uint, actor workflow.Actor, req workflow.Request) (*ProjectView, error) {
	var view *ProjectView
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		if _, err := lockProject(tx, projectID); err != nil {
			return err
		}
		stages, err := s.loadStages(tx, projectID)
		if err != nil {
			return err
		}

		tr, err := s.engine.ApplyTransition(stages, actor, req)
		if err != nil {
			return err
		}

		for _, c := range tr.Changes {
			if err := tx.UpdateStage(store.UpdateFromStage(c.Stage, c.ExpectSubmitted)); err != nil {
				return err
			}
		}

		details := fmt.Sprintf("%s: %s", tr.Direction, tr.Stage)
		if err := s.audit.Stamp(tx, projectID, actor.UserID, tr.At, string(tr.Direction), details); err != nil {
			return err
		}

		p, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		view = buildView(p, tr.Stages, tr.State, actor)

		s.log.Info("stage transition applied",
			"project_id", projectID,
			"stage", tr.Stage,
			"direction", tr.Direction,
			"actor", actor.UserID,
		)
		return nil
	})
	if err != nil {
		err = translate(err)
		s.logFailure("stage transition rejected", err,
			"project_id", projectID,
			"stage", req.StageName,
			"actor", actor.UserID,
			"kind", workflow.KindOf(err),
		)
		return nil, err
	}
	return view, nil
}

// CreateProject stores a new project owned by actor and initializes its stages.
func (s *Service) CreateProject(ctx context.Context, actor workflow.Actor, fields HeaderFields) (*ProjectView, error) {
	fields, err := fields.normalize()
	if err != nil {
		return nil, err
	}

	var view *ProjectView
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		now := s.engine.Now()
		p := &models.Project{
			PRNumber:       fields.PRNumber,
			ProjectDetails: fields.ProjectDetails,
			CreatorUserID:  actor.UserID,
			CreatedAt:      now,
		}
		if err := tx.CreateProject(p); err != nil {
			return err
		}
		stages, err := s.loadStages(tx, p.ID)
		if err != nil {
			return err
		}
		if err := s.audit.Stamp(tx, p.ID, actor.UserID, now, "create", "created project "+p.PRNumber); err != nil {
			return err
		}

		created, err := lockProject(tx, p.ID)
		if err != nil {
			return err
		}
		view = buildView(created, stages, workflow.DeriveState(stages), actor)
		s.log.Info("project created", "project_id", p.ID, "pr_number", p.PRNumber, "actor", actor.UserID)
		return nil
	})
	if err != nil {
		err = translate(err)
		s.logFailure("create project failed", err, "actor", actor.UserID)
		return nil, err
	}
	return view, nil
}

// ListProjects returns every project with its derived stage state. It is a
// pure read: projects without stage rows are reported as fresh.
func (s *Service) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	var out []ProjectSummary
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		projects, err := tx.ListProjects()
		if err != nil {
			return err
		}
		for _, p := range projects {
			stages, err := tx.LoadOrdered(p.ID)
			if err != nil {
				return err
			}
			state := workflow.State{FirstUnsubmitted: models.StagePurchaseRequest}
			if len(stages) > 0 {
				state = workflow.DeriveState(stages)
			}
			out = append(out, ProjectSummary{Project: p, State: state})
		}
		return nil
	})
	if err != nil {
		err = translate(err)
		s.logFailure("list projects failed", err)
		return nil, err
	}
	return out, nil
}

// ProjectHistory returns the audit entries of a project, oldest first.
func (s *Service) ProjectHistory(ctx context.Context, projectID uint) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		if _, err := lockProject(tx, projectID); err != nil {
			return err
		}
		var err error
		logs, err = tx.ListAuditLogs(projectID)
		return err
	})
	if err != nil {
		err = translate(err)
		s.logFailure("project history failed", err, "project_id", projectID)
		return nil, err
	}
	return logs, nil
}
