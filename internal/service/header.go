package service

import (
	"context"
	"strings"

	"bac-tracker/internal/store"
	"bac-tracker/internal/workflow"
)

type HeaderFields struct {
	PRNumber       string `json:"prNumber"`
	ProjectDetails string `json:"projectDetails"`
}

func (f HeaderFields) normalize() (HeaderFields, error) {
	f.PRNumber = strings.TrimSpace(f.PRNumber)
	f.ProjectDetails = strings.TrimSpace(f.ProjectDetails)
	if f.PRNumber == "" || f.ProjectDetails == "" {
		return f, workflow.NewError(workflow.KindMissingField, "PR number and project details are required")
	}
	return f, nil
}

// UpdateHeader changes the PR number and details of a project. Admins only.
func (s *Service) UpdateHeader(ctx context.Context, projectID uint, actor workflow.Actor, fields HeaderFields) (*ProjectView, error) {
	if !actor.IsAdmin {
		err := workflow.NewError(workflow.KindForbidden, "only admins can update project details")
		s.logFailure("header update rejected", err, "project_id", projectID, "actor", actor.UserID)
		return nil, err
	}
	fields, err := fields.normalize()
	if err != nil {
		return nil, err
	}

	var view *ProjectView
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		if _, err := lockProject(tx, projectID); err != nil {
			return err
		}
		if err := tx.UpdateProjectHeader(projectID, fields.PRNumber, fields.ProjectDetails); err != nil {
			return err
		}
		if err := s.audit.Stamp(tx, projectID, actor.UserID, s.engine.Now(), "update_header", "PR number "+fields.PRNumber); err != nil {
			return err
		}

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
		s.logFailure("header update failed", err, "project_id", projectID)
		return nil, err
	}

	s.log.Info("project header updated", "project_id", projectID, "actor", actor.UserID)
	return view, nil
}
