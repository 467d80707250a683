package handlers

import (
	"context"
	"strconv"

	"bac-tracker/internal/models"
	"bac-tracker/internal/service"
	"bac-tracker/internal/workflow"

	"github.com/gin-gonic/gin"
)

type ProjectService interface {
	GetProjectView(ctx context.Context, projectID uint, actor workflow.Actor) (*service.ProjectView, error)
	SubmitOrUnsubmitStage(ctx context.Context, projectID uint, actor workflow.Actor, req workflow.Request) (*service.ProjectView, error)
	UpdateHeader(ctx context.Context, projectID uint, actor workflow.Actor, fields service.HeaderFields) (*service.ProjectView, error)
	CreateProject(ctx context.Context, actor workflow.Actor, fields service.HeaderFields) (*service.ProjectView, error)
	ListProjects(ctx context.Context) ([]service.ProjectSummary, error)
	ProjectHistory(ctx context.Context, projectID uint) ([]models.AuditLog, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (models.User, error)
}

type OfficeDirectory interface {
	ListOffices(ctx context.Context) ([]models.Office, error)
	OfficeNameOf(ctx context.Context, officeID uint) (string, error)
}

type Handlers struct {
	projects ProjectService
	accounts Authenticator
	offices  OfficeDirectory
}

func New(projects ProjectService, accounts Authenticator, offices OfficeDirectory) *Handlers {
	return &Handlers{
		projects: projects,
		accounts: accounts,
		offices:  offices,
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid project id")
		return 0, false
	}
	return uint(id), true
}
