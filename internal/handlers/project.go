package handlers

import (
	"net/http"

	"bac-tracker/internal/middleware"
	"bac-tracker/internal/models"
	"bac-tracker/internal/service"
	"bac-tracker/internal/workflow"

	"github.com/gin-gonic/gin"
)

type stageResponse struct {
	service.StageView
	OfficeName string `json:"officeName,omitempty"`
}

type projectResponse struct {
	Project     models.Project  `json:"project"`
	Stages      []stageResponse `json:"stages"`
	State       workflow.State  `json:"state"`
	ActorOffice string          `json:"actorOffice,omitempty"`
}

// renderView дополняет снимок названиями отделов
func (h *Handlers) renderView(c *gin.Context, status int, view *service.ProjectView, actor workflow.Actor) {
	ctx := c.Request.Context()
	log := middleware.Logger(c)

	names := map[uint]string{}
	if offices, err := h.offices.ListOffices(ctx); err == nil {
		for _, o := range offices {
			names[o.ID] = o.Name
		}
	} else {
		log.Warn("list offices", "error", err)
	}

	resp := projectResponse{
		Project: view.Project,
		State:   view.State,
		Stages:  make([]stageResponse, 0, len(view.Stages)),
	}
	for _, s := range view.Stages {
		r := stageResponse{StageView: s}
		if s.OfficeID != nil {
			r.OfficeName = names[*s.OfficeID]
		}
		resp.Stages = append(resp.Stages, r)
	}
	if actor.OfficeID != nil {
		if name, err := h.offices.OfficeNameOf(ctx, *actor.OfficeID); err == nil {
			resp.ActorOffice = name
		}
	}

	c.JSON(status, resp)
}

//
// СПИСОК И СОЗДАНИЕ
//

func (h *Handlers) ListProjects(c *gin.Context) {
	projects, err := h.projects.ListProjects(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	if projects == nil {
		projects = []service.ProjectSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *Handlers) CreateProject(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var fields service.HeaderFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, "invalid project payload")
		return
	}

	view, err := h.projects.CreateProject(c.Request.Context(), actor, fields)
	if err != nil {
		renderError(c, err)
		return
	}
	h.renderView(c, http.StatusCreated, view, actor)
}

//
// ПРОСМОТР И ЭТАПЫ
//

func (h *Handlers) ShowProject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(c)

	view, err := h.projects.GetProjectView(c.Request.Context(), id, actor)
	if err != nil {
		renderError(c, err)
		return
	}
	h.renderView(c, http.StatusOK, view, actor)
}

func (h *Handlers) SubmitStage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(c)

	var req workflow.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid stage payload")
		return
	}

	view, err := h.projects.SubmitOrUnsubmitStage(c.Request.Context(), id, actor, req)
	if err != nil {
		renderError(c, err)
		return
	}
	h.renderView(c, http.StatusOK, view, actor)
}

//
// РЕДАКТИРОВАНИЕ ЗАГОЛОВКА (только админ)
//

func (h *Handlers) UpdateHeader(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(c)

	var fields service.HeaderFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, "invalid header payload")
		return
	}

	view, err := h.projects.UpdateHeader(c.Request.Context(), id, actor, fields)
	if err != nil {
		renderError(c, err)
		return
	}
	h.renderView(c, http.StatusOK, view, actor)
}

//
// ИСТОРИЯ ПРОЕКТА
//

func (h *Handlers) ShowProjectHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	logs, err := h.projects.ProjectHistory(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
