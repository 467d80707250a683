package handlers

import (
	"net/http"

	"bac-tracker/internal/workflow"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) ListOffices(c *gin.Context) {
	offices, err := h.offices.ListOffices(c.Request.Context())
	if err != nil {
		renderError(c, workflow.Persistence(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"offices": offices})
}
