package handlers

import (
	"net/http"

	"bac-tracker/internal/middleware"
	"bac-tracker/internal/workflow"

	"github.com/gin-gonic/gin"
)

var kindStatus = map[workflow.Kind]int{
	workflow.KindProjectNotFound:    http.StatusNotFound,
	workflow.KindForbidden:          http.StatusForbidden,
	workflow.KindStageNotEligible:   http.StatusConflict,
	workflow.KindConflict:           http.StatusConflict,
	workflow.KindMissingApproval:    http.StatusUnprocessableEntity,
	workflow.KindMissingRemark:      http.StatusUnprocessableEntity,
	workflow.KindMissingCreated:     http.StatusUnprocessableEntity,
	workflow.KindMalformedTimestamp: http.StatusUnprocessableEntity,
	workflow.KindMissingField:       http.StatusUnprocessableEntity,
	workflow.KindPersistenceFailure: http.StatusInternalServerError,
}

// renderError отдаёт структурированную ошибку: {"error": kind, "message": ...}
func renderError(c *gin.Context, err error) {
	kind := workflow.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	msg := err.Error()
	if kind == workflow.KindPersistenceFailure {
		// детали хранилища наружу не отдаём
		middleware.Logger(c).Error("request failed", "error", err)
		msg = "internal error, try again later"
	}

	c.JSON(status, gin.H{
		"error":   kind.String(),
		"message": msg,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "BadRequest",
		"message": msg,
	})
}
