package handlers

import (
	"errors"
	"net/http"
	"strings"

	"bac-tracker/internal/database"
	"bac-tracker/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type loginForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

func (h *Handlers) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "invalid login form")
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), strings.TrimSpace(form.Username), form.Password)
	if errors.Is(err, database.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "invalid username or password",
		})
		return
	}
	if err != nil {
		middleware.Logger(c).Error("login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "PersistenceFailure",
			"message": "internal error, try again later",
		})
		return
	}

	sess := sessions.Default(c)
	sess.Set(middleware.SessionUserKey, user.ID)
	if err := sess.Save(); err != nil {
		middleware.Logger(c).Error("save session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "SessionFailure"})
		return
	}

	middleware.Logger(c).Info("user logged in", "user_id", user.ID)
	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"isAdmin":  user.IsAdmin,
	})
}

func (h *Handlers) Logout(c *gin.Context) {
	if user, ok := middleware.UserFrom(c); ok {
		middleware.Logger(c).Info("user logged out", "user_id", user.ID, "username", user.Username)
	}
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.Status(http.StatusNoContent)
}
