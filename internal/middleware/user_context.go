package middleware

import (
	"context"

	"bac-tracker/internal/models"
	"bac-tracker/internal/workflow"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	SessionUserKey = "user_id"
	actorKey       = "Actor"
	userKey        = "CurrentUser"
)

type UserLookup interface {
	Lookup(ctx context.Context, userID uint) (models.User, error)
}

type OfficeResolver interface {
	OfficeOf(ctx context.Context, userID uint) (*uint, error)
}

// InjectActor turns the session user into a workflow.Actor. Admin flag and
// office are read fresh on every request, never cached in the cookie.
func InjectActor(users UserLookup, offices OfficeResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		uid, ok := sess.Get(SessionUserKey).(uint)
		if !ok || uid == 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		user, err := users.Lookup(ctx, uid)
		if err != nil {
			// пользователь удалён или БД недоступна — считаем сессию пустой
			Logger(c).Warn("session user lookup failed", "user_id", uid, "error", err)
			c.Next()
			return
		}
		officeID, err := offices.OfficeOf(ctx, uid)
		if err != nil {
			Logger(c).Warn("office lookup failed", "user_id", uid, "error", err)
			c.Next()
			return
		}

		c.Set(userKey, user)
		c.Set(actorKey, workflow.Actor{
			UserID:   user.ID,
			IsAdmin:  user.IsAdmin,
			OfficeID: officeID,
		})
		c.Next()
	}
}

func ActorFrom(c *gin.Context) (workflow.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return workflow.Actor{}, false
	}
	actor, ok := v.(workflow.Actor)
	return actor, ok
}

func UserFrom(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}
