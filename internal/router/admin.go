package router

import (
	"qrious/internal/core"
	"qrious/internal/handler"
	"qrious/internal/middleware"

	"github.com/gin-gonic/gin"
)

type AdminRouter struct {
	userHandler *handler.AdminUserHandler
	session     *middleware.Session
}

func NewAdminRouter(
	userHandler *handler.AdminUserHandler,
	session *middleware.Session,
) *AdminRouter {
	return &AdminRouter{
		userHandler: userHandler,
		session:     session,
	}
}

func (ar *AdminRouter) RegisterRoutes(r *gin.Engine) {
	admin := r.Group("/admin/users", ar.session.Handler(), ar.session.RequireRole(core.RoleAdmin))
	{
		admin.GET("", ar.userHandler.List)
		admin.GET("/:userID", ar.userHandler.Get)
		admin.PATCH("/:userID/status", ar.userHandler.UpdateStatus)
		admin.PATCH("/:userID/role", ar.userHandler.UpdateRole)
	}
}
