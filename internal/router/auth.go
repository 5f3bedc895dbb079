package router

import (
	"qrious/internal/handler"
	"qrious/internal/middleware"

	"github.com/gin-gonic/gin"
)

type AuthRouter struct {
	handler  *handler.AuthHandler
	session  *middleware.Session
	throttle *middleware.Throttle
}

func NewAuthRouter(
	handler *handler.AuthHandler,
	session *middleware.Session,
	throttle *middleware.Throttle,
) *AuthRouter {
	return &AuthRouter{handler: handler, session: session, throttle: throttle}
}

func (ar *AuthRouter) RegisterRoutes(r *gin.Engine) {
	authThrottle := ar.throttle.Guard(middleware.ThrottleAuth)
	auth := r.Group("/auth")
	{
		auth.POST("/register", authThrottle, ar.handler.Register)
		auth.POST("/login", authThrottle, ar.handler.Login)
		auth.POST("/logout", ar.session.Handler(), ar.handler.Logout)
		auth.GET("/profile", ar.session.Handler(), ar.handler.Profile)
	}
}
