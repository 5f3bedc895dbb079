package router

import (
	"qrious/internal/handler"
	"qrious/internal/middleware"

	"github.com/gin-gonic/gin"
)

type APIKeyRouter struct {
	handler  *handler.APIKeyHandler
	session  *middleware.Session
	throttle *middleware.Throttle
}

func NewAPIKeyRouter(
	handler *handler.APIKeyHandler,
	session *middleware.Session,
	throttle *middleware.Throttle,
) *APIKeyRouter {
	return &APIKeyRouter{handler: handler, session: session, throttle: throttle}
}

func (ar *APIKeyRouter) RegisterRoutes(r *gin.Engine) {
	apiKeys := r.Group("/apikey", ar.throttle.Guard(middleware.ThrottleGeneral), ar.session.Handler())
	{
		apiKeys.POST("/generate", ar.throttle.Guard(middleware.ThrottleAPIKey), ar.handler.Generate)
		apiKeys.GET("", ar.handler.List)
		apiKeys.POST("/revoke/:id", ar.handler.Revoke)
		apiKeys.DELETE("/:id", ar.handler.Delete)
	}
}
