package router

import (
	"qrious/internal/handler"
	"qrious/internal/middleware"

	"github.com/gin-gonic/gin"
)

type QRCodeRouter struct {
	qrCodeHandler *handler.QRCodeHandler
	scanHandler   *handler.ScanHandler
	credential    *middleware.Credential
	session       *middleware.Session
	throttle      *middleware.Throttle
}

func NewQRCodeRouter(
	qrCodeHandler *handler.QRCodeHandler,
	scanHandler *handler.ScanHandler,
	credential *middleware.Credential,
	session *middleware.Session,
	throttle *middleware.Throttle,
) *QRCodeRouter {
	return &QRCodeRouter{
		qrCodeHandler: qrCodeHandler,
		scanHandler:   scanHandler,
		credential:    credential,
		session:       session,
		throttle:      throttle,
	}
}

func (qr *QRCodeRouter) RegisterRoutes(r *gin.Engine) {
	general := qr.throttle.Guard(middleware.ThrottleGeneral)

	// 產生：身分在 service 內解析，驗證內容之後才碰資料庫
	generate := r.Group("/qrcode", general)
	{
		generate.GET("", qr.credential.APIKey(), qr.qrCodeHandler.GenerateByQuery)
		generate.POST("/generate", qr.credential.APIKey(), qr.qrCodeHandler.GenerateByBody)
		generate.GET("/jwt", qr.credential.Bearer(), qr.qrCodeHandler.GenerateByQuery)
		generate.POST("/generate-jwt", qr.credential.Bearer(), qr.qrCodeHandler.GenerateByBody)
		generate.POST("/preview", qr.session.Handler(), qr.qrCodeHandler.Preview)
	}

	owned := r.Group("/qrcodes", general, qr.session.Handler())
	{
		owned.GET("", qr.qrCodeHandler.List)
		owned.GET("/:id", qr.qrCodeHandler.Get)
		owned.DELETE("/:id", qr.qrCodeHandler.Delete)
	}

	r.GET("/analytics/qrcodes", general, qr.session.Handler(), qr.qrCodeHandler.Analytics)

	// 公開，不限流
	r.GET("/scan/:id", qr.scanHandler.Scan)
}
