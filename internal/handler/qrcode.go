package handler

import (
	"context"

	"qrious/internal/dto"
	"qrious/internal/middleware"
	cErr "qrious/internal/pkg/error"
	"qrious/internal/pkg/response"
	"qrious/internal/service"
	"qrious/internal/telemetry"
	"qrious/utils/validate"

	"github.com/gin-gonic/gin"
)

type QRCodeHandler struct {
	trace         *telemetry.Trace
	qrCodeService *service.QRCodeService
}

func NewQRCodeHandler(trace *telemetry.Trace, qrCodeService *service.QRCodeService) *QRCodeHandler {
	return &QRCodeHandler{trace: trace, qrCodeService: qrCodeService}
}

// GenerateByQuery 以 query string 產生 QR code
// @Summary 產生 QR code（query）
// @Tags QRCode
// @Security ApiKeyAuth
// @Produce json
// @Param url query string true "目標網址（最多 2048 字元）"
// @Param name query string false "名稱"
// @Success 201 {object} dto.GenerateResultDto
// @Success 200 {object} dto.GenerateResultDto "命中快取"
// @Failure 400 {object} map[string]any
// @Failure 401 {object} map[string]any
// @Failure 403 {object} map[string]any
// @Failure 429 {object} map[string]any
// @Router /qrcode [get]
func (h *QRCodeHandler) GenerateByQuery(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	var req dto.GenerateQRCodeDto
	if cause, respErr := validate.BindQuery(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}
	h.generate(c, ctx, end, &req)
}

// GenerateByBody 以 JSON body 產生 QR code，可帶樣式
// @Summary 產生 QR code
// @Tags QRCode
// @Security ApiKeyAuth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.GenerateQRCodeDto true "產生參數"
// @Success 201 {object} dto.GenerateResultDto
// @Success 200 {object} dto.GenerateResultDto "命中快取"
// @Failure 400 {object} map[string]any
// @Failure 401 {object} map[string]any
// @Failure 429 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /qrcode/generate [post]
// @Router /qrcode/generate-jwt [post]
func (h *QRCodeHandler) GenerateByBody(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	var req dto.GenerateQRCodeDto
	if cause, respErr := validate.BindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}
	h.generate(c, ctx, end, &req)
}

func (h *QRCodeHandler) generate(c *gin.Context, ctx context.Context, end func(error), req *dto.GenerateQRCodeDto) {
	credential, ok := middleware.CredentialFrom(c)
	if !ok {
		err := cErr.Unauthorized("credential is required")
		end(err)
		response.AbortWithError(c, err)
		return
	}

	result, err := h.qrCodeService.Generate(ctx, credential, req)
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	if result.Created {
		response.Create(c, result)
		return
	}
	response.Success(c, result)
}

// Preview 即時預覽，不落地、不扣配額
// @Summary 預覽 QR code
// @Tags QRCode
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.PreviewQRCodeDto true "預覽參數"
// @Success 200 {object} dto.PreviewResultDto
// @Failure 400 {object} map[string]any
// @Router /qrcode/preview [post]
func (h *QRCodeHandler) Preview(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	var req dto.PreviewQRCodeDto
	if cause, respErr := validate.BindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}
	result, err := h.qrCodeService.Preview(ctx, &req)
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// List 自己的 QR code 列表（不含影像）
// @Summary 取得 QR code 列表
// @Tags QRCode
// @Security BearerAuth
// @Produce json
// @Param page query int false "頁碼（從 1 開始）"
// @Param limit query int false "每頁筆數"
// @Param sortBy query string false "排序欄位"
// @Param sortOrder query string false "asc / desc"
// @Success 200 {object} dto.QRCodeListDto
// @Router /qrcodes [get]
func (h *QRCodeHandler) List(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	caller, ok := middleware.SessionFrom(c)
	if !ok {
		err := cErr.Unauthorized("access token is required")
		end(err)
		response.AbortWithError(c, err)
		return
	}
	var query dto.QRCodeListQueryDto
	if cause, respErr := validate.BindQuery(c, &query); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	result, err := h.qrCodeService.List(ctx, caller, &query)
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// Get 單筆 QR code（含影像與最近掃描紀錄）
// @Summary 取得 QR code
// @Tags QRCode
// @Security BearerAuth
// @Produce json
// @Param id path string true "QR code ID"
// @Success 200 {object} dto.QRCodeDetailDto
// @Failure 404 {object} map[string]any
// @Router /qrcodes/{id} [get]
func (h *QRCodeHandler) Get(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	caller, ok := middleware.SessionFrom(c)
	if !ok {
		err := cErr.Unauthorized("access token is required")
		end(err)
		response.AbortWithError(c, err)
		return
	}
	result, err := h.qrCodeService.Get(ctx, caller, c.Param("id"))
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// Delete 刪除自己的 QR code
// @Summary 刪除 QR code
// @Tags QRCode
// @Security BearerAuth
// @Produce json
// @Param id path string true "QR code ID"
// @Success 200 {object} dto.MessageDto
// @Failure 404 {object} map[string]any
// @Router /qrcodes/{id} [delete]
func (h *QRCodeHandler) Delete(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	caller, ok := middleware.SessionFrom(c)
	if !ok {
		err := cErr.Unauthorized("access token is required")
		end(err)
		response.AbortWithError(c, err)
		return
	}
	result, err := h.qrCodeService.Delete(ctx, caller, c.Param("id"))
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// Analytics 統計
// @Summary QR code 統計
// @Tags QRCode
// @Security BearerAuth
// @Produce json
// @Param days query int false "統計天數，預設 30"
// @Success 200 {object} dto.AnalyticsDto
// @Router /analytics/qrcodes [get]
func (h *QRCodeHandler) Analytics(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	caller, ok := middleware.SessionFrom(c)
	if !ok {
		err := cErr.Unauthorized("access token is required")
		end(err)
		response.AbortWithError(c, err)
		return
	}
	var query dto.AnalyticsQueryDto
	if cause, respErr := validate.BindQuery(c, &query); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	result, err := h.qrCodeService.Analytics(ctx, caller, &query)
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}
