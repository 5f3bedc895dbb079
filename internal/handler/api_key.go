package handler

import (
	"qrious/internal/dto"
	"qrious/internal/middleware"
	cErr "qrious/internal/pkg/error"
	"qrious/internal/pkg/response"
	"qrious/internal/service"
	"qrious/internal/telemetry"
	"qrious/utils/validate"

	"github.com/gin-gonic/gin"
)

type APIKeyHandler struct {
	trace         *telemetry.Trace
	apiKeyService *service.APIKeyService
}

func NewAPIKeyHandler(trace *telemetry.Trace, apiKeyService *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{trace: trace, apiKeyService: apiKeyService}
}

// Generate 建立 API Key，明文只在此時回傳一次
// @Summary 建立 API Key
// @Tags APIKey
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.CreateAPIKeyDto true "API Key 資訊"
// @Success 201 {object} dto.CreateAPIKeyResultDto
// @Failure 400 {object} map[string]any
// @Failure 429 {object} map[string]any
// @Router /apikey/generate [post]
func (h *APIKeyHandler) Generate(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	caller, ok := middleware.SessionFrom(c)
	if !ok {
		err := cErr.Unauthorized("access token is required")
		end(err)
		response.AbortWithError(c, err)
		return
	}
	var req dto.CreateAPIKeyDto
	if cause, respErr := validate.BindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	result, err := h.apiKeyService.Generate(ctx, caller, &req)
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Create(c, result)
}

// List 列出自己的 API Key（遮蔽）
// @Summary 取得 API Key 列表
// @Tags APIKey
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.APIKeyListDto
// @Router /apikey [get]
func (h *APIKeyHandler) List(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	caller, ok := middleware.SessionFrom(c)
	if !ok {
		err := cErr.Unauthorized("access token is required")
		end(err)
		response.AbortWithError(c, err)
		return
	}
	result, err := h.apiKeyService.List(ctx, caller)
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// Revoke 撤銷
// @Summary 撤銷 API Key
// @Tags APIKey
// @Security BearerAuth
// @Produce json
// @Param id path string true "API Key ID"
// @Success 200 {object} dto.MessageDto
// @Failure 404 {object} map[string]any
// @Router /apikey/revoke/{id} [post]
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	caller, ok := middleware.SessionFrom(c)
	if !ok {
		err := cErr.Unauthorized("access token is required")
		end(err)
		response.AbortWithError(c, err)
		return
	}
	result, err := h.apiKeyService.Revoke(ctx, caller, c.Param("id"))
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// Delete 刪除
// @Summary 刪除 API Key
// @Tags APIKey
// @Security BearerAuth
// @Produce json
// @Param id path string true "API Key ID"
// @Success 200 {object} dto.MessageDto
// @Failure 404 {object} map[string]any
// @Router /apikey/{id} [delete]
func (h *APIKeyHandler) Delete(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	caller, ok := middleware.SessionFrom(c)
	if !ok {
		err := cErr.Unauthorized("access token is required")
		end(err)
		response.AbortWithError(c, err)
		return
	}
	result, err := h.apiKeyService.Delete(ctx, caller, c.Param("id"))
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}
