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

type AuthHandler struct {
	trace       *telemetry.Trace
	authService *service.AuthService
}

func NewAuthHandler(trace *telemetry.Trace, authService *service.AuthService) *AuthHandler {
	return &AuthHandler{trace: trace, authService: authService}
}

// Register 註冊
// @Summary 註冊帳號
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterDto true "帳號資訊"
// @Success 201 {object} dto.MessageDto
// @Failure 400 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	var req dto.RegisterDto
	if cause, respErr := validate.BindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}
	result, err := h.authService.Register(ctx, &req)
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Create(c, result)
}

// Login 登入取得 token
// @Summary 登入
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.LoginDto true "登入資訊"
// @Success 200 {object} dto.LoginResultDto
// @Failure 401 {object} map[string]any
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	var req dto.LoginDto
	if cause, respErr := validate.BindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}
	result, err := h.authService.Login(ctx, &req)
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// Logout 登出，token 進黑名單直到過期
// @Summary 登出
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.MessageDto
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	caller, ok := middleware.SessionFrom(c)
	if !ok {
		err := cErr.Unauthorized("access token is required")
		end(err)
		response.AbortWithError(c, err)
		return
	}
	result, err := h.authService.Logout(ctx, caller)
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}

// Profile 目前登入者
// @Summary 取得個人資料
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.ProfileDto
// @Router /auth/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	caller, ok := middleware.SessionFrom(c)
	if !ok {
		err := cErr.Unauthorized("access token is required")
		end(err)
		response.AbortWithError(c, err)
		return
	}
	result, err := h.authService.Profile(ctx, caller)
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}
