package handler

import (
	"context"

	"qrious/internal/dto"
	"qrious/internal/pkg/response"
	"qrious/internal/service"
	"qrious/internal/telemetry"
	"qrious/utils/validate"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AdminUserHandler struct {
	trace       *telemetry.Trace
	userService *service.UserService
}

func NewAdminUserHandler(trace *telemetry.Trace, userService *service.UserService) *AdminUserHandler {
	return &AdminUserHandler{trace: trace, userService: userService}
}

// List 用戶列表
// @Summary 取得用戶列表
// @Tags Admin-User
// @Security BearerAuth
// @Produce json
// @Param page query int false "頁碼（從 0 開始）"
// @Param size query int false "每頁筆數"
// @Param role query string false "角色"
// @Param status query string false "狀態"
// @Success 200 {object} dto.UserListDto
// @Failure 400 {object} map[string]any
// @Failure 403 {object} map[string]any
// @Router /admin/users [get]
func (h *AdminUserHandler) List(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	var query dto.UserListQueryDto
	if cause, respErr := validate.BindQuery(c, &query); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	users, err := h.userService.ListUsers(ctx, &query)
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, users)
}

// Get 取得用戶
// @Summary 取得單一用戶資訊
// @Tags Admin-User
// @Security BearerAuth
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {object} dto.UserDto
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /admin/users/{userID} [get]
func (h *AdminUserHandler) Get(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	id, cause, respErr := validate.ParseObjectID(c, "userID")
	if cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	user, err := h.userService.GetUserByID(ctx, id)
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, user)
}

// UpdateStatus 更新用戶狀態
// @Summary 更新用戶狀態
// @Tags Admin-User
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param body body dto.UpdateUserStatusDto true "狀態資訊"
// @Success 200 {object} dto.MessageDto
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /admin/users/{userID}/status [patch]
func (h *AdminUserHandler) UpdateStatus(c *gin.Context) {
	h.updateField(c,
		func(ctx context.Context, id primitive.ObjectID, req any) (*dto.MessageDto, error) {
			return h.userService.UpdateUserStatus(ctx, id, req.(*dto.UpdateUserStatusDto))
		},
		&dto.UpdateUserStatusDto{},
	)
}

// UpdateRole 更新用戶角色
// @Summary 更新用戶角色
// @Tags Admin-User
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param body body dto.UpdateUserRoleDto true "角色資訊"
// @Success 200 {object} dto.MessageDto
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /admin/users/{userID}/role [patch]
func (h *AdminUserHandler) UpdateRole(c *gin.Context) {
	h.updateField(c,
		func(ctx context.Context, id primitive.ObjectID, req any) (*dto.MessageDto, error) {
			return h.userService.UpdateUserRole(ctx, id, req.(*dto.UpdateUserRoleDto))
		},
		&dto.UpdateUserRoleDto{},
	)
}

func (h *AdminUserHandler) updateField(
	c *gin.Context,
	updateFn func(ctx context.Context, id primitive.ObjectID, req any) (*dto.MessageDto, error),
	req any,
) {
	ctx, _, end := h.trace.WithSpan(c)

	id, cause, respErr := validate.ParseObjectID(c, "userID")
	if cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}
	if cause, respErr := validate.BindAndValidate(c, req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	result, err := updateFn(ctx, id, req)
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, result)
}
