package dto

import (
	"time"

	"qrious/internal/core"
	"qrious/internal/pkg/request"
)

type RegisterDto struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

func (RegisterDto) GetMessages() request.ValidatorMessages {
	return request.ValidatorMessages{
		"Username.min": "username must be 3-30 characters",
		"Username.max": "username must be 3-30 characters",
		"Email.email":  "email is not valid",
		"Password.min": "password must be at least 6 characters",
	}
}

// LoginDto login 可以是 email 或 username
type LoginDto struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UserDto struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      core.Role   `json:"role"`
	Status    core.Status `json:"status,omitempty"`
	LastSeen  *time.Time  `json:"lastSeen,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

type LoginResultDto struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    *UserDto `json:"user"`
}

func (d *LoginResultDto) GetMessage() string { return d.Message }

type ProfileDto struct {
	User *UserDto `json:"user"`
}

// 管理後台
type UserListQueryDto struct {
	Page   int64  `form:"page" binding:"omitempty,min=0"`
	Size   int64  `form:"size" binding:"omitempty,min=1,max=100"`
	Role   string `form:"role" binding:"omitempty,oneof=admin user"`
	Status string `form:"status" binding:"omitempty,oneof=active blocked suspended"`
}

type UserListDto struct {
	Users []*UserDto `json:"users"`
	Total int64      `json:"total"`
	Page  int64      `json:"page"`
	Size  int64      `json:"size"`
}

// 修改用戶狀態
type UpdateUserStatusDto struct {
	Status core.Status `json:"status" binding:"required,oneof=active blocked suspended"`
}

// 修改用戶角色
type UpdateUserRoleDto struct {
	Role core.Role `json:"role" binding:"required,oneof=admin user"`
}
