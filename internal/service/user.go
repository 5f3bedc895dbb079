package service

import (
	"context"
	"fmt"
	"time"

	"qrious/config"
	"qrious/internal/core"
	"qrious/internal/dto"
	cErr "qrious/internal/pkg/error"
	"qrious/internal/telemetry"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultUserPageSize = 20

type UserService struct {
	trace        *telemetry.Trace
	users        UserStore
	storeTimeout time.Duration
}

func NewUserService(trace *telemetry.Trace, conf *config.Configuration, users UserStore) *UserService {
	return &UserService{trace: trace, users: users, storeTimeout: storeTimeout(conf)}
}

// 管理後台列舉用戶（page 從 0 起算）
func (s *UserService) ListUsers(ctx context.Context, query *dto.UserListQueryDto) (_ *dto.UserListDto, returnedError error) {
	ctx, span, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	size := query.Size
	if size <= 0 {
		size = defaultUserPageSize
	}
	filter := bson.M{}
	if query.Role != "" {
		filter["role"] = query.Role
	}
	if query.Status != "" {
		filter["status"] = query.Status
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	users, total, err := s.users.List(ctx, core.ListOptions{Filter: filter, Page: query.Page, Size: size})
	s.trace.ApplyTraceAttributes(span, core.TraceAdminUserListMeta{
		Page:        query.Page,
		Size:        size,
		Role:        query.Role,
		Status:      query.Status,
		Filter:      filter,
		ResultCount: len(users),
	})
	if err != nil {
		return nil, storeErr(err, "user not found")
	}

	out := make([]*dto.UserDto, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDto(user))
	}
	return &dto.UserListDto{Users: out, Total: total, Page: query.Page, Size: size}, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id primitive.ObjectID) (_ *dto.UserDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	return toUserDto(user), nil
}

// 專屬：修改用戶狀態
func (s *UserService) UpdateUserStatus(ctx context.Context, id primitive.ObjectID, req *dto.UpdateUserStatusDto) (_ *dto.MessageDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	matchedCount, err := s.users.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	if matchedCount == 0 {
		return nil, cErr.NotFound(fmt.Sprintf("user with id %s not found", id.Hex()))
	}
	return &dto.MessageDto{Message: "User status updated"}, nil
}

// 專屬：修改用戶角色
func (s *UserService) UpdateUserRole(ctx context.Context, id primitive.ObjectID, req *dto.UpdateUserRoleDto) (_ *dto.MessageDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	matchedCount, err := s.users.UpdateRole(ctx, id, req.Role)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	if matchedCount == 0 {
		return nil, cErr.NotFound(fmt.Sprintf("user with id %s not found", id.Hex()))
	}
	return &dto.MessageDto{Message: "User role updated"}, nil
}
