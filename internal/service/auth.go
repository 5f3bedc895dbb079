package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"qrious/config"
	"qrious/internal/core"
	"qrious/internal/database/mongodb/model"
	"qrious/internal/dto"
	cErr "qrious/internal/pkg/error"
	"qrious/internal/telemetry"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 24 * time.Hour

var errTokenClaims = errors.New("token is missing exp or jti")

type AuthService struct {
	trace        *telemetry.Trace
	logger       *zap.Logger
	config       *config.Configuration
	users        UserStore
	blacklist    TokenBlacklist
	storeTimeout time.Duration
	now          func() time.Time
}

func NewAuthService(
	trace *telemetry.Trace,
	logger *zap.Logger,
	config *config.Configuration,
	users UserStore,
	blacklist TokenBlacklist,
) *AuthService {
	return &AuthService{
		trace:        trace,
		logger:       logger,
		config:       config,
		users:        users,
		blacklist:    blacklist,
		storeTimeout: storeTimeout(config),
		now:          time.Now,
	}
}

// Register 建立一般使用者，email 與 username 皆不可重複
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterDto) (_ *dto.MessageDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	username := strings.TrimSpace(req.Username)
	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, req.Email)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	if exists {
		return nil, cErr.UserAlreadyExists("User already exists")
	}

	cost := s.config.Auth.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), cost)
	if err != nil {
		return nil, cErr.InternalServer("failed to hash password")
	}

	user := &model.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         core.RoleUser,
		Status:       core.StatusActive,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		// 並發註冊時由唯一索引擋下
		if mongo.IsDuplicateKeyError(err) {
			return nil, cErr.UserAlreadyExists("User already exists")
		}
		return nil, storeErr(err, "user not found")
	}
	return &dto.MessageDto{Message: "User created successfully"}, nil
}

// Login 成功後簽發 HS256 JWT，jti 供登出黑名單使用
func (s *AuthService) Login(ctx context.Context, req *dto.LoginDto) (_ *dto.LoginResultDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	user, err := s.users.FindByLogin(storeCtx, req.Login)
	cancel()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, cErr.InvalidCredentials("Invalid credentials")
	}
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, cErr.InvalidCredentials("Invalid credentials")
	}
	if user.Status != core.StatusActive {
		return nil, cErr.Forbidden("account is not active")
	}

	token, err := signToken(user, s.config.Auth.JwtSecret, s.tokenTTL(), s.now())
	if err != nil {
		s.logger.Error("[Auth] sign token failed", zap.Error(err))
		return nil, cErr.InternalServer("failed to issue token")
	}
	return &dto.LoginResultDto{
		Message: "Login successful",
		Token:   token,
		User:    toUserDto(user),
	}, nil
}

// Logout 把 token 的 jti 放進黑名單直到原本的過期時間
func (s *AuthService) Logout(ctx context.Context, caller *core.SessionCaller) (_ *dto.MessageDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	ttl := caller.ExpiresAt.Sub(s.now())
	if err := s.blacklist.Add(ctx, caller.TokenID, ttl); err != nil {
		s.logger.Warn("[Auth] blacklist token failed", zap.Error(err))
		return nil, cErr.ServiceUnavailable("session store unavailable")
	}
	return &dto.MessageDto{Message: "Logged out successfully"}, nil
}

func (s *AuthService) Profile(ctx context.Context, caller *core.SessionCaller) (_ *dto.ProfileDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	userID, ok := objectIDOf(caller.UserID)
	if !ok {
		return nil, cErr.NotFound("user not found")
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	return &dto.ProfileDto{User: toUserDto(user)}, nil
}

func (s *AuthService) tokenTTL() time.Duration {
	if s.config.Auth.TokenTTLHours <= 0 {
		return defaultTokenTTL
	}
	return time.Duration(s.config.Auth.TokenTTLHours) * time.Hour
}

func signToken(user *model.User, secret string, ttl time.Duration, now time.Time) (string, error) {
	claims := core.Claims{
		UserID:   user.ID.Hex(),
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// parseToken 只接受 HS256，且必須帶 exp 與 jti；時間檢查以 now 為準
func parseToken(token, secret string, now time.Time) (*core.Claims, error) {
	claims := &core.Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil || claims.ID == "" {
		return nil, errTokenClaims
	}
	if !now.Before(claims.ExpiresAt.Time) {
		return nil, jwt.ErrTokenExpired
	}
	if claims.NotBefore != nil && now.Before(claims.NotBefore.Time) {
		return nil, jwt.ErrTokenNotValidYet
	}
	return claims, nil
}

func toUserDto(user *model.User) *dto.UserDto {
	return &dto.UserDto{
		ID:        user.ID.Hex(),
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		Status:    user.Status,
		LastSeen:  user.LastSeen,
		CreatedAt: user.CreatedAt,
	}
}
