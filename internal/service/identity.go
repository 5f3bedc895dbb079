package service

import (
	"context"
	"errors"
	"time"

	"qrious/config"
	"qrious/internal/core"
	"qrious/internal/database/mongodb/model"
	cErr "qrious/internal/pkg/error"
	"qrious/internal/telemetry"
	"qrious/utils/apikey"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// IdentityResolver 把原始憑證解析成 Caller。
// 無法辨識的憑證回 401；可辨識但不可用（撤銷、過期、帳號停用）回 403。
type IdentityResolver struct {
	trace        *telemetry.Trace
	logger       *zap.Logger
	config       *config.Configuration
	apiKeys      APIKeyStore
	users        UserStore
	blacklist    TokenBlacklist
	storeTimeout time.Duration
	now          func() time.Time
}

func NewIdentityResolver(
	trace *telemetry.Trace,
	logger *zap.Logger,
	config *config.Configuration,
	apiKeys APIKeyStore,
	users UserStore,
	blacklist TokenBlacklist,
) *IdentityResolver {
	return &IdentityResolver{
		trace:        trace,
		logger:       logger,
		config:       config,
		apiKeys:      apiKeys,
		users:        users,
		blacklist:    blacklist,
		storeTimeout: storeTimeout(config),
		now:          time.Now,
	}
}

func (r *IdentityResolver) Resolve(ctx context.Context, credential core.Credential) (core.Caller, error) {
	switch credential.Channel {
	case core.ChannelAPIKey:
		return r.ResolveAPIKey(ctx, credential.Secret)
	case core.ChannelSession:
		return r.ResolveSession(ctx, credential.Secret)
	}
	return nil, cErr.Unauthorized("missing credentials")
}

func (r *IdentityResolver) ResolveAPIKey(ctx context.Context, secret string) (_ *core.APIKeyCaller, returnedError error) {
	ctx, span, end := r.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	meta := core.TraceIdentityMeta{Channel: string(core.ChannelAPIKey), Status: "rejected"}
	defer func() { r.trace.ApplyTraceAttributes(span, meta) }()

	if secret == "" {
		return nil, cErr.Unauthorized("API key is required")
	}
	// 簽章不符直接拒絕，不查資料庫
	payload, err := apikey.ParseAndVerifyAPIKey(secret, r.config.App.SecretKey)
	if err != nil {
		return nil, cErr.Unauthorized("invalid API key")
	}
	keyID, ok := objectIDOf(payload.ApiKeyID)
	if !ok {
		return nil, cErr.Unauthorized("invalid API key")
	}

	storeCtx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	stored, err := r.apiKeys.FindByID(storeCtx, keyID)
	cancel()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, cErr.Unauthorized("invalid API key")
	}
	if err != nil {
		return nil, storeErr(err, "api key not found")
	}
	if !apikey.Equal(stored.Key, secret) || stored.UserID.Hex() != payload.UserID {
		return nil, cErr.Unauthorized("invalid API key")
	}
	meta.APIKeyID = stored.ID.Hex()
	meta.UserID = stored.UserID.Hex()

	now := r.now().UTC()
	switch {
	case stored.Status == core.StatusRevoked:
		meta.Status = string(core.StatusRevoked)
		return nil, cErr.UnauthorizedApiKey("API key has been revoked")
	case stored.Status == core.StatusExpired:
		meta.Status = string(core.StatusExpired)
		return nil, cErr.UnauthorizedApiKey("API key has expired")
	case stored.Status != core.StatusActive:
		meta.Status = string(stored.Status)
		return nil, cErr.UnauthorizedApiKey("API key is not active")
	case stored.Expired(now):
		meta.Status = string(core.StatusExpired)
		r.markExpired(ctx, stored)
		return nil, cErr.UnauthorizedApiKey("API key has expired")
	}

	owner, err := r.loadUser(ctx, stored.UserID.Hex())
	if err != nil {
		return nil, err
	}
	if owner.Status != core.StatusActive {
		meta.Status = "owner_" + string(owner.Status)
		return nil, cErr.Forbidden("account is not active")
	}

	r.touchLastUsed(ctx, stored, now)
	meta.Status = "resolved"
	return &core.APIKeyCaller{
		UserID:    stored.UserID.Hex(),
		KeyID:     stored.ID.Hex(),
		KeyName:   stored.Name,
		Status:    stored.Status,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

func (r *IdentityResolver) ResolveSession(ctx context.Context, token string) (_ *core.SessionCaller, returnedError error) {
	ctx, span, end := r.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	meta := core.TraceIdentityMeta{Channel: string(core.ChannelSession), Status: "rejected"}
	defer func() { r.trace.ApplyTraceAttributes(span, meta) }()

	if token == "" {
		return nil, cErr.Unauthorized("access token is required")
	}
	claims, err := parseToken(token, r.config.Auth.JwtSecret, r.now())
	if err != nil {
		return nil, cErr.InvalidSession("invalid or expired token")
	}
	meta.UserID = claims.UserID

	blacklisted, err := r.blacklist.Exists(ctx, claims.ID)
	if err != nil {
		r.logger.Warn("[Identity] blacklist lookup failed", zap.Error(err))
		return nil, cErr.ServiceUnavailable("session store unavailable")
	}
	if blacklisted {
		meta.Status = "logged_out"
		return nil, cErr.InvalidSession("token has been revoked")
	}

	user, err := r.loadUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user.Status != core.StatusActive {
		meta.Status = "user_" + string(user.Status)
		return nil, cErr.Forbidden("account is not active")
	}

	r.touchLastSeen(ctx, user)
	meta.Status = "resolved"
	return &core.SessionCaller{
		UserID:    user.ID.Hex(),
		Username:  user.Username,
		Role:      user.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (r *IdentityResolver) loadUser(ctx context.Context, hex string) (*model.User, error) {
	userID, ok := objectIDOf(hex)
	if !ok {
		return nil, cErr.Unauthorized("unknown account")
	}
	storeCtx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()

	user, err := r.users.GetByID(storeCtx, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, cErr.Unauthorized("unknown account")
	}
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	return user, nil
}

func (r *IdentityResolver) markExpired(ctx context.Context, stored *model.APIKey) {
	storeCtx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	if err := r.apiKeys.MarkExpired(storeCtx, stored.ID); err != nil {
		r.logger.Warn("[Identity] mark api key expired failed",
			zap.String("apiKeyId", stored.ID.Hex()),
			zap.Error(err),
		)
	}
}

func (r *IdentityResolver) touchLastUsed(ctx context.Context, stored *model.APIKey, now time.Time) {
	storeCtx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	if err := r.apiKeys.TouchLastUsed(storeCtx, stored.ID, now); err != nil {
		r.logger.Warn("[Identity] touch api key failed",
			zap.String("apiKeyId", stored.ID.Hex()),
			zap.Error(err),
		)
	}
}

func (r *IdentityResolver) touchLastSeen(ctx context.Context, user *model.User) {
	storeCtx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	if _, err := r.users.UpdateLastSeen(storeCtx, user.ID, r.now().UTC()); err != nil {
		r.logger.Warn("[Identity] update last seen failed",
			zap.String("userId", user.ID.Hex()),
			zap.Error(err),
		)
	}
}
