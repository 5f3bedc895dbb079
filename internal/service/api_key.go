package service

import (
	"context"
	"time"

	"qrious/config"
	"qrious/internal/core"
	"qrious/internal/database/mongodb/model"
	"qrious/internal/dto"
	cErr "qrious/internal/pkg/error"
	"qrious/internal/telemetry"
	"qrious/utils/apikey"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type APIKeyService struct {
	trace        *telemetry.Trace
	logger       *zap.Logger
	config       *config.Configuration
	apiKeys      APIKeyStore
	storeTimeout time.Duration
	now          func() time.Time
}

func NewAPIKeyService(
	trace *telemetry.Trace,
	logger *zap.Logger,
	config *config.Configuration,
	apiKeys APIKeyStore,
) *APIKeyService {
	return &APIKeyService{
		trace:        trace,
		logger:       logger,
		config:       config,
		apiKeys:      apiKeys,
		storeTimeout: storeTimeout(config),
		now:          time.Now,
	}
}

// Generate 建立新的 key，明文只在這次回應中出現
func (s *APIKeyService) Generate(
	ctx context.Context,
	caller core.Caller,
	req *dto.CreateAPIKeyDto,
) (_ *dto.CreateAPIKeyResultDto, returnedError error) {
	ctx, span, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	userID, ok := objectIDOf(caller.SubjectID())
	if !ok {
		return nil, cErr.Unauthorized("invalid caller")
	}
	keyID := primitive.NewObjectID()
	secret, err := apikey.GenerateAPIKey(userID.Hex(), keyID.Hex(), s.config.App.SecretKey)
	if err != nil {
		return nil, cErr.InternalServer("failed to generate api key")
	}

	now := s.now().UTC()
	key := &model.APIKey{
		ID:        keyID,
		UserID:    userID,
		Name:      req.Name,
		Key:       secret,
		Status:    core.StatusActive,
		CreatedAt: now,
	}
	if req.ExpiresInDays != nil {
		expiresAt := now.Add(time.Duration(*req.ExpiresInDays) * 24 * time.Hour)
		key.ExpiresAt = &expiresAt
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	created, err := s.apiKeys.Create(ctx, key)
	if err != nil {
		return nil, storeErr(err, "api key not found")
	}
	s.trace.ApplyTraceAttributes(span, core.TraceAPIKeyMeta{Op: "generate", APIKeyID: keyID.Hex(), UserID: userID.Hex()})

	out := toAPIKeyDto(created)
	out.Key = secret
	return &dto.CreateAPIKeyResultDto{Message: "API key generated successfully", APIKey: out}, nil
}

func (s *APIKeyService) List(ctx context.Context, caller core.Caller) (_ *dto.APIKeyListDto, returnedError error) {
	ctx, span, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	userID, ok := objectIDOf(caller.SubjectID())
	if !ok {
		return nil, cErr.Unauthorized("invalid caller")
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	keys, err := s.apiKeys.ListByOwner(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "api key not found")
	}
	s.trace.ApplyTraceAttributes(span, core.TraceAPIKeyMeta{Op: "list", UserID: userID.Hex(), Count: len(keys)})

	out := make([]*dto.APIKeyDto, 0, len(keys))
	for _, key := range keys {
		out = append(out, toAPIKeyDto(key))
	}
	return &dto.APIKeyListDto{APIKeys: out}, nil
}

// Revoke 單向轉為 revoked；重複撤銷視為成功
func (s *APIKeyService) Revoke(ctx context.Context, caller core.Caller, id string) (_ *dto.MessageDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	keyID, userID, err := ownedKeyIDs(caller, id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	found, err := s.apiKeys.Revoke(ctx, keyID, userID, s.now())
	if err != nil {
		return nil, storeErr(err, "API key not found")
	}
	if !found {
		return nil, cErr.NotFound("API key not found")
	}
	return &dto.MessageDto{Message: "API key revoked successfully"}, nil
}

func (s *APIKeyService) Delete(ctx context.Context, caller core.Caller, id string) (_ *dto.MessageDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	keyID, userID, err := ownedKeyIDs(caller, id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	deleted, err := s.apiKeys.DeleteOwned(ctx, keyID, userID)
	if err != nil {
		return nil, storeErr(err, "API key not found")
	}
	if !deleted {
		return nil, cErr.NotFound("API key not found")
	}
	return &dto.MessageDto{Message: "API key deleted successfully"}, nil
}

// SweepExpired 排程與 sweep-keys 指令共用
func (s *APIKeyService) SweepExpired(ctx context.Context) (_ int64, returnedError error) {
	ctx, span, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	affected, err := s.apiKeys.ExpireBefore(ctx, s.now())
	if err != nil {
		return 0, storeErr(err, "api key not found")
	}
	s.trace.ApplyTraceAttributes(span, core.TraceAPIKeyMeta{Op: "sweep_expired", Affected: affected})
	if affected > 0 {
		s.logger.Info("[APIKey] expired keys swept", zap.Int64("count", affected))
	}
	return affected, nil
}

func ownedKeyIDs(caller core.Caller, id string) (primitive.ObjectID, primitive.ObjectID, error) {
	userID, ok := objectIDOf(caller.SubjectID())
	if !ok {
		return primitive.NilObjectID, primitive.NilObjectID, cErr.Unauthorized("invalid caller")
	}
	keyID, ok := objectIDOf(id)
	if !ok {
		return primitive.NilObjectID, primitive.NilObjectID, cErr.NotFound("API key not found")
	}
	return keyID, userID, nil
}

func toAPIKeyDto(m *model.APIKey) *dto.APIKeyDto {
	return &dto.APIKeyDto{
		ID:        m.ID.Hex(),
		Name:      m.Name,
		Key:       apikey.Mask(m.Key),
		Status:    m.Status,
		LastUsed:  m.LastUsed,
		ExpiresAt: m.ExpiresAt,
		RevokedAt: m.RevokedAt,
		CreatedAt: m.CreatedAt,
	}
}
