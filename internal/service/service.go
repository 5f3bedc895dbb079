package service

import (
	"context"
	"errors"
	"time"

	"qrious/config"
	"qrious/internal/core"
	fluentdModel "qrious/internal/database/fluentd/model"
	fluentdRepo "qrious/internal/database/fluentd/repository"
	"qrious/internal/database/mongodb/model"
	mongoRepo "qrious/internal/database/mongodb/repository"
	redisRepo "qrious/internal/database/redis/repository"
	cErr "qrious/internal/pkg/error"

	"github.com/google/wire"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ProviderSet = wire.NewSet(
	NewQuotaPolicy,
	NewQuotaLedger,
	NewArtifactCache,
	NewIdentityResolver,
	NewQRCodeService,
	NewScanTracker,
	NewAPIKeyService,
	NewAuthService,
	NewUserService,
	NewHealthService,
	wire.Bind(new(QRCodeStore), new(*mongoRepo.QRCodeRepository)),
	wire.Bind(new(APIKeyStore), new(*mongoRepo.APIKeyRepository)),
	wire.Bind(new(UserStore), new(*mongoRepo.UserRepository)),
	wire.Bind(new(TokenBlacklist), new(*redisRepo.TokenBlacklistRepository)),
	wire.Bind(new(GenerationLogger), new(*fluentdRepo.LogRepository)),
)

// QRCodeStore 產物的持久化能力
type QRCodeStore interface {
	Create(ctx context.Context, qrCode *model.QRCode) (*model.QRCode, error)
	Finalize(ctx context.Context, id primitive.ObjectID, image string) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.QRCode, error)
	FindOwned(ctx context.Context, id, userID primitive.ObjectID) (*model.QRCode, error)
	FindLatest(ctx context.Context, lookup model.QRCodeLookup) (*model.QRCode, error)
	RecordAccess(ctx context.Context, id primitive.ObjectID, at time.Time) error
	RecordScan(ctx context.Context, id primitive.ObjectID, event model.ScanEvent) error
	CountCreatedSince(ctx context.Context, userID primitive.ObjectID, channel core.Channel, since time.Time) (int64, error)
	OldestCreatedSince(ctx context.Context, userID primitive.ObjectID, channel core.Channel, since time.Time) (*time.Time, error)
	ListOwned(ctx context.Context, query model.QRCodeListQuery) ([]*model.QRCode, int64, error)
	DeleteOwned(ctx context.Context, id, userID primitive.ObjectID) (bool, error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) error
	Analytics(ctx context.Context, userID primitive.ObjectID, since time.Time) (*model.QRCodeAnalytics, error)
}

type APIKeyStore interface {
	Create(ctx context.Context, apiKey *model.APIKey) (*model.APIKey, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.APIKey, error)
	ListByOwner(ctx context.Context, userID primitive.ObjectID) ([]*model.APIKey, error)
	Revoke(ctx context.Context, id, userID primitive.ObjectID, at time.Time) (bool, error)
	DeleteOwned(ctx context.Context, id, userID primitive.ObjectID) (bool, error)
	MarkExpired(ctx context.Context, id primitive.ObjectID) error
	TouchLastUsed(ctx context.Context, id primitive.ObjectID, at time.Time) error
	ExpireBefore(ctx context.Context, now time.Time) (int64, error)
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindByLogin(ctx context.Context, login string) (*model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status core.Status) (int64, error)
	UpdateRole(ctx context.Context, id primitive.ObjectID, role core.Role) (int64, error)
	UpdateLastSeen(ctx context.Context, id primitive.ObjectID, at time.Time) (int64, error)
	List(ctx context.Context, opts core.ListOptions) ([]*model.User, int64, error)
}

// TokenBlacklist 登出後的 jti 黑名單
type TokenBlacklist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Exists(ctx context.Context, jti string) (bool, error)
}

type GenerationLogger interface {
	LogGeneration(ctx context.Context, generation fluentdModel.GenerationLog) error
}

const defaultStoreTimeout = 5 * time.Second

func storeTimeout(conf *config.Configuration) time.Duration {
	if conf == nil || conf.QRCode.StoreTimeoutMs <= 0 {
		return defaultStoreTimeout
	}
	return time.Duration(conf.QRCode.StoreTimeoutMs) * time.Millisecond
}

// storeErr 把資料層錯誤轉成應用錯誤
func storeErr(err error, notFound string) error {
	var appErr *cErr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, mongo.ErrNoDocuments):
		return cErr.NotFound(notFound)
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return cErr.ServiceUnavailable("store timed out")
	default:
		return cErr.DatabaseError("store operation failed")
	}
}

func objectIDOf(hex string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(hex)
	return id, err == nil
}
