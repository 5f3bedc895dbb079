package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"qrious/internal/core"
	client "qrious/internal/database/client"
	"qrious/internal/database/mongodb/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(mongoClient *client.MongoClient) *UserRepository {
	repository := newUserRepository(mongoClient.Database().Collection(string(core.MongoCollectionUsers)))
	// 啟動時建立常用索引（冪等、存在即跳過）
	_ = repository.ensureIndexes(context.Background())
	return repository
}

func newUserRepository(collection *mongo.Collection) *UserRepository {
	return &UserRepository{collection: collection}
}

func (repository *UserRepository) ensureIndexes(contextValue context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_email").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("uniq_username").SetUnique(true),
		},
		{ // 依建立時間倒序查列表
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_createdAt_desc"),
		},
		{ // 依使用者狀態查詢
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		},
	}
	_, returnedError := repository.collection.Indexes().CreateMany(contextValue, indexModels)
	return returnedError
}

// Create：單文件插入；email/username 重複時回傳 mongo duplicate key error
func (repository *UserRepository) Create(
	contextValue context.Context,
	user *model.User,
) (_ *model.User, returnedError error) {

	nowUTC := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = nowUTC
	user.UpdatedAt = nowUTC

	insertResult, insertError := repository.collection.InsertOne(contextValue, user)
	if insertError != nil {
		return nil, insertError
	}
	objectID, ok := insertResult.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected InsertedID type: %T", insertResult.InsertedID)
	}
	user.ID = objectID
	return user, nil
}

// GetByID：單文件讀取
func (repository *UserRepository) GetByID(
	contextValue context.Context,
	userIdentifier primitive.ObjectID,
) (_ *model.User, returnedError error) {

	var user model.User
	if returnedError = repository.collection.FindOne(contextValue, bson.M{"_id": userIdentifier}).Decode(&user); returnedError != nil {
		return nil, returnedError
	}
	return &user, nil
}

// FindByLogin：login 可以是 email 或 username
func (repository *UserRepository) FindByLogin(
	contextValue context.Context,
	login string,
) (_ *model.User, returnedError error) {

	login = strings.TrimSpace(login)
	filter := bson.M{"$or": bson.A{
		bson.M{"email": strings.ToLower(login)},
		bson.M{"username": login},
	}}
	var user model.User
	if returnedError = repository.collection.FindOne(contextValue, filter).Decode(&user); returnedError != nil {
		return nil, returnedError
	}
	return &user, nil
}

// ExistsByUsernameOrEmail：註冊前檢查
func (repository *UserRepository) ExistsByUsernameOrEmail(
	contextValue context.Context,
	username string,
	email string,
) (_ bool, returnedError error) {

	filter := bson.M{"$or": bson.A{
		bson.M{"email": strings.ToLower(strings.TrimSpace(email))},
		bson.M{"username": strings.TrimSpace(username)},
	}}
	count, countError := repository.collection.CountDocuments(contextValue, filter, options.Count().SetLimit(1))
	if countError != nil {
		return false, countError
	}
	return count > 0, nil
}

func (repository *UserRepository) UpdateStatus(contextValue context.Context, userIdentifier primitive.ObjectID, status core.Status) (int64, error) {
	return repository.setFields(contextValue, userIdentifier, bson.M{"status": status})
}

func (repository *UserRepository) UpdateRole(contextValue context.Context, userIdentifier primitive.ObjectID, role core.Role) (int64, error) {
	return repository.setFields(contextValue, userIdentifier, bson.M{"role": role})
}

// UpdateLastSeen 每次 session 解析成功後 best-effort 呼叫
func (repository *UserRepository) UpdateLastSeen(contextValue context.Context, userIdentifier primitive.ObjectID, lastSeenTime time.Time) (int64, error) {
	return repository.setFields(contextValue, userIdentifier, bson.M{"lastSeen": lastSeenTime.UTC()})
}

// setFields 回傳 matched 數，0 代表使用者不存在
func (repository *UserRepository) setFields(contextValue context.Context, userIdentifier primitive.ObjectID, fields bson.M) (int64, error) {
	result, updateError := repository.collection.UpdateOne(contextValue, bson.M{"_id": userIdentifier}, withUpdatedAt(bson.M{"$set": fields}))
	if updateError != nil {
		return 0, updateError
	}
	return result.MatchedCount, nil
}

// List：分頁查詢（page 為「0 起算」），同時回傳符合條件的總數
func (repository *UserRepository) List(
	contextValue context.Context,
	listOptions core.ListOptions,
) (_ []*model.User, _ int64, returnedError error) {

	filter := listOptions.Filter
	if filter == nil {
		filter = bson.M{}
	}
	total, countError := repository.collection.CountDocuments(contextValue, filter)
	if countError != nil {
		return nil, 0, countError
	}

	findOptions := options.Find().
		SetSkip(listOptions.Page * listOptions.Size).
		SetLimit(listOptions.Size).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, findError := repository.collection.Find(contextValue, filter, findOptions)
	if findError != nil {
		return nil, 0, findError
	}
	defer cursor.Close(contextValue)

	users := make([]*model.User, 0)
	if returnedError = cursor.All(contextValue, &users); returnedError != nil {
		return nil, 0, returnedError
	}
	return users, total, nil
}
