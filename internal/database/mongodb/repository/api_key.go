package repository

import (
	"context"
	"fmt"
	"time"

	"qrious/internal/core"
	client "qrious/internal/database/client"
	"qrious/internal/database/mongodb/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type APIKeyRepository struct {
	collection *mongo.Collection
}

func NewAPIKeyRepository(mongoClient *client.MongoClient) *APIKeyRepository {
	repository := newAPIKeyRepository(mongoClient.Database().Collection(string(core.MongoCollectionAPIKeys)))
	_ = repository.ensureIndexes(context.Background())
	return repository
}

func newAPIKeyRepository(collection *mongo.Collection) *APIKeyRepository {
	return &APIKeyRepository{collection: collection}
}

// 建索引：
// 1) key 唯一
// 2) 使用者清單、過期掃描
func (repository *APIKeyRepository) ensureIndexes(contextValue context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetName("uniq_key").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userID", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_userID_createdAt"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("idx_status_expiresAt"),
		},
	}
	_, returnedError := repository.collection.Indexes().CreateMany(contextValue, models)
	return returnedError
}

// Create 新增一筆 API Key（ID 由呼叫端預先產生，因為 key 內容包含 ID）
func (repository *APIKeyRepository) Create(contextValue context.Context, apiKey *model.APIKey) (_ *model.APIKey, returnedError error) {
	nowUTC := time.Now().UTC()
	if apiKey.ID.IsZero() {
		apiKey.ID = primitive.NewObjectID()
	}
	if apiKey.CreatedAt.IsZero() {
		apiKey.CreatedAt = nowUTC
	}
	apiKey.UpdatedAt = nowUTC

	insertResult, insertError := repository.collection.InsertOne(contextValue, apiKey)
	if insertError != nil {
		return nil, insertError
	}
	objectID, ok := insertResult.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected InsertedID type: %T", insertResult.InsertedID)
	}
	apiKey.ID = objectID
	return apiKey, nil
}

func (repository *APIKeyRepository) FindByID(contextValue context.Context, apiKeyIdentifier primitive.ObjectID) (_ *model.APIKey, returnedError error) {
	var apiKey model.APIKey
	if returnedError = repository.collection.FindOne(contextValue, bson.M{"_id": apiKeyIdentifier}).Decode(&apiKey); returnedError != nil {
		return nil, returnedError
	}
	return &apiKey, nil
}

// ListByOwner 依建立時間倒序
func (repository *APIKeyRepository) ListByOwner(contextValue context.Context, userIdentifier primitive.ObjectID) (_ []*model.APIKey, returnedError error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, findError := repository.collection.Find(contextValue, bson.M{"userID": userIdentifier}, findOptions)
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	apiKeys := make([]*model.APIKey, 0)
	if returnedError = cursor.All(contextValue, &apiKeys); returnedError != nil {
		return nil, returnedError
	}
	return apiKeys, nil
}

// Revoke 撤銷（單向）；已撤銷時視為成功，不覆寫 revokedAt。回傳 false 代表不存在或非擁有者
func (repository *APIKeyRepository) Revoke(
	contextValue context.Context,
	apiKeyIdentifier primitive.ObjectID,
	userIdentifier primitive.ObjectID,
	revokedAt time.Time,
) (_ bool, returnedError error) {

	filter := bson.M{
		"_id":    apiKeyIdentifier,
		"userID": userIdentifier,
		"status": bson.M{"$ne": core.StatusRevoked},
	}
	update := bson.M{"$set": bson.M{"status": core.StatusRevoked, "revokedAt": revokedAt.UTC()}}
	result, updateError := repository.collection.UpdateOne(contextValue, filter, withUpdatedAt(update))
	if updateError != nil {
		return false, updateError
	}
	if result.MatchedCount > 0 {
		return true, nil
	}
	count, countError := repository.collection.CountDocuments(contextValue, bson.M{"_id": apiKeyIdentifier, "userID": userIdentifier})
	if countError != nil {
		return false, countError
	}
	return count > 0, nil
}

// DeleteOwned 硬刪除；回傳 false 代表不存在或非擁有者
func (repository *APIKeyRepository) DeleteOwned(
	contextValue context.Context,
	apiKeyIdentifier primitive.ObjectID,
	userIdentifier primitive.ObjectID,
) (_ bool, returnedError error) {

	result, deleteError := repository.collection.DeleteOne(contextValue, bson.M{"_id": apiKeyIdentifier, "userID": userIdentifier})
	if deleteError != nil {
		return false, deleteError
	}
	return result.DeletedCount > 0, nil
}

// MarkExpired 只把仍為 active 的 key 標成 expired
func (repository *APIKeyRepository) MarkExpired(contextValue context.Context, apiKeyIdentifier primitive.ObjectID) (returnedError error) {
	filter := bson.M{"_id": apiKeyIdentifier, "status": core.StatusActive}
	update := bson.M{"$set": bson.M{"status": core.StatusExpired}}
	_, returnedError = repository.collection.UpdateOne(contextValue, filter, withUpdatedAt(update))
	return returnedError
}

func (repository *APIKeyRepository) TouchLastUsed(
	contextValue context.Context,
	apiKeyIdentifier primitive.ObjectID,
	usedAt time.Time,
) (returnedError error) {

	update := bson.M{"$set": bson.M{"lastUsed": usedAt.UTC()}}
	_, returnedError = repository.collection.UpdateOne(contextValue, bson.M{"_id": apiKeyIdentifier}, withUpdatedAt(update))
	return returnedError
}

// ExpireBefore 批次把已過期的 active key 標成 expired，回傳筆數
func (repository *APIKeyRepository) ExpireBefore(contextValue context.Context, now time.Time) (_ int64, returnedError error) {
	filter := bson.M{
		"status":    core.StatusActive,
		"expiresAt": bson.M{"$lte": now.UTC()},
	}
	update := bson.M{"$set": bson.M{"status": core.StatusExpired}}
	result, updateError := repository.collection.UpdateMany(contextValue, filter, withUpdatedAt(update))
	if updateError != nil {
		return 0, updateError
	}
	return result.ModifiedCount, nil
}
