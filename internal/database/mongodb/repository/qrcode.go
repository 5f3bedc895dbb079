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

// 清單可排序欄位（API 名稱 → 文件欄位）
var qrCodeSortFields = map[string]string{
	"createdAt":   "createdAt",
	"name":        "name",
	"accessCount": "accessCount",
	"scanCount":   "scanCount",
	"lastScanned": "lastScanned",
}

// IsQRCodeSortField 檢查 sortBy 是否可用
func IsQRCodeSortField(field string) bool {
	_, ok := qrCodeSortFields[field]
	return ok
}

type QRCodeRepository struct {
	collection *mongo.Collection
}

func NewQRCodeRepository(mongoClient *client.MongoClient) *QRCodeRepository {
	repository := newQRCodeRepository(mongoClient.Database().Collection(string(core.MongoCollectionQRCodes)))
	_ = repository.ensureIndexes(context.Background())
	return repository
}

func newQRCodeRepository(collection *mongo.Collection) *QRCodeRepository {
	return &QRCodeRepository{collection: collection}
}

func (repository *QRCodeRepository) ensureIndexes(contextValue context.Context) error {
	indexModels := []mongo.IndexModel{
		{ // 配額：依擁有者 + 通道計算時間窗內數量
			Keys: bson.D{
				{Key: "userID", Value: 1},
				{Key: "generatedVia", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_owner_channel_createdAt"),
		},
		{ // 快取：內容 + 擁有者 + 通道 (+ 樣式)
			Keys: bson.D{
				{Key: "userID", Value: 1},
				{Key: "url", Value: 1},
				{Key: "generatedVia", Value: 1},
				{Key: "styleKey", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_cache_lookup"),
		},
		{ // 使用者清單
			Keys:    bson.D{{Key: "userID", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_owner_createdAt"),
		},
	}
	_, returnedError := repository.collection.Indexes().CreateMany(contextValue, indexModels)
	return returnedError
}

// Create：以 pending 狀態寫入，拿到 id 後再 Finalize
func (repository *QRCodeRepository) Create(
	contextValue context.Context,
	qrCode *model.QRCode,
) (_ *model.QRCode, returnedError error) {

	nowUTC := time.Now().UTC()
	if qrCode.ID.IsZero() {
		qrCode.ID = primitive.NewObjectID()
	}
	if qrCode.CreatedAt.IsZero() {
		qrCode.CreatedAt = nowUTC
	}
	qrCode.UpdatedAt = nowUTC

	insertResult, insertError := repository.collection.InsertOne(contextValue, qrCode)
	if insertError != nil {
		return nil, insertError
	}
	objectID, ok := insertResult.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected InsertedID type: %T", insertResult.InsertedID)
	}
	qrCode.ID = objectID
	return qrCode, nil
}

// Finalize：寫入編碼 scan 網址後的圖片並轉為 finalized
func (repository *QRCodeRepository) Finalize(
	contextValue context.Context,
	qrCodeIdentifier primitive.ObjectID,
	image string,
) (returnedError error) {

	update := bson.M{"$set": bson.M{
		"qrCodeImage": image,
		"state":       core.ArtifactFinalized,
	}}
	result, updateError := repository.collection.UpdateOne(contextValue, bson.M{"_id": qrCodeIdentifier}, withUpdatedAt(update))
	if updateError != nil {
		return updateError
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// FindByID：scan 使用，不限擁有者
func (repository *QRCodeRepository) FindByID(
	contextValue context.Context,
	qrCodeIdentifier primitive.ObjectID,
) (_ *model.QRCode, returnedError error) {

	findOptions := options.FindOne().SetProjection(bson.M{"qrCodeImage": 0, "scanHistory": 0})
	var qrCode model.QRCode
	filter := bson.M{"_id": qrCodeIdentifier, "state": core.ArtifactFinalized}
	if returnedError = repository.collection.FindOne(contextValue, filter, findOptions).Decode(&qrCode); returnedError != nil {
		return nil, returnedError
	}
	return &qrCode, nil
}

// FindOwned：擁有者限定，scanHistory 只取最近 10 筆
func (repository *QRCodeRepository) FindOwned(
	contextValue context.Context,
	qrCodeIdentifier primitive.ObjectID,
	userIdentifier primitive.ObjectID,
) (_ *model.QRCode, returnedError error) {

	findOptions := options.FindOne().SetProjection(bson.M{"scanHistory": bson.M{"$slice": -10}})
	filter := bson.M{
		"_id":    qrCodeIdentifier,
		"userID": userIdentifier,
		"state":  core.ArtifactFinalized,
	}
	var qrCode model.QRCode
	if returnedError = repository.collection.FindOne(contextValue, filter, findOptions).Decode(&qrCode); returnedError != nil {
		return nil, returnedError
	}
	return &qrCode, nil
}

// FindLatest：快取查詢，取最新一筆 finalized；沒有時回傳 mongo.ErrNoDocuments
func (repository *QRCodeRepository) FindLatest(
	contextValue context.Context,
	lookup model.QRCodeLookup,
) (_ *model.QRCode, returnedError error) {

	filter := bson.M{
		"url":          lookup.URL,
		"userID":       lookup.UserID,
		"generatedVia": lookup.Channel,
		"state":        core.ArtifactFinalized,
	}
	if lookup.StyleKey != "" {
		filter["styleKey"] = lookup.StyleKey
	}
	findOptions := options.FindOne().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.M{"scanHistory": 0})

	var qrCode model.QRCode
	if returnedError = repository.collection.FindOne(contextValue, filter, findOptions).Decode(&qrCode); returnedError != nil {
		return nil, returnedError
	}
	return &qrCode, nil
}

// RecordAccess：accessCount +1 並更新 lastAccessed
func (repository *QRCodeRepository) RecordAccess(
	contextValue context.Context,
	qrCodeIdentifier primitive.ObjectID,
	accessedAt time.Time,
) (returnedError error) {

	update := bson.M{
		"$inc": bson.M{"accessCount": 1},
		"$set": bson.M{"lastAccessed": accessedAt.UTC()},
	}
	result, updateError := repository.collection.UpdateOne(contextValue, bson.M{"_id": qrCodeIdentifier}, withUpdatedAt(update))
	if updateError != nil {
		return updateError
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// RecordScan：計數、lastScanned 與歷史同一次寫入，歷史只保留最新 ScanHistoryLimit 筆
func (repository *QRCodeRepository) RecordScan(
	contextValue context.Context,
	qrCodeIdentifier primitive.ObjectID,
	event model.ScanEvent,
) (returnedError error) {

	event.Timestamp = event.Timestamp.UTC()
	update := bson.M{
		"$inc": bson.M{"scanCount": 1},
		"$set": bson.M{"lastScanned": event.Timestamp},
		"$push": bson.M{"scanHistory": bson.M{
			"$each":  []model.ScanEvent{event},
			"$slice": -core.ScanHistoryLimit,
		}},
	}
	result, updateError := repository.collection.UpdateOne(contextValue, bson.M{"_id": qrCodeIdentifier}, withUpdatedAt(update))
	if updateError != nil {
		return updateError
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// CountCreatedSince：配額計算（含 pending，避免兩階段寫入期間少算）
func (repository *QRCodeRepository) CountCreatedSince(
	contextValue context.Context,
	userIdentifier primitive.ObjectID,
	channel core.Channel,
	since time.Time,
) (_ int64, returnedError error) {

	filter := bson.M{
		"userID":       userIdentifier,
		"generatedVia": channel,
		"createdAt":    bson.M{"$gte": since.UTC()},
	}
	return repository.collection.CountDocuments(contextValue, filter)
}

// OldestCreatedSince：時間窗內最舊一筆的建立時間，用來推算 resetTime
func (repository *QRCodeRepository) OldestCreatedSince(
	contextValue context.Context,
	userIdentifier primitive.ObjectID,
	channel core.Channel,
	since time.Time,
) (_ *time.Time, returnedError error) {

	filter := bson.M{
		"userID":       userIdentifier,
		"generatedVia": channel,
		"createdAt":    bson.M{"$gte": since.UTC()},
	}
	findOptions := options.FindOne().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetProjection(bson.M{"createdAt": 1})

	var row struct {
		CreatedAt time.Time `bson:"createdAt"`
	}
	if returnedError = repository.collection.FindOne(contextValue, filter, findOptions).Decode(&row); returnedError != nil {
		return nil, returnedError
	}
	return &row.CreatedAt, nil
}

// ListOwned：分頁清單（page 從 1 起算），不含圖片與掃描歷史
func (repository *QRCodeRepository) ListOwned(
	contextValue context.Context,
	query model.QRCodeListQuery,
) (_ []*model.QRCode, _ int64, returnedError error) {

	filter := bson.M{"userID": query.UserID, "state": core.ArtifactFinalized}
	total, countError := repository.collection.CountDocuments(contextValue, filter)
	if countError != nil {
		return nil, 0, countError
	}

	sortField, ok := qrCodeSortFields[query.SortBy]
	if !ok {
		sortField = "createdAt"
	}
	order := -1
	if query.SortOrder > 0 {
		order = 1
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	findOptions := options.Find().
		SetSkip((page - 1) * query.Limit).
		SetLimit(query.Limit).
		SetSort(bson.D{{Key: sortField, Value: order}, {Key: "_id", Value: order}}).
		SetProjection(bson.M{"qrCodeImage": 0, "scanHistory": 0})

	cursor, findError := repository.collection.Find(contextValue, filter, findOptions)
	if findError != nil {
		return nil, 0, findError
	}
	defer cursor.Close(contextValue)

	qrCodes := make([]*model.QRCode, 0)
	if returnedError = cursor.All(contextValue, &qrCodes); returnedError != nil {
		return nil, 0, returnedError
	}
	return qrCodes, total, nil
}

// DeleteOwned：回傳是否有刪到（false 代表不存在或非擁有者）
func (repository *QRCodeRepository) DeleteOwned(
	contextValue context.Context,
	qrCodeIdentifier primitive.ObjectID,
	userIdentifier primitive.ObjectID,
) (_ bool, returnedError error) {

	result, deleteError := repository.collection.DeleteOne(contextValue, bson.M{"_id": qrCodeIdentifier, "userID": userIdentifier})
	if deleteError != nil {
		return false, deleteError
	}
	return result.DeletedCount > 0, nil
}

// DeleteByID：清除 finalize 失敗的 pending 紀錄
func (repository *QRCodeRepository) DeleteByID(
	contextValue context.Context,
	qrCodeIdentifier primitive.ObjectID,
) (returnedError error) {
	_, returnedError = repository.collection.DeleteOne(contextValue, bson.M{"_id": qrCodeIdentifier})
	return returnedError
}

// Analytics：單次 $facet 聚合出總量、近期數量、通道分布與熱門前 5
func (repository *QRCodeRepository) Analytics(
	contextValue context.Context,
	userIdentifier primitive.ObjectID,
	since time.Time,
) (_ *model.QRCodeAnalytics, returnedError error) {

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userID": userIdentifier, "state": core.ArtifactFinalized}}},
		{{Key: "$facet", Value: bson.M{
			"totals": bson.A{
				bson.M{"$group": bson.M{
					"_id":           nil,
					"totalQrCodes":  bson.M{"$sum": 1},
					"totalAccesses": bson.M{"$sum": "$accessCount"},
					"totalScans":    bson.M{"$sum": "$scanCount"},
				}},
			},
			"recent": bson.A{
				bson.M{"$match": bson.M{"createdAt": bson.M{"$gte": since.UTC()}}},
				bson.M{"$count": "count"},
			},
			"methods": bson.A{
				bson.M{"$group": bson.M{"_id": "$generatedVia", "count": bson.M{"$sum": 1}}},
				bson.M{"$sort": bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}},
			},
			"top": bson.A{
				bson.M{"$sort": bson.D{{Key: "accessCount", Value: -1}, {Key: "createdAt", Value: -1}}},
				bson.M{"$limit": 5},
				bson.M{"$project": bson.M{"qrCodeImage": 0, "scanHistory": 0}},
			},
		}}},
	}

	cursor, aggregateError := repository.collection.Aggregate(contextValue, pipeline)
	if aggregateError != nil {
		return nil, aggregateError
	}
	defer cursor.Close(contextValue)

	var rows []struct {
		Totals []struct {
			TotalQRCodes  int64 `bson:"totalQrCodes"`
			TotalAccesses int64 `bson:"totalAccesses"`
			TotalScans    int64 `bson:"totalScans"`
		} `bson:"totals"`
		Recent []struct {
			Count int64 `bson:"count"`
		} `bson:"recent"`
		Methods []model.MethodCount `bson:"methods"`
		Top     []*model.QRCode     `bson:"top"`
	}
	if returnedError = cursor.All(contextValue, &rows); returnedError != nil {
		return nil, returnedError
	}

	analytics := &model.QRCodeAnalytics{
		GenerationMethods: []model.MethodCount{},
		TopQRCodes:        []*model.QRCode{},
	}
	if len(rows) == 0 {
		return analytics, nil
	}
	row := rows[0]
	if len(row.Totals) > 0 {
		analytics.TotalQRCodes = row.Totals[0].TotalQRCodes
		analytics.TotalAccesses = row.Totals[0].TotalAccesses
		analytics.TotalScans = row.Totals[0].TotalScans
	}
	if len(row.Recent) > 0 {
		analytics.RecentQRCodes = row.Recent[0].Count
	}
	if row.Methods != nil {
		analytics.GenerationMethods = row.Methods
	}
	if row.Top != nil {
		analytics.TopQRCodes = row.Top
	}
	return analytics, nil
}
