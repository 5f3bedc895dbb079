package core

import "go.mongodb.org/mongo-driver/bson"

// ─── Database Types ────────────────────────────────────────────────────────────

type MongoDatabaseName string
type MongoCollection string
type RedisKey string
type FluentdSubTag string

// ─── MongoDB ───────────────────────────────────────────────────────────────────
const (
	MongoDBQrious MongoDatabaseName = "qrious"
)

// MongoDB collections
const (
	MongoCollectionUsers   MongoCollection = "users"
	MongoCollectionAPIKeys MongoCollection = "api_keys"
	MongoCollectionQRCodes MongoCollection = "qr_codes"
)

// ─── Redis Keys ────────────────────────────────────────────────────────────────

const (
	RedisKeyBlacklist  RedisKey = "blacklist_token" // 已登出 token 的 jti
	RedisKeyThrottle   RedisKey = "throttle"        // 以 IP 計數的限流視窗
	RedisKeyServerName RedisKey = "qrious"          // 預設 key 前綴
)

const (
	FluentdRequest    FluentdSubTag = "request_log"
	FluentdResponse   FluentdSubTag = "response_log"
	FluentdGeneration FluentdSubTag = "qrcode_generation_log"
)

type ListOptions struct {
	Filter bson.M `json:"filter,omitempty" bson:"filter,omitempty"`
	Page   int64  `json:"page,omitempty" bson:"page,omitempty"`
	Size   int64  `json:"size,omitempty" bson:"size,omitempty"`
}
