package model

import (
	"qrious/internal/core"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QRCode 產生的 QR 產物；圖片內容編的是 /scan/<id>，不是原始網址
type QRCode struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id"`
	Name          string              `json:"name" bson:"name"`
	URL           string              `json:"url" bson:"url"`                                   // 原始目標網址，scan 時轉址
	QRCodeImage   string              `json:"qrData,omitempty" bson:"qrCodeImage,omitempty"`    // data:image/png;base64,...
	UserID        primitive.ObjectID  `json:"userID" bson:"userID"`                             // 擁有者
	APIKeyID      *primitive.ObjectID `json:"apiKeyID,omitempty" bson:"apiKeyID,omitempty"`     // 經由 API key 產生時填入
	GeneratedVia  core.Channel        `json:"generatedVia" bson:"generatedVia"`                 // session / apikey
	Customization core.Style          `json:"customization" bson:"customization"`               // 樣式
	StyleKey      string              `json:"-" bson:"styleKey"`                                // Style.Key()，快取查詢用
	State         core.ArtifactState  `json:"-" bson:"state"`                                   // pending / finalized
	AccessCount   int64               `json:"accessCount" bson:"accessCount"`                   // 取用次數（含快取命中）
	LastAccessed  *time.Time          `json:"lastAccessed,omitempty" bson:"lastAccessed,omitempty"`
	ScanCount     int64               `json:"scanCount" bson:"scanCount"`
	LastScanned   *time.Time          `json:"lastScanned,omitempty" bson:"lastScanned,omitempty"`
	ScanHistory   []ScanEvent         `json:"scanHistory,omitempty" bson:"scanHistory,omitempty"` // 最多保留 100 筆，舊的先丟
	CreatedAt     time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt" bson:"updatedAt"`
}

type ScanEvent struct {
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	UserAgent string    `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty" bson:"ipAddress,omitempty"`
	Referrer  string    `json:"referrer,omitempty" bson:"referrer,omitempty"`
}

// QRCodeLookup 快取查詢條件；StyleKey 為空代表不比對樣式
type QRCodeLookup struct {
	URL      string
	UserID   primitive.ObjectID
	Channel  core.Channel
	StyleKey string
}

// QRCodeListQuery 使用者清單查詢，Page 從 1 起算
type QRCodeListQuery struct {
	UserID    primitive.ObjectID
	Page      int64
	Limit     int64
	SortBy    string
	SortOrder int
}

type MethodCount struct {
	Method string `json:"_id" bson:"_id"`
	Count  int64  `json:"count" bson:"count"`
}

// QRCodeAnalytics $facet 聚合結果
type QRCodeAnalytics struct {
	TotalQRCodes      int64         `json:"totalQrCodes"`
	TotalAccesses     int64         `json:"totalAccesses"`
	TotalScans        int64         `json:"totalScans"`
	RecentQRCodes     int64         `json:"recentQrCodes"`
	GenerationMethods []MethodCount `json:"generationMethods"`
	TopQRCodes        []*QRCode     `json:"topQrCodes"`
}
