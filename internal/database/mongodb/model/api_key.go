package model

import (
	"qrious/internal/core"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type APIKey struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`                                  // API Key 唯一識別碼
	UserID    primitive.ObjectID `json:"userID" bson:"userID"`                           // 所屬使用者 ID
	Name      string             `json:"name" bson:"name"`                               // 顯示名稱
	Key       string             `json:"-" bson:"key"`                                   // 完整 key，只在建立時回傳一次
	Status    core.Status        `json:"status" bson:"status"`                           // active / revoked / expired
	ExpiresAt *time.Time         `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"` // 過期時間，nil 為永久
	LastUsed  *time.Time         `json:"lastUsed,omitempty" bson:"lastUsed,omitempty"`   // 最後一次驗證成功時間
	RevokedAt *time.Time         `json:"revokedAt,omitempty" bson:"revokedAt,omitempty"` // 撤銷時間
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`                     // 建立時間
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`                     // 更新時間
}

// Expired 以 now 判斷是否已過期
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}
