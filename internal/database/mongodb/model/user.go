package model

import (
	"qrious/internal/core"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id"`                                // 使用者唯一識別碼
	Username     string             `json:"username" bson:"username"`                     // 登入名稱（唯一）
	Email        string             `json:"email" bson:"email"`                           // 使用者信箱（唯一，小寫）
	PasswordHash string             `json:"-" bson:"passwordHash"`                        // bcrypt 雜湊
	Role         core.Role          `json:"role" bson:"role"`                             // 使用者角色
	Status       core.Status        `json:"status" bson:"status"`                         // 帳號狀態
	LastSeen     *time.Time         `json:"lastSeen,omitempty" bson:"lastSeen,omitempty"` // 最後使用時間
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`                   // 建立時間
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`                   // 更新時間
}
