package dto

import (
	"time"

	"qrious/internal/core"
	"qrious/internal/pkg/request"
)

type CreateAPIKeyDto struct {
	Name          string `json:"name" binding:"required,max=100"`
	ExpiresInDays *int   `json:"expiresInDays,omitempty" binding:"omitempty,min=1,max=3650"`
}

func (CreateAPIKeyDto) GetMessages() request.ValidatorMessages {
	return request.ValidatorMessages{
		"Name.required":     "name is required",
		"ExpiresInDays.min": "expiresInDays must be between 1 and 3650",
		"ExpiresInDays.max": "expiresInDays must be between 1 and 3650",
	}
}

// APIKeyDto 列表時 Key 為遮蔽後的字串，只有建立當下回傳明文
type APIKeyDto struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Key       string      `json:"key"`
	Status    core.Status `json:"status"`
	LastUsed  *time.Time  `json:"lastUsed,omitempty"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
	RevokedAt *time.Time  `json:"revokedAt,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

type CreateAPIKeyResultDto struct {
	Message string     `json:"message"`
	APIKey  *APIKeyDto `json:"apiKey"`
}

func (d *CreateAPIKeyResultDto) GetMessage() string { return d.Message }

type APIKeyListDto struct {
	APIKeys []*APIKeyDto `json:"apiKeys"`
}
