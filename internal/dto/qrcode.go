package dto

import (
	"time"

	"qrious/internal/core"
)

// StyleDto 所有欄位皆可省略，省略時套用預設樣式
type StyleDto struct {
	Size                 *int    `json:"size,omitempty"`
	ForegroundColor      *string `json:"foregroundColor,omitempty"`
	BackgroundColor      *string `json:"backgroundColor,omitempty"`
	ErrorCorrectionLevel *string `json:"errorCorrectionLevel,omitempty"`
	Margin               *int    `json:"margin,omitempty"`
}

// GenerateQRCodeDto url 的檢查統一在 service 做，handler 不加 binding
type GenerateQRCodeDto struct {
	URL           string    `json:"url" form:"url"`
	Name          string    `json:"name,omitempty" form:"name"`
	Customization *StyleDto `json:"customization,omitempty"`
}

type PreviewQRCodeDto struct {
	URL           string    `json:"url"`
	Customization *StyleDto `json:"customization,omitempty"`
}

type ScanEventDto struct {
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"userAgent,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
}

type QRCodeDto struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	URL           string         `json:"url"`
	QRData        string         `json:"qrData,omitempty"`
	Customization *core.Style    `json:"customization,omitempty"`
	GeneratedVia  core.Channel   `json:"generatedVia,omitempty"`
	AccessCount   int64          `json:"accessCount"`
	LastAccessed  *time.Time     `json:"lastAccessed,omitempty"`
	ScanCount     int64          `json:"scanCount"`
	LastScanned   *time.Time     `json:"lastScanned,omitempty"`
	ScanHistory   []ScanEventDto `json:"scanHistory,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	Cached        *bool          `json:"cached,omitempty"`
}

// GenerateResultDto 產生結果；Created 決定 201 或 200
type GenerateResultDto struct {
	Message string      `json:"message"`
	QRCode  *QRCodeDto  `json:"qrCode"`
	Usage   *core.Usage `json:"usage,omitempty"`
	Created bool        `json:"-"`
}

func (d *GenerateResultDto) GetMessage() string { return d.Message }

type PreviewResultDto struct {
	Message       string     `json:"message"`
	QRData        string     `json:"qrData"`
	Customization core.Style `json:"customization"`
}

func (d *PreviewResultDto) GetMessage() string { return d.Message }

type QRCodeListQueryDto struct {
	Page      *int64 `form:"page" binding:"omitempty,min=1"`
	Limit     *int64 `form:"limit" binding:"omitempty,min=1,max=100"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
}

type QRCodeListDto struct {
	QRCodes    []*QRCodeDto  `json:"qrCodes"`
	Pagination PaginationDto `json:"pagination"`
}

type QRCodeDetailDto struct {
	QRCode *QRCodeDto `json:"qrCode"`
}

type AnalyticsQueryDto struct {
	Days *int64 `form:"days" binding:"omitempty,min=1,max=365"`
}

type PeriodDto struct {
	Days  int64     `json:"days"`
	Since time.Time `json:"since"`
}

type MethodCountDto struct {
	Method string `json:"_id"`
	Count  int64  `json:"count"`
}

type AnalyticsDto struct {
	Period            PeriodDto        `json:"period"`
	TotalQRCodes      int64            `json:"totalQrCodes"`
	TotalAccesses     int64            `json:"totalAccesses"`
	TotalScans        int64            `json:"totalScans"`
	RecentQRCodes     int64            `json:"recentQrCodes"`
	GenerationMethods []MethodCountDto `json:"generationMethods"`
	TopQRCodes        []*QRCodeDto     `json:"topQrCodes"`
}

// ScanRequestMeta 掃描時記錄的來源資訊
type ScanRequestMeta struct {
	UserAgent string
	IPAddress string
	Referrer  string
}
