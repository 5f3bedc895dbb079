package core

import (
	"fmt"
	"strings"
	"time"
)

type ErrorCorrection string

const (
	ErrorCorrectionL ErrorCorrection = "L"
	ErrorCorrectionM ErrorCorrection = "M"
	ErrorCorrectionQ ErrorCorrection = "Q"
	ErrorCorrectionH ErrorCorrection = "H"
)

// Style QR code 的外觀參數
type Style struct {
	Size                 int             `json:"size" bson:"size"`
	ForegroundColor      string          `json:"foregroundColor" bson:"foregroundColor"`
	BackgroundColor      string          `json:"backgroundColor" bson:"backgroundColor"`
	ErrorCorrectionLevel ErrorCorrection `json:"errorCorrectionLevel" bson:"errorCorrectionLevel"`
	Margin               int             `json:"margin" bson:"margin"`
}

const (
	StyleMinSize   = 100
	StyleMaxSize   = 1000
	StyleMinMargin = 0
	StyleMaxMargin = 20
)

func DefaultStyle() Style {
	return Style{
		Size:                 300,
		ForegroundColor:      "#000000",
		BackgroundColor:      "#FFFFFF",
		ErrorCorrectionLevel: ErrorCorrectionM,
		Margin:               4,
	}
}

// Key 樣式的正規化字串，作為快取 key 的一部分
func (s Style) Key() string {
	return fmt.Sprintf("%d|%s|%s|%s|%d",
		s.Size,
		strings.ToUpper(s.ForegroundColor),
		strings.ToUpper(s.BackgroundColor),
		s.ErrorCorrectionLevel,
		s.Margin,
	)
}

// ArtifactState 兩階段寫入：先以原始內容存成 pending，拿到 id 後改編 scan 網址再 finalized
type ArtifactState string

const (
	ArtifactPending   ArtifactState = "pending"
	ArtifactFinalized ArtifactState = "finalized"
)

const (
	MaxContentLength = 2048
	MaxNameLength    = 100
	ScanHistoryLimit = 100
)

// Scope 配額視窗
type Scope string

const (
	ScopeHourly  Scope = "hourly"
	ScopeDaily   Scope = "daily"
	ScopeMonthly Scope = "monthly"
)

// Scopes 依檢查順序排列
var Scopes = []Scope{ScopeHourly, ScopeDaily, ScopeMonthly}

func (s Scope) Window() time.Duration {
	switch s {
	case ScopeHourly:
		return time.Hour
	case ScopeDaily:
		return 24 * time.Hour
	case ScopeMonthly:
		return 30 * 24 * time.Hour
	}
	return 0
}

type UsageWindow struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

type Usage struct {
	Hourly  UsageWindow `json:"hourly"`
	Daily   UsageWindow `json:"daily"`
	Monthly UsageWindow `json:"monthly"`
}

func (u *Usage) Window(scope Scope) *UsageWindow {
	switch scope {
	case ScopeHourly:
		return &u.Hourly
	case ScopeDaily:
		return &u.Daily
	case ScopeMonthly:
		return &u.Monthly
	}
	return nil
}

// Consumed 新增一筆產物後的用量
func (u Usage) Consumed() Usage {
	u.Hourly.Used++
	u.Daily.Used++
	u.Monthly.Used++
	return u
}
