package core

type Role string

const (
	RoleAdmin Role = "admin" // 管理員：可管理所有用戶
	RoleUser  Role = "user"  // 一般使用者
)

type Status string

const (
	StatusActive    Status = "active"    // 正常可用
	StatusBlocked   Status = "blocked"   // 被封鎖（例如濫用）
	StatusSuspended Status = "suspended" // 暫停（違規調查中）
	StatusExpired   Status = "expired"   // 已過期
	StatusRevoked   Status = "revoked"   // 被手動撤銷
)
