package error

const (
	// 0 ~ 999: 成功類別
	SUCCESS = 0 // 200 OK

	// 40000 ~ 49999: 用戶請求錯誤 (400 系列)
	BAD_REQUEST_BODY    = 40000 // 400 - 無效的請求體
	BAD_REQUEST_PARAMS  = 40001 // 400 - 無效的請求參數
	BAD_REQUEST_HEADERS = 40002 // 400 - 無效的請求標頭
	INVALID_CONTENT     = 40010 // 400 - url 缺少、過長或格式錯誤
	INVALID_STYLE       = 40011 // 400 - 樣式參數超出範圍
	UNENCODABLE_CONTENT = 40012 // 400 - 內容超過該容錯等級可編碼長度
	USER_ALREADY_EXISTS = 40020 // 400 - 用戶已存在

	// 40100 ~ 40399: 驗證與權限錯誤 (401 403 系列)
	UNAUTHORIZED         = 40100 // 401 - 未授權
	INVALID_SESSION      = 40101 // 401 - 會話失效
	INVALID_CREDENTIALS  = 40102 // 401 - 帳號或密碼錯誤
	UNAUTHORIZED_API_KEY = 40300 // 403 - API Key 已撤銷或過期
	FORBIDDEN            = 40301 // 403 - 禁止訪問

	// 40400 ~ 40499: 資源錯誤 (404 系列)
	NOT_FOUND = 40400 // 404 - 資源未找到

	// 42900 ~ 42999: 流量限制錯誤 (429 系列)
	RATE_LIMIT_EXCEEDED = 42900 // 429 - 來源 IP 請求過於頻繁
	QUOTA_EXCEEDED      = 42901 // 429 - 產生配額用盡

	// 50000 ~ 50199: 伺服器內部錯誤 (500 系列)
	INTERNAL_ERROR      = 50000 // 500 - 內部錯誤
	DATABASE_ERROR      = 50001 // 500 - 資料庫錯誤
	SERVICE_UNAVAILABLE = 50002 // 503 - 依賴逾時或熔斷
	ENCODER_ERROR       = 50003 // 500 - QR 編碼失敗
)
