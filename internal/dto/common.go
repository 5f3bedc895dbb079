package dto

// MessageDto 只有訊息的回應
type MessageDto struct {
	Message string `json:"message"`
}

func (d *MessageDto) GetMessage() string { return d.Message }

type PaginationDto struct {
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// NewPagination 依總數計算總頁數
func NewPagination(page, limit, total int64) PaginationDto {
	pages := int64(0)
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return PaginationDto{Page: page, Limit: limit, Total: total, Pages: pages}
}
